package utils

import (
	"math"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type PageParams struct {
	Page     int
	Limit    int
	Paginate bool
}

type PageMeta struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
	From        int64 `json:"from"`
	To          int64 `json:"to"`
}

// GetPageParams reads page, limit and paginate from the query string,
// clamping nonsense values instead of rejecting them.
func GetPageParams(c *fiber.Ctx) PageParams {
	params := PageParams{
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", DefaultPageLimit),
		Paginate: c.QueryBool("paginate", true),
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = DefaultPageLimit
	}
	if params.Limit > MaxPageLimit {
		params.Limit = MaxPageLimit
	}
	return params
}

// Scope applies offset/limit when pagination is on.
func (p PageParams) Scope(db *gorm.DB) *gorm.DB {
	if !p.Paginate {
		return db
	}
	return db.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
}

// Meta computes the pagination block for totalItems rows.
func (p PageParams) Meta(totalItems int64) PageMeta {
	if !p.Paginate {
		meta := PageMeta{
			Page:       1,
			Limit:      int(totalItems),
			TotalItems: totalItems,
			TotalPages: 1,
		}
		if totalItems > 0 {
			meta.From = 1
			meta.To = totalItems
		}
		return meta
	}

	totalPages := int(math.Ceil(float64(totalItems) / float64(p.Limit)))
	meta := PageMeta{
		Page:        p.Page,
		Limit:       p.Limit,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasNextPage: p.Page < totalPages,
		HasPrevPage: p.Page > 1,
	}

	from := int64((p.Page-1)*p.Limit) + 1
	if from <= totalItems {
		meta.From = from
		meta.To = int64(math.Min(float64(totalItems), float64(p.Page*p.Limit)))
	}
	return meta
}
