package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base replaces gorm.Model with string UUID keys. Every hierarchy entity
// embeds it, so they all share the same soft-delete marker.
type Base struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"deletedAt" gorm:"index"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (b Base) IsDeleted() bool {
	return b.DeletedAt.Valid
}

// SoftDeletable is implemented by every model that embeds Base.
type SoftDeletable interface {
	IsDeleted() bool
}

// All lists every table in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Enterprise{},
		&Class{},
		&Subject{},
		&Topic{},
		&Subtopic{},
		&Level{},
		&Question{},
		&Review{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
