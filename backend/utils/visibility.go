package utils

import (
	"cognitory/backend/models"

	"gorm.io/gorm"
)

// CanSeeDeleted is the one rule for soft-deleted rows: only super callers
// who asked for them.
func CanSeeDeleted(role string, requested bool) bool {
	return role == models.RoleSuper && requested
}

// Visibility is the shared query scope built from CanSeeDeleted.
func Visibility(includeDeleted bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if includeDeleted {
			return db.Unscoped()
		}
		return db
	}
}
