package controllers

import (
	"context"
	"errors"
	"time"

	"cognitory/backend/config"
	"cognitory/backend/models"
	"cognitory/backend/oops"
	"cognitory/backend/utils"

	"gorm.io/gorm"
)

type BootstrapUserInput struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=user admin super"`
}

// BootstrapUser creates an already approved account with any role. Web
// signup can only produce pending plain users, so the first super comes
// from here.
func BootstrapUser(ctx context.Context, db *gorm.DB, cfg *config.Config, input BootstrapUserInput) (*models.User, error) {
	if err := utils.ValidateStruct(&input); err != nil {
		return nil, err
	}
	hashed, err := HashPassword(input.Password, cfg)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := models.User{
		Name:       input.Name,
		Email:      normalizeEmail(input.Email),
		Password:   hashed,
		Role:       input.Role,
		Approved:   true,
		ApprovedAt: &now,
	}
	err = db.WithContext(ctx).Create(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, oops.Conflict("Email already registered")
	}
	if err != nil {
		return nil, oops.New(err, "could not create user")
	}
	return &user, nil
}
