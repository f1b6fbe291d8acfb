package controllers

import (
	"errors"

	"cognitory/backend/config"
	"cognitory/backend/middleware"
	"cognitory/backend/models"
	"cognitory/backend/oops"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EnterpriseController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewEnterpriseController(db *gorm.DB, cfg *config.Config) *EnterpriseController {
	return &EnterpriseController{DB: db, Cfg: cfg}
}

type createEnterpriseInput struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Email string `json:"email" validate:"required,email"`
}

type updateEnterpriseInput struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (ec *EnterpriseController) CreateEnterprise(c *fiber.Ctx) error {
	var input createEnterpriseInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}
	slug, err := slugFor(input.Name)
	if err != nil {
		return utils.Fail(c, err)
	}

	enterprise := models.Enterprise{
		Base:   models.Base{ID: uuid.NewString()},
		Name:   input.Name,
		Slug:   slug,
		Email:  input.Email,
		Avatar: utils.AvatarURL(input.Name),
	}

	err = ec.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := ensureUnique(tx, &models.Enterprise{}, "slug", slug, nil, "", "Duplicate Enterprise name"); err != nil {
			return err
		}
		err := tx.Create(&enterprise).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return oops.Conflict("Duplicate Enterprise name")
		}
		if err != nil {
			return oops.New(err, "failed to create enterprise")
		}
		return reload(tx, &enterprise, enterprise.ID)
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, "Enterprise created successfully", enterprise)
}

func (ec *EnterpriseController) GetEnterprises(c *fiber.Ctx) error {
	var enterprises []models.Enterprise
	return listEntities(c, ec.DB, &models.Enterprise{}, &enterprises, 0, "Enterprises")
}

func (ec *EnterpriseController) GetEnterprise(c *fiber.Ctx) error {
	var enterprise models.Enterprise
	return getEntity(c, ec.DB, &enterprise, "Enterprise")
}

func (ec *EnterpriseController) UpdateEnterprise(c *fiber.Ctx) error {
	id := c.Params("id")
	if !utils.IsValidID(id) {
		return utils.Fail(c, oops.Invalid("Invalid Enterprise ID"))
	}
	var input updateEnterpriseInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}
	slug, err := slugFor(input.Name)
	if err != nil {
		return utils.Fail(c, err)
	}
	role, err := middleware.CurrentRole(c, ec.DB)
	if err != nil {
		return utils.Fail(c, err)
	}

	var enterprise models.Enterprise
	err = ec.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := loadForUpdate(tx, &enterprise, id, "Enterprise", role); err != nil {
			return err
		}
		if err := ensureUnique(tx, &models.Enterprise{}, "slug", slug, nil, id, "Duplicate Enterprise name"); err != nil {
			return err
		}

		changes := map[string]interface{}{"name": input.Name, "slug": slug}
		if input.Email != "" {
			changes["email"] = input.Email
		}
		err := tx.Unscoped().Model(&enterprise).Updates(changes).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return oops.Conflict("Duplicate Enterprise name")
		}
		if err != nil {
			return oops.New(err, "failed to update enterprise")
		}
		return reload(tx, &enterprise, id)
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, "Enterprise updated successfully", enterprise)
}
