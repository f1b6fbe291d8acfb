package controllers

import (
	"cognitory/backend/config"
	"cognitory/backend/models"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClassController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewClassController(db *gorm.DB, cfg *config.Config) *ClassController {
	return &ClassController{DB: db, Cfg: cfg}
}

type createClassInput struct {
	Name         string `json:"name" validate:"required,min=1,max=255"`
	EnterpriseID string `json:"enterpriseId" validate:"required"`
}

func (cc *ClassController) CreateClass(c *fiber.Ctx) error {
	var input createClassInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}
	slug, err := slugFor(input.Name)
	if err != nil {
		return utils.Fail(c, err)
	}

	ctx := c.UserContext()
	refs := []utils.Ref{
		{Model: &models.Enterprise{}, ID: input.EnterpriseID, Label: "Enterprise"},
	}
	if err := utils.CheckIDs(refs...); err != nil {
		return utils.Fail(c, err)
	}
	if err := utils.RequireReferences(ctx, cc.DB, refs...); err != nil {
		return utils.Fail(c, err)
	}

	class := models.Class{
		Base:         models.Base{ID: uuid.NewString()},
		Name:         input.Name,
		Slug:         slug,
		EnterpriseID: input.EnterpriseID,
	}
	err = cc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var enterprise models.Enterprise
		if err := utils.LoadRef(ctx, tx, &enterprise, input.EnterpriseID, "Enterprise"); err != nil {
			return err
		}
		scope := map[string]interface{}{"enterprise_id": enterprise.ID}
		if err := ensureUnique(tx, &models.Class{}, "slug", slug, scope, "", "Duplicate Class name"); err != nil {
			return err
		}
		if err := linkChild(tx, &enterprise, "Classes", &class, "Duplicate Class name"); err != nil {
			return err
		}
		return reload(tx, &class, class.ID, "Enterprise")
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, "Class created successfully", class)
}

func (cc *ClassController) GetClasses(c *fiber.Ctx) error {
	var classes []models.Class
	return listEntities(c, cc.DB, &models.Class{}, &classes, 1, "Classes", "Enterprise")
}

func (cc *ClassController) GetClass(c *fiber.Ctx) error {
	var class models.Class
	return getEntity(c, cc.DB, &class, "Class", "Enterprise")
}

func (cc *ClassController) UpdateClass(c *fiber.Ctx) error {
	var class models.Class
	return renameEntity(c, cc.DB, &class, renameOptions{
		Label:        "Class",
		Model:        &models.Class{},
		ParentColumn: "enterprise_id",
		ParentID:     func() string { return class.EnterpriseID },
		Preloads:     []string{"Enterprise"},
	})
}
