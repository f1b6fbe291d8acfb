package controllers

import (
	"cognitory/backend/config"
	"cognitory/backend/models"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubjectController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewSubjectController(db *gorm.DB, cfg *config.Config) *SubjectController {
	return &SubjectController{DB: db, Cfg: cfg}
}

type createSubjectInput struct {
	Name         string `json:"name" validate:"required,min=1,max=255"`
	EnterpriseID string `json:"enterpriseId" validate:"required"`
	ClassID      string `json:"classId" validate:"required"`
}

func (sc *SubjectController) CreateSubject(c *fiber.Ctx) error {
	var input createSubjectInput
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
		{Model: &models.Class{}, ID: input.ClassID, Label: "Class"},
	}
	if err := utils.CheckIDs(refs...); err != nil {
		return utils.Fail(c, err)
	}
	if err := utils.RequireReferences(ctx, sc.DB, refs...); err != nil {
		return utils.Fail(c, err)
	}

	subject := models.Subject{
		Base:         models.Base{ID: uuid.NewString()},
		Name:         input.Name,
		Slug:         slug,
		ClassID:      input.ClassID,
		EnterpriseID: input.EnterpriseID,
	}
	err = sc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.RequireReferences(ctx, tx, refs...); err != nil {
			return err
		}
		var class models.Class
		if err := utils.LoadRef(ctx, tx, &class, input.ClassID, "Class"); err != nil {
			return err
		}
		if class.EnterpriseID != input.EnterpriseID {
			return utils.MismatchError("Class", "Enterprise")
		}
		scope := map[string]interface{}{"class_id": class.ID}
		if err := ensureUnique(tx, &models.Subject{}, "slug", slug, scope, "", "Duplicate Subject name"); err != nil {
			return err
		}
		if err := linkChild(tx, &class, "Subjects", &subject, "Duplicate Subject name"); err != nil {
			return err
		}
		return reload(tx, &subject, subject.ID, "Class", "Enterprise")
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, "Subject created successfully", subject)
}

func (sc *SubjectController) GetSubjects(c *fiber.Ctx) error {
	var subjects []models.Subject
	return listEntities(c, sc.DB, &models.Subject{}, &subjects, 2, "Subjects", "Class", "Enterprise")
}

func (sc *SubjectController) GetSubject(c *fiber.Ctx) error {
	var subject models.Subject
	return getEntity(c, sc.DB, &subject, "Subject", "Class", "Enterprise")
}

func (sc *SubjectController) UpdateSubject(c *fiber.Ctx) error {
	var subject models.Subject
	return renameEntity(c, sc.DB, &subject, renameOptions{
		Label:        "Subject",
		Model:        &models.Subject{},
		ParentColumn: "class_id",
		ParentID:     func() string { return subject.ClassID },
		Preloads:     []string{"Class", "Enterprise"},
	})
}
