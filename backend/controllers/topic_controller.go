package controllers

import (
	"cognitory/backend/config"
	"cognitory/backend/models"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TopicController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewTopicController(db *gorm.DB, cfg *config.Config) *TopicController {
	return &TopicController{DB: db, Cfg: cfg}
}

type createTopicInput struct {
	Name         string `json:"name" validate:"required,min=1,max=255"`
	EnterpriseID string `json:"enterpriseId" validate:"required"`
	ClassID      string `json:"classId" validate:"required"`
	SubjectID    string `json:"subjectId" validate:"required"`
}

func (tc *TopicController) CreateTopic(c *fiber.Ctx) error {
	var input createTopicInput
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
		{Model: &models.Subject{}, ID: input.SubjectID, Label: "Subject"},
	}
	if err := utils.CheckIDs(refs...); err != nil {
		return utils.Fail(c, err)
	}
	if err := utils.RequireReferences(ctx, tc.DB, refs...); err != nil {
		return utils.Fail(c, err)
	}

	topic := models.Topic{
		Base:         models.Base{ID: uuid.NewString()},
		Name:         input.Name,
		Slug:         slug,
		SubjectID:    input.SubjectID,
		ClassID:      input.ClassID,
		EnterpriseID: input.EnterpriseID,
	}
	err = tc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.RequireReferences(ctx, tx, refs...); err != nil {
			return err
		}
		var subject models.Subject
		if err := utils.LoadRef(ctx, tx, &subject, input.SubjectID, "Subject"); err != nil {
			return err
		}
		if subject.ClassID != input.ClassID {
			return utils.MismatchError("Subject", "Class")
		}
		if subject.EnterpriseID != input.EnterpriseID {
			return utils.MismatchError("Subject", "Enterprise")
		}
		scope := map[string]interface{}{"subject_id": subject.ID}
		if err := ensureUnique(tx, &models.Topic{}, "slug", slug, scope, "", "Duplicate Topic name"); err != nil {
			return err
		}
		if err := linkChild(tx, &subject, "Topics", &topic, "Duplicate Topic name"); err != nil {
			return err
		}
		return reload(tx, &topic, topic.ID, "Subject", "Class", "Enterprise")
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, "Topic created successfully", topic)
}

func (tc *TopicController) GetTopics(c *fiber.Ctx) error {
	var topics []models.Topic
	return listEntities(c, tc.DB, &models.Topic{}, &topics, 3, "Topics", "Subject", "Class", "Enterprise")
}

func (tc *TopicController) GetTopic(c *fiber.Ctx) error {
	var topic models.Topic
	return getEntity(c, tc.DB, &topic, "Topic", "Subject", "Class", "Enterprise")
}

func (tc *TopicController) UpdateTopic(c *fiber.Ctx) error {
	var topic models.Topic
	return renameEntity(c, tc.DB, &topic, renameOptions{
		Label:        "Topic",
		Model:        &models.Topic{},
		ParentColumn: "subject_id",
		ParentID:     func() string { return topic.SubjectID },
		Preloads:     []string{"Subject", "Class", "Enterprise"},
	})
}
