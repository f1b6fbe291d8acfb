package controllers

import (
	"cognitory/backend/config"
	"cognitory/backend/models"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubtopicController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewSubtopicController(db *gorm.DB, cfg *config.Config) *SubtopicController {
	return &SubtopicController{DB: db, Cfg: cfg}
}

type createSubtopicInput struct {
	Name         string `json:"name" validate:"required,min=1,max=255"`
	EnterpriseID string `json:"enterpriseId" validate:"required"`
	ClassID      string `json:"classId" validate:"required"`
	SubjectID    string `json:"subjectId" validate:"required"`
	TopicID      string `json:"topicId" validate:"required"`
}

func (sc *SubtopicController) CreateSubtopic(c *fiber.Ctx) error {
	var input createSubtopicInput
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
		{Model: &models.Topic{}, ID: input.TopicID, Label: "Topic"},
	}
	if err := utils.CheckIDs(refs...); err != nil {
		return utils.Fail(c, err)
	}
	if err := utils.RequireReferences(ctx, sc.DB, refs...); err != nil {
		return utils.Fail(c, err)
	}

	subtopic := models.Subtopic{
		Base:         models.Base{ID: uuid.NewString()},
		Name:         input.Name,
		Slug:         slug,
		TopicID:      input.TopicID,
		SubjectID:    input.SubjectID,
		ClassID:      input.ClassID,
		EnterpriseID: input.EnterpriseID,
	}
	err = sc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.RequireReferences(ctx, tx, refs...); err != nil {
			return err
		}
		var topic models.Topic
		if err := utils.LoadRef(ctx, tx, &topic, input.TopicID, "Topic"); err != nil {
			return err
		}
		switch {
		case topic.SubjectID != input.SubjectID:
			return utils.MismatchError("Topic", "Subject")
		case topic.ClassID != input.ClassID:
			return utils.MismatchError("Topic", "Class")
		case topic.EnterpriseID != input.EnterpriseID:
			return utils.MismatchError("Topic", "Enterprise")
		}
		scope := map[string]interface{}{"topic_id": topic.ID}
		if err := ensureUnique(tx, &models.Subtopic{}, "slug", slug, scope, "", "Duplicate Subtopic name"); err != nil {
			return err
		}
		if err := linkChild(tx, &topic, "Subtopics", &subtopic, "Duplicate Subtopic name"); err != nil {
			return err
		}
		return reload(tx, &subtopic, subtopic.ID, "Topic", "Subject", "Class", "Enterprise")
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, "Subtopic created successfully", subtopic)
}

func (sc *SubtopicController) GetSubtopics(c *fiber.Ctx) error {
	var subtopics []models.Subtopic
	return listEntities(c, sc.DB, &models.Subtopic{}, &subtopics, 4, "Subtopics", "Topic", "Subject", "Class", "Enterprise")
}

func (sc *SubtopicController) GetSubtopic(c *fiber.Ctx) error {
	var subtopic models.Subtopic
	return getEntity(c, sc.DB, &subtopic, "Subtopic", "Topic", "Subject", "Class", "Enterprise")
}

func (sc *SubtopicController) UpdateSubtopic(c *fiber.Ctx) error {
	var subtopic models.Subtopic
	return renameEntity(c, sc.DB, &subtopic, renameOptions{
		Label:        "Subtopic",
		Model:        &models.Subtopic{},
		ParentColumn: "topic_id",
		ParentID:     func() string { return subtopic.TopicID },
		Preloads:     []string{"Topic", "Subject", "Class", "Enterprise"},
	})
}
