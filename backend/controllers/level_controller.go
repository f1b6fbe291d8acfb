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

type LevelController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewLevelController(db *gorm.DB, cfg *config.Config) *LevelController {
	return &LevelController{DB: db, Cfg: cfg}
}

type createLevelInput struct {
	Name         string `json:"name" validate:"required,min=1,max=255"`
	Rank         int    `json:"rank" validate:"required,min=1,max=10"`
	EnterpriseID string `json:"enterpriseId" validate:"required"`
	ClassID      string `json:"classId" validate:"required"`
	SubjectID    string `json:"subjectId" validate:"required"`
	TopicID      string `json:"topicId" validate:"required"`
	SubtopicID   string `json:"subtopicId" validate:"required"`
}

type updateLevelInput struct {
	Name string `json:"name" validate:"omitempty,min=1,max=255"`
	Rank *int   `json:"rank" validate:"omitempty,min=1,max=10"`
}

// [+] CreateLevel godoc
// @Summary Create a level under a subtopic
// @Tags level
// @Accept json
// @Produce json
// @Success 201 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 406 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /level [post]
func (lc *LevelController) CreateLevel(c *fiber.Ctx) error {
	var input createLevelInput
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
		{Model: &models.Subtopic{}, ID: input.SubtopicID, Label: "Subtopic"},
	}
	if err := utils.CheckIDs(refs...); err != nil {
		return utils.Fail(c, err)
	}
	if err := utils.RequireReferences(ctx, lc.DB, refs...); err != nil {
		return utils.Fail(c, err)
	}

	level := models.Level{
		Base:         models.Base{ID: uuid.NewString()},
		Name:         input.Name,
		Slug:         slug,
		Rank:         input.Rank,
		SubtopicID:   input.SubtopicID,
		TopicID:      input.TopicID,
		SubjectID:    input.SubjectID,
		ClassID:      input.ClassID,
		EnterpriseID: input.EnterpriseID,
	}
	err = lc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.RequireReferences(ctx, tx, refs...); err != nil {
			return err
		}
		// concurrent creates queue on the subtopic row, so the count below holds
		var subtopic models.Subtopic
		if err := utils.LockRef(ctx, tx, &subtopic, input.SubtopicID, "Subtopic"); err != nil {
			return err
		}
		switch {
		case subtopic.TopicID != input.TopicID:
			return utils.MismatchError("Subtopic", "Topic")
		case subtopic.SubjectID != input.SubjectID:
			return utils.MismatchError("Subtopic", "Subject")
		case subtopic.ClassID != input.ClassID:
			return utils.MismatchError("Subtopic", "Class")
		case subtopic.EnterpriseID != input.EnterpriseID:
			return utils.MismatchError("Subtopic", "Enterprise")
		}

		var live int64
		if err := tx.Model(&models.Level{}).Where("subtopic_id = ?", subtopic.ID).Count(&live).Error; err != nil {
			return oops.New(err, "failed to count levels")
		}
		if live >= int64(lc.Cfg.MaxLevelsPerSubtopic) {
			return oops.Conflict("Maximum %d levels allowed per subtopic", lc.Cfg.MaxLevelsPerSubtopic)
		}

		scope := map[string]interface{}{"subtopic_id": subtopic.ID}
		if err := ensureUnique(tx, &models.Level{}, "slug", slug, scope, "", "Duplicate Level name"); err != nil {
			return err
		}
		if err := ensureUnique(tx, &models.Level{}, "rank", level.Rank, scope, "", "Duplicate Level rank"); err != nil {
			return err
		}
		if err := linkChild(tx, &subtopic, "Levels", &level, "Duplicate Level name or rank"); err != nil {
			return err
		}
		return reload(tx, &level, level.ID, "Subtopic", "Topic", "Subject", "Class", "Enterprise")
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, "Level created successfully", level)
}

func (lc *LevelController) GetLevels(c *fiber.Ctx) error {
	var levels []models.Level
	where, err := ancestorFilters(c, lc.DB, 5)
	if err != nil {
		return utils.Fail(c, err)
	}
	withDeleted, err := includeDeleted(c, lc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}
	params := utils.GetPageParams(c)

	// levels read naturally in rank order inside a subtopic
	build := func() *gorm.DB {
		return lc.DB.Model(&models.Level{}).Scopes(utils.Visibility(withDeleted)).Where(where)
	}
	total, err := countAndFind(c.UserContext(), build, params, &levels, "subtopic_id, rank ASC", "Subtopic")
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Paginated(c, "Levels fetched successfully", levels, params.Meta(total))
}

func (lc *LevelController) GetLevel(c *fiber.Ctx) error {
	var level models.Level
	return getEntity(c, lc.DB, &level, "Level", "Subtopic", "Topic", "Subject", "Class", "Enterprise")
}

// UpdateLevel changes name and/or rank.
func (lc *LevelController) UpdateLevel(c *fiber.Ctx) error {
	id := c.Params("id")
	if !utils.IsValidID(id) {
		return utils.Fail(c, oops.Invalid("Invalid Level ID"))
	}
	var input updateLevelInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}
	if input.Name == "" && input.Rank == nil {
		return utils.Fail(c, oops.Validation(map[string]string{"name": "name or rank is required"}))
	}
	role, err := middleware.CurrentRole(c, lc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}

	var level models.Level
	err = lc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := loadForUpdate(tx, &level, id, "Level", role); err != nil {
			return err
		}
		scope := map[string]interface{}{"subtopic_id": level.SubtopicID}
		changes := map[string]interface{}{}

		if input.Name != "" {
			slug, err := slugFor(input.Name)
			if err != nil {
				return err
			}
			if err := ensureUnique(tx, &models.Level{}, "slug", slug, scope, id, "Duplicate Level name"); err != nil {
				return err
			}
			changes["name"] = input.Name
			changes["slug"] = slug
		}
		if input.Rank != nil {
			if err := ensureUnique(tx, &models.Level{}, "rank", *input.Rank, scope, id, "Duplicate Level rank"); err != nil {
				return err
			}
			changes["rank"] = *input.Rank
		}

		err := tx.Unscoped().Model(&level).Updates(changes).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return oops.Conflict("Duplicate Level name or rank")
		}
		if err != nil {
			return oops.New(err, "failed to update level")
		}
		return reload(tx, &level, id, "Subtopic", "Topic", "Subject", "Class", "Enterprise")
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, "Level updated successfully", level)
}
