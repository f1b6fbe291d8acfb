package controllers

import (
	"errors"
	"time"

	"cognitory/backend/config"
	"cognitory/backend/middleware"
	"cognitory/backend/models"
	"cognitory/backend/oops"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ReviewController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewReviewController(db *gorm.DB, cfg *config.Config) *ReviewController {
	return &ReviewController{DB: db, Cfg: cfg}
}

type reviewInput struct {
	Approved *bool  `json:"approved" validate:"required"`
	Comment  string `json:"comment" validate:"max=2000"`
	Rating   int    `json:"rating" validate:"min=0,max=5"`
}

// [+] ReviewQuestion godoc
// @Summary Review a question
// @Description Creates the question's review or overwrites the existing one.
// @Tags review
// @Accept json
// @Produce json
// @Param questionId path string true "Question ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 406 {object} utils.ErrorResponse
// @Router /review/{questionId} [post]
func (rc *ReviewController) ReviewQuestion(c *fiber.Ctx) error {
	questionID := c.Params("questionId")
	ref := utils.Ref{Model: &models.Question{}, ID: questionID, Label: "Question"}
	if err := utils.CheckIDs(ref); err != nil {
		return utils.Fail(c, err)
	}
	var input reviewInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}

	ctx := c.UserContext()
	if err := utils.RequireReferences(ctx, rc.DB, ref); err != nil {
		return utils.Fail(c, err)
	}
	reviewer, err := middleware.CurrentUser(c, rc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}

	var review models.Review
	err = rc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var question models.Question
		if err := utils.LoadRef(ctx, tx, &question, questionID, "Question"); err != nil {
			return err
		}

		now := time.Now()
		err := tx.Where("question_id = ?", question.ID).Take(&review).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			review = models.Review{
				QuestionID:   question.ID,
				Approved:     *input.Approved,
				Comment:      input.Comment,
				Rating:       input.Rating,
				ReviewedByID: &reviewer.ID,
				ReviewedAt:   &now,
			}
			if err := tx.Create(&review).Error; err != nil {
				return oops.New(err, "failed to create review")
			}
		case err != nil:
			return oops.New(err, "failed to load review")
		default:
			err := tx.Model(&review).Updates(map[string]interface{}{
				"approved":       *input.Approved,
				"comment":        input.Comment,
				"rating":         input.Rating,
				"reviewed_by_id": reviewer.ID,
				"reviewed_at":    now,
			}).Error
			if err != nil {
				return oops.New(err, "failed to update review")
			}
		}

		return reload(tx, &review, review.ID, "ReviewedBy")
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, "Question reviewed successfully", review)
}

// GetReview reads the review of a visible question. Plain users may only
// read reviews of their own questions.
func (rc *ReviewController) GetReview(c *fiber.Ctx) error {
	questionID := c.Params("questionId")
	if !utils.IsValidID(questionID) {
		return utils.Fail(c, oops.Invalid("Invalid Question ID"))
	}
	user, err := middleware.CurrentUser(c, rc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}

	db := rc.DB.WithContext(c.UserContext())
	q := db.Model(&models.Question{}).Where("id = ?", questionID)
	if user.Role == models.RoleUser {
		q = q.Where("creator_id = ?", user.ID)
	}
	var visible int64
	if err := q.Count(&visible).Error; err != nil {
		return utils.Fail(c, oops.New(err, "failed to load question"))
	}
	if visible == 0 {
		return utils.Fail(c, oops.NotFound("Question not found"))
	}

	var review models.Review
	err = withPreloads(db, "ReviewedBy").Where("question_id = ?", questionID).Take(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Fail(c, oops.NotFound("Review not found"))
	}
	if err != nil {
		return utils.Fail(c, oops.New(err, "failed to load review"))
	}

	return utils.OK(c, "Review fetched successfully", review)
}
