package controllers

import (
	"errors"
	"strings"

	"cognitory/backend/config"
	"cognitory/backend/middleware"
	"cognitory/backend/models"
	"cognitory/backend/oops"
	"cognitory/backend/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type QuestionController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewQuestionController(db *gorm.DB, cfg *config.Config) *QuestionController {
	return &QuestionController{DB: db, Cfg: cfg}
}

// QuestionBody is what a creator writes; create and edit share it. It is
// exported so the validator can reach it when embedded.
type QuestionBody struct {
	Text        string   `json:"text" validate:"required"`
	TextType    string   `json:"textType" validate:"omitempty,oneof=text markdown latex"`
	ImageUUID   string   `json:"imageUuid" validate:"omitempty,uuid"`
	ImageFiles  []string `json:"imageFiles" validate:"omitempty,dive,required"`
	Type        string   `json:"type" validate:"required,oneof=input multiple"`
	Options     []string `json:"options" validate:"omitempty,dive,required"`
	Answer      string   `json:"answer" validate:"required"`
	Hint        string   `json:"hint"`
	Explanation string   `json:"explanation"`
}

type createQuestionInput struct {
	QuestionBody
	EnterpriseID string `json:"enterpriseId" validate:"required"`
	ClassID      string `json:"classId" validate:"required"`
	SubjectID    string `json:"subjectId" validate:"required"`
	TopicID      string `json:"topicId" validate:"required"`
	SubtopicID   string `json:"subtopicId" validate:"required"`
	LevelID      string `json:"levelId" validate:"required"`
}

func init() {
	utils.Validator().RegisterStructValidation(validateQuestionBody, QuestionBody{})
}

// validateQuestionBody enforces the option count of multiple-choice questions.
func validateQuestionBody(sl validator.StructLevel) {
	body := sl.Current().Interface().(QuestionBody)
	if body.Type == models.QuestionTypeMultiple && len(body.Options) != models.MultipleChoiceOptions {
		sl.ReportError(body.Options, "options", "Options", "len", "4")
	}
}

func (b QuestionBody) apply(q *models.Question) {
	q.Text = b.Text
	q.TextType = b.TextType
	if q.TextType == "" {
		q.TextType = models.TextTypeText
	}
	q.ImageUUID = b.ImageUUID
	q.ImageFiles = b.ImageFiles
	q.Type = b.Type
	q.Options = b.Options
	if q.Type == models.QuestionTypeInput {
		q.Options = nil
	}
	q.Answer = b.Answer
	q.Hint = b.Hint
	q.Explanation = b.Explanation
}

var questionBodyColumns = []string{
	"text", "text_type", "image_uuid", "image_files", "type",
	"options", "answer", "hint", "explanation",
}

var questionPreloads = []string{
	"Creator", "Review", "Review.ReviewedBy",
	"Enterprise", "Class", "Subject", "Topic", "Subtopic", "Level",
}

// sortColumns is the allowlist for ?sort=<field>[:asc|desc].
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"text":      "text",
	"type":      "type",
	"textType":  "text_type",
}

// questionOrder resolves sort and random into an ORDER BY expression.
func questionOrder(c *fiber.Ctx) (string, error) {
	if c.QueryBool("random", false) {
		return "RANDOM()", nil
	}
	sort := c.Query("sort")
	if sort == "" {
		return "created_at DESC", nil
	}

	field, direction, _ := strings.Cut(sort, ":")
	column, ok := sortColumns[field]
	if !ok {
		return "", oops.Validation(map[string]string{"sort": "sort must be one of [createdAt updatedAt text type textType]"})
	}
	switch strings.ToLower(direction) {
	case "", "desc":
		return column + " DESC", nil
	case "asc":
		return column + " ASC", nil
	default:
		return "", oops.Validation(map[string]string{"sort": "sort direction must be asc or desc"})
	}
}

// reviewState narrows q to questions whose Review matches reviewed/approved.
// Either flag may be nil, meaning no constraint.
func reviewState(db *gorm.DB, q *gorm.DB, reviewed, approved *bool) *gorm.DB {
	if reviewed != nil {
		condition := "reviewed_at IS NULL"
		if *reviewed {
			condition = "reviewed_at IS NOT NULL"
		}
		q = q.Where("id IN (?)", db.Model(&models.Review{}).Select("question_id").Where(condition))
	}
	if approved != nil {
		q = q.Where("id IN (?)", db.Model(&models.Review{}).Select("question_id").Where("approved = ?", *approved))
	}
	return q
}

func optionalBool(c *fiber.Ctx, key string) *bool {
	if c.Query(key) == "" {
		return nil
	}
	v := c.QueryBool(key, false)
	return &v
}

// listQuestions is shared by the plain list and the review queue.
func (qc *QuestionController) listQuestions(c *fiber.Ctx, reviewed, approved *bool, message string) error {
	where, err := ancestorFilters(c, qc.DB, len(ancestorChain))
	if err != nil {
		return utils.Fail(c, err)
	}
	user, err := middleware.CurrentUser(c, qc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}
	withDeleted, err := includeDeleted(c, qc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}
	order, err := questionOrder(c)
	if err != nil {
		return utils.Fail(c, err)
	}
	params := utils.GetPageParams(c)

	build := func() *gorm.DB {
		q := qc.DB.Model(&models.Question{}).Scopes(utils.Visibility(withDeleted)).Where(where)
		if user.Role == models.RoleUser {
			q = q.Where("creator_id = ?", user.ID)
		}
		return reviewState(qc.DB, q, reviewed, approved)
	}

	var questions []models.Question
	total, err := countAndFind(c.UserContext(), build, params, &questions, order, questionPreloads...)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Paginated(c, message, questions, params.Meta(total))
}

// [+] CreateQuestion godoc
// @Summary Author a question under a level
// @Description The question starts with an unreviewed Review.
// @Tags question
// @Accept json
// @Produce json
// @Success 201 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 406 {object} utils.ErrorResponse
// @Router /question [post]
func (qc *QuestionController) CreateQuestion(c *fiber.Ctx) error {
	var input createQuestionInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}

	ctx := c.UserContext()
	refs := []utils.Ref{
		{Model: &models.Enterprise{}, ID: input.EnterpriseID, Label: "Enterprise"},
		{Model: &models.Class{}, ID: input.ClassID, Label: "Class"},
		{Model: &models.Subject{}, ID: input.SubjectID, Label: "Subject"},
		{Model: &models.Topic{}, ID: input.TopicID, Label: "Topic"},
		{Model: &models.Subtopic{}, ID: input.SubtopicID, Label: "Subtopic"},
		{Model: &models.Level{}, ID: input.LevelID, Label: "Level"},
	}
	if err := utils.CheckIDs(refs...); err != nil {
		return utils.Fail(c, err)
	}
	if err := utils.RequireReferences(ctx, qc.DB, refs...); err != nil {
		return utils.Fail(c, err)
	}
	creator, err := middleware.CurrentUser(c, qc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}

	question := models.Question{
		Base:         models.Base{ID: uuid.NewString()},
		CreatorID:    creator.ID,
		EnterpriseID: input.EnterpriseID,
		ClassID:      input.ClassID,
		SubjectID:    input.SubjectID,
		TopicID:      input.TopicID,
		SubtopicID:   input.SubtopicID,
		LevelID:      input.LevelID,
	}
	input.QuestionBody.apply(&question)

	err = qc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.RequireReferences(ctx, tx, refs...); err != nil {
			return err
		}
		var level models.Level
		if err := utils.LoadRef(ctx, tx, &level, input.LevelID, "Level"); err != nil {
			return err
		}
		switch {
		case level.SubtopicID != input.SubtopicID:
			return utils.MismatchError("Level", "Subtopic")
		case level.TopicID != input.TopicID:
			return utils.MismatchError("Level", "Topic")
		case level.SubjectID != input.SubjectID:
			return utils.MismatchError("Level", "Subject")
		case level.ClassID != input.ClassID:
			return utils.MismatchError("Level", "Class")
		case level.EnterpriseID != input.EnterpriseID:
			return utils.MismatchError("Level", "Enterprise")
		}

		if err := linkChild(tx, &level, "Questions", &question, "Duplicate Question"); err != nil {
			return err
		}
		review := models.Review{QuestionID: question.ID}
		if err := tx.Create(&review).Error; err != nil {
			return oops.New(err, "failed to create review")
		}
		return reload(tx, &question, question.ID, questionPreloads...)
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, "Question created successfully", question)
}

// GetQuestions lists questions. Plain users only ever see their own.
func (qc *QuestionController) GetQuestions(c *fiber.Ctx) error {
	return qc.listQuestions(c, optionalBool(c, "reviewed"), optionalBool(c, "approved"), "Questions fetched successfully")
}

// GetReviewQueue lists questions nobody has reviewed yet.
func (qc *QuestionController) GetReviewQueue(c *fiber.Ctx) error {
	unreviewed := false
	return qc.listQuestions(c, &unreviewed, nil, "Review queue fetched successfully")
}

type QuestionStats struct {
	Total      int64 `json:"total"`
	Unreviewed int64 `json:"unreviewed"`
	Approved   int64 `json:"approved"`
	Rejected   int64 `json:"rejected"`
}

// GetQuestionStats counts live questions by review state.
func (qc *QuestionController) GetQuestionStats(c *fiber.Ctx) error {
	where, err := ancestorFilters(c, qc.DB, len(ancestorChain))
	if err != nil {
		return utils.Fail(c, err)
	}

	yes, no := true, false
	var stats QuestionStats
	counts := []struct {
		dest     *int64
		reviewed *bool
		approved *bool
	}{
		{&stats.Total, nil, nil},
		{&stats.Unreviewed, &no, nil},
		{&stats.Approved, &yes, &yes},
		{&stats.Rejected, &yes, &no},
	}

	g, gctx := errgroup.WithContext(c.UserContext())
	for _, count := range counts {
		count := count
		g.Go(func() error {
			q := qc.DB.WithContext(gctx).Model(&models.Question{}).Where(where)
			return reviewState(qc.DB, q, count.reviewed, count.approved).Count(count.dest).Error
		})
	}
	if err := g.Wait(); err != nil {
		return utils.Fail(c, oops.New(err, "failed to count questions"))
	}

	return utils.OK(c, "Question stats fetched successfully", stats)
}

func (qc *QuestionController) GetQuestion(c *fiber.Ctx) error {
	id := c.Params("id")
	if !utils.IsValidID(id) {
		return utils.Fail(c, oops.Invalid("Invalid Question ID"))
	}
	user, err := middleware.CurrentUser(c, qc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}
	withDeleted, err := includeDeleted(c, qc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}

	q := qc.DB.WithContext(c.UserContext()).Scopes(utils.Visibility(withDeleted)).Where("id = ?", id)
	if user.Role == models.RoleUser {
		q = q.Where("creator_id = ?", user.ID)
	}

	var question models.Question
	err = withPreloads(q, questionPreloads...).Take(&question).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Fail(c, oops.NotFound("Question not found"))
	}
	if err != nil {
		return utils.Fail(c, oops.New(err, "failed to load question"))
	}

	return utils.OK(c, "Question fetched successfully", question)
}

// loadOwnQuestion fetches id for a write by user. Only the creator and
// admins may write; others get the same 404 a missing row gives.
func loadOwnQuestion(tx *gorm.DB, question *models.Question, id string, user *models.User) error {
	if err := loadForUpdate(tx, question, id, "Question", user.Role); err != nil {
		return err
	}
	if question.CreatorID != user.ID && !models.RoleAtLeast(user.Role, models.RoleAdmin) {
		return oops.NotFound("Question not found")
	}
	return nil
}

// UpdateQuestion replaces the body. Any edit sends the question back to the
// review queue.
func (qc *QuestionController) UpdateQuestion(c *fiber.Ctx) error {
	id := c.Params("id")
	if !utils.IsValidID(id) {
		return utils.Fail(c, oops.Invalid("Invalid Question ID"))
	}
	var input QuestionBody
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}
	user, err := middleware.CurrentUser(c, qc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}

	var question models.Question
	err = qc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := loadOwnQuestion(tx, &question, id, user); err != nil {
			return err
		}
		input.apply(&question)
		if err := tx.Unscoped().Model(&question).Select(questionBodyColumns).Updates(&question).Error; err != nil {
			return oops.New(err, "failed to update question")
		}

		err := tx.Model(&models.Review{}).Where("question_id = ?", id).Updates(map[string]interface{}{
			"approved":       false,
			"comment":        "",
			"rating":         0,
			"reviewed_by_id": nil,
			"reviewed_at":    nil,
		}).Error
		if err != nil {
			return oops.New(err, "failed to reset review")
		}
		return reload(tx, &question, id, questionPreloads...)
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, "Question updated successfully", question)
}

// DeleteQuestion soft-deletes. The Review stays with it.
func (qc *QuestionController) DeleteQuestion(c *fiber.Ctx) error {
	id := c.Params("id")
	if !utils.IsValidID(id) {
		return utils.Fail(c, oops.Invalid("Invalid Question ID"))
	}
	user, err := middleware.CurrentUser(c, qc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}

	err = qc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var question models.Question
		// super can see deleted rows; deleting one twice is a no-op, not an error
		if err := loadOwnQuestion(tx, &question, id, user); err != nil {
			return err
		}
		if question.IsDeleted() {
			return nil
		}
		if err := tx.Delete(&question).Error; err != nil {
			return oops.New(err, "failed to delete question")
		}
		return nil
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, "Question deleted successfully", fiber.Map{"id": id})
}

func (qc *QuestionController) RestoreQuestion(c *fiber.Ctx) error {
	id := c.Params("id")
	if !utils.IsValidID(id) {
		return utils.Fail(c, oops.Invalid("Invalid Question ID"))
	}

	var question models.Question
	err := qc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := loadForUpdate(tx, &question, id, "Question", models.RoleSuper); err != nil {
			return err
		}
		if !question.IsDeleted() {
			return oops.Conflict("Question is not deleted")
		}
		if err := tx.Unscoped().Model(&question).Update("deleted_at", nil).Error; err != nil {
			return oops.New(err, "failed to restore question")
		}
		return reload(tx, &question, id, questionPreloads...)
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, "Question restored successfully", question)
}
