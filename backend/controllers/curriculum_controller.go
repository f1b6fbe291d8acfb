package controllers

import (
	"context"
	"errors"

	"cognitory/backend/config"
	"cognitory/backend/models"
	"cognitory/backend/oops"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type CurriculumController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCurriculumController(db *gorm.DB, cfg *config.Config) *CurriculumController {
	return &CurriculumController{DB: db, Cfg: cfg}
}

// Tree nodes. Children are never omitted so an empty level renders as [].

type LevelNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Rank      int            `json:"rank"`
	DeletedAt gorm.DeletedAt `json:"deletedAt"`
}

type SubtopicNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	DeletedAt gorm.DeletedAt `json:"deletedAt"`
	Levels    []LevelNode    `json:"levels"`
}

type TopicNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	DeletedAt gorm.DeletedAt `json:"deletedAt"`
	Subtopics []SubtopicNode `json:"subtopics"`
}

type SubjectNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	DeletedAt gorm.DeletedAt `json:"deletedAt"`
	Topics    []TopicNode    `json:"topics"`
}

type ClassNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	DeletedAt gorm.DeletedAt `json:"deletedAt"`
	Subjects  []SubjectNode  `json:"subjects"`
}

type EnterpriseNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Email     string         `json:"email"`
	Avatar    string         `json:"avatar"`
	DeletedAt gorm.DeletedAt `json:"deletedAt"`
	Classes   []ClassNode    `json:"classes"`
}

// curriculumRows is one flat read of every level below the enterprises.
type curriculumRows struct {
	Classes   []models.Class
	Subjects  []models.Subject
	Topics    []models.Topic
	Subtopics []models.Subtopic
	Levels    []models.Level
}

// [+] GetFullCurriculum godoc
// @Summary Full curriculum tree
// @Description One nested tree per enterprise, or only the enterprise given by enterpriseId.
// @Tags curriculum
// @Produce json
// @Param enterpriseId query string false "Enterprise ID"
// @Param filterDeleted query bool false "Hide soft-deleted rows (default true)"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /curriculum [get]
func (cc *CurriculumController) GetFullCurriculum(c *fiber.Ctx) error {
	withDeleted, err := includeDeleted(c, cc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()
	db := cc.DB.WithContext(ctx).Scopes(utils.Visibility(withDeleted))

	var enterprises []models.Enterprise
	if id := c.Query("enterpriseId"); id != "" {
		if !utils.IsValidID(id) {
			return utils.Fail(c, oops.Invalid("Invalid Enterprise ID"))
		}
		var enterprise models.Enterprise
		err := db.Where("id = ?", id).Take(&enterprise).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Fail(c, oops.NotFound("Enterprise not found"))
		}
		if err != nil {
			return utils.Fail(c, oops.New(err, "failed to load enterprise"))
		}
		enterprises = append(enterprises, enterprise)
	} else if err := db.Order("name ASC").Find(&enterprises).Error; err != nil {
		return utils.Fail(c, oops.New(err, "failed to load enterprises"))
	}

	ids := make([]string, len(enterprises))
	for i, enterprise := range enterprises {
		ids[i] = enterprise.ID
	}

	var rows curriculumRows
	if len(ids) > 0 {
		rows, err = cc.loadRows(ctx, withDeleted, ids)
		if err != nil {
			return utils.Fail(c, err)
		}
	}

	return utils.OK(c, "Curriculum fetched successfully", buildCurriculum(enterprises, rows))
}

// loadRows issues the five flat queries concurrently.
func (cc *CurriculumController) loadRows(ctx context.Context, withDeleted bool, enterpriseIDs []string) (curriculumRows, error) {
	var rows curriculumRows
	g, gctx := errgroup.WithContext(ctx)
	query := func(dest interface{}, order string) func() error {
		return func() error {
			return cc.DB.WithContext(gctx).
				Scopes(utils.Visibility(withDeleted)).
				Where("enterprise_id IN ?", enterpriseIDs).
				Order(order).
				Find(dest).Error
		}
	}
	g.Go(query(&rows.Classes, "name ASC"))
	g.Go(query(&rows.Subjects, "name ASC"))
	g.Go(query(&rows.Topics, "name ASC"))
	g.Go(query(&rows.Subtopics, "name ASC"))
	g.Go(query(&rows.Levels, "rank ASC"))
	if err := g.Wait(); err != nil {
		return rows, oops.New(err, "failed to load curriculum")
	}
	return rows, nil
}

// buildCurriculum folds the flat rows bottom-up into one tree per enterprise.
// Rows whose parent is not in the set (say, a live child of a hidden parent)
// are dropped.
func buildCurriculum(enterprises []models.Enterprise, rows curriculumRows) []EnterpriseNode {
	levels := map[string][]LevelNode{}
	for _, l := range rows.Levels {
		levels[l.SubtopicID] = append(levels[l.SubtopicID], LevelNode{
			ID: l.ID, Name: l.Name, Slug: l.Slug, Rank: l.Rank, DeletedAt: l.DeletedAt,
		})
	}

	subtopics := map[string][]SubtopicNode{}
	for _, s := range rows.Subtopics {
		subtopics[s.TopicID] = append(subtopics[s.TopicID], SubtopicNode{
			ID: s.ID, Name: s.Name, Slug: s.Slug, DeletedAt: s.DeletedAt,
			Levels: append([]LevelNode{}, levels[s.ID]...),
		})
	}

	topics := map[string][]TopicNode{}
	for _, t := range rows.Topics {
		topics[t.SubjectID] = append(topics[t.SubjectID], TopicNode{
			ID: t.ID, Name: t.Name, Slug: t.Slug, DeletedAt: t.DeletedAt,
			Subtopics: append([]SubtopicNode{}, subtopics[t.ID]...),
		})
	}

	subjects := map[string][]SubjectNode{}
	for _, s := range rows.Subjects {
		subjects[s.ClassID] = append(subjects[s.ClassID], SubjectNode{
			ID: s.ID, Name: s.Name, Slug: s.Slug, DeletedAt: s.DeletedAt,
			Topics: append([]TopicNode{}, topics[s.ID]...),
		})
	}

	classes := map[string][]ClassNode{}
	for _, cl := range rows.Classes {
		classes[cl.EnterpriseID] = append(classes[cl.EnterpriseID], ClassNode{
			ID: cl.ID, Name: cl.Name, Slug: cl.Slug, DeletedAt: cl.DeletedAt,
			Subjects: append([]SubjectNode{}, subjects[cl.ID]...),
		})
	}

	tree := make([]EnterpriseNode, 0, len(enterprises))
	for _, e := range enterprises {
		tree = append(tree, EnterpriseNode{
			ID: e.ID, Name: e.Name, Slug: e.Slug, Email: e.Email, Avatar: e.Avatar, DeletedAt: e.DeletedAt,
			Classes: append([]ClassNode{}, classes[e.ID]...),
		})
	}
	return tree
}
