package controllers

import (
	"context"
	"errors"

	"cognitory/backend/middleware"
	"cognitory/backend/models"
	"cognitory/backend/oops"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ancestorParam maps a list filter in the query string onto a column.
type ancestorParam struct {
	Query  string
	Column string
	Model  interface{}
	Label  string
}

// ancestorChain is ordered root first; each level lists with a prefix of it.
var ancestorChain = []ancestorParam{
	{"enterpriseId", "enterprise_id", &models.Enterprise{}, "Enterprise"},
	{"classId", "class_id", &models.Class{}, "Class"},
	{"subjectId", "subject_id", &models.Subject{}, "Subject"},
	{"topicId", "topic_id", &models.Topic{}, "Topic"},
	{"subtopicId", "subtopic_id", &models.Subtopic{}, "Subtopic"},
	{"levelId", "level_id", &models.Level{}, "Level"},
}

// ancestorFilters builds an equality filter from whichever of the first
// depth ancestor ids were supplied. Each one must be well formed and exist;
// they are independent of each other, so subjectId alone is a valid filter.
func ancestorFilters(c *fiber.Ctx, db *gorm.DB, depth int) (map[string]interface{}, error) {
	where := map[string]interface{}{}
	var refs []utils.Ref
	for _, param := range ancestorChain[:depth] {
		id := c.Query(param.Query)
		if id == "" {
			continue
		}
		refs = append(refs, utils.Ref{Model: param.Model, ID: id, Label: param.Label})
		where[param.Column] = id
	}
	if err := utils.CheckIDs(refs...); err != nil {
		return nil, err
	}
	if err := utils.RequireReferences(c.UserContext(), db, refs...); err != nil {
		return nil, err
	}
	return where, nil
}

// includeDeleted applies the visibility rule to showDeleted/filterDeleted.
// The caller's role is only looked up when deleted rows were asked for.
func includeDeleted(c *fiber.Ctx, db *gorm.DB) (bool, error) {
	requested := c.QueryBool("showDeleted", false) || !c.QueryBool("filterDeleted", true)
	if !requested {
		return false, nil
	}
	role, err := middleware.CurrentRole(c, db)
	if err != nil {
		return false, err
	}
	return utils.CanSeeDeleted(role, true), nil
}

// countAndFind runs the count and the page query concurrently. build must
// return a fresh chain on every call.
func countAndFind(ctx context.Context, build func() *gorm.DB, params utils.PageParams, dest interface{}, order string, preloads ...string) (int64, error) {
	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return build().WithContext(gctx).Count(&total).Error
	})
	g.Go(func() error {
		q := build().WithContext(gctx).Scopes(params.Scope).Order(order)
		return withPreloads(q, preloads...).Find(dest).Error
	})
	if err := g.Wait(); err != nil {
		return 0, oops.New(err, "failed to list records")
	}
	return total, nil
}

// listEntities is the list handler shared by the hierarchy levels.
func listEntities(c *fiber.Ctx, db *gorm.DB, model interface{}, dest interface{}, depth int, label string, preloads ...string) error {
	where, err := ancestorFilters(c, db, depth)
	if err != nil {
		return utils.Fail(c, err)
	}
	withDeleted, err := includeDeleted(c, db)
	if err != nil {
		return utils.Fail(c, err)
	}
	params := utils.GetPageParams(c)

	build := func() *gorm.DB {
		return db.Model(model).Scopes(utils.Visibility(withDeleted)).Where(where)
	}
	total, err := countAndFind(c.UserContext(), build, params, dest, "created_at DESC", preloads...)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Paginated(c, label+" fetched successfully", dest, params.Meta(total))
}

// getEntity loads :id. A hidden row is reported exactly like a missing one.
func getEntity(c *fiber.Ctx, db *gorm.DB, dest interface{}, label string, preloads ...string) error {
	id := c.Params("id")
	if !utils.IsValidID(id) {
		return utils.Fail(c, oops.Invalid("Invalid %s ID", label))
	}
	withDeleted, err := includeDeleted(c, db)
	if err != nil {
		return utils.Fail(c, err)
	}

	q := withPreloads(db.WithContext(c.UserContext()).Scopes(utils.Visibility(withDeleted)), preloads...)
	err = q.Where("id = ?", id).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Fail(c, oops.NotFound("%s not found", label))
	}
	if err != nil {
		return utils.Fail(c, oops.New(err, "failed to load %s", label))
	}
	return utils.OK(c, label+" fetched successfully", dest)
}

// displayFields trims populated parents to what a client shows.
func displayFields(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Select("id", "name", "slug", "deleted_at")
}

func userDisplayFields(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Select("id", "name", "email", "role")
}

func fullRow(db *gorm.DB) *gorm.DB {
	return db
}

var preloadScopes = map[string]func(*gorm.DB) *gorm.DB{
	"Creator":           userDisplayFields,
	"ApprovedBy":        userDisplayFields,
	"ReviewedBy":        userDisplayFields,
	"Review":            fullRow,
	"Review.ReviewedBy": userDisplayFields,
}

func withPreloads(q *gorm.DB, preloads ...string) *gorm.DB {
	for _, preload := range preloads {
		scope, ok := preloadScopes[preload]
		if !ok {
			scope = displayFields
		}
		q = q.Preload(preload, scope)
	}
	return q
}

// slugFor derives the slug of name and rejects names with nothing sluggable.
func slugFor(name string) (string, error) {
	s := utils.Slugify(name)
	if s == "" {
		return "", oops.Validation(map[string]string{"name": "name must contain letters or digits"})
	}
	return s, nil
}

// ensureUnique fails with 409 when a live row of model already has
// column = value within scope. excludeID skips the row being updated.
func ensureUnique(tx *gorm.DB, model interface{}, column string, value interface{}, scope map[string]interface{}, excludeID, conflict string) error {
	q := tx.Model(model).Where(column+" = ?", value)
	if len(scope) > 0 {
		q = q.Where(scope)
	}
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return oops.New(err, "failed to check uniqueness")
	}
	if count > 0 {
		return oops.Conflict(conflict)
	}
	return nil
}

// linkChild inserts child through parent's has-many association, which is
// how the parent's back-reference to its children is kept.
func linkChild(tx *gorm.DB, parent interface{}, association string, child interface{}, conflict string) error {
	err := tx.Model(parent).Association(association).Append(child)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return oops.Conflict(conflict)
	}
	if err != nil {
		return oops.New(err, "failed to add to %s", association)
	}
	return nil
}

// loadForUpdate fetches id inside tx including soft-deleted rows, then hides
// deleted ones from everybody but super.
func loadForUpdate(tx *gorm.DB, dest models.SoftDeletable, id, label, role string) error {
	err := tx.Unscoped().Where("id = ?", id).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return oops.NotFound("%s not found", label)
	}
	if err != nil {
		return oops.New(err, "failed to load %s", label)
	}
	if dest.IsDeleted() && role != models.RoleSuper {
		return oops.NotFound("%s not found", label)
	}
	return nil
}

// reload re-reads id (deleted or not) with the given parents populated.
func reload(tx *gorm.DB, dest interface{}, id string, preloads ...string) error {
	q := withPreloads(tx.Unscoped(), preloads...)
	if err := q.Where("id = ?", id).Take(dest).Error; err != nil {
		return oops.New(err, "failed to reload record")
	}
	return nil
}

type updateNameInput struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// renameOptions describes a hierarchy level whose only mutable field is name.
type renameOptions struct {
	Label        string
	Model        interface{}
	ParentColumn string
	ParentID     func() string
	Preloads     []string
}

// renameEntity is the soft-update handler shared by Class, Subject, Topic
// and Subtopic. dest must be the same object ParentID reads from.
func renameEntity(c *fiber.Ctx, db *gorm.DB, dest models.SoftDeletable, opts renameOptions) error {
	id := c.Params("id")
	if !utils.IsValidID(id) {
		return utils.Fail(c, oops.Invalid("Invalid %s ID", opts.Label))
	}
	var input updateNameInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}
	slug, err := slugFor(input.Name)
	if err != nil {
		return utils.Fail(c, err)
	}
	role, err := middleware.CurrentRole(c, db)
	if err != nil {
		return utils.Fail(c, err)
	}

	ctx := c.UserContext()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadForUpdate(tx, dest, id, opts.Label, role); err != nil {
			return err
		}
		scope := map[string]interface{}{opts.ParentColumn: opts.ParentID()}
		if err := ensureUnique(tx, opts.Model, "slug", slug, scope, id, "Duplicate "+opts.Label+" name"); err != nil {
			return err
		}
		err := tx.Unscoped().Model(dest).Updates(map[string]interface{}{"name": input.Name, "slug": slug}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return oops.Conflict("Duplicate %s name", opts.Label)
		}
		if err != nil {
			return oops.New(err, "failed to update %s", opts.Label)
		}
		return reload(tx, dest, id, opts.Preloads...)
	})
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, opts.Label+" updated successfully", dest)
}
