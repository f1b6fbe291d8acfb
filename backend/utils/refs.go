package utils

import (
	"context"
	"errors"

	"cognitory/backend/oops"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ref names one foreign key to check. Model is a pointer to the zero value
// of the referenced model; Label is what the client sees ("Enterprise").
type Ref struct {
	Model interface{}
	ID    string
	Label string
}

// IsValidID is a format check only.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// CheckIDs fails with 406 "Invalid <Label> ID" on the first malformed ref.
func CheckIDs(refs ...Ref) error {
	for _, ref := range refs {
		if !IsValidID(ref.ID) {
			return oops.Invalid("Invalid %s ID", ref.Label)
		}
	}
	return nil
}

// VerifyReferences looks every ref up and returns the labels of those that
// resolved to nothing. Soft-deleted rows count as missing. On the pool the
// lookups run concurrently; inside a transaction they run in order on the
// transaction's connection.
func VerifyReferences(ctx context.Context, db *gorm.DB, refs ...Ref) ([]string, error) {
	found := make([]bool, len(refs))
	lookup := func(ctx context.Context, i int) error {
		var count int64
		err := db.WithContext(ctx).Model(refs[i].Model).Where("id = ?", refs[i].ID).Count(&count).Error
		if err != nil {
			return oops.New(err, "failed to look up %s", refs[i].Label)
		}
		found[i] = count > 0
		return nil
	}

	if inTransaction(db) {
		for i := range refs {
			if err := lookup(ctx, i); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i := range refs {
			i := i
			g.Go(func() error { return lookup(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var notFound []string
	for i, ok := range found {
		if !ok {
			notFound = append(notFound, refs[i].Label)
		}
	}
	return notFound, nil
}

// RequireReferences is VerifyReferences turned into a 404 on the first miss.
func RequireReferences(ctx context.Context, db *gorm.DB, refs ...Ref) error {
	notFound, err := VerifyReferences(ctx, db, refs...)
	if err != nil {
		return err
	}
	if len(notFound) > 0 {
		return oops.NotFound("%s ID not found", notFound[0])
	}
	return nil
}

// LoadRef fetches a single live row inside db, turning a miss into the
// same 404 message RequireReferences produces.
func LoadRef(ctx context.Context, db *gorm.DB, dest interface{}, id, label string) error {
	err := db.WithContext(ctx).Where("id = ?", id).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return oops.NotFound("%s ID not found", label)
	}
	if err != nil {
		return oops.New(err, "failed to load %s", label)
	}
	return nil
}

// LockRef is LoadRef taking a row lock, for writes that depend on the
// parent's current children. SQLite has no row locks and drops the clause.
func LockRef(ctx context.Context, tx *gorm.DB, dest interface{}, id, label string) error {
	return LoadRef(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), dest, id, label)
}

// MismatchError reports an ancestor chain that does not line up.
func MismatchError(child, parent string) error {
	return oops.Invalid("%s does not belong to %s", child, parent)
}

func inTransaction(db *gorm.DB) bool {
	_, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok
}
