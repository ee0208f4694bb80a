package pagenav

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Executor runs queries against the remote store. Find returns the items of
// one batch in query order; Count returns the exact number of items matching
// the filters of q and ignores its orderings, cursor and limit.
type Executor[T any] interface {
	Find(ctx context.Context, q *Query) ([]T, error)
	Count(ctx context.Context, q *Query) (int64, error)
}

type (
	// FindFunc fetches one batch of items.
	FindFunc[T any] func(ctx context.Context, q *Query) ([]T, error)
	// CountFunc counts the items matching the filters of q.
	CountFunc func(ctx context.Context, q *Query) (int64, error)

	// ExecutorFuncs adapts a pair of functions to Executor.
	ExecutorFuncs[T any] struct {
		FindFunc  FindFunc[T]
		CountFunc CountFunc
	}
)

// Find - implements Executor.
func (f ExecutorFuncs[T]) Find(ctx context.Context, q *Query) ([]T, error) {
	return f.FindFunc(ctx, q)
}

// Count - implements Executor.
func (f ExecutorFuncs[T]) Count(ctx context.Context, q *Query) (int64, error) {
	return f.CountFunc(ctx, q)
}

// DefaultParentColumn holds the parent path of a row in collections that are
// nested under another document.
const DefaultParentColumn = "parent_path"

// GormExecutor executes queries with gorm. The collection of the source is
// used as the table name. For nested sources ("tenants/42/orders") rows are
// scoped by the parent column unless the source is a group query.
type GormExecutor[T any] struct {
	db           *gorm.DB
	parentColumn string
}

func NewGormExecutor[T any](db *gorm.DB) *GormExecutor[T] {
	return &GormExecutor[T]{
		db:           db,
		parentColumn: DefaultParentColumn,
	}
}

// WithParentColumn overrides DefaultParentColumn.
func (e *GormExecutor[T]) WithParentColumn(column string) *GormExecutor[T] {
	e.parentColumn = column

	return e
}

func (e *GormExecutor[T]) scope(ctx context.Context, source Source) *gorm.DB {
	db := e.db.WithContext(ctx).Table(source.Collection())

	parent := source.Parent()
	if source.Group || parent == "" {
		return db
	}

	return db.Clauses(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Name: e.parentColumn}, Value: parent},
	}})
}

// Find - implements Executor.
func (e *GormExecutor[T]) Find(ctx context.Context, q *Query) ([]T, error) {
	db, err := q.Apply(e.scope(ctx, q.GetSource()))
	if err != nil {
		return nil, err
	}

	var items []T
	if err = db.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", q.GetSource(), err)
	}

	return items, nil
}

// Count - implements Executor.
func (e *GormExecutor[T]) Count(ctx context.Context, q *Query) (int64, error) {
	db, err := q.ApplyFilters(e.scope(ctx, q.GetSource()))
	if err != nil {
		return 0, err
	}

	var total int64
	if err = db.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q.GetSource(), err)
	}

	return total, nil
}

var _ Executor[struct{}] = (*GormExecutor[struct{}])(nil)
