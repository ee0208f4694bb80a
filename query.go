package pagenav

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Source identifies the collection a query reads from. Path is a slash
// separated path whose last segment names the collection, e.g.
// "tenants/42/orders". With Group set the query spans every collection with
// that name regardless of its parent.
type Source struct {
	Path  string `yaml:"path" json:"path"`
	Group bool   `yaml:"group" json:"group"`
}

func (s Source) segments() []string {
	return lo.Filter(strings.Split(s.Path, "/"), func(segment string, _ int) bool {
		return segment != ""
	})
}

// Collection returns the last segment of Path.
func (s Source) Collection() string {
	return lo.LastOrEmpty(s.segments())
}

// Parent returns Path without its last segment, empty for top level
// collections.
func (s Source) Parent() string {
	segments := s.segments()
	if len(segments) < 2 {
		return ""
	}

	return strings.Join(segments[:len(segments)-1], "/")
}

func (s Source) String() string {
	if s.Group {
		return "group:" + s.Collection()
	}

	return strings.Join(s.segments(), "/")
}

func (s Source) validate() error {
	collection := s.Collection()
	if collection == "" {
		return ErrNotInitialized
	}

	if err := validateColumn(collection); err != nil {
		return fmt.Errorf("collection: %w", err)
	}

	return nil
}

// Query describes one request to the store: filters, orderings, an optional
// start-after cursor and a limit, applied in that order.
type Query struct {
	source    Source
	where     []Where
	sort      Orderings
	cursor    Cursor
	limit     int
	lookahead bool
}

func NewQuery(source Source) *Query {
	return &Query{source: source}
}

// WithSource sets the collection to read from.
func (q *Query) WithSource(source Source) *Query {
	if q == nil {
		q = new(Query)
	}

	q.source = source

	return q
}

// WithLookahead makes the query fetch one extra record to tell whether the
// current page is the last one.
func (q *Query) WithLookahead() *Query {
	if q == nil {
		q = new(Query)
	}

	q.lookahead = true

	return q
}

// WithLimit sets the page size. NormalizeLimit is applied.
func (q *Query) WithLimit(limit int) *Query {
	if q == nil {
		q = new(Query)
	}

	q.limit = NormalizeLimit(limit)

	return q
}

// WithCursor sets the start-after cursor. A nil or empty cursor reads from
// the start of the dataset.
func (q *Query) WithCursor(cursor Cursor) *Query {
	if q == nil {
		q = new(Query)
	}

	if cursor != nil && cursor.IsEmpty() {
		cursor = nil
	}
	q.cursor = cursor

	return q
}

// WithWhere appends filters.
func (q *Query) WithWhere(where ...Where) *Query {
	if q == nil {
		q = new(Query)
	}

	q.where = append(slices.Clone(q.where), where...)

	return q
}

// WithSubstitutedSort resets previous orderings and applies the provided ones.
func (q *Query) WithSubstitutedSort(orderBy ...OrderBy) *Query {
	if q == nil {
		q = new(Query)
	}

	q.sort = nil

	return q.WithSort(orderBy...)
}

// WithSort appends sort orderings without overwriting existing ones.
// Order is preserved as if calling:
//
//	OrderBy(o1).ThenBy(o2).ThenBy(o3)...
//
// A column met twice keeps its last direction and position.
func (q *Query) WithSort(orderBy ...OrderBy) *Query {
	if q == nil {
		q = new(Query)
	}

	sort := slices.Clone(q.sort)
	for _, o := range orderBy {
		idx := slices.IndexFunc(sort, func(processed OrderBy) bool {
			return processed.Column == o.Column
		})

		if idx != -1 {
			sort = slices.Delete(sort, idx, idx+1)
		}

		sort = append(sort, o)
	}
	q.sort = sort

	return q
}

// Reversed returns a copy of the query with every ordering direction flipped.
// Filters, limit and cursor are kept; the first page of the reversed query is
// the last page of q read backwards.
func (q *Query) Reversed() *Query {
	if q == nil {
		return nil
	}

	reversed := *q
	reversed.where = slices.Clone(q.where)
	reversed.sort = q.sort.Reversed()

	return &reversed
}

// ForCount returns the query stripped down to what an exact count needs: the
// source and the filters.
func (q *Query) ForCount() *Query {
	if q == nil {
		return nil
	}

	return &Query{source: q.source, where: slices.Clone(q.where)}
}

// Apply renders the query onto a gorm statement. Returns an error if the
// query is not valid.
func (q *Query) Apply(db *gorm.DB) (*gorm.DB, error) {
	if err := q.validate(); err != nil {
		return nil, fmt.Errorf("cannot paginate: %w", err)
	}

	db = q.applyFilters(db)
	db = q.sort.Apply(db)
	if q.cursor != nil {
		db = q.cursor.Apply(db)
	}

	return db.Limit(q.GetDatasetLimit()), nil
}

// ApplyFilters renders only the filters, as used for counting.
func (q *Query) ApplyFilters(db *gorm.DB) (*gorm.DB, error) {
	if err := q.validateFilters(); err != nil {
		return nil, fmt.Errorf("cannot count: %w", err)
	}

	return q.applyFilters(db), nil
}

func (q *Query) applyFilters(db *gorm.DB) *gorm.DB {
	if len(q.where) == 0 {
		return db
	}

	return db.Clauses(clause.Where{Exprs: filtersDisjunct(q.where).toGORMExpressions()})
}

// ToSQL renders the query as SQL with "?" placeholders. Meant for logs.
//
// Example:
//
//	SELECT * FROM users WHERE (status = ?) AND ((id > ?)) ORDER BY id ASC LIMIT 10
func (q *Query) ToSQL() (string, []any) {
	if q == nil {
		return "", nil
	}

	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString("SELECT * FROM ")
	sb.WriteString(q.source.Collection())

	conditions := make([]string, 0, 2)
	if filterSQL, filterArgs := filtersDisjunct(q.where).toSQLClause(); filterSQL != "" {
		conditions = append(conditions, filterSQL)
		args = append(args, filterArgs...)
	}
	if q.cursor != nil {
		if cursorSQL, cursorArgs := q.cursor.toSQL(); cursorSQL != "" {
			conditions = append(conditions, cursorSQL)
			args = append(args, cursorArgs...)
		}
	}
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	if len(q.sort) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.sort.ToSQL())
	}

	if q.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.GetDatasetLimit())
	}

	if offset, ok := q.cursor.(*PseudoCursor); ok && !offset.IsEmpty() {
		fmt.Fprintf(&sb, " OFFSET %d", offset.GetOffset())
	}

	return sb.String(), args
}

// GetSource returns the collection the query reads from.
func (q *Query) GetSource() Source {
	if q == nil {
		return Source{}
	}

	return q.source
}

// GetWhere returns the filters of the query.
func (q *Query) GetWhere() []Where {
	if q == nil {
		return nil
	}

	return q.where
}

// GetSort returns orderings that will be applied to the dataset.
func (q *Query) GetSort() Orderings {
	if q == nil {
		return nil
	}

	return q.sort
}

// IsLookahead returns true if lookahead pagination is enabled.
func (q *Query) IsLookahead() bool {
	if q == nil {
		return false
	}

	return q.lookahead
}

// GetLimit returns the page size.
func (q *Query) GetLimit() int {
	if q == nil {
		return 0
	}

	return q.limit
}

// GetCursor returns the start-after cursor, nil when the query starts at the
// beginning of the dataset.
func (q *Query) GetCursor() Cursor {
	if q == nil {
		return nil
	}

	return q.cursor
}

// GetDatasetLimit returns the limit adjusted for lookahead:
//   - if Lookahead = true → GetLimit() + 1
//   - if Lookahead = false → GetLimit()
func (q *Query) GetDatasetLimit() int {
	limit := q.GetLimit()

	return lo.Ternary(q.IsLookahead(), limit+1, limit)
}

func (q *Query) validateFilters() error {
	if q == nil {
		return fmt.Errorf("query is nil")
	}

	if err := q.source.validate(); err != nil {
		return err
	}

	for _, w := range q.where {
		if err := w.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (q *Query) validate() error {
	if err := q.validateFilters(); err != nil {
		return err
	}

	if q.limit <= 0 {
		return fmt.Errorf("non-positive limit %d", q.limit)
	}

	if err := q.sort.validate(); err != nil {
		return err
	}

	if q.cursor == nil {
		return nil
	}

	return q.cursor.validate(q.sort)
}

// IsLastPage reports whether resultSet, fetched with q, is the last page of
// the dataset:
//  1. without lookahead, fewer than Limit records came back (a full page is
//     assumed to have a successor, which is wrong when the dataset size is an
//     exact multiple of Limit);
//  2. with lookahead, no more than Limit records came back.
func IsLastPage[T any](q *Query, resultSet []T) bool {
	return len(resultSet) < q.GetLimit() ||
		(q.IsLookahead() && len(resultSet) <= q.GetLimit())
}

// TrimResultSet drops the lookahead record, if one was returned.
//
// Suppose Limit = 2 and resultSet = [a, b, c]:
//
//   - With lookahead → resultSet becomes [a, b].
//   - Without lookahead → resultSet remains unchanged.
func TrimResultSet[T any](q *Query, resultSet []T) []T {
	if q.IsLookahead() && len(resultSet) > q.GetLimit() {
		resultSet = resultSet[:q.GetLimit()]
	}

	return resultSet
}
