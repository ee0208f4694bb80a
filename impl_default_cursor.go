package pagenav

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// DefaultCursor is a keyset cursor: the position right after a given item
// under a given ordering. An empty cursor means the start of the dataset.
//
// IMPORTANT:
// The cursor MUST contain a condition on a unique column!
//
// The cursor is a list of conditions of the form:
//
//	[(C1, O1, V1), (C2, O2, V2)... (Cn, On, Vn)]
type DefaultCursor struct {
	elements []CursorElement
}

func NewDefaultCursor(elements ...CursorElement) *DefaultCursor {
	return &DefaultCursor{
		elements: elements,
	}
}

// DecodeCursor parses a base64 token produced by DefaultCursor.String.
func DecodeCursor(b64String string) (*DefaultCursor, error) {
	if len(b64String) == 0 {
		return nil, nil
	}

	jsonData, err := _encoder.DecodeString(b64String)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 encoded cursor: %w", err)
	}

	var elems []CursorElement
	if err = json.Unmarshal(jsonData, &elems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json encoded cursor: %w", err)
	}

	return &DefaultCursor{
		elements: elems,
	}, nil
}

// String - implements fmt.Stringer.
func (c *DefaultCursor) String() string {
	if c.IsEmpty() {
		return ""
	}

	jTok, err := json.Marshal(c.elements)
	if err != nil {
		panic(fmt.Errorf("cannot marshal cursor value: %w", err))
	}

	var buf bytes.Buffer
	if err = json.Compact(&buf, jTok); err != nil {
		panic(fmt.Errorf("cannot compact cursor value: %w", err))
	}

	return _encoder.EncodeToString(buf.Bytes())
}

// IsEmpty - implements Cursor.
func (c *DefaultCursor) IsEmpty() bool {
	return c == nil || len(c.elements) == 0
}

// GetElements returns the compressed conditions of the cursor. They are not
// a usable filter on their own: toDNF inflates them into one.
func (c *DefaultCursor) GetElements() []CursorElement {
	if c == nil {
		return nil
	}

	return c.elements
}

// Apply - implements Cursor. Adds the "start after" condition to a gorm query.
func (c *DefaultCursor) Apply(db *gorm.DB) *gorm.DB {
	exp := c.toDNF().toGORMExpression()
	if exp == nil {
		return db
	}

	return db.Clauses(exp)
}

// toSQL - implements Cursor.
func (c *DefaultCursor) toSQL() (string, []any) {
	if c.IsEmpty() {
		return "", nil
	}

	return c.toDNF().toSQLClause()
}

// toDNF inflates the cursor elements
//
//	[(C1, O1, V1), (C2, O2, V2)... (Cn, On, Vn)]
//
// into the filter
//
//	(C1 O1 V1) or (C1 = V1 and C2 O2 V2) or ...
//
// which selects exactly the items located after the cursor position.
func (c *DefaultCursor) toDNF() tDNF {
	if c.IsEmpty() {
		return nil
	}

	dnf := make(tDNF, 0, len(c.elements))
	for i := range c.elements {
		disjunct := make(tDisjunct, 0, i+1)
		for _, previous := range c.elements[:i] {
			disjunct = append(disjunct, previous.toConjunctWithEqualityCondition())
		}
		disjunct = append(disjunct, tConjunct(c.elements[i]))

		dnf = append(dnf, disjunct)
	}

	return dnf
}

// validate - implements Cursor.
func (c *DefaultCursor) validate(orderings Orderings) error {
	if c.IsEmpty() {
		return nil
	}

	if len(c.elements) != len(orderings) {
		return fmt.Errorf("cursor column number mismatch")
	}

	for i := range c.elements {
		cond := c.elements[i]
		orderBy := orderings[i]

		if cond.Column != orderBy.Column {
			return fmt.Errorf("unexpected cursor column '%s'", cond.Column)
		}

		if !cond.Operator.IsCursorOperator() {
			return fmt.Errorf("invalid cursor operator '%s'", cond.Operator)
		} else if cond.Operator.ForOrdering() != orderBy.Direction {
			return fmt.Errorf("unexpected cursor operator '%s'", cond.Operator)
		}
	}

	return nil
}

var (
	_ Cursor       = (*DefaultCursor)(nil)
	_ fmt.Stringer = (*DefaultCursor)(nil)
)

// Getters maps the ordering columns to value extractors. Every column used in
// the orderings must have a getter.
// Example:
//
//	pagenav.Getters[models.Order]{
//		"id":         func(last models.Order) any { return last.ID },
//		"created_at": func(last models.Order) any { return last.CreatedAt },
//	}
type Getters[T any] map[string]func(T) any

// KeysetCursor builds the cursor pointing right after item under orderings.
func KeysetCursor[T any](orderings Orderings, item T, getters Getters[T]) (*DefaultCursor, error) {
	ret := DefaultCursor{elements: make([]CursorElement, 0, len(orderings))}
	for _, orderBy := range orderings {
		getter, ok := getters[orderBy.Column]
		if !ok {
			return nil, fmt.Errorf("%w: '%s' met in ordering", ErrNoGetter, orderBy.Column)
		}

		ret.elements = append(ret.elements, CursorElement{
			Column:   orderBy.Column,
			Value:    getter(item),
			Operator: orderBy.Direction.ForOperator(),
		})
	}

	return &ret, nil
}

// NextPageCursor returns the cursor after the last item of resultSet, or nil
// when resultSet is empty.
func NextPageCursor[T any](orderings Orderings, resultSet []T, getters Getters[T]) (*DefaultCursor, error) {
	if len(resultSet) == 0 {
		return nil, nil
	}

	return KeysetCursor(orderings, lo.LastOrEmpty(resultSet), getters)
}

// CursorElement is a triple (c v o), where:
//
//   - "c" - the column.
//   - "v" - the value the column is compared with.
//   - "o" - the operator applied to the pair (c, v).
type CursorElement struct {
	Column   string   `json:"c"`
	Value    any      `json:"v"`
	Operator Operator `json:"o"`
}

func (c *CursorElement) toConjunctWithEqualityCondition() tConjunct {
	return tConjunct{
		Column:   c.Column,
		Value:    c.Value,
		Operator: OperatorEq,
	}
}
