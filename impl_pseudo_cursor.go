package pagenav

import (
	"fmt"
	"strconv"

	"gorm.io/gorm"
)

// PseudoCursor is used when the store cannot compare against the last item
// of a page but accepts an OFFSET. Its token encodes the number of items to
// skip.
type PseudoCursor struct {
	offset int
}

func NewPseudoCursor(offset int) *PseudoCursor {
	return &PseudoCursor{
		offset: offset,
	}
}

// DecodePseudoCursor attempts to parse a base64-encoded string into *PseudoCursor.
func DecodePseudoCursor(b64String string) (*PseudoCursor, error) {
	if len(b64String) == 0 {
		return nil, nil
	}

	offsetBytes, err := _encoder.DecodeString(b64String)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 encoded pseudo cursor: %w", err)
	}

	offset, err := strconv.Atoi(string(offsetBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode pseudo cursor offset value: %w", err)
	}

	return &PseudoCursor{
		offset: offset,
	}, nil
}

// String - implements fmt.Stringer.
func (p *PseudoCursor) String() string {
	if p.IsEmpty() {
		return ""
	}

	return _encoder.EncodeToString([]byte(strconv.Itoa(p.offset)))
}

// IsEmpty - implements Cursor.
func (p *PseudoCursor) IsEmpty() bool {
	return p == nil || p.offset == 0
}

// Apply - implements Cursor. Applies the offset to a gorm query.
func (p *PseudoCursor) Apply(db *gorm.DB) *gorm.DB {
	if p.IsEmpty() {
		return db
	}

	return db.Offset(p.offset)
}

// GetOffset returns the numeric offset value.
func (p *PseudoCursor) GetOffset() int {
	if p != nil {
		return p.offset
	}

	return 0
}

// toSQL - implements Cursor. Offsets are not a filter; Query renders them
// separately.
func (p *PseudoCursor) toSQL() (string, []any) {
	return "", nil
}

// validate - implements Cursor.
func (p *PseudoCursor) validate(_ Orderings) error {
	if p.GetOffset() < 0 {
		return fmt.Errorf("negative pseudo cursor offset %d", p.offset)
	}

	return nil
}

var (
	_ Cursor       = (*PseudoCursor)(nil)
	_ fmt.Stringer = (*PseudoCursor)(nil)
)

// PageOffsetCursor returns the pseudo cursor that ends page: page*limit items
// are skipped by a query that continues after it.
func PageOffsetCursor(page, limit int) *PseudoCursor {
	return NewPseudoCursor(max(0, page) * limit)
}
