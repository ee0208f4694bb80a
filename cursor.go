package pagenav

import (
	"encoding/base64"

	"gorm.io/gorm"
)

var _encoder = base64.RawURLEncoding

// Cursor is a continuation token: the position right after the last item of
// a page. A cursor is only meaningful for the orderings and filters it was
// produced under.
type Cursor interface {
	String() string
	IsEmpty() bool
	Apply(*gorm.DB) *gorm.DB
	toSQL() (string, []any)
	validate(orderings Orderings) error
}

// PageResult is the outcome of fetching one page.
type PageResult[T any] struct {
	// Items page elements in the declared order, at most Limit of them.
	Items []T
	// HasMore reports whether the store holds items past this page.
	HasMore bool
	// LastCursor continuation after the last item. Nil for an empty page.
	LastCursor Cursor
}
