package models

import "fmt"

// ValidationError is a client-side precondition failure. It is raised
// before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Direction of a page move.
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

// BoundaryError reports a page move past the first or last page.
// The pagination state is left unchanged.
type BoundaryError struct {
	Direction Direction
	Page      int
}

func (e *BoundaryError) Error() string {
	if e.Direction == DirectionNext {
		return fmt.Sprintf("already on the last page (%d)", e.Page)
	}
	return "already on the first page"
}
