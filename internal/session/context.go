// Package session holds the navigation state of one client session and the
// controller that turns user intents into state transitions and backend
// calls.
package session

import (
	"github.com/willibrandon/pgnav/internal/filter"
	"github.com/willibrandon/pgnav/internal/gateway"
	"github.com/willibrandon/pgnav/internal/models"
)

// Context is the state of one session: the selected object and how its
// rows are paged, sorted and filtered. It performs no I/O.
type Context struct {
	SessionID  string
	Object     *models.ObjectRef
	Pagination models.PaginationState
	Sort       *models.SortState
	Filter     *models.FilterState
	RowsLimit  int
}

// NewContext returns an empty context paging by rowsLimit.
func NewContext(sessionID string, rowsLimit int) *Context {
	if rowsLimit < 1 {
		rowsLimit = models.DefaultPageSize
	}
	return &Context{
		SessionID:  sessionID,
		Pagination: models.NewPagination(rowsLimit),
		RowsLimit:  rowsLimit,
	}
}

// SelectObject makes ref current and resets paging, sort and filter.
func (c *Context) SelectObject(ref models.ObjectRef) {
	c.Object = &ref
	c.Pagination = models.NewPagination(c.RowsLimit)
	c.Sort = nil
	c.Filter = nil
}

// ClearSelection drops the current object.
func (c *Context) ClearSelection() {
	c.Object = nil
	c.Pagination = models.NewPagination(c.RowsLimit)
	c.Sort = nil
	c.Filter = nil
}

// SetSort sorts by column. Sorting again by the current column flips the
// order; a new column starts ascending. The page returns to 1.
func (c *Context) SetSort(column string) (models.SortState, error) {
	if column == "" {
		return models.SortState{}, &models.ValidationError{Field: "column", Reason: "is required"}
	}
	if c.Sort != nil && c.Sort.Column == column {
		c.Sort = &models.SortState{Column: column, Order: c.Sort.Order.Toggle()}
	} else {
		c.Sort = &models.SortState{Column: column, Order: models.SortAsc}
	}
	c.Pagination = c.Pagination.GoTo(1)
	return *c.Sort, nil
}

// ClearSort removes the sort.
func (c *Context) ClearSort() {
	c.Sort = nil
}

// SetFilter validates and installs a row filter. The value may only be
// empty for operators that take none. The page returns to 1.
func (c *Context) SetFilter(column string, op models.FilterOperator, value string) error {
	if column == "" {
		return &models.ValidationError{Field: "column", Reason: "is required"}
	}
	if _, ok := filter.Template(op); !ok {
		return &models.ValidationError{Field: "operator", Reason: "unknown operator " + string(op)}
	}
	if op.RequiresValue() && value == "" {
		return &models.ValidationError{Field: "value", Reason: "is required for operator " + string(op)}
	}
	c.Filter = &models.FilterState{Column: column, Operator: op, Value: value}
	c.Pagination = c.Pagination.GoTo(1)
	return nil
}

// ClearFilter removes the filter.
func (c *Context) ClearFilter() {
	c.Filter = nil
}

// NextPage advances one page. On the last page the state is unchanged and
// a *models.BoundaryError is returned.
func (c *Context) NextPage() error {
	next, ok := c.Pagination.Next()
	if !ok {
		return &models.BoundaryError{Direction: models.DirectionNext, Page: c.Pagination.Page}
	}
	c.Pagination = next
	return nil
}

// PrevPage goes back one page, with the same edge behaviour as NextPage.
func (c *Context) PrevPage() error {
	prev, ok := c.Pagination.Prev()
	if !ok {
		return &models.BoundaryError{Direction: models.DirectionPrev, Page: c.Pagination.Page}
	}
	c.Pagination = prev
	return nil
}

// SetRowsLimit changes the page size and returns to page 1.
func (c *Context) SetRowsLimit(n int) error {
	if n < 1 {
		return &models.ValidationError{Field: "rowsLimit", Reason: "must be at least 1"}
	}
	c.RowsLimit = n
	c.Pagination = c.Pagination.WithPageSize(n)
	return nil
}

// ApplyResult absorbs the row total reported with a rows response.
func (c *Context) ApplyResult(rs *models.ResultSet) {
	if rs.Failed() || rs.Pagination == nil {
		return
	}
	c.Pagination = c.Pagination.WithTotalRows(rs.Pagination.TotalRows)
}

// RowsRequest builds the rows request parameters for the current state.
func (c *Context) RowsRequest() (gateway.RowsOptions, error) {
	opts := gateway.RowsOptions{
		Limit:  c.Pagination.PageSize,
		Offset: c.Pagination.Offset(),
	}
	if c.Sort != nil {
		opts.SortColumn = filter.QuoteIdent(c.Sort.Column)
		opts.SortOrder = c.Sort.Order
	}
	if c.Filter != nil {
		where, err := filter.FromState(c.Filter)
		if err != nil {
			return opts, err
		}
		opts.Where = where
	}
	return opts, nil
}

// Snapshot returns a deep copy.
func (c *Context) Snapshot() Context {
	out := *c
	if c.Object != nil {
		o := *c.Object
		out.Object = &o
	}
	if c.Sort != nil {
		s := *c.Sort
		out.Sort = &s
	}
	if c.Filter != nil {
		f := *c.Filter
		out.Filter = &f
	}
	return out
}
