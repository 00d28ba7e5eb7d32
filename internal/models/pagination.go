package models

// DefaultPageSize is the default number of rows per page.
const DefaultPageSize = 100

// PaginationState holds the paging position of a result view.
// TotalPages is always max(1, ceil(TotalRows/PageSize)) and Page is kept
// within [1, TotalPages].
type PaginationState struct {
	Page       int `json:"page"`
	PageSize   int `json:"per_page"`
	TotalRows  int `json:"rows_count"`
	TotalPages int `json:"pages_count"`
}

// NewPagination returns the first page of an empty result.
func NewPagination(pageSize int) PaginationState {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return PaginationState{
		Page:       1,
		PageSize:   pageSize,
		TotalRows:  0,
		TotalPages: 1,
	}
}

// PagesCount returns the number of pages needed for rowsCount rows.
func PagesCount(rowsCount, pageSize int) int {
	if rowsCount <= 0 || pageSize < 1 {
		return 1
	}
	pages := rowsCount / pageSize
	if rowsCount%pageSize > 0 {
		pages++
	}
	return pages
}

// Offset returns the row offset of the current page.
func (p PaginationState) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// WithTotalRows recomputes the page count for a new row total and clamps
// the current page.
func (p PaginationState) WithTotalRows(totalRows int) PaginationState {
	if totalRows < 0 {
		totalRows = 0
	}
	p.TotalRows = totalRows
	p.TotalPages = PagesCount(totalRows, p.PageSize)
	return p.clamped()
}

// WithPageSize changes the page size and returns to the first page.
func (p PaginationState) WithPageSize(pageSize int) PaginationState {
	if pageSize < 1 {
		return p
	}
	p.PageSize = pageSize
	p.Page = 1
	p.TotalPages = PagesCount(p.TotalRows, pageSize)
	return p
}

// HasNext returns true if there is a next page.
func (p PaginationState) HasNext() bool {
	return p.Page < p.TotalPages
}

// HasPrev returns true if there is a previous page.
func (p PaginationState) HasPrev() bool {
	return p.Page > 1
}

// Next moves forward one page. ok is false at the last page, in which case
// the state is returned unchanged.
func (p PaginationState) Next() (next PaginationState, ok bool) {
	if !p.HasNext() {
		return p, false
	}
	p.Page++
	return p, true
}

// Prev moves back one page. ok is false at the first page.
func (p PaginationState) Prev() (prev PaginationState, ok bool) {
	if !p.HasPrev() {
		return p, false
	}
	p.Page--
	return p, true
}

// GoTo jumps to page, clamped to the valid range.
func (p PaginationState) GoTo(page int) PaginationState {
	p.Page = page
	return p.clamped()
}

// StartRow returns the 1-indexed first row of the current page, 0 if empty.
func (p PaginationState) StartRow() int {
	if p.TotalRows == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow returns the 1-indexed last row of the current page, 0 if empty.
func (p PaginationState) EndRow() int {
	if p.TotalRows == 0 {
		return 0
	}
	end := p.Page * p.PageSize
	if end > p.TotalRows {
		end = p.TotalRows
	}
	return end
}

func (p PaginationState) clamped() PaginationState {
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > p.TotalPages {
		p.Page = p.TotalPages
	}
	return p
}
