package models

import "testing"

func TestPagesCount(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		pageSize int
		want     int
	}{
		{"no rows", 0, 100, 1},
		{"one row", 1, 100, 1},
		{"exact fit", 200, 100, 2},
		{"one over", 201, 100, 3},
		{"250 rows", 250, 100, 3},
		{"page size one", 7, 1, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PagesCount(tt.rows, tt.pageSize); got != tt.want {
				t.Errorf("PagesCount(%d, %d) = %d, want %d", tt.rows, tt.pageSize, got, tt.want)
			}
		})
	}
}

func TestPaginationState_Offset(t *testing.T) {
	for page := 1; page <= 5; page++ {
		for _, size := range []int{1, 10, 100} {
			p := PaginationState{Page: page, PageSize: size, TotalPages: 5}
			if got, want := p.Offset(), (page-1)*size; got != want {
				t.Errorf("Offset() page=%d size=%d = %d, want %d", page, size, got, want)
			}
		}
	}
}

func TestPaginationState_NextPrev(t *testing.T) {
	p := NewPagination(100).WithTotalRows(250)
	if p.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", p.TotalPages)
	}

	if _, ok := p.Prev(); ok {
		t.Error("Prev() on first page should not move")
	}

	p, ok := p.Next()
	if !ok || p.Page != 2 || p.Offset() != 100 {
		t.Fatalf("Next() = page %d offset %d ok=%v, want page 2 offset 100", p.Page, p.Offset(), ok)
	}

	p, _ = p.Next()
	last, ok := p.Next()
	if ok {
		t.Error("Next() on last page should not move")
	}
	if last.Page != 3 {
		t.Errorf("expected page to stay at 3, got %d", last.Page)
	}
}

func TestPaginationState_WithTotalRowsClamps(t *testing.T) {
	p := NewPagination(10).WithTotalRows(100).GoTo(10)
	if p.Page != 10 {
		t.Fatalf("expected page 10, got %d", p.Page)
	}

	p = p.WithTotalRows(25)
	if p.TotalPages != 3 || p.Page != 3 {
		t.Errorf("expected page 3 of 3 after shrinking, got %d of %d", p.Page, p.TotalPages)
	}

	p = p.WithTotalRows(0)
	if p.TotalPages != 1 || p.Page != 1 {
		t.Errorf("expected page 1 of 1 for empty result, got %d of %d", p.Page, p.TotalPages)
	}
}

func TestPaginationState_Rows(t *testing.T) {
	p := NewPagination(100).WithTotalRows(250).GoTo(3)
	if p.StartRow() != 201 || p.EndRow() != 250 {
		t.Errorf("rows = %d-%d, want 201-250", p.StartRow(), p.EndRow())
	}

	empty := NewPagination(100)
	if empty.StartRow() != 0 || empty.EndRow() != 0 {
		t.Errorf("empty rows = %d-%d, want 0-0", empty.StartRow(), empty.EndRow())
	}
}

func TestPaginationState_WithPageSize(t *testing.T) {
	p := NewPagination(100).WithTotalRows(250).GoTo(2).WithPageSize(50)
	if p.Page != 1 || p.PageSize != 50 || p.TotalPages != 5 {
		t.Errorf("got page %d size %d pages %d, want 1/50/5", p.Page, p.PageSize, p.TotalPages)
	}

	same := p.WithPageSize(0)
	if same != p {
		t.Error("WithPageSize(0) should be a no-op")
	}
}
