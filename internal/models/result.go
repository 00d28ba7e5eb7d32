package models

// Row is one ordered row of values.
type Row []any

// Stats carries execution statistics reported by the backend.
type Stats struct {
	RowsCount       int     `json:"rows_count"`
	QueryDurationMs float64 `json:"query_duration_ms"`
}

// ResultSet is the normalized tabular response of the backend.
// When Error is set, Columns and Rows carry no display meaning.
type ResultSet struct {
	Columns    []string         `json:"columns"`
	Rows       []Row            `json:"rows"`
	Error      string           `json:"error,omitempty"`
	Stats      *Stats           `json:"stats,omitempty"`
	Pagination *PaginationState `json:"pagination,omitempty"`
}

// ErrorResult returns a ResultSet that only carries an error message.
func ErrorResult(msg string) *ResultSet {
	return &ResultSet{Error: msg}
}

// Failed reports whether the result represents an error.
func (r *ResultSet) Failed() bool {
	return r == nil || r.Error != ""
}

// RowCount returns the number of rows held, preferring backend stats.
func (r *ResultSet) RowCount() int {
	if r == nil {
		return 0
	}
	if r.Stats != nil && r.Stats.RowsCount > 0 {
		return r.Stats.RowsCount
	}
	return len(r.Rows)
}

// ColumnIndex returns the position of column name, or -1.
func (r *ResultSet) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Records returns the rows keyed by column name.
func (r *ResultSet) Records() []map[string]any {
	items := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		item := make(map[string]any, len(r.Columns))
		for i, c := range r.Columns {
			if i < len(row) {
				item[c] = row[i]
			}
		}
		items = append(items, item)
	}
	return items
}
