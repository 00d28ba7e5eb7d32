package models

// ObjectRef identifies the currently selected database object.
type ObjectRef struct {
	Schema string     `json:"schema"`
	Name   string     `json:"name"`
	Kind   ObjectKind `json:"kind"`
	// ID is the backend-assigned identifier. Functions need it because
	// overloads share a name within a schema.
	ID string `json:"id,omitempty"`
}

// QualifiedName returns schema.name, or the bare name when no schema is set.
func (r ObjectRef) QualifiedName() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// Identity returns the stable identifier of the object: schema.name for
// relations and the backend id for functions.
func (r ObjectRef) Identity() string {
	if r.Kind == KindFunction && r.ID != "" {
		return r.ID
	}
	return r.QualifiedName()
}

// SortState is the single active sort of a result view.
type SortState struct {
	Column string    `json:"column"`
	Order  SortOrder `json:"order"`
}

// FilterState is the single active row filter of a result view.
type FilterState struct {
	Column   string         `json:"column"`
	Operator FilterOperator `json:"operator"`
	Value    string         `json:"value"`
}

// StatementChunk is a contiguous block of non-blank editor lines.
// Rows are zero-based and EndRow is exclusive.
type StatementChunk struct {
	Text     string `json:"text"`
	StartRow int    `json:"start_row"`
	EndRow   int    `json:"end_row"`
}

// Contains reports whether row falls inside the chunk.
func (c StatementChunk) Contains(row int) bool {
	return row >= c.StartRow && row < c.EndRow
}
