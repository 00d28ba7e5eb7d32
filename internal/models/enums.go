// Package models contains the value types shared by the client engine.
package models

import "fmt"

// ObjectKind identifies the kind of a database object. The string values
// match the keys used by the backend's object listing.
type ObjectKind string

const (
	KindTable            ObjectKind = "table"
	KindView             ObjectKind = "view"
	KindMaterializedView ObjectKind = "materialized_view"
	KindFunction         ObjectKind = "function"
	KindSequence         ObjectKind = "sequence"
)

// ObjectKinds lists every kind in display order.
var ObjectKinds = []ObjectKind{
	KindTable,
	KindView,
	KindMaterializedView,
	KindFunction,
	KindSequence,
}

// ParseObjectKind converts a backend string into an ObjectKind.
func ParseObjectKind(s string) (ObjectKind, error) {
	for _, k := range ObjectKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown object kind %q", s)
}

// IsRelation reports whether rows can be selected from objects of this kind.
func (k ObjectKind) IsRelation() bool {
	switch k {
	case KindTable, KindView, KindMaterializedView, KindSequence:
		return true
	}
	return false
}

// SortOrder is the direction of an ORDER BY.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Toggle returns the opposite direction.
func (o SortOrder) Toggle() SortOrder {
	if o == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// FilterOperator is one of the closed set of row filter comparisons.
type FilterOperator string

const (
	OpEqual     FilterOperator = "equal"
	OpNotEqual  FilterOperator = "not_equal"
	OpGreater   FilterOperator = "greater"
	OpGreaterEq FilterOperator = "greater_eq"
	OpLess      FilterOperator = "less"
	OpLessEq    FilterOperator = "less_eq"
	OpLike      FilterOperator = "like"
	OpILike     FilterOperator = "ilike"
	OpNull      FilterOperator = "null"
	OpNotNull   FilterOperator = "not_null"
)

// RequiresValue reports whether the operator compares against a value.
// IS NULL and IS NOT NULL take none.
func (op FilterOperator) RequiresValue() bool {
	return op != OpNull && op != OpNotNull
}

// Tab identifies a content tab of the client. The last selected tab is
// persisted between runs.
type Tab string

const (
	TabRows        Tab = "rows"
	TabStructure   Tab = "structure"
	TabIndexes     Tab = "indexes"
	TabConstraints Tab = "constraints"
	TabQuery       Tab = "query"
	TabHistory     Tab = "history"
	TabActivity    Tab = "activity"
	TabConnection  Tab = "connection"
)

// Tabs lists every tab identifier.
var Tabs = []Tab{
	TabRows, TabStructure, TabIndexes, TabConstraints,
	TabQuery, TabHistory, TabActivity, TabConnection,
}

// ParseTab converts a stored string into a Tab.
func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", s)
}
