// Package filter turns a (column, operator, value) triple into a SQL
// predicate fragment for the rows endpoint's where parameter.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/willibrandon/pgnav/internal/models"
)

// placeholder is replaced by the filter value in a template.
const placeholder = "DATA"

// ErrUnknownOperator is returned for operators outside the fixed set.
var ErrUnknownOperator = errors.New("unknown filter operator")

var templates = map[models.FilterOperator]string{
	models.OpEqual:     "= 'DATA'",
	models.OpNotEqual:  "!= 'DATA'",
	models.OpGreater:   "> 'DATA'",
	models.OpGreaterEq: ">= 'DATA'",
	models.OpLess:      "< 'DATA'",
	models.OpLessEq:    "<= 'DATA'",
	models.OpLike:      "LIKE 'DATA'",
	models.OpILike:     "ILIKE 'DATA'",
	models.OpNull:      "IS NULL",
	models.OpNotNull:   "IS NOT NULL",
}

var operators = []models.FilterOperator{
	models.OpEqual,
	models.OpNotEqual,
	models.OpGreater,
	models.OpGreaterEq,
	models.OpLess,
	models.OpLessEq,
	models.OpLike,
	models.OpILike,
	models.OpNull,
	models.OpNotNull,
}

// plainIdent matches identifiers PostgreSQL folds to themselves.
var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// Operators returns every supported operator in display order.
func Operators() []models.FilterOperator {
	out := make([]models.FilterOperator, len(operators))
	copy(out, operators)
	return out
}

// ParseOperator converts a string such as "greater_eq" into an operator.
func ParseOperator(s string) (models.FilterOperator, error) {
	op := models.FilterOperator(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := templates[op]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
	}
	return op, nil
}

// Template returns the predicate template of op.
func Template(op models.FilterOperator) (string, bool) {
	t, ok := templates[op]
	return t, ok
}

// Build returns the predicate for column op value, for example
// `age > '30'` or `age IS NULL`. The value is substituted verbatim; escaping
// is the caller's business. The value is ignored by null and not_null.
func Build(column string, op models.FilterOperator, value string) (string, error) {
	tmpl, ok := templates[op]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
	if op.RequiresValue() {
		tmpl = strings.Replace(tmpl, placeholder, value, 1)
	}
	return QuoteIdent(column) + " " + tmpl, nil
}

// FromState builds the predicate for a filter state. A nil state yields "".
func FromState(f *models.FilterState) (string, error) {
	if f == nil {
		return "", nil
	}
	return Build(f.Column, f.Operator, f.Value)
}

// QuoteIdent leaves plain lower-case identifiers bare and double-quotes
// everything else.
func QuoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return pgx.Identifier{name}.Sanitize()
}
