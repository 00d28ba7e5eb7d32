// Package render formats view models for terminal output.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/mitchellh/go-wordwrap"

	"github.com/willibrandon/pgnav/internal/export"
	"github.com/willibrandon/pgnav/internal/models"
)

// NullDisplay is shown for SQL NULL cells.
const NullDisplay = "NULL"

var (
	headerFormat = color.New(color.Bold).SprintFunc()
	mutedFormat  = color.New(color.FgHiBlack).SprintFunc()
	errorFormat  = color.New(color.FgHiRed, color.Bold).SprintFunc()
	okFormat     = color.New(color.FgGreen).SprintFunc()
)

// TableOptions controls Table output.
type TableOptions struct {
	// MaxColumnWidth truncates wider cells; 0 means no limit.
	MaxColumnWidth int
	// HideFooter omits the row count line.
	HideFooter bool
}

// Table writes rs as an aligned text table.
func Table(w io.Writer, rs *models.ResultSet, opts TableOptions) error {
	if rs.Failed() {
		msg := "no result"
		if rs != nil {
			msg = rs.Error
		}
		return Error(w, msg, 0)
	}

	cells := make([][]string, len(rs.Rows))
	widths := make([]int, len(rs.Columns))
	for i, c := range rs.Columns {
		widths[i] = runewidth.StringWidth(c)
	}
	for r, row := range rs.Rows {
		cells[r] = make([]string, len(rs.Columns))
		for i := range rs.Columns {
			s := NullDisplay
			if i < len(row) && row[i] != nil {
				s = strings.ReplaceAll(export.CellString(row[i]), "\n", "↵")
			}
			if opts.MaxColumnWidth > 0 && runewidth.StringWidth(s) > opts.MaxColumnWidth {
				s = runewidth.Truncate(s, opts.MaxColumnWidth, "…")
			}
			cells[r][i] = s
			if sw := runewidth.StringWidth(s); sw > widths[i] {
				widths[i] = sw
			}
		}
	}

	var b strings.Builder
	for i, c := range rs.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(headerFormat(runewidth.FillRight(c, widths[i])))
	}
	b.WriteString("\n")
	for i := range rs.Columns {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", widths[i]))
	}
	b.WriteString("\n")

	for r, row := range cells {
		for i, s := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			padded := runewidth.FillRight(s, widths[i])
			if s == NullDisplay && (i >= len(rs.Rows[r]) || rs.Rows[r][i] == nil) {
				padded = mutedFormat(padded)
			}
			b.WriteString(padded)
		}
		b.WriteString("\n")
	}

	if !opts.HideFooter {
		b.WriteString(mutedFormat(Footer(rs)))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Footer summarizes row count, timing and pagination.
func Footer(rs *models.ResultSet) string {
	n := len(rs.Rows)
	noun := "rows"
	if n == 1 {
		noun = "row"
	}
	parts := []string{fmt.Sprintf("(%s %s)", humanize.Comma(int64(n)), noun)}

	if rs.Stats != nil && rs.Stats.QueryDurationMs > 0 {
		d := time.Duration(rs.Stats.QueryDurationMs * float64(time.Millisecond))
		parts = append(parts, d.Round(time.Millisecond).String())
	}
	if rs.Pagination != nil {
		parts = append(parts, Pagination(*rs.Pagination))
	}
	return strings.Join(parts, "  ")
}

// Pagination describes the page position, e.g. "page 2 of 3, rows 101-200 of 250".
func Pagination(p models.PaginationState) string {
	if p.TotalRows == 0 {
		return fmt.Sprintf("page %d of %d", p.Page, p.TotalPages)
	}
	return fmt.Sprintf("page %d of %d, rows %s-%s of %s",
		p.Page, p.TotalPages,
		humanize.Comma(int64(p.StartRow())),
		humanize.Comma(int64(p.EndRow())),
		humanize.Comma(int64(p.TotalRows)))
}

// Error writes msg in red, wrapped at width columns (0 means 80).
func Error(w io.Writer, msg string, width int) error {
	if width <= 0 {
		width = 80
	}
	wrapped := wordwrap.WrapString(msg, uint(width))
	_, err := fmt.Fprintf(w, "%s %s\n", errorFormat("ERROR:"), wrapped)
	return err
}

// Success writes a confirmation line.
func Success(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintln(w, okFormat(fmt.Sprintf(format, args...)))
	return err
}

// SQL highlights sql for a 256-colour terminal. It returns sql unchanged
// when colour is disabled or highlighting fails.
func SQL(sql string) string {
	if sql == "" || color.NoColor {
		return sql
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, sql, "postgresql", "terminal256", "monokai"); err != nil {
		return sql
	}
	return buf.String()
}

// KeyValues writes aligned "key: value" lines in the given key order.
func KeyValues(w io.Writer, keys []string, value func(string) string) error {
	width := 0
	for _, k := range keys {
		if kw := runewidth.StringWidth(k); kw > width {
			width = kw
		}
	}
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(headerFormat(runewidth.FillRight(k+":", width+1)))
		b.WriteString(" ")
		b.WriteString(value(k))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Ago renders t relative to now, e.g. "3 minutes ago".
func Ago(t time.Time) string {
	return humanize.Time(t)
}
