// Package export writes result sets to CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/willibrandon/pgnav/internal/models"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts csv or json in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv or json)", s)
}

// Result describes a completed export.
type Result struct {
	FilePath string
	RowCount int
	Format   Format
}

// String returns a one-line summary.
func (r *Result) String() string {
	return fmt.Sprintf("Exported %d rows to %s: %s", r.RowCount, strings.ToUpper(string(r.Format)), r.FilePath)
}

func check(rs *models.ResultSet) error {
	if rs == nil {
		return errors.New("no results to export")
	}
	if rs.Failed() {
		return fmt.Errorf("cannot export failed result: %s", rs.Error)
	}
	if len(rs.Columns) == 0 {
		return errors.New("no columns in result set")
	}
	return nil
}

// CellString renders a value for text output; NULL becomes "".
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case []any, map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes a header row and one record per row (RFC 4180 quoting).
func WriteCSV(w io.Writer, rs *models.ResultSet) error {
	if err := check(rs); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(rs.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rs.Rows {
		record := make([]string, len(rs.Columns))
		for i := range rs.Columns {
			if i < len(row) {
				record[i] = CellString(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}
	return nil
}

// WriteJSON writes an indented array of objects keyed by column name.
// NULL values are JSON null.
func WriteJSON(w io.Writer, rs *models.ResultSet) error {
	if err := check(rs); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rs.Records()); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

// Write dispatches on format.
func Write(w io.Writer, rs *models.ResultSet, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rs)
	case FormatJSON:
		return WriteJSON(w, rs)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// ToFile writes rs to filename, adding the format's extension when missing
// and creating parent directories.
func ToFile(rs *models.ResultSet, filename string, format Format) (*Result, error) {
	if err := check(rs); err != nil {
		return nil, err
	}

	absPath, err := expandPath(filename)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	ext := "." + string(format)
	if !strings.HasSuffix(strings.ToLower(absPath), ext) {
		absPath += ext
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := Write(file, rs, format); err != nil {
		return nil, err
	}

	return &Result{FilePath: absPath, RowCount: len(rs.Rows), Format: format}, nil
}

// expandPath expands ~ to the home directory and returns an absolute path.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	return filepath.Abs(path)
}
