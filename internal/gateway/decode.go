package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/willibrandon/pgnav/internal/models"
	"github.com/willibrandon/pgnav/internal/schema"
)

var (
	// ErrMalformed wraps responses whose shape does not match the endpoint.
	ErrMalformed = errors.New("malformed response")
	// ErrNotConnected matches a backend error for a session without a
	// database connection.
	ErrNotConnected = errors.New("not connected")
)

// MsgNotConnected is the backend's message for a session with no connection.
const MsgNotConnected = "Not connected"

// BackendError is returned by the typed decoders when the call failed.
type BackendError struct {
	Message string
	Kind    Kind
}

func (e *BackendError) Error() string { return e.Message }

// Unwrap lets errors.Is match ErrNotConnected.
func (e *BackendError) Unwrap() error {
	if e.Message == MsgNotConnected {
		return ErrNotConnected
	}
	return nil
}

func responseError(r *Response) error {
	return &BackendError{Message: r.Error, Kind: r.Kind}
}

func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// DecodeResultSet validates a tabular response. Failures of any kind come
// back as a ResultSet carrying only an error message.
func DecodeResultSet(r *Response) *models.ResultSet {
	if r.Failed() {
		return models.ErrorResult(r.Error)
	}

	var wire struct {
		Columns    []string                `json:"columns"`
		Rows       []models.Row            `json:"rows"`
		Error      string                  `json:"error"`
		Stats      *models.Stats           `json:"stats"`
		Pagination *models.PaginationState `json:"pagination"`
	}
	if err := decodeJSON(r.Body, &wire); err != nil {
		return models.ErrorResult(err.Error())
	}
	if wire.Error != "" {
		return models.ErrorResult(wire.Error)
	}
	if wire.Columns == nil {
		return models.ErrorResult(ErrMalformed.Error() + ": missing columns")
	}
	for i, row := range wire.Rows {
		if len(row) != len(wire.Columns) {
			return models.ErrorResult(fmt.Sprintf("%s: row %d has %d values for %d columns",
				ErrMalformed, i, len(row), len(wire.Columns)))
		}
	}
	if p := wire.Pagination; p != nil && (p.Page < 1 || p.PageSize < 1 || p.TotalRows < 0) {
		return models.ErrorResult(ErrMalformed.Error() + ": invalid pagination")
	}

	rows := wire.Rows
	if rows == nil {
		rows = []models.Row{}
	}
	return &models.ResultSet{
		Columns:    wire.Columns,
		Rows:       rows,
		Stats:      wire.Stats,
		Pagination: wire.Pagination,
	}
}

// DecodeSchemas decodes the schema name list.
func DecodeSchemas(r *Response) ([]string, error) {
	return decodeStrings(r)
}

// DecodeTables decodes the relation name list.
func DecodeTables(r *Response) ([]string, error) {
	return decodeStrings(r)
}

func decodeStrings(r *Response) ([]string, error) {
	if r.Failed() {
		return nil, responseError(r)
	}
	var names []string
	if err := decodeJSON(r.Body, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// DecodeObjects decodes the per-schema object listing.
func DecodeObjects(r *Response) (schema.RawObjects, error) {
	if r.Failed() {
		return nil, responseError(r)
	}
	raw := schema.RawObjects{}
	if err := json.Unmarshal(r.Body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return raw, nil
}

// Info is a flat key/value document such as connection or table info.
type Info map[string]any

// String returns the value of key rendered as text.
func (i Info) String(key string) string {
	v, ok := i[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Keys returns the keys in sorted order.
func (i Info) Keys() []string {
	keys := make([]string, 0, len(i))
	for k := range i {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CurrentDatabase returns the current_database field of connection info.
func (i Info) CurrentDatabase() string {
	return i.String("current_database")
}

// DecodeInfo decodes a flat JSON object.
func DecodeInfo(r *Response) (Info, error) {
	if r.Failed() {
		return nil, responseError(r)
	}
	info := Info{}
	if err := decodeJSON(r.Body, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// HistoryRecord is one entry of the backend's query history.
type HistoryRecord struct {
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
}

// DecodeHistory decodes the backend's query history.
func DecodeHistory(r *Response) ([]HistoryRecord, error) {
	if r.Failed() {
		return nil, responseError(r)
	}
	var records []HistoryRecord
	if err := decodeJSON(r.Body, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Bookmark is a saved connection known to the backend.
type Bookmark struct {
	ID     string
	Fields Info
}

// DecodeBookmarks decodes the bookmark map into a list sorted by id.
func DecodeBookmarks(r *Response) ([]Bookmark, error) {
	if r.Failed() {
		return nil, responseError(r)
	}
	var byID map[string]Info
	if err := decodeJSON(r.Body, &byID); err != nil {
		return nil, err
	}
	out := make([]Bookmark, 0, len(byID))
	for id, fields := range byID {
		out = append(out, Bookmark{ID: id, Fields: fields})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
