package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/willibrandon/pgnav/internal/models"
)

// RawObject is one entry of the backend's object listing. Older backends
// send bare names; newer ones send objects with a unique id (oid).
type RawObject struct {
	Name string
	ID   string
}

// UnmarshalJSON accepts either "name" or {"name": ..., "id"|"oid": ...}.
func (o *RawObject) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &o.Name)
	}

	var obj struct {
		Name string          `json:"name"`
		ID   json.RawMessage `json:"id"`
		OID  json.RawMessage `json:"oid"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("object entry: %w", err)
	}
	if obj.Name == "" {
		return fmt.Errorf("object entry without name: %s", data)
	}
	o.Name = obj.Name
	o.ID = scalarString(obj.ID)
	if o.ID == "" {
		o.ID = scalarString(obj.OID)
	}
	return nil
}

// scalarString renders a JSON string or number without quotes.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// RawGroups is the per-kind object listing of one schema.
type RawGroups map[models.ObjectKind][]RawObject

// RawObjects is the backend's objects listing keyed by schema name. Schemas
// without objects may be missing.
type RawObjects map[string]RawGroups
