// Package state persists the client settings that survive restarts: the
// session id, rows per page, the last editor text and the last selected
// tab. Every setter writes through; getters fall back to defaults when a
// key is absent.
package state

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/willibrandon/pgnav/internal/logger"
	"github.com/willibrandon/pgnav/internal/models"
)

// Durable keys.
const (
	KeySessionID       = "sessionId"
	KeyRowsLimit       = "rowsLimit"
	KeyLastQueryText   = "lastQueryText"
	KeyLastSelectedTab = "lastSelectedTab"
)

// KV is the backing key/value table.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Store is the typed view over KV.
type Store struct {
	kv          KV
	defaultRows int
}

// New creates a Store. defaultRowsLimit below 1 falls back to 100.
func New(kv KV, defaultRowsLimit int) *Store {
	if defaultRowsLimit < 1 {
		defaultRowsLimit = models.DefaultPageSize
	}
	return &Store{kv: kv, defaultRows: defaultRowsLimit}
}

// SessionID returns the persisted session id, generating and storing a new
// one on first use.
func (s *Store) SessionID(ctx context.Context) (string, error) {
	id, ok, err := s.kv.Get(ctx, KeySessionID)
	if err != nil {
		return "", fmt.Errorf("read session id: %w", err)
	}
	if ok {
		if _, perr := uuid.Parse(id); perr == nil {
			return id, nil
		}
		logger.Warn("discarding invalid persisted session id", "value", id)
	}
	return s.ResetSessionID(ctx)
}

// ResetSessionID replaces the session id with a fresh one.
func (s *Store) ResetSessionID(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.kv.Set(ctx, KeySessionID, id); err != nil {
		return "", fmt.Errorf("write session id: %w", err)
	}
	logger.Debug("session id generated", "session_id", id)
	return id, nil
}

// RowsLimit returns the rows-per-page setting.
func (s *Store) RowsLimit(ctx context.Context) (int, error) {
	v, ok, err := s.kv.Get(ctx, KeyRowsLimit)
	if err != nil {
		return 0, fmt.Errorf("read rows limit: %w", err)
	}
	if !ok {
		return s.defaultRows, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		logger.Warn("ignoring invalid persisted rows limit", "value", v)
		return s.defaultRows, nil
	}
	return n, nil
}

// SetRowsLimit persists n, which must be at least 1.
func (s *Store) SetRowsLimit(ctx context.Context, n int) error {
	if n < 1 {
		return &models.ValidationError{Field: KeyRowsLimit, Reason: "must be at least 1"}
	}
	return s.kv.Set(ctx, KeyRowsLimit, strconv.Itoa(n))
}

// LastQueryText returns the last editor text, or "".
func (s *Store) LastQueryText(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, KeyLastQueryText)
	if err != nil {
		return "", fmt.Errorf("read last query: %w", err)
	}
	return v, nil
}

// SetLastQueryText persists the editor text.
func (s *Store) SetLastQueryText(ctx context.Context, text string) error {
	return s.kv.Set(ctx, KeyLastQueryText, text)
}

// LastSelectedTab returns the last tab, defaulting to rows.
func (s *Store) LastSelectedTab(ctx context.Context) (models.Tab, error) {
	v, ok, err := s.kv.Get(ctx, KeyLastSelectedTab)
	if err != nil {
		return "", fmt.Errorf("read last tab: %w", err)
	}
	if !ok {
		return models.TabRows, nil
	}
	tab, err := models.ParseTab(v)
	if err != nil {
		logger.Warn("ignoring invalid persisted tab", "value", v)
		return models.TabRows, nil
	}
	return tab, nil
}

// SetLastSelectedTab persists tab.
func (s *Store) SetLastSelectedTab(ctx context.Context, tab models.Tab) error {
	if _, err := models.ParseTab(string(tab)); err != nil {
		return &models.ValidationError{Field: KeyLastSelectedTab, Reason: err.Error()}
	}
	return s.kv.Set(ctx, KeyLastSelectedTab, string(tab))
}

// Clear removes every persisted setting.
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Clear(ctx)
}

// Snapshot is every setting with defaults applied.
type Snapshot struct {
	SessionID       string     `json:"sessionId"`
	RowsLimit       int        `json:"rowsLimit"`
	LastQueryText   string     `json:"lastQueryText"`
	LastSelectedTab models.Tab `json:"lastSelectedTab"`
}

// Snapshot reads all settings. It does not create a session id.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.SessionID, _, err = s.kv.Get(ctx, KeySessionID); err != nil {
		return snap, err
	}
	if snap.RowsLimit, err = s.RowsLimit(ctx); err != nil {
		return snap, err
	}
	if snap.LastQueryText, err = s.LastQueryText(ctx); err != nil {
		return snap, err
	}
	if snap.LastSelectedTab, err = s.LastSelectedTab(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}
