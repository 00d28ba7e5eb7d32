package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// StateStore is a key/value table of client settings.
type StateStore struct {
	db *DB
}

// NewStateStore creates a new state store.
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// Get returns the value stored under key. ok is false when the key is absent.
func (s *StateStore) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.conn.QueryRowContext(ctx,
		`SELECT value FROM client_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes value under key, replacing any previous value.
func (s *StateStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	return err
}

// Delete removes key. Deleting an absent key is not an error.
func (s *StateStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM client_state WHERE key = ?`, key)
	return err
}

// Clear removes every key.
func (s *StateStore) Clear(ctx context.Context) error {
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM client_state`)
	return err
}

// All returns every stored key and value.
func (s *StateStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.conn.QueryContext(ctx, `SELECT key, value FROM client_state ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
