package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/willibrandon/pgnav/internal/logger"
)

// MaxHistoryEntries is how many distinct statements are kept.
const MaxHistoryEntries = 1000

// HistoryEntry is one locally executed statement.
type HistoryEntry struct {
	ID         int64
	SQL        string
	Mode       string
	ExecutedAt time.Time
	DurationMs int64
	RowCount   int64
	Error      string
}

// HistoryStore provides access to the local query history.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new history store.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Fingerprint hashes a statement so that queries differing only in literal
// values collide. Unparseable text is hashed as-is. The result is signed
// for SQLite's INTEGER type.
func Fingerprint(sqlText string) int64 {
	normalized, err := pg_query.Normalize(sqlText)
	if err != nil {
		normalized = sqlText
	}
	return int64(pg_query.HashXXH3_64([]byte(normalized), 0))
}

// Add records a statement with shell-style deduplication: an entry with the
// same fingerprint is moved to the top and takes the new text and outcome.
func (s *HistoryStore) Add(ctx context.Context, e HistoryEntry) error {
	text := strings.TrimSpace(e.SQL)
	if text == "" {
		return nil
	}
	mode := e.Mode
	if mode == "" {
		mode = "query"
	}
	at := e.ExecutedAt
	if at.IsZero() {
		at = time.Now()
	}

	fp := Fingerprint(text)

	result, err := s.db.conn.ExecContext(ctx, `
		UPDATE query_history
		SET query = ?, mode = ?, executed_at = ?, duration_ms = ?, row_count = ?, error = ?
		WHERE fingerprint = ?
	`, text, mode, at, e.DurationMs, e.RowCount, e.Error, fp)
	if err != nil {
		return err
	}

	if n, _ := result.RowsAffected(); n == 0 {
		_, err = s.db.conn.ExecContext(ctx, `
			INSERT INTO query_history (fingerprint, query, mode, executed_at, duration_ms, row_count, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, fp, text, mode, at, e.DurationMs, e.RowCount, e.Error)
		if err != nil {
			return err
		}
	}

	_, err = s.db.conn.ExecContext(ctx, `
		DELETE FROM query_history
		WHERE id NOT IN (
			SELECT id FROM query_history
			ORDER BY executed_at DESC, id DESC
			LIMIT ?
		)
	`, MaxHistoryEntries)
	if err != nil {
		logger.Warn("failed to trim query history", "error", err)
	}

	return nil
}

// GetRecent returns the most recent entries, newest first.
func (s *HistoryStore) GetRecent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	return s.Search(ctx, "", limit)
}

// Search returns entries whose text contains query (case-insensitive),
// newest first. An empty query matches everything.
func (s *HistoryStore) Search(ctx context.Context, query string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error

	if query == "" {
		rows, err = s.db.conn.QueryContext(ctx, `
			SELECT id, query, mode, executed_at, duration_ms, row_count, error
			FROM query_history
			ORDER BY executed_at DESC, id DESC
			LIMIT ?
		`, limit)
	} else {
		rows, err = s.db.conn.QueryContext(ctx, `
			SELECT id, query, mode, executed_at, duration_ms, row_count, error
			FROM query_history
			WHERE query LIKE ?
			ORDER BY executed_at DESC, id DESC
			LIMIT ?
		`, "%"+query+"%", limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.SQL, &entry.Mode, &entry.ExecutedAt, &entry.DurationMs, &entry.RowCount, &entry.Error); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Delete removes one entry.
func (s *HistoryStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM query_history WHERE id = ?`, id)
	return err
}

// Clear removes every entry.
func (s *HistoryStore) Clear(ctx context.Context) error {
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM query_history`)
	return err
}

// Count returns the total number of history entries.
func (s *HistoryStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM query_history").Scan(&count)
	return count, err
}
