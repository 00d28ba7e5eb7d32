// Package sqlite provides SQLite storage for client state and local query
// history.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the local pgnav database holding client state and query history.
// One file is shared by every CLI invocation, so it runs in WAL mode with
// a busy timeout.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens the state database at path, creating the file, its parent
// directory and the state and history tables when missing.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// _loc=auto so executed_at scans back as time.Time
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, path: path}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn exposes the handle for ad hoc statements in tests and maintenance.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path, shown by `pgnav state`.
func (db *DB) Path() string {
	return db.path
}
