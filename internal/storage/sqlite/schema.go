package sqlite

// initSchema creates the database schema if it doesn't exist.
func (db *DB) initSchema() error {
	schema := `
	-- Durable client settings (session id, rows limit, last query, last tab)
	CREATE TABLE IF NOT EXISTS client_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Locally executed statements, deduplicated by fingerprint
	CREATE TABLE IF NOT EXISTS query_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint INTEGER NOT NULL UNIQUE,
		query TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT 'query',
		executed_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		row_count INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_query_history_executed_at ON query_history(executed_at DESC);
	`

	_, err := db.conn.Exec(schema)
	return err
}
