package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/willibrandon/pgnav/internal/logger"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "pgnav_store_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	db, err := Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

func TestStateStore_SetGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStateStore(db)

	if _, ok, err := store.Get(ctx, "rowsLimit"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "rowsLimit", "50"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "rowsLimit", "25"); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}

	v, ok, err := store.Get(ctx, "rowsLimit")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if v != "25" {
		t.Errorf("expected 25, got %q", v)
	}
}

func TestStateStore_DeleteAndClear(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStateStore(db)

	for k, v := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		if err := store.Set(ctx, k, v); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 2 || all["b"] != "2" {
		t.Errorf("unexpected state after delete: %v", all)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	all, _ = store.All(ctx)
	if len(all) != 0 {
		t.Errorf("expected empty state, got %v", all)
	}
}

func TestStateStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := NewStateStore(db).Set(ctx, "sessionId", "abc"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	v, ok, err := NewStateStore(db).Get(ctx, "sessionId")
	if err != nil || !ok || v != "abc" {
		t.Errorf("expected persisted sessionId, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestHistoryStore_DeduplicatesByFingerprint(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHistoryStore(db)
	base := time.Now().Add(-time.Hour)

	entries := []HistoryEntry{
		{SQL: "SELECT * FROM users WHERE id = 1", ExecutedAt: base},
		{SQL: "SELECT * FROM orders", ExecutedAt: base.Add(time.Minute)},
		{SQL: "  SELECT * FROM users WHERE id = 42  ", ExecutedAt: base.Add(2 * time.Minute), RowCount: 1},
		{SQL: "   ", ExecutedAt: base.Add(3 * time.Minute)},
	}
	for _, e := range entries {
		if err := store.Add(ctx, e); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 entries, got %d", count)
	}

	recent, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if recent[0].SQL != "SELECT * FROM users WHERE id = 42" {
		t.Errorf("expected latest users query first, got %q", recent[0].SQL)
	}
	if recent[0].RowCount != 1 || recent[0].Mode != "query" {
		t.Errorf("unexpected entry: %+v", recent[0])
	}
	if recent[1].SQL != "SELECT * FROM orders" {
		t.Errorf("expected orders second, got %q", recent[1].SQL)
	}
}

func TestHistoryStore_SearchDeleteClear(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHistoryStore(db)
	base := time.Now().Add(-time.Hour)

	for i, q := range []string{"SELECT 1", "select * from Users", "DELETE FROM sessions"} {
		if err := store.Add(ctx, HistoryEntry{SQL: q, ExecutedAt: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	found, err := store.Search(ctx, "users", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 1 || found[0].SQL != "select * from Users" {
		t.Fatalf("unexpected search result: %+v", found)
	}

	if err := store.Delete(ctx, found[0].ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n, _ := store.Count(ctx); n != 2 {
		t.Errorf("expected 2 after delete, got %d", n)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("expected 0 after clear, got %d", n)
	}
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"SELECT * FROM t WHERE id = 1", "SELECT * FROM t WHERE id = 2", true},
		{"SELECT * FROM t WHERE name = 'a'", "SELECT * FROM t WHERE name = 'b'", true},
		{"SELECT * FROM t", "SELECT * FROM u", false},
		{"not sql at all", "not sql at all", true},
	}

	for _, tt := range tests {
		if got := Fingerprint(tt.a) == Fingerprint(tt.b); got != tt.same {
			t.Errorf("Fingerprint(%q) == Fingerprint(%q): got %v, want %v", tt.a, tt.b, got, tt.same)
		}
	}
}

func TestHistoryStore_TrimFailureIsLogged(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger.InitLogger(logger.LevelInfo, filepath.Join(t.TempDir(), "pgnav.log"))
	defer logger.Close()

	ctx := context.Background()
	_, err := db.Conn().ExecContext(ctx, `
		WITH RECURSIVE n(i) AS (SELECT 1 UNION ALL SELECT i + 1 FROM n WHERE i < ?)
		INSERT INTO query_history (fingerprint, query, executed_at)
		SELECT -i, 'SELECT ' || i, datetime('now', '-1 day') FROM n
	`, MaxHistoryEntries)
	if err != nil {
		t.Fatalf("seed history: %v", err)
	}
	_, err = db.Conn().ExecContext(ctx, `
		CREATE TRIGGER block_trim BEFORE DELETE ON query_history
		BEGIN SELECT RAISE(ABORT, 'trim blocked'); END
	`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	store := NewHistoryStore(db)
	if err := store.Add(ctx, HistoryEntry{SQL: "SELECT 1"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	problems := logger.RecentProblems()
	if len(problems) == 0 {
		t.Fatal("expected a logged warning")
	}
	last := problems[len(problems)-1]
	if last.Message != "failed to trim query history" {
		t.Errorf("unexpected warning: %+v", last)
	}
}
