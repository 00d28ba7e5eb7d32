// Package history keeps the locally executed statements and lets a caller
// step through them like shell history.
package history

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/willibrandon/pgnav/internal/logger"
	"github.com/willibrandon/pgnav/internal/storage/sqlite"
)

// Execution modes recorded with each entry.
const (
	ModeQuery   = "query"
	ModeExplain = "explain"
	ModeAnalyze = "analyze"
)

// Entry is one statement in history.
type Entry = sqlite.HistoryEntry

// Manager caches recent history in memory, oldest first, backed by SQLite.
type Manager struct {
	store        *sqlite.HistoryStore
	cache        []Entry
	currentIndex int // -1 when not browsing
	maxEntries   int
	mu           sync.RWMutex
}

// NewManager creates a manager over db and loads the cache.
func NewManager(ctx context.Context, db *sqlite.DB, maxEntries int) *Manager {
	if maxEntries <= 0 {
		maxEntries = sqlite.MaxHistoryEntries
	}

	m := &Manager{
		store:        sqlite.NewHistoryStore(db),
		currentIndex: -1,
		maxEntries:   maxEntries,
	}
	m.reload(ctx)
	return m
}

func (m *Manager) reload(ctx context.Context) {
	entries, err := m.store.GetRecent(ctx, m.maxEntries)
	if err != nil {
		logger.Warn("failed to load query history", "error", err)
		return
	}

	cache := make([]Entry, len(entries))
	for i, e := range entries {
		cache[len(entries)-1-i] = e
	}

	m.mu.Lock()
	m.cache = cache
	m.currentIndex = -1
	m.mu.Unlock()
}

// Add records an executed statement and resets navigation.
func (m *Manager) Add(ctx context.Context, sql, mode string, duration time.Duration, rowCount int, queryError string) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return
	}

	err := m.store.Add(ctx, Entry{
		SQL:        sql,
		Mode:       mode,
		ExecutedAt: time.Now(),
		DurationMs: duration.Milliseconds(),
		RowCount:   int64(rowCount),
		Error:      queryError,
	})
	if err != nil {
		logger.Warn("failed to record query history", "error", err)
		return
	}
	m.reload(ctx)
}

// Previous steps back to an older statement. It returns "" when history is
// empty and stays on the oldest entry once reached.
func (m *Manager) Previous() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.cache) == 0 {
		return ""
	}

	if m.currentIndex == -1 {
		m.currentIndex = len(m.cache) - 1
	} else if m.currentIndex > 0 {
		m.currentIndex--
	}

	return m.cache[m.currentIndex].SQL
}

// Next steps forward to a newer statement. Stepping past the newest entry
// ends browsing and returns "".
func (m *Manager) Next() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.cache) == 0 || m.currentIndex == -1 {
		return ""
	}

	if m.currentIndex < len(m.cache)-1 {
		m.currentIndex++
		return m.cache[m.currentIndex].SQL
	}

	m.currentIndex = -1
	return ""
}

// Current returns the entry being viewed, or nil when not browsing.
func (m *Manager) Current() *Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.currentIndex < 0 || m.currentIndex >= len(m.cache) {
		return nil
	}
	e := m.cache[m.currentIndex]
	return &e
}

// ResetNavigation ends browsing.
func (m *Manager) ResetNavigation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentIndex = -1
}

// IsBrowsing reports whether Previous has been called since the last reset.
func (m *Manager) IsBrowsing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentIndex >= 0
}

// Search returns entries containing query (case-insensitive), newest first.
func (m *Manager) Search(query string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)
	var results []Entry
	for i := len(m.cache) - 1; i >= 0; i-- {
		if needle == "" || strings.Contains(strings.ToLower(m.cache[i].SQL), needle) {
			results = append(results, m.cache[i])
		}
	}
	return results
}

// Clear removes all history.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.reload(ctx)
	return nil
}

// Len returns the number of cached entries.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}
