package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/pgnav/internal/models"
	"github.com/willibrandon/pgnav/internal/storage/sqlite"
)

func newTestStore(t *testing.T, defaultRows int) (*Store, *sqlite.StateStore) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	kv := sqlite.NewStateStore(db)
	return New(kv, defaultRows), kv
}

func TestStore_Defaults(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	rows, err := s.RowsLimit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, rows)

	text, err := s.LastQueryText(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)

	tab, err := s.LastSelectedTab(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TabRows, tab)
}

func TestStore_SessionIDIsStable(t *testing.T) {
	s, _ := newTestStore(t, 100)
	ctx := context.Background()

	first, err := s.SessionID(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := s.SessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reset, err := s.ResetSessionID(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, reset)

	after, err := s.SessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, reset, after)
}

func TestStore_InvalidPersistedValues(t *testing.T) {
	s, kv := newTestStore(t, 50)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, KeyRowsLimit, "zero"))
	require.NoError(t, kv.Set(ctx, KeyLastSelectedTab, "charts"))
	require.NoError(t, kv.Set(ctx, KeySessionID, "not-a-uuid"))

	rows, err := s.RowsLimit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, rows)

	tab, err := s.LastSelectedTab(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TabRows, tab)

	id, err := s.SessionID(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", id)
}

func TestStore_WriteThrough(t *testing.T) {
	s, kv := newTestStore(t, 100)
	ctx := context.Background()

	require.NoError(t, s.SetRowsLimit(ctx, 25))
	require.NoError(t, s.SetLastQueryText(ctx, "SELECT 1"))
	require.NoError(t, s.SetLastSelectedTab(ctx, models.TabQuery))

	v, ok, err := kv.Get(ctx, KeyRowsLimit)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "25", v)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{RowsLimit: 25, LastQueryText: "SELECT 1", LastSelectedTab: models.TabQuery}, snap)
}

func TestStore_Validation(t *testing.T) {
	s, _ := newTestStore(t, 100)
	ctx := context.Background()

	var ve *models.ValidationError
	assert.True(t, errors.As(s.SetRowsLimit(ctx, 0), &ve))
	assert.True(t, errors.As(s.SetLastSelectedTab(ctx, "charts"), &ve))
}

func TestStore_Clear(t *testing.T) {
	s, _ := newTestStore(t, 100)
	ctx := context.Background()

	_, err := s.SessionID(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SetRowsLimit(ctx, 10))

	require.NoError(t, s.Clear(ctx))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.SessionID)
	assert.Equal(t, 100, snap.RowsLimit)
}
