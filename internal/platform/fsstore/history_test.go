package fsstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/platform/fsstore"
	"github.com/mkessler/cardvault-api/internal/store"
)

func newHistoryStore(t *testing.T) *fsstore.HistoryFileStore {
	t.Helper()
	s, err := fsstore.NewHistoryFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func editEntry(t *testing.T, name string) domain.HistoryEntry {
	t.Helper()
	entry, err := domain.NewHistoryEntry(
		domain.ActionEdit,
		[]domain.CardRecord{{Name: name}},
		nil, nil)
	require.NoError(t, err)
	return entry
}

func TestHistoryFileStore_AppendPop(t *testing.T) {
	t.Parallel()

	s := newHistoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "scan_001", editEntry(t, "first")))
	require.NoError(t, s.Append(ctx, "scan_001", editEntry(t, "second")))

	count, err := s.Count(ctx, "scan_001")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	entry, remaining, err := s.Pop(ctx, "scan_001")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, "second", entry.Before[0].Name)

	entry, remaining, err = s.Pop(ctx, "scan_001")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, "first", entry.Before[0].Name)

	_, _, err = s.Pop(ctx, "scan_001")
	assert.ErrorIs(t, err, store.ErrHistoryEmpty)
}

func TestHistoryFileStore_PopUnknownID(t *testing.T) {
	t.Parallel()

	s := newHistoryStore(t)
	_, _, err := s.Pop(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrHistoryEmpty)
}

func TestHistoryFileStore_CapEvictsOldest(t *testing.T) {
	t.Parallel()

	s := newHistoryStore(t)
	ctx := context.Background()

	for i := 0; i < domain.MaxHistoryEntries+5; i++ {
		require.NoError(t, s.Append(ctx, "scan_001", editEntry(t, fmt.Sprintf("edit-%d", i))))
	}

	count, err := s.Count(ctx, "scan_001")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxHistoryEntries, count)

	// The newest entry is still on top; the oldest five were evicted.
	entry, _, err := s.Pop(ctx, "scan_001")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("edit-%d", domain.MaxHistoryEntries+4), entry.Before[0].Name)
}

func TestHistoryFileStore_SessionsMostRecentFirst(t *testing.T) {
	t.Parallel()

	s := newHistoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "scan_old", editEntry(t, "a")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Append(ctx, "scan_new", editEntry(t, "b")))
	require.NoError(t, s.Append(ctx, "scan_new", editEntry(t, "c")))

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "scan_new", sessions[0].ID)
	assert.Equal(t, 2, sessions[0].Entries)
	assert.Equal(t, "scan_old", sessions[1].ID)
}
