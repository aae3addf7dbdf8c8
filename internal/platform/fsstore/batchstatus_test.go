package fsstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/platform/fsstore"
	"github.com/mkessler/cardvault-api/internal/store"
)

func TestBatchStatusFileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s, err := fsstore.NewBatchStatusFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	// A missing record reads as inactive, not an error.
	status, err := s.LoadStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Active)

	saved := &domain.BatchStatus{
		Active:    true,
		RunID:     "run-1",
		Total:     12,
		Remaining: 7,
		Progress:  41,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveStatus(ctx, saved))

	loaded, err := s.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.RunID, loaded.RunID)
	assert.Equal(t, saved.Remaining, loaded.Remaining)
	assert.True(t, loaded.Active)
}

func TestBatchStatusFileStore_Progress(t *testing.T) {
	t.Parallel()

	s, err := fsstore.NewBatchStatusFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.LoadProgress(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SaveProgress(ctx, &domain.BatchProgress{
		RunID:   "run-1",
		Current: 3,
		Total:   12,
		File:    "scan_003.jpg",
		Substep: "extracting",
	}))

	progress, err := s.LoadProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.Current)
	assert.Equal(t, "scan_003.jpg", progress.File)

	require.NoError(t, s.ClearProgress(ctx))
	_, err = s.LoadProgress(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Clearing twice is fine.
	assert.NoError(t, s.ClearProgress(ctx))
}
