package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/cardvault-api/internal/task"
)

func TestRegistry_AcquireIsExclusivePerKey(t *testing.T) {
	t.Parallel()

	r := task.NewRegistry()

	job, err := r.Acquire(context.Background(), "reprocess:scan_001")
	require.NoError(t, err)
	require.NotEmpty(t, job.RunID())

	_, err = r.Acquire(context.Background(), "reprocess:scan_001")
	assert.ErrorIs(t, err, task.ErrJobActive)

	// A different key is an independent slot.
	other, err := r.Acquire(context.Background(), "reprocess:scan_002")
	require.NoError(t, err)
	r.Release(other)

	r.Release(job)

	// Slot is reusable after release.
	again, err := r.Acquire(context.Background(), "reprocess:scan_001")
	require.NoError(t, err)
	assert.NotEqual(t, job.RunID(), again.RunID())
	r.Release(again)
}

func TestRegistry_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	r := task.NewRegistry()
	job, err := r.Acquire(context.Background(), "batch")
	require.NoError(t, err)

	r.Release(job)
	r.Release(job)
	r.Release(nil)

	assert.True(t, job.Finished())
	assert.Nil(t, r.Get("batch"))
}

func TestRegistry_CancelPropagatesToContext(t *testing.T) {
	t.Parallel()

	r := task.NewRegistry()
	job, err := r.Acquire(context.Background(), "batch")
	require.NoError(t, err)
	defer r.Release(job)

	canceled := r.Cancel("batch")
	require.NotNil(t, canceled)
	assert.Equal(t, job.RunID(), canceled.RunID())

	select {
	case <-job.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("job context not canceled")
	}

	// Cancelling twice, or a free slot, is a no-op.
	r.Cancel("batch")
	assert.Nil(t, r.Cancel("unknown"))
}

func TestRegistry_DoneClosesOnRelease(t *testing.T) {
	t.Parallel()

	r := task.NewRegistry()
	job, err := r.Acquire(context.Background(), "batch")
	require.NoError(t, err)

	assert.False(t, job.Finished())
	go r.Release(job)

	select {
	case <-job.Done():
	case <-time.After(time.Second):
		t.Fatal("Done never closed")
	}
	assert.True(t, job.Finished())
}
