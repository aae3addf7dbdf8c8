package batch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/extraction"
	"github.com/mkessler/cardvault-api/internal/mocks"
	"github.com/mkessler/cardvault-api/internal/platform/fsstore"
	"github.com/mkessler/cardvault-api/internal/service/batch"
	"github.com/mkessler/cardvault-api/internal/task"
)

type fixture struct {
	svc       *batch.Service
	files     *fsstore.PendingFileStore
	status    *fsstore.BatchStatusFileStore
	extractor *mocks.MockExtractor
	registry  *task.Registry
	intakeDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	intakeDir := filepath.Join(t.TempDir(), "intake")
	files, err := fsstore.NewPendingFileStore(
		filepath.Join(t.TempDir(), "pending"),
		filepath.Join(t.TempDir(), "archive"),
		intakeDir, nil)
	require.NoError(t, err)

	status, err := fsstore.NewBatchStatusFileStore(t.TempDir())
	require.NoError(t, err)

	extractor := &mocks.MockExtractor{}
	registry := task.NewRegistry()
	svc, err := batch.NewService(files, status, extractor, registry, 0, nil)
	require.NoError(t, err)

	return &fixture{
		svc:       svc,
		files:     files,
		status:    status,
		extractor: extractor,
		registry:  registry,
		intakeDir: intakeDir,
	}
}

func (f *fixture) dropIntake(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(f.intakeDir, name), []byte("jpeg"), 0o644))
	}
}

func oneCard() []domain.CardRecord {
	return []domain.CardRecord{{Name: "card", Grid: &domain.GridPlacement{Position: 0}}}
}

func waitInactive(t *testing.T, f *fixture) *domain.BatchStatus {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		status, err := f.svc.Poll(context.Background())
		require.NoError(t, err)
		if !status.Active {
			return status
		}
		select {
		case <-deadline:
			t.Fatal("sweep never finished")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStart_SweepsIntakeInNaturalOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dropIntake(t, "scan_10.jpg", "scan_2.jpg", "scan_1.jpg")

	f.extractor.ExtractCardsFn = func(_ context.Context, req extraction.Request) ([]domain.CardRecord, error) {
		return oneCard(), nil
	}

	status, err := f.svc.Start(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Equal(t, 3, status.Total)
	require.NotEmpty(t, status.RunID)

	final := waitInactive(t, f)
	assert.Equal(t, 100, final.Progress)
	assert.False(t, final.Canceled)
	require.NotNil(t, final.FinishedAt)

	// Oldest-first by natural filename order.
	require.Equal(t, 3, f.extractor.CallCount())
	assert.Contains(t, f.extractor.Requests[0].ImagePath, "scan_1.jpg")
	assert.Contains(t, f.extractor.Requests[1].ImagePath, "scan_2.jpg")
	assert.Contains(t, f.extractor.Requests[2].ImagePath, "scan_10.jpg")

	// Every image was admitted to pending.
	list, err := f.files.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestStart_CountLimitsManifest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dropIntake(t, "scan_1.jpg", "scan_2.jpg", "scan_3.jpg")
	f.extractor.ExtractCardsFn = func(context.Context, extraction.Request) ([]domain.CardRecord, error) {
		return oneCard(), nil
	}

	status, err := f.svc.Start(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Total)

	waitInactive(t, f)
	assert.Equal(t, 2, f.extractor.CallCount())
}

func TestStart_EmptyIntake(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Start(context.Background(), 0)
	assert.ErrorIs(t, err, batch.ErrNoIntakeImages)

	// The slot was released on the failed start.
	assert.Nil(t, f.registry.Get("batch"))
}

func TestStart_SecondStartRejectedWhileActive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dropIntake(t, "scan_1.jpg")

	started := make(chan struct{})
	release := make(chan struct{})
	f.extractor.ExtractCardsFn = func(context.Context, extraction.Request) ([]domain.CardRecord, error) {
		close(started)
		<-release
		return oneCard(), nil
	}

	_, err := f.svc.Start(context.Background(), 0)
	require.NoError(t, err)
	<-started

	_, err = f.svc.Start(context.Background(), 0)
	assert.ErrorIs(t, err, task.ErrJobActive)

	close(release)
	waitInactive(t, f)
}

func TestStart_FailedImageStaysInIntake(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dropIntake(t, "scan_1.jpg", "scan_2.jpg")

	f.extractor.ExtractCardsFn = func(_ context.Context, req extraction.Request) ([]domain.CardRecord, error) {
		if filepath.Base(req.ImagePath) == "scan_1.jpg" {
			return nil, errors.New("unreadable image")
		}
		return oneCard(), nil
	}

	_, err := f.svc.Start(context.Background(), 0)
	require.NoError(t, err)
	final := waitInactive(t, f)

	// Natural completion still reads 100 even with a failure.
	assert.Equal(t, 100, final.Progress)

	_, err = os.Stat(filepath.Join(f.intakeDir, "scan_1.jpg"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.intakeDir, "scan_2.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestCancel_StopsSweep(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dropIntake(t, "scan_1.jpg", "scan_2.jpg", "scan_3.jpg")

	started := make(chan struct{}, 3)
	f.extractor.ExtractCardsFn = func(c context.Context, _ extraction.Request) ([]domain.CardRecord, error) {
		started <- struct{}{}
		<-c.Done()
		return nil, c.Err()
	}

	_, err := f.svc.Start(context.Background(), 0)
	require.NoError(t, err)
	<-started

	canceled, err := f.svc.Cancel(context.Background())
	require.NoError(t, err)
	assert.True(t, canceled)

	final := waitInactive(t, f)
	assert.True(t, final.Canceled)
	assert.Less(t, final.Progress, 100)

	// Cancel with nothing running is a no-op.
	canceled, err = f.svc.Cancel(context.Background())
	require.NoError(t, err)
	assert.False(t, canceled)
}

// A status record left active by an unclean exit must be corrected on the
// next poll: there is no live job backing it.
func TestPoll_CorrectsStaleActiveStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.status.SaveStatus(ctx, &domain.BatchStatus{
		Active:    true,
		RunID:     "ghost-run",
		Total:     9,
		Remaining: 4,
	}))

	status, err := f.svc.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, status.Active)
	require.NotNil(t, status.FinishedAt)

	// The correction is durable.
	reloaded, err := f.status.LoadStatus(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded.Active)
}

func TestPoll_OverlaysLiveProgress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dropIntake(t, "scan_1.jpg")

	started := make(chan struct{})
	release := make(chan struct{})
	f.extractor.ExtractCardsFn = func(context.Context, extraction.Request) ([]domain.CardRecord, error) {
		close(started)
		<-release
		return oneCard(), nil
	}

	status, err := f.svc.Start(context.Background(), 0)
	require.NoError(t, err)
	<-started

	polled, err := f.svc.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, polled.Active)
	assert.Equal(t, status.RunID, polled.RunID)
	assert.Equal(t, "scan_1.jpg", polled.CurrentFile)
	assert.GreaterOrEqual(t, polled.Progress, 10)
	assert.LessOrEqual(t, polled.Progress, 99)

	close(release)
	waitInactive(t, f)
}
