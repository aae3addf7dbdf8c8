package verify_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/mocks"
	"github.com/mkessler/cardvault-api/internal/platform/fsstore"
	"github.com/mkessler/cardvault-api/internal/service/verify"
	"github.com/mkessler/cardvault-api/internal/store"
	"github.com/mkessler/cardvault-api/internal/task"
)

type fixture struct {
	svc     *verify.Service
	files   *fsstore.PendingFileStore
	history store.HistoryStore
	catalog *mocks.MockCatalogStore
	hook    *mocks.MockHook

	intakeDir  string
	archiveDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pendingDir := filepath.Join(t.TempDir(), "pending")
	archiveDir := filepath.Join(t.TempDir(), "archive")
	intakeDir := filepath.Join(t.TempDir(), "intake")

	files, err := fsstore.NewPendingFileStore(pendingDir, archiveDir, intakeDir, nil)
	require.NoError(t, err)
	history, err := fsstore.NewHistoryFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	catalog := &mocks.MockCatalogStore{}
	hook := &mocks.MockHook{}

	svc, err := verify.NewService(files, files, history, catalog, hook, task.NewKeyedMutex(), nil)
	require.NoError(t, err)

	return &fixture{
		svc:        svc,
		files:      files,
		history:    history,
		catalog:    catalog,
		hook:       hook,
		intakeDir:  intakeDir,
		archiveDir: archiveDir,
	}
}

func (f *fixture) seed(t *testing.T, name string, cards []domain.CardRecord) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.intakeDir, name), []byte("jpeg"), 0o644))
	id, err := f.files.Admit(context.Background(), name, cards)
	require.NoError(t, err)
	return id
}

func gridCard(name string, position int) domain.CardRecord {
	return domain.CardRecord{
		Name: name,
		Grid: &domain.GridPlacement{Position: position, Row: position / 3, Col: position % 3},
	}
}

func threeCards() []domain.CardRecord {
	return []domain.CardRecord{gridCard("alpha", 0), gridCard("beta", 1), gridCard("gamma", 2)}
}

// Passing card 0 then card 0 again must consume what was originally
// alpha then beta: indices shift down after each removal.
func TestPassCard_IndexShift(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "scan_001.jpg", threeCards())

	require.NoError(t, f.svc.PassCard(ctx, id, 0, nil))
	require.NoError(t, f.svc.PassCard(ctx, id, 0, nil))

	require.Equal(t, 2, f.catalog.CommitCount())
	assert.Equal(t, "alpha", f.catalog.Commits[0].Card.Name)
	assert.Equal(t, "beta", f.catalog.Commits[1].Card.Name)

	img, err := f.files.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, img.Cards, 1)
	assert.Equal(t, "gamma", img.Cards[0].Name)
}

func TestPassCard_LastCardArchivesImage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "20250301_120000_scan_002.jpg", []domain.CardRecord{gridCard("only", 3)})

	require.NoError(t, f.svc.PassCard(ctx, id, 0, nil))

	_, err := f.files.Load(ctx, id)
	assert.ErrorIs(t, err, store.ErrPendingNotFound)

	_, err = os.Stat(filepath.Join(f.archiveDir, "verified_scan_002.jpg"))
	assert.NoError(t, err)

	commit := f.catalog.Commits[0]
	require.NotNil(t, commit.GridPosition)
	assert.Equal(t, 3, *commit.GridPosition)
	assert.Equal(t, "20250301_120000_scan_002.jpg", commit.SourceFile)
}

func TestPassCard_CatalogFailureLeavesPendingUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "scan_003.jpg", threeCards())

	f.catalog.CommitCardFn = func(context.Context, store.CardCommit) error {
		return errors.New("catalog down")
	}

	err := f.svc.PassCard(ctx, id, 0, nil)
	require.Error(t, err)

	img, loadErr := f.files.Load(ctx, id)
	require.NoError(t, loadErr)
	assert.Len(t, img.Cards, 3)

	// No history entry either: the action never happened.
	count, countErr := f.history.Count(ctx, id)
	require.NoError(t, countErr)
	assert.Zero(t, count)
}

func TestPassCard_EditDivergenceReportsCorrections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	original := gridCard("griffey", 0)
	original.Brand = "upper deck"
	snapshot, err := json.Marshal(original)
	require.NoError(t, err)
	stored := original.Clone()
	stored.Original = snapshot

	id := f.seed(t, "scan_004.jpg", []domain.CardRecord{stored, gridCard("other", 1)})

	edited := stored.Clone()
	edited.Brand = "topps"
	require.NoError(t, f.svc.PassCard(ctx, id, 0, &edited))

	corrections := f.hook.All()
	require.Len(t, corrections, 1)
	assert.Equal(t, "brand", corrections[0].Field)
	assert.Equal(t, "upper deck", corrections[0].Original)
	assert.Equal(t, "topps", corrections[0].Corrected)
}

func TestFailCard_NoCommit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "scan_005.jpg", threeCards())

	require.NoError(t, f.svc.FailCard(ctx, id, 1))

	assert.Zero(t, f.catalog.CommitCount())
	img, err := f.files.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, img.Cards, 2)
	assert.Equal(t, "alpha", img.Cards[0].Name)
	assert.Equal(t, "gamma", img.Cards[1].Name)
}

func TestPassAll_CommitsEverythingAndArchives(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "scan_006.jpg", threeCards())

	require.NoError(t, f.svc.PassAll(ctx, id, nil))

	assert.Equal(t, 3, f.catalog.CommitCount())
	_, err := f.files.Load(ctx, id)
	assert.ErrorIs(t, err, store.ErrPendingNotFound)
	_, err = os.Stat(filepath.Join(f.archiveDir, "verified_scan_006.jpg"))
	assert.NoError(t, err)
}

func TestFailAll_RecyclesToIntake(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "scan_007.jpg", threeCards())

	require.NoError(t, f.svc.FailAll(ctx, id))

	assert.Zero(t, f.catalog.CommitCount())
	_, err := f.files.Load(ctx, id)
	assert.ErrorIs(t, err, store.ErrPendingNotFound)
	_, err = os.Stat(filepath.Join(f.intakeDir, "scan_007.jpg"))
	assert.NoError(t, err)
}

func TestSaveProgress_MergesAndRecordsHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "scan_008.jpg", threeCards())

	idx := 1
	merged, err := f.svc.SaveProgress(ctx, id, []domain.CardRecord{gridCard("Beta Fixed", 1)}, &idx)
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, "beta fixed", merged[1].Name)

	count, err := f.history.Count(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUndo_RestoresPreviousList(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "scan_009.jpg", threeCards())

	require.NoError(t, f.svc.PassCard(ctx, id, 0, nil))

	result, err := f.svc.Undo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionPassCard, result.Action)
	assert.Equal(t, 3, result.CardsRestored)
	assert.NotEmpty(t, result.CatalogNote)

	img, err := f.files.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, img.Cards, 3)
}

// Undoing a pass-all must recreate the deleted sidecar and bring the
// archived image back.
func TestUndo_RecreatesSidecarAfterPassAll(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "20250301_120000_scan_010.jpg", threeCards())

	require.NoError(t, f.svc.PassAll(ctx, id, nil))
	_, err := f.files.Load(ctx, id)
	require.ErrorIs(t, err, store.ErrPendingNotFound)

	result, err := f.svc.Undo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionPassAll, result.Action)

	img, err := f.files.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, img.Cards, 3)

	path, err := f.files.ImagePath(ctx, id)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestUndo_NothingRecorded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.seed(t, "scan_011.jpg", threeCards())

	_, err := f.svc.Undo(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrHistoryEmpty)
}

func TestSessions_ListsActiveHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	idA := f.seed(t, "scan_012.jpg", threeCards())
	idB := f.seed(t, "scan_013.jpg", threeCards())

	_, err := f.svc.SaveProgress(ctx, idA, threeCards(), nil)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = f.svc.SaveProgress(ctx, idB, threeCards(), nil)
	require.NoError(t, err)

	sessions, err := f.svc.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, idB, sessions[0].ID)
}
