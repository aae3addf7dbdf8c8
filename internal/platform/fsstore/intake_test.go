package fsstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/cardvault-api/internal/store"
)

func TestListIntake_NaturalOrderImagesOnly(t *testing.T) {
	t.Parallel()

	s, dirs := newTestStore(t)

	for _, name := range []string{
		"scan_10.jpg", "scan_2.jpg", "scan_1.png", "notes.txt", "scan_3.jpeg",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dirs.intake, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dirs.intake, "subdir"), 0o755))

	names, err := s.ListIntake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"scan_1.png", "scan_2.jpg", "scan_3.jpeg", "scan_10.jpg"}, names)
}

func TestAdmit_RejectsEmptyCardList(t *testing.T) {
	t.Parallel()

	s, dirs := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dirs.intake, "scan_1.jpg"), []byte("x"), 0o644))

	_, err := s.Admit(context.Background(), "scan_1.jpg", nil)
	assert.ErrorIs(t, err, store.ErrEmptyCardList)
}

func TestIntakePath(t *testing.T) {
	t.Parallel()

	s, dirs := newTestStore(t)
	assert.Equal(t, filepath.Join(dirs.intake, "scan_1.jpg"), s.IntakePath("scan_1.jpg"))
	// Path components are stripped; intake names are plain filenames.
	assert.Equal(t, filepath.Join(dirs.intake, "evil.jpg"), s.IntakePath("../evil.jpg"))
}
