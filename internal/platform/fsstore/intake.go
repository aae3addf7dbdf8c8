package fsstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/natsort"
	"github.com/mkessler/cardvault-api/internal/store"
)

var _ store.IntakeStore = (*PendingFileStore)(nil)

// ListIntake implements store.IntakeStore.ListIntake. Filenames come back
// in natural numeric-aware order so scan_2 sorts before scan_10.
func (s *PendingFileStore) ListIntake(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.intakeDir)
	if err != nil {
		return nil, store.NewStoreError("intake", "list", "failed to read intake directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isImageName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	natsort.Strings(names)
	return names, nil
}

// IntakePath implements store.IntakeStore.IntakePath.
func (s *PendingFileStore) IntakePath(name string) string {
	return filepath.Join(s.intakeDir, filepath.Base(name))
}

// Admit implements store.IntakeStore.Admit: the image moves from intake to
// pending and a fresh sidecar is written, in that order, so a crash between
// the two leaves an indexable image the next rebuild picks up.
func (s *PendingFileStore) Admit(ctx context.Context, name string, cards []domain.CardRecord) (string, error) {
	if len(cards) == 0 {
		return "", store.ErrEmptyCardList
	}

	base := filepath.Base(name)
	id := IDFromFilename(base)
	src := filepath.Join(s.intakeDir, base)
	dest := filepath.Join(s.pendingDir, base)

	if err := moveFile(src, dest); err != nil {
		return "", store.NewStoreError("intake", "admit", "failed to move image into pending", err)
	}

	img := &domain.PendingImage{
		ID:          id,
		SourceImage: base,
		Cards:       cards,
	}
	if err := s.writeSidecar(id, img); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.index[id] = pendingEntry{
		sidecarPath: filepath.Join(s.pendingDir, sidecarName(id)),
		imagePath:   dest,
	}
	s.mu.Unlock()
	return id, nil
}

// isImageName reports whether the filename carries a recognized source
// image extension.
func isImageName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range imageExtensions {
		if ext == known {
			return true
		}
	}
	return false
}
