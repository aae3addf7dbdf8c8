package fsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/platform/logger"
	"github.com/mkessler/cardvault-api/internal/store"
)

// pendingEntry is one row of the in-memory id index.
type pendingEntry struct {
	sidecarPath string
	imagePath   string
}

// PendingFileStore implements store.PendingStore and store.Archiver over
// the pending directory layout: one JSON sidecar plus one image per ID,
// back crops under the backs subdirectory. The id index is rebuilt from a
// directory scan at startup and served from memory afterwards, so request
// handling never re-lists the directory.
type PendingFileStore struct {
	pendingDir string
	archiveDir string
	intakeDir  string
	logger     *slog.Logger

	mu    sync.RWMutex
	index map[string]pendingEntry
}

// Compile-time interface checks.
var (
	_ store.PendingStore = (*PendingFileStore)(nil)
	_ store.Archiver     = (*PendingFileStore)(nil)
)

// NewPendingFileStore creates the store and rebuilds the id index from the
// pending directory, creating the directory tree if needed. If logger is
// nil, a default logger is used.
func NewPendingFileStore(pendingDir, archiveDir, intakeDir string, log *slog.Logger) (*PendingFileStore, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &PendingFileStore{
		pendingDir: pendingDir,
		archiveDir: archiveDir,
		intakeDir:  intakeDir,
		logger:     log.With(slog.String("component", "pending_store")),
		index:      make(map[string]pendingEntry),
	}

	for _, dir := range []string{
		pendingDir,
		filepath.Join(pendingDir, BacksSubdir),
		archiveDir,
		filepath.Join(archiveDir, BacksSubdir),
		intakeDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := s.rebuildIndex(); err != nil {
		return nil, fmt.Errorf("failed to rebuild pending index: %w", err)
	}

	s.logger.Info("pending index rebuilt", slog.Int("entries", len(s.index)))
	return s, nil
}

// rebuildIndex scans the pending directory once and maps every sidecar to
// its image file. Sidecars without a matching image are indexed anyway;
// the image may have been lost to a crash mid-move and undo can restore it.
func (s *PendingFileStore) rebuildIndex() error {
	entries, err := os.ReadDir(s.pendingDir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = make(map[string]pendingEntry, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		s.index[id] = pendingEntry{
			sidecarPath: filepath.Join(s.pendingDir, e.Name()),
			imagePath:   s.findImage(id),
		}
	}
	return nil
}

// findImage probes the recognized extensions for the ID's image file.
func (s *PendingFileStore) findImage(id string) string {
	for _, ext := range imageExtensions {
		candidate := filepath.Join(s.pendingDir, id+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// List implements store.PendingStore.List.
func (s *PendingFileStore) List(ctx context.Context) ([]domain.PendingImage, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.index))
	for id := range s.index {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	out := make([]domain.PendingImage, 0, len(ids))
	for _, id := range ids {
		img, err := s.Load(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrPendingNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *img)
	}
	return out, nil
}

// Load implements store.PendingStore.Load.
func (s *PendingFileStore) Load(ctx context.Context, id string) (*domain.PendingImage, error) {
	s.mu.RLock()
	entry, ok := s.index[id]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrPendingNotFound
	}

	data, err := os.ReadFile(entry.sidecarPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Sidecar vanished behind the index; drop the stale row.
			s.dropIndexEntry(id)
			return nil, store.ErrPendingNotFound
		}
		return nil, store.NewStoreError("pending image", "load", "failed to read sidecar", err)
	}

	var img domain.PendingImage
	if err := json.Unmarshal(data, &img); err != nil {
		return nil, store.NewStoreError("pending image", "load", "failed to parse sidecar", err)
	}
	if img.ID == "" {
		img.ID = id
	}
	return &img, nil
}

// Replace implements store.PendingStore.Replace.
func (s *PendingFileStore) Replace(ctx context.Context, id string, cards []domain.CardRecord) error {
	if len(cards) == 0 {
		return store.ErrEmptyCardList
	}

	img, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	img.Cards = cards
	return s.writeSidecar(id, img)
}

// RemoveCard implements store.PendingStore.RemoveCard.
func (s *PendingFileStore) RemoveCard(ctx context.Context, id string, index int) error {
	img, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := img.RemoveCard(index); err != nil {
		return err
	}
	if len(img.Cards) == 0 {
		return store.ErrEmptyCardList
	}
	return s.writeSidecar(id, img)
}

// Delete implements store.PendingStore.Delete.
func (s *PendingFileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	entry, ok := s.index[id]
	if ok {
		delete(s.index, id)
	}
	s.mu.Unlock()
	if !ok {
		return store.ErrPendingNotFound
	}

	if err := os.Remove(entry.sidecarPath); err != nil && !os.IsNotExist(err) {
		return store.NewStoreError("pending image", "delete", "failed to remove sidecar", err)
	}
	return nil
}

// Restore implements store.PendingStore.Restore.
func (s *PendingFileStore) Restore(ctx context.Context, id string, cards []domain.CardRecord) error {
	imagePath := s.findImage(id)
	if imagePath == "" {
		// The image left the pending directory with the undone action.
		// Probe archival storage first, then intake, and move it back.
		if recovered, err := s.recoverImage(id); err != nil {
			s.logger.Warn("could not recover source image during restore",
				slog.String("id", id),
				slog.String("error", err.Error()))
		} else {
			imagePath = recovered
		}
	}

	img := &domain.PendingImage{
		ID:    id,
		Cards: cards,
	}
	if imagePath != "" {
		img.SourceImage = filepath.Base(imagePath)
	}

	s.mu.Lock()
	s.index[id] = pendingEntry{
		sidecarPath: filepath.Join(s.pendingDir, sidecarName(id)),
		imagePath:   imagePath,
	}
	s.mu.Unlock()

	return s.writeSidecar(id, img)
}

// ImagePath implements store.ImageLocator.ImagePath.
func (s *PendingFileStore) ImagePath(ctx context.Context, id string) (string, error) {
	imagePath := s.imagePathFor(id)
	if imagePath == "" {
		return "", store.ErrPendingNotFound
	}
	return imagePath, nil
}

// ArchiveImage implements store.Archiver.ArchiveImage.
func (s *PendingFileStore) ArchiveImage(ctx context.Context, id string) (string, error) {
	imagePath := s.imagePathFor(id)
	if imagePath == "" {
		return "", store.ErrPendingNotFound
	}

	archived := ArchivedName(imagePath)
	dest := filepath.Join(s.archiveDir, archived)
	if err := moveFile(imagePath, dest); err != nil {
		return "", store.NewStoreError("pending image", "archive", "failed to move image to archive", err)
	}

	s.clearImagePath(id)
	logger.FromContextOrDefault(ctx, s.logger).Info("image archived",
		slog.String("id", id),
		slog.String("archived_as", archived))
	return archived, nil
}

// RecycleImage implements store.Archiver.RecycleImage.
func (s *PendingFileStore) RecycleImage(ctx context.Context, id string) error {
	imagePath := s.imagePathFor(id)
	if imagePath == "" {
		return store.ErrPendingNotFound
	}

	dest := filepath.Join(s.intakeDir, filepath.Base(imagePath))
	if err := moveFile(imagePath, dest); err != nil {
		return store.NewStoreError("pending image", "recycle", "failed to move image back to intake", err)
	}

	s.clearImagePath(id)
	logger.FromContextOrDefault(ctx, s.logger).Info("image recycled to intake",
		slog.String("id", id))
	return nil
}

// ArchiveBack implements store.Archiver.ArchiveBack.
func (s *PendingFileStore) ArchiveBack(ctx context.Context, id string, position int) error {
	src := filepath.Join(s.pendingDir, BacksSubdir, backName(id, position))
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	dest := filepath.Join(s.archiveDir, BacksSubdir, backName(id, position))
	if err := moveFile(src, dest); err != nil {
		return store.NewStoreError("card back", "archive", "failed to move back crop", err)
	}
	return nil
}

// DeleteBack implements store.Archiver.DeleteBack.
func (s *PendingFileStore) DeleteBack(ctx context.Context, id string, position int) error {
	src := filepath.Join(s.pendingDir, BacksSubdir, backName(id, position))
	if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
		return store.NewStoreError("card back", "delete", "failed to remove back crop", err)
	}
	return nil
}

// writeSidecar durably rewrites the sidecar via a temp file and rename.
func (s *PendingFileStore) writeSidecar(id string, img *domain.PendingImage) error {
	data, err := json.MarshalIndent(img, "", "  ")
	if err != nil {
		return store.NewStoreError("pending image", "write", "failed to encode sidecar", err)
	}

	path := filepath.Join(s.pendingDir, sidecarName(id))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return store.NewStoreError("pending image", "write", "failed to write sidecar", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return store.NewStoreError("pending image", "write", "failed to replace sidecar", err)
	}
	return nil
}

// recoverImage moves the ID's image back into the pending directory from
// archival storage or intake, returning its new pending path.
func (s *PendingFileStore) recoverImage(id string) (string, error) {
	candidates := make([]string, 0, len(imageExtensions)*2)
	for _, ext := range imageExtensions {
		candidates = append(candidates,
			filepath.Join(s.archiveDir, ArchivedName(id+ext)),
			filepath.Join(s.intakeDir, id+ext),
		)
	}
	for _, src := range candidates {
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dest := filepath.Join(s.pendingDir, id+filepath.Ext(src))
		if err := moveFile(src, dest); err != nil {
			return "", err
		}
		return dest, nil
	}
	return "", fmt.Errorf("no recoverable image found for %s", id)
}

func (s *PendingFileStore) imagePathFor(id string) string {
	s.mu.RLock()
	entry, ok := s.index[id]
	s.mu.RUnlock()
	if ok && entry.imagePath != "" {
		return entry.imagePath
	}
	return s.findImage(id)
}

func (s *PendingFileStore) clearImagePath(id string) {
	s.mu.Lock()
	if entry, ok := s.index[id]; ok {
		entry.imagePath = ""
		s.index[id] = entry
	}
	s.mu.Unlock()
}

func (s *PendingFileStore) dropIndexEntry(id string) {
	s.mu.Lock()
	delete(s.index, id)
	s.mu.Unlock()
}

// moveFile renames src to dest, falling back to copy+remove when the
// rename crosses filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
