package fsstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/store"
)

const (
	batchStatusFile   = "batch_status.json"
	batchProgressFile = "batch_progress.json"
)

// BatchStatusFileStore implements store.BatchStatusStore with two JSON
// records under the state directory: the durable batch status and the live
// fine-grained progress the sweep rewrites as it runs.
type BatchStatusFileStore struct {
	dir string
	mu  sync.Mutex
}

var _ store.BatchStatusStore = (*BatchStatusFileStore)(nil)

// NewBatchStatusFileStore creates the store, creating the state directory
// if needed.
func NewBatchStatusFileStore(dir string) (*BatchStatusFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, store.NewStoreError("batch status", "init", "failed to create state directory", err)
	}
	return &BatchStatusFileStore{dir: dir}, nil
}

// LoadStatus implements store.BatchStatusStore.LoadStatus.
func (s *BatchStatusFileStore) LoadStatus(ctx context.Context) (*domain.BatchStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var status domain.BatchStatus
	if err := s.readJSON(batchStatusFile, &status); err != nil {
		if os.IsNotExist(err) {
			return &domain.BatchStatus{}, nil
		}
		return nil, store.NewStoreError("batch status", "load", "failed to read status record", err)
	}
	return &status, nil
}

// SaveStatus implements store.BatchStatusStore.SaveStatus.
func (s *BatchStatusFileStore) SaveStatus(ctx context.Context, status *domain.BatchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeJSON(batchStatusFile, status); err != nil {
		return store.NewStoreError("batch status", "save", "failed to write status record", err)
	}
	return nil
}

// LoadProgress implements store.BatchStatusStore.LoadProgress.
func (s *BatchStatusFileStore) LoadProgress(ctx context.Context) (*domain.BatchProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var progress domain.BatchProgress
	if err := s.readJSON(batchProgressFile, &progress); err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, store.NewStoreError("batch progress", "load", "failed to read progress record", err)
	}
	return &progress, nil
}

// SaveProgress implements store.BatchStatusStore.SaveProgress.
func (s *BatchStatusFileStore) SaveProgress(ctx context.Context, progress *domain.BatchProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeJSON(batchProgressFile, progress); err != nil {
		return store.NewStoreError("batch progress", "save", "failed to write progress record", err)
	}
	return nil
}

// ClearProgress implements store.BatchStatusStore.ClearProgress.
func (s *BatchStatusFileStore) ClearProgress(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, batchProgressFile)); err != nil && !os.IsNotExist(err) {
		return store.NewStoreError("batch progress", "clear", "failed to remove progress record", err)
	}
	return nil
}

func (s *BatchStatusFileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *BatchStatusFileStore) writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
