package fsstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/store"
)

// HistoryFileStore implements store.HistoryStore with one JSON log file
// per pending image ID under the history directory. Each file holds the
// most recent domain.MaxHistoryEntries entries, oldest first.
type HistoryFileStore struct {
	dir    string
	logger *slog.Logger

	// mu serializes read-modify-write cycles on the log files. History
	// traffic is light; one lock for the whole directory is enough.
	mu sync.Mutex
}

var _ store.HistoryStore = (*HistoryFileStore)(nil)

// NewHistoryFileStore creates the store, creating the history directory if
// needed. If logger is nil, a default logger is used.
func NewHistoryFileStore(dir string, log *slog.Logger) (*HistoryFileStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, store.NewStoreError("history", "init", "failed to create history directory", err)
	}
	return &HistoryFileStore{
		dir:    dir,
		logger: log.With(slog.String("component", "history_store")),
	}, nil
}

// Append implements store.HistoryStore.Append.
func (s *HistoryFileStore) Append(ctx context.Context, id string, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(id)
	if err != nil {
		return err
	}

	entries = append(entries, entry)
	if len(entries) > domain.MaxHistoryEntries {
		entries = entries[len(entries)-domain.MaxHistoryEntries:]
	}
	return s.write(id, entries)
}

// Pop implements store.HistoryStore.Pop.
func (s *HistoryFileStore) Pop(ctx context.Context, id string) (*domain.HistoryEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(id)
	if err != nil {
		return nil, 0, err
	}
	if len(entries) == 0 {
		return nil, 0, store.ErrHistoryEmpty
	}

	last := entries[len(entries)-1]
	entries = entries[:len(entries)-1]

	if len(entries) == 0 {
		if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
			return nil, 0, store.NewStoreError("history", "pop", "failed to remove empty log", err)
		}
	} else if err := s.write(id, entries); err != nil {
		return nil, 0, err
	}
	return &last, len(entries), nil
}

// Count implements store.HistoryStore.Count.
func (s *HistoryFileStore) Count(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(id)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Sessions implements store.HistoryStore.Sessions.
func (s *HistoryFileStore) Sessions(ctx context.Context) ([]store.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, store.NewStoreError("history", "sessions", "failed to list history directory", err)
	}

	sessions := make([]store.SessionInfo, 0, len(files))
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(f.Name(), ".json")
		entries, err := s.read(id)
		if err != nil {
			s.logger.Warn("skipping unreadable history log",
				slog.String("id", id),
				slog.String("error", err.Error()))
			continue
		}
		if len(entries) == 0 {
			continue
		}
		sessions = append(sessions, store.SessionInfo{
			ID:         id,
			Entries:    len(entries),
			LastActive: entries[len(entries)-1].Timestamp,
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActive.After(sessions[j].LastActive)
	})
	return sessions, nil
}

func (s *HistoryFileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *HistoryFileStore) read(id string) ([]domain.HistoryEntry, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, store.NewStoreError("history", "read", "failed to read log", err)
	}

	var entries []domain.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, store.NewStoreError("history", "read", "failed to parse log", err)
	}
	return entries, nil
}

func (s *HistoryFileStore) write(id string, entries []domain.HistoryEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return store.NewStoreError("history", "write", "failed to encode log", err)
	}

	path := s.path(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return store.NewStoreError("history", "write", "failed to write log", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return store.NewStoreError("history", "write", "failed to replace log", err)
	}
	return nil
}
