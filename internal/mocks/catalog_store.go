package mocks

import (
	"context"
	"sync"

	"github.com/mkessler/cardvault-api/internal/store"
)

// MockCatalogStore is a configurable mock of store.CatalogStore.
type MockCatalogStore struct {
	mu sync.Mutex

	// CommitCardFn overrides CommitCard behavior when set.
	CommitCardFn func(ctx context.Context, commit store.CardCommit) error

	// FieldValuesFn overrides FieldValues behavior when set.
	FieldValuesFn func(ctx context.Context) (map[string][]string, error)

	// Commits records every commit received, in order.
	Commits []store.CardCommit
}

var _ store.CatalogStore = (*MockCatalogStore)(nil)

// CommitCard implements store.CatalogStore.
func (m *MockCatalogStore) CommitCard(ctx context.Context, commit store.CardCommit) error {
	m.mu.Lock()
	m.Commits = append(m.Commits, commit)
	m.mu.Unlock()

	if m.CommitCardFn != nil {
		return m.CommitCardFn(ctx, commit)
	}
	return nil
}

// FieldValues implements store.CatalogStore.
func (m *MockCatalogStore) FieldValues(ctx context.Context) (map[string][]string, error) {
	if m.FieldValuesFn != nil {
		return m.FieldValuesFn(ctx)
	}
	return map[string][]string{}, nil
}

// CommitCount returns how many commits were received.
func (m *MockCatalogStore) CommitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Commits)
}
