package mocks

import (
	"context"
	"sync"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/extraction"
)

// MockExtractor is a configurable mock of extraction.Extractor.
type MockExtractor struct {
	mu sync.Mutex

	// ExtractCardsFn overrides ExtractCards behavior when set.
	ExtractCardsFn func(ctx context.Context, req extraction.Request) ([]domain.CardRecord, error)

	// Requests records every request received, in order.
	Requests []extraction.Request
}

var _ extraction.Extractor = (*MockExtractor)(nil)

// ExtractCards implements extraction.Extractor.
func (m *MockExtractor) ExtractCards(ctx context.Context, req extraction.Request) ([]domain.CardRecord, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.ExtractCardsFn != nil {
		return m.ExtractCardsFn(ctx, req)
	}
	return nil, nil
}

// CallCount returns how many extractions were requested.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
