package mocks

import (
	"context"
	"sync"

	"github.com/mkessler/cardvault-api/internal/learning"
)

// MockHook records corrections reported to the learning hook.
type MockHook struct {
	mu      sync.Mutex
	Reports [][]learning.Correction
}

var _ learning.Hook = (*MockHook)(nil)

// Report implements learning.Hook.
func (m *MockHook) Report(ctx context.Context, corrections []learning.Correction) {
	if len(corrections) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reports = append(m.Reports, corrections)
}

// All returns every reported correction flattened into one slice.
func (m *MockHook) All() []learning.Correction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []learning.Correction
	for _, batch := range m.Reports {
		out = append(out, batch...)
	}
	return out
}
