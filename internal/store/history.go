package store

import (
	"context"
	"time"

	"github.com/mkessler/cardvault-api/internal/domain"
)

// SessionInfo summarizes one pending image's recorded history, used to
// resume an interrupted verification session.
type SessionInfo struct {
	ID         string    `json:"id"`
	Entries    int       `json:"entries"`
	LastActive time.Time `json:"last_active"`
}

// HistoryStore defines the interface for the append-only per-image action
// log that backs single-step undo. Writes are best-effort from the caller's
// perspective: a failed append must never block the primary action.
// Version: 1.0
type HistoryStore interface {
	// Append adds an entry to the image's log, evicting the oldest entry
	// once domain.MaxHistoryEntries is reached.
	Append(ctx context.Context, id string, entry domain.HistoryEntry) error

	// Pop removes and returns the most recent entry along with the number
	// of entries remaining. Returns ErrHistoryEmpty when the log is empty
	// or absent.
	Pop(ctx context.Context, id string) (*domain.HistoryEntry, int, error)

	// Count returns the number of recorded entries for the image.
	Count(ctx context.Context, id string) (int, error)

	// Sessions enumerates IDs with non-empty history, most recently active
	// first.
	Sessions(ctx context.Context) ([]SessionInfo, error)
}
