package store

import (
	"context"

	"github.com/mkessler/cardvault-api/internal/domain"
)

// IntakeStore exposes the intake directory the scanning pipeline drops
// fresh photos into. The batch sweep drains it oldest-first.
// Version: 1.0
type IntakeStore interface {
	// ListIntake returns the intake image filenames in natural
	// numeric-aware order, oldest scan first.
	ListIntake(ctx context.Context) ([]string, error)

	// IntakePath resolves an intake filename to its path on disk.
	IntakePath(name string) string

	// Admit moves an intake image into the pending directory with the
	// given extracted cards as its sidecar and registers its ID. Returns
	// the new pending ID.
	Admit(ctx context.Context, name string, cards []domain.CardRecord) (string, error)
}

// BatchStatusStore persists the single system-wide batch job's durable
// status record and the live fine-grained progress record written during a
// run.
// Version: 1.0
type BatchStatusStore interface {
	// LoadStatus reads the status record. A missing record yields a zero
	// (inactive) status, not an error.
	LoadStatus(ctx context.Context) (*domain.BatchStatus, error)

	// SaveStatus durably rewrites the status record.
	SaveStatus(ctx context.Context, status *domain.BatchStatus) error

	// LoadProgress reads the live progress record. Returns ErrNotFound
	// when no run has written one.
	LoadProgress(ctx context.Context) (*domain.BatchProgress, error)

	// SaveProgress rewrites the live progress record.
	SaveProgress(ctx context.Context, progress *domain.BatchProgress) error

	// ClearProgress removes the progress record at the end of a run.
	ClearProgress(ctx context.Context) error
}
