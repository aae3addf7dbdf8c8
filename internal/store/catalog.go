package store

import (
	"context"
	"time"

	"github.com/mkessler/cardvault-api/internal/domain"
)

// CardCommit is the payload handed to the catalog when a verified card is
// committed. The catalog receives a copy of the record; pending state never
// references catalog rows.
type CardCommit struct {
	Card         domain.CardRecord
	SourceFile   string
	GridPosition *int
	VerifiedAt   time.Time
}

// CatalogStore defines the interface for the permanent card catalog.
// Version: 1.0
type CatalogStore interface {
	// CommitCard upserts the card by its natural key (brand, number, name,
	// year): the quantity is incremented when the key already exists,
	// otherwise a new row is inserted. One denormalized physical-copy row
	// recording source file, grid position, and verification timestamp is
	// always inserted. Both writes happen in a single transaction.
	CommitCard(ctx context.Context, commit CardCommit) error

	// FieldValues returns the distinct stored values per free-text field
	// (brand, sport, team, set, condition), used to populate correction
	// vocabularies.
	FieldValues(ctx context.Context) (map[string][]string, error)
}
