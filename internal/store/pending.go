package store

import (
	"context"

	"github.com/mkessler/cardvault-api/internal/domain"
)

// PendingStore defines the interface for the durable table of in-progress
// verification units. One entry exists per scanned photo until every card
// on it has been passed or failed.
// Version: 1.0
type PendingStore interface {
	// List returns every pending image, ordered by ID.
	List(ctx context.Context) ([]domain.PendingImage, error)

	// Load retrieves one pending image by ID.
	// Returns ErrPendingNotFound if no sidecar exists for the ID.
	Load(ctx context.Context, id string) (*domain.PendingImage, error)

	// Replace overwrites the stored card list. The cards must already be
	// merged and normalized; Replace performs a plain durable write.
	// Returns ErrEmptyCardList if cards is empty - an empty list means the
	// image must be archived or recycled instead.
	Replace(ctx context.Context, id string, cards []domain.CardRecord) error

	// RemoveCard splices one card out of the stored list and persists the
	// shortened list. Returns ErrEmptyCardList if the removal would empty
	// the list; callers handle that terminal transition explicitly.
	RemoveCard(ctx context.Context, id string, index int) error

	// Delete removes the sidecar and drops the ID from the index. The
	// source image is not touched; callers archive or recycle it first.
	Delete(ctx context.Context, id string) error

	// Restore recreates a sidecar with the given cards, re-registering the
	// ID in the index. Used by undo after an action archived or deleted
	// the sidecar. If the source image is no longer in the pending
	// directory it is moved back from archival storage or intake when
	// found there.
	Restore(ctx context.Context, id string, cards []domain.CardRecord) error
}

// ImageLocator resolves a pending image ID to the source photo's path on
// disk, for handing to the extractor.
// Version: 1.0
type ImageLocator interface {
	// ImagePath returns the absolute path of the image's source photo.
	// Returns ErrPendingNotFound when the ID is unknown or the photo is
	// missing.
	ImagePath(ctx context.Context, id string) (string, error)
}

// Archiver moves a pending image's filesystem assets through the terminal
// transitions of the verification workflow.
// Version: 1.0
type Archiver interface {
	// ArchiveImage moves the source image into archival storage under its
	// verified name (intake timestamp stripped, verified prefix added).
	// Returns the archived filename.
	ArchiveImage(ctx context.Context, id string) (string, error)

	// RecycleImage moves the source image back into the intake directory
	// so it re-enters the batch extraction queue.
	RecycleImage(ctx context.Context, id string) error

	// ArchiveBack moves the per-card cropped-back image for the given grid
	// position into archival storage. Missing assets are not an error.
	ArchiveBack(ctx context.Context, id string, position int) error

	// DeleteBack removes the per-card cropped-back image for the given
	// grid position. Missing assets are not an error.
	DeleteBack(ctx context.Context, id string, position int) error
}
