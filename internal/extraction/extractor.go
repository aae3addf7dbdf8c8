// Package extraction provides the interface to the external AI vision
// service that reads trading cards out of scanned photos. It abstracts the
// details of the vision API integration (Gemini), allowing the workflow
// engine to request and re-request card data without coupling to a specific
// external service.
package extraction

import (
	"context"

	"github.com/mkessler/cardvault-api/internal/domain"
)

// Request describes one extraction invocation over a single image.
type Request struct {
	// ImagePath is the scanned photo to extract from.
	ImagePath string

	// Positions restricts extraction to the given grid positions. Empty
	// means the extractor decides between generic multi-card mode and the
	// fixed 3x3 grid mode on its own.
	Positions []int

	// Previous carries the current card records as context when
	// re-extracting, so the model can refine rather than start cold.
	Previous []domain.CardRecord

	// GridMode forces the fixed 3x3 grid interpretation of the image.
	GridMode bool
}

// Extractor defines the interface for turning a scanned photo into ordered
// card records with per-field confidence and grid metadata.
// Version: 1.0
type Extractor interface {
	// ExtractCards runs one extraction over the request's image. The
	// returned records are ordered by grid position. Cancelling the
	// context aborts the underlying API call.
	ExtractCards(ctx context.Context, req Request) ([]domain.CardRecord, error)
}
