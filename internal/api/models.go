package api

import (
	"github.com/mkessler/cardvault-api/internal/domain"
)

// Common request/response structures

// LoginRequest is the payload of the operator login endpoint.
type LoginRequest struct {
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse is the successful response of the login endpoint.
type AuthResponse struct {
	// Token is the JWT used for API authorization.
	Token string `json:"token"`

	// ExpiresAt is the ISO 8601 timestamp when the token expires.
	ExpiresAt string `json:"expires_at,omitempty"`
}

// PendingListResponse is the body of the pending-image listing.
type PendingListResponse struct {
	Images []PendingSummary `json:"images"`
	Count  int              `json:"count"`
}

// PendingSummary is one row of the pending-image listing.
type PendingSummary struct {
	ID          string `json:"id"`
	SourceImage string `json:"source_image"`
	CardCount   int    `json:"card_count"`
}

// SaveProgressRequest is the payload of the save-progress endpoint.
type SaveProgressRequest struct {
	Cards     []domain.CardRecord `json:"cards"      validate:"required,min=1"`
	CardIndex *int                `json:"card_index,omitempty"`
}

// SaveProgressResponse returns the merged card list after a save.
type SaveProgressResponse struct {
	Success bool                `json:"success"`
	Cards   []domain.CardRecord `json:"cards"`
}

// PassCardRequest optionally carries the operator's edited record for the
// card being passed. A nil Card passes the stored record unchanged.
type PassCardRequest struct {
	Card *domain.CardRecord `json:"card,omitempty"`
}

// PassAllRequest optionally carries the operator's edited card list.
type PassAllRequest struct {
	Cards []domain.CardRecord `json:"cards,omitempty"`
}

// ActionResponse is the generic success body of a verification action.
type ActionResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	RemainingCards int    `json:"remaining_cards"`
}

// ReprocessRequest is the payload of the reprocess endpoint.
type ReprocessRequest struct {
	Mode string `json:"mode,omitempty" validate:"omitempty,oneof=remaining all"`
}

// CancelResponse reports whether a cancel request found a live job.
type CancelResponse struct {
	Success  bool `json:"success"`
	Canceled bool `json:"canceled"`
}

// BatchStartRequest is the payload of the batch start endpoint.
type BatchStartRequest struct {
	Count int `json:"count,omitempty" validate:"gte=0"`
}

// FieldValuesResponse maps field names to their known catalog
// vocabularies.
type FieldValuesResponse struct {
	Fields map[string][]string `json:"fields"`
}
