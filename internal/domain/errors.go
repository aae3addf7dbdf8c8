package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when a pending image ID is empty or malformed.
	ErrInvalidID = errors.New("invalid pending image ID")

	// ErrCardIndexOutOfRange is returned when a card index does not address
	// an element of a pending image's card list.
	ErrCardIndexOutOfRange = errors.New("card index out of range")

	// ErrInvalidGridPosition is returned when a grid position is outside
	// the 3x3 layout (0-8).
	ErrInvalidGridPosition = errors.New("grid position must be between 0 and 8")

	// ErrInvalidReprocessMode is returned when a reprocess mode is neither
	// "remaining" nor "all".
	ErrInvalidReprocessMode = errors.New("invalid reprocess mode")

	// ErrInvalidActionKind is returned when a history action kind is not
	// one of the recorded verification actions.
	ErrInvalidActionKind = errors.New("invalid history action kind")
)
