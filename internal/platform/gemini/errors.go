package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyImagePath is returned when an extraction request names no image.
	ErrEmptyImagePath = errors.New("image path cannot be empty")
)
