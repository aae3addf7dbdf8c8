package extraction

import "errors"

// Common errors returned by the extraction package
var (
	// ErrExtractionFailed is returned when extraction fails for any general
	// reason. The wrapped error carries the external task's diagnostic
	// text verbatim.
	ErrExtractionFailed = errors.New("failed to extract cards from image")

	// ErrInvalidResponse is returned when the vision model response cannot
	// be parsed or is malformed.
	ErrInvalidResponse = errors.New("invalid response from vision model")

	// ErrContentBlocked is returned when the model blocks the content due
	// to safety filters.
	ErrContentBlocked = errors.New("content blocked by vision model safety filters")

	// ErrTransientFailure is returned for temporary errors that might
	// resolve on retry.
	ErrTransientFailure = errors.New("transient error during card extraction")

	// ErrInvalidConfig is returned when the extractor configuration is
	// invalid.
	ErrInvalidConfig = errors.New("invalid extractor configuration")
)
