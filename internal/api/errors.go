package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/extraction"
	"github.com/mkessler/cardvault-api/internal/service/auth"
	"github.com/mkessler/cardvault-api/internal/service/batch"
	"github.com/mkessler/cardvault-api/internal/service/reprocess"
	"github.com/mkessler/cardvault-api/internal/service/verify"
	"github.com/mkessler/cardvault-api/internal/store"
	"github.com/mkessler/cardvault-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, store.ErrPendingNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, batch.ErrNoIntakeImages):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, task.ErrJobActive),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, reprocess.ErrReprocessCanceled):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrCardIndexOutOfRange),
		errors.Is(err, domain.ErrInvalidGridPosition),
		errors.Is(err, domain.ErrInvalidReprocessMode),
		errors.Is(err, domain.ErrInvalidActionKind),
		errors.Is(err, store.ErrEmptyCardList),
		errors.Is(err, store.ErrHistoryEmpty):
		return http.StatusBadRequest

	// Upstream extraction failures
	case errors.Is(err, extraction.ErrContentBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extraction.ErrExtractionFailed),
		errors.Is(err, extraction.ErrInvalidResponse),
		errors.Is(err, extraction.ErrTransientFailure):
		return http.StatusBadGateway

	// Default: internal server error. verify.ErrInconsistentState lands
	// here deliberately; its distinct message comes from
	// GetSafeErrorMessage.
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the
// error.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, store.ErrPendingNotFound):
		return "Pending image not found"

	case errors.Is(err, batch.ErrNoIntakeImages):
		return "No images waiting in intake"

	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, task.ErrJobActive):
		return "A job is already running"

	case errors.Is(err, reprocess.ErrReprocessCanceled):
		return "Reprocessing was canceled"

	case errors.Is(err, store.ErrDuplicate):
		return "Duplicate entry"

	case errors.Is(err, domain.ErrCardIndexOutOfRange):
		return "Card index out of range"

	case errors.Is(err, domain.ErrInvalidGridPosition):
		return "Invalid grid position"

	case errors.Is(err, domain.ErrInvalidReprocessMode):
		return "Invalid reprocess mode"

	case errors.Is(err, store.ErrEmptyCardList):
		return "Card list cannot be empty"

	case errors.Is(err, store.ErrHistoryEmpty):
		return "Nothing to undo"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidActionKind):
		return "Invalid request data"

	case errors.Is(err, extraction.ErrContentBlocked):
		return "Extraction was blocked by the vision service's content filters"

	case errors.Is(err, extraction.ErrExtractionFailed),
		errors.Is(err, extraction.ErrInvalidResponse),
		errors.Is(err, extraction.ErrTransientFailure):
		return "Card extraction failed"

	case errors.Is(err, verify.ErrInconsistentState):
		return "Card was committed to the catalog but the pending record could not be updated; manual review required"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError strips sensitive details from validator errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'LoginRequest.Password' Error:Field validation
		// for 'Password' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gte", "lte":
		return "out of range"
	default:
		return "validation failed"
	}
}
