package api_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkessler/cardvault-api/internal/api"
	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/extraction"
	"github.com/mkessler/cardvault-api/internal/service/auth"
	"github.com/mkessler/cardvault-api/internal/service/batch"
	"github.com/mkessler/cardvault-api/internal/service/reprocess"
	"github.com/mkessler/cardvault-api/internal/service/verify"
	"github.com/mkessler/cardvault-api/internal/store"
	"github.com/mkessler/cardvault-api/internal/task"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"pending not found", store.ErrPendingNotFound, http.StatusNotFound},
		{"wrapped pending not found", fmt.Errorf("load: %w", store.ErrPendingNotFound), http.StatusNotFound},
		{"empty intake", batch.ErrNoIntakeImages, http.StatusNotFound},
		{"job active", task.ErrJobActive, http.StatusConflict},
		{"reprocess canceled", reprocess.ErrReprocessCanceled, http.StatusConflict},
		{"card index", domain.ErrCardIndexOutOfRange, http.StatusBadRequest},
		{"reprocess mode", domain.ErrInvalidReprocessMode, http.StatusBadRequest},
		{"empty card list", store.ErrEmptyCardList, http.StatusBadRequest},
		{"nothing to undo", store.ErrHistoryEmpty, http.StatusBadRequest},
		{"content blocked", extraction.ErrContentBlocked, http.StatusUnprocessableEntity},
		{"extraction failed", extraction.ErrExtractionFailed, http.StatusBadGateway},
		{"inconsistent state", verify.ErrInconsistentState, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, api.MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Pending image not found", api.GetSafeErrorMessage(store.ErrPendingNotFound))
	assert.Equal(t, "A job is already running", api.GetSafeErrorMessage(task.ErrJobActive))
	assert.Equal(t, "An unexpected error occurred", api.GetSafeErrorMessage(nil))

	// Inconsistent-state failures get a distinct, actionable message.
	msg := api.GetSafeErrorMessage(fmt.Errorf("%w: disk full", verify.ErrInconsistentState))
	assert.Contains(t, msg, "manual review")

	// Unknown internals never leak their error text.
	leaky := errors.New("pq: connection refused host=10.0.0.3")
	assert.Equal(t, "An unexpected error occurred", api.GetSafeErrorMessage(leaky))
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	err := errors.New(
		"Key: 'LoginRequest.Password' Error:Field validation for 'Password' failed on the 'required' tag")
	assert.Equal(t, "Invalid Password: required field", api.SanitizeValidationError(err))

	assert.Equal(t, "Validation error", api.SanitizeValidationError(errors.New("weird")))
}
