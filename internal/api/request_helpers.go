package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkessler/cardvault-api/internal/api/shared"
	"github.com/mkessler/cardvault-api/internal/domain"
)

// ErrorResponse is the standard error response body.
type ErrorResponse = shared.ErrorResponse

// DecodeJSON decodes the request body into the given struct.
// Forwards to the shared helper so handlers stay terse.
func DecodeJSON(r *http.Request, v interface{}) error {
	return shared.DecodeJSON(r, v)
}

// RespondWithJSON writes a JSON response with the given status and body.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	shared.RespondWithJSON(w, r, status, data)
}

// RespondWithError writes a JSON error response.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	shared.RespondWithError(w, r, status, message)
}

// PendingIDParam extracts and validates the {id} route parameter. IDs are
// filename stems; path separators and relative segments are rejected
// before the ID reaches any store.
func PendingIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return "", domain.ErrInvalidID
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	return id, nil
}

// CardIndexParam extracts the {index} route parameter. Range checking
// against the stored list happens in the service.
func CardIndexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrCardIndexOutOfRange, raw)
	}
	return index, nil
}
