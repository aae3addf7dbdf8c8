package api

import (
	"net/http"

	"github.com/mkessler/cardvault-api/internal/api/shared"
	"github.com/mkessler/cardvault-api/internal/store"
)

// FieldsHandler serves the catalog's per-field value vocabularies used to
// populate correction dropdowns.
type FieldsHandler struct {
	catalog store.CatalogStore
}

// NewFieldsHandler creates a new FieldsHandler.
func NewFieldsHandler(catalog store.CatalogStore) *FieldsHandler {
	return &FieldsHandler{catalog: catalog}
}

// Get handles GET /api/fields.
func (h *FieldsHandler) Get(w http.ResponseWriter, r *http.Request) {
	fields, err := h.catalog.FieldValues(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, FieldValuesResponse{Fields: fields})
}
