package api

import (
	"errors"
	"net/http"

	"github.com/mkessler/cardvault-api/internal/api/shared"
	"github.com/mkessler/cardvault-api/internal/extraction"
	"github.com/mkessler/cardvault-api/internal/service/reprocess"
)

// ReprocessHandler handles re-extraction of pending images.
type ReprocessHandler struct {
	reprocess *reprocess.Service
}

// NewReprocessHandler creates a new ReprocessHandler.
func NewReprocessHandler(svc *reprocess.Service) *ReprocessHandler {
	return &ReprocessHandler{reprocess: svc}
}

// Reprocess handles POST /api/pending/{id}/reprocess. The call blocks
// until the run finishes or is canceled; a concurrent second start on the
// same image is rejected with 409.
func (h *ReprocessHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id, err := PendingIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req ReprocessRequest
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &req); err != nil {
			RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}
	mode, err := reprocess.ParseMode(req.Mode)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.reprocess.Reprocess(r.Context(), id, mode)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, result)
}

// Cancel handles POST /api/pending/{id}/reprocess/cancel. Cancelling an
// image with no live run succeeds as a no-op.
func (h *ReprocessHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := PendingIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	canceled := h.reprocess.Cancel(r.Context(), id)
	RespondWithJSON(w, r, http.StatusOK, CancelResponse{
		Success:  true,
		Canceled: canceled,
	})
}

func (h *ReprocessHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	opts := []shared.ResponseOption{}
	// Extraction diagnostics go back verbatim so the operator can see
	// what the vision service actually said.
	if errors.Is(err, extraction.ErrExtractionFailed) ||
		errors.Is(err, extraction.ErrInvalidResponse) ||
		errors.Is(err, extraction.ErrContentBlocked) ||
		errors.Is(err, extraction.ErrTransientFailure) {
		opts = append(opts, shared.WithDetails(err.Error()))
	}
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err, opts...)
}
