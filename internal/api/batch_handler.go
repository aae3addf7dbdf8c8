package api

import (
	"net/http"

	"github.com/mkessler/cardvault-api/internal/api/shared"
	"github.com/mkessler/cardvault-api/internal/service/batch"
)

// BatchHandler handles the background extraction sweep.
type BatchHandler struct {
	batch *batch.Service
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(svc *batch.Service) *BatchHandler {
	return &BatchHandler{batch: svc}
}

// Start handles POST /api/batch/start.
func (h *BatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req BatchStartRequest
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &req); err != nil {
			RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}
	if req.Count < 0 {
		RespondWithError(w, r, http.StatusBadRequest, "Count must not be negative")
		return
	}

	status, err := h.batch.Start(r.Context(), req.Count)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusAccepted, status)
}

// Status handles GET /api/batch/status.
func (h *BatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.batch.Poll(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, status)
}

// Cancel handles POST /api/batch/cancel. Cancelling with no live sweep
// succeeds as a no-op.
func (h *BatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	canceled, err := h.batch.Cancel(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, CancelResponse{
		Success:  true,
		Canceled: canceled,
	})
}

func (h *BatchHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
