package api

import (
	"errors"
	"net/http"

	"github.com/mkessler/cardvault-api/internal/api/shared"
	"github.com/mkessler/cardvault-api/internal/service/verify"
	"github.com/mkessler/cardvault-api/internal/store"
)

// PendingHandler handles the pending-image queue and its verification
// actions.
type PendingHandler struct {
	pending store.PendingStore
	verify  *verify.Service
}

// NewPendingHandler creates a new PendingHandler.
func NewPendingHandler(pending store.PendingStore, verifySvc *verify.Service) *PendingHandler {
	return &PendingHandler{
		pending: pending,
		verify:  verifySvc,
	}
}

// List handles GET /api/pending.
func (h *PendingHandler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.pending.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	summaries := make([]PendingSummary, 0, len(images))
	for i := range images {
		summaries = append(summaries, PendingSummary{
			ID:          images[i].ID,
			SourceImage: images[i].SourceImage,
			CardCount:   len(images[i].Cards),
		})
	}
	RespondWithJSON(w, r, http.StatusOK, PendingListResponse{
		Images: summaries,
		Count:  len(summaries),
	})
}

// Get handles GET /api/pending/{id}.
func (h *PendingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := PendingIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	img, err := h.pending.Load(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, img)
}

// SaveProgress handles POST /api/pending/{id}/save.
func (h *PendingHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	id, err := PendingIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req SaveProgressRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if len(req.Cards) == 0 {
		RespondWithError(w, r, http.StatusBadRequest, "Card list cannot be empty")
		return
	}

	merged, err := h.verify.SaveProgress(r.Context(), id, req.Cards, req.CardIndex)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, SaveProgressResponse{
		Success: true,
		Cards:   merged,
	})
}

// PassCard handles POST /api/pending/{id}/cards/{index}/pass.
func (h *PendingHandler) PassCard(w http.ResponseWriter, r *http.Request) {
	id, err := PendingIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	index, err := CardIndexParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req PassCardRequest
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &req); err != nil {
			RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	if err := h.verify.PassCard(r.Context(), id, index, req.Card); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondAction(w, r, id, "card committed to catalog")
}

// FailCard handles POST /api/pending/{id}/cards/{index}/fail.
func (h *PendingHandler) FailCard(w http.ResponseWriter, r *http.Request) {
	id, err := PendingIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	index, err := CardIndexParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.verify.FailCard(r.Context(), id, index); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondAction(w, r, id, "card discarded")
}

// PassAll handles POST /api/pending/{id}/pass-all.
func (h *PendingHandler) PassAll(w http.ResponseWriter, r *http.Request) {
	id, err := PendingIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req PassAllRequest
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &req); err != nil {
			RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	if err := h.verify.PassAll(r.Context(), id, req.Cards); err != nil {
		h.respondError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, ActionResponse{
		Success: true,
		Message: "all cards committed, image archived",
	})
}

// FailAll handles POST /api/pending/{id}/fail-all.
func (h *PendingHandler) FailAll(w http.ResponseWriter, r *http.Request) {
	id, err := PendingIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.verify.FailAll(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, ActionResponse{
		Success: true,
		Message: "image rejected and returned to intake",
	})
}

// Undo handles POST /api/pending/{id}/undo.
func (h *PendingHandler) Undo(w http.ResponseWriter, r *http.Request) {
	id, err := PendingIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.verify.Undo(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, result)
}

// Sessions handles GET /api/sessions.
func (h *PendingHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.verify.Sessions(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// respondAction writes the generic per-card action success body with the
// image's remaining card count. A fully-drained image reports zero.
func (h *PendingHandler) respondAction(w http.ResponseWriter, r *http.Request, id, message string) {
	remaining := 0
	if img, err := h.pending.Load(r.Context(), id); err == nil {
		remaining = len(img.Cards)
	}
	RespondWithJSON(w, r, http.StatusOK, ActionResponse{
		Success:        true,
		Message:        message,
		RemainingCards: remaining,
	})
}

func (h *PendingHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	opts := []shared.ResponseOption{}
	if errors.Is(err, verify.ErrInconsistentState) {
		opts = append(opts, shared.WithDetails(err.Error()))
	}
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err, opts...)
}
