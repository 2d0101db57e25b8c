package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/hookcase/internal/tabs"
)

// GetTabs returns the visible tab and whether a switch is in progress.
func (h *Handler) GetTabs(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, h.tabs.Get(sessionID(r)).Snapshot())
}

// SelectTab starts switching to a tab and returns without waiting for it to
// render.
func (h *Handler) SelectTab(w http.ResponseWriter, r *http.Request) {
	id, err := tabs.ParseID(chi.URLParam(r, "tab"))
	if err != nil {
		h.fail(w, err, "failed to select tab")
		return
	}

	s := h.tabs.Get(sessionID(r))
	if err := s.Select(id); err != nil {
		h.fail(w, err, "failed to select tab")
		return
	}

	h.JSON(w, http.StatusAccepted, s.Snapshot())
}
