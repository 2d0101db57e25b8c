package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eldtechnologies/hookcase/internal/metrics"
)

// SearchRequest represents the search input update.
type SearchRequest struct {
	Term string `json:"term"`
}

// GetSearch returns the live and deferred terms with the deferred results.
// With flush=true the deferred term catches up first.
func (h *Handler) GetSearch(w http.ResponseWriter, r *http.Request) {
	box := h.searches.Get(sessionID(r))
	if r.URL.Query().Get("flush") == "true" {
		box.Flush()
	}
	h.JSON(w, http.StatusOK, box.Snapshot())
}

// SetSearch updates the live term. The deferred term and its results follow
// after the lag, so the response usually still shows the previous results.
func (h *Handler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Term) > 100 {
		h.Error(w, http.StatusBadRequest, "term too long (max 100 chars)")
		return
	}

	box := h.searches.Get(sessionID(r))
	box.Set(req.Term)
	metrics.SearchQueries.Inc()

	h.JSON(w, http.StatusOK, box.Snapshot())
}
