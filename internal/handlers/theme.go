package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eldtechnologies/hookcase/internal/metrics"
	"github.com/eldtechnologies/hookcase/internal/theme"
)

// SetThemeRequest represents the set theme request.
type SetThemeRequest struct {
	Mode string `json:"mode"`
}

// GetTheme renders the themed card for the provider in the request context.
func (h *Handler) GetTheme(w http.ResponseWriter, r *http.Request) {
	p := theme.FromContext(r.Context())
	h.JSON(w, http.StatusOK, theme.CardFor(p.Mode()))
}

// ToggleTheme flips the session's theme.
func (h *Handler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	mode := theme.FromContext(r.Context()).Toggle()
	metrics.ThemeToggles.Inc()
	h.JSON(w, http.StatusOK, theme.CardFor(mode))
}

// SetTheme sets the session's theme explicitly.
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req SetThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	mode, err := theme.ParseMode(req.Mode)
	if err != nil {
		h.fail(w, err, "failed to set theme")
		return
	}

	p := theme.FromContext(r.Context())
	p.Set(mode)
	h.JSON(w, http.StatusOK, theme.CardFor(p.Mode()))
}
