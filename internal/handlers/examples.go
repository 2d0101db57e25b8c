package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/hookcase/internal/snippets"
)

// ExamplesResponse lists the examples and their snippets.
type ExamplesResponse struct {
	Examples []snippets.Example `json:"examples"`
	Snippets []string           `json:"snippets"`
}

// ListExamples returns the example registry.
func (h *Handler) ListExamples(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, ExamplesResponse{
		Examples: snippets.Examples(),
		Snippets: snippets.Names(),
	})
}

// GetSnippet serves a snippet as plain text.
func (h *Handler) GetSnippet(w http.ResponseWriter, r *http.Request) {
	text, err := snippets.Get(chi.URLParam(r, "name"))
	if errors.Is(err, snippets.ErrNotFound) {
		h.Error(w, http.StatusNotFound, "snippet not found")
		return
	}
	if err != nil {
		h.fail(w, err, "failed to read snippet")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}
