package handlers

import (
	"net/http"

	"github.com/eldtechnologies/hookcase/internal/resource"
)

const (
	jokeKey  = "joke"
	postsKey = "posts"
)

// MessageResponse represents the download message example.
type MessageResponse struct {
	resource.Entry[string]
	Display string `json:"display"`
}

// GetJoke returns a joke, fetched once and then served from cache.
func (h *Handler) GetJoke(w http.ResponseWriter, r *http.Request) {
	joke, err := h.jokes.Load(r.Context(), jokeKey, h.fetchJoke)
	if err != nil {
		h.logger.Warn().Err(err).Msg("joke fetch failed")
		h.Error(w, http.StatusBadGateway, "failed to fetch joke")
		return
	}
	h.JSON(w, http.StatusOK, joke)
}

// GetRemotePosts returns the remote post list, fetched once and cached.
func (h *Handler) GetRemotePosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.remotePosts.Load(r.Context(), postsKey, h.fetchPosts)
	if err != nil {
		h.logger.Warn().Err(err).Msg("posts fetch failed")
		h.Error(w, http.StatusBadGateway, "failed to fetch posts")
		return
	}
	h.JSON(w, http.StatusOK, posts)
}

// StartMessage starts a fresh message download for the session and returns
// at once with the loading state.
func (h *Handler) StartMessage(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	h.downloads.Restart(id, h.fetchMessage)
	h.JSON(w, http.StatusAccepted, messageResponse(h.downloads.Peek(id)))
}

// GetMessage reports the session's download without waiting for it.
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, messageResponse(h.downloads.Peek(sessionID(r))))
}

func messageResponse(e resource.Entry[string]) MessageResponse {
	resp := MessageResponse{Entry: e}
	switch e.State {
	case resource.StateIdle:
		resp.Display = "Download message"
	case resource.StateLoading:
		resp.Display = "⌛ Downloading message..."
	case resource.StateReady:
		resp.Display = "Here is the message: " + e.Value
	case resource.StateFailed:
		resp.Display = "Download failed"
	}
	return resp
}
