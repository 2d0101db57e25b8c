package handlers

import (
	"net/http"
	"strconv"

	"github.com/eldtechnologies/hookcase/internal/models"
)

// PostsResponse represents the list posts response.
type PostsResponse struct {
	Posts []models.Post `json:"posts"`
}

// ListPosts returns stored posts, oldest first.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	posts, err := h.posts.List(r.Context(), limit)
	if err != nil {
		h.fail(w, err, "failed to list posts")
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	h.JSON(w, http.StatusOK, PostsResponse{Posts: posts})
}

// CreatePost handles the post form. Title and body are both required.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(r)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid form body")
		return
	}

	post, err := h.posts.Submit(r.Context(), values)
	if err != nil {
		h.fail(w, err, "failed to create post")
		return
	}

	h.JSON(w, http.StatusCreated, post)
}

// CreateSlowPost handles the slow post form. The request blocks for the form
// delay; a second submission from the same session meanwhile gets 409.
func (h *Handler) CreateSlowPost(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(r)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid form body")
		return
	}

	status := h.formStatus.Get(sessionID(r))
	post, err := h.slowPosts.Submit(r.Context(), status, values)
	if err != nil {
		h.fail(w, err, "failed to create post")
		return
	}

	h.JSON(w, http.StatusCreated, post)
}

// PostStatus reports whether the session's slow post form is submitting.
func (h *Handler) PostStatus(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, h.formStatus.Get(sessionID(r)).Snapshot())
}
