package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/hookcase/internal/models"
	"github.com/eldtechnologies/hookcase/internal/optimistic"
	"github.com/eldtechnologies/hookcase/internal/validation"
)

// SubmitMessageRequest represents the submit message request.
type SubmitMessageRequest struct {
	Text string `json:"text"`
}

// SubmitMessageResponse is returned as soon as a message is pending.
type SubmitMessageResponse struct {
	Pending models.Pending `json:"pending"`
	View    []models.Entry `json:"view"`
}

// ThreadResponse represents a thread's confirmed, pending and derived state.
type ThreadResponse struct {
	Thread string `json:"thread"`
	optimistic.Snapshot
}

// queueFor resolves the thread in the URL, writing an error if it is invalid.
func (h *Handler) queueFor(w http.ResponseWriter, r *http.Request) *optimistic.Queue {
	threadID := chi.URLParam(r, "id")
	if !threadIDRegex.MatchString(threadID) {
		h.Error(w, http.StatusBadRequest, "thread id must be 1-50 characters, alphanumeric with hyphens and underscores only")
		return nil
	}

	q, err := h.hub.Queue(threadID)
	if err != nil {
		h.fail(w, err, "failed to open thread")
		return nil
	}
	return q
}

// GetThreadMessages returns the thread snapshot: confirmed messages, pending
// submissions, the derived view and recent failures.
func (h *Handler) GetThreadMessages(w http.ResponseWriter, r *http.Request) {
	q := h.queueFor(w, r)
	if q == nil {
		return
	}

	snap, err := q.Snapshot(r.Context())
	if err != nil {
		h.fail(w, err, "failed to fetch messages")
		return
	}

	h.JSON(w, http.StatusOK, ThreadResponse{Thread: q.ThreadID(), Snapshot: snap})
}

// SubmitMessage adds a message optimistically. It responds before the send
// completes; the message shows in the view flagged as sending.
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	q := h.queueFor(w, r)
	if q == nil {
		return
	}

	var req SubmitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Text) > maxTextLength {
		h.fail(w, validation.New("text", fmt.Sprintf("must be at most %d bytes", maxTextLength)), "failed to submit message")
		return
	}

	pending, err := q.Submit(r.Context(), req.Text)
	if err != nil {
		h.fail(w, err, "failed to submit message")
		return
	}

	view, err := q.View(r.Context())
	if err != nil {
		h.fail(w, err, "failed to fetch messages")
		return
	}

	h.JSON(w, http.StatusAccepted, SubmitMessageResponse{Pending: pending, View: view})
}

// CancelPending aborts an in-flight send. The submission is rolled back and
// recorded as a failure.
func (h *Handler) CancelPending(w http.ResponseWriter, r *http.Request) {
	q := h.queueFor(w, r)
	if q == nil {
		return
	}

	if err := q.Cancel(chi.URLParam(r, "pid")); err != nil {
		h.fail(w, err, "failed to cancel message")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
