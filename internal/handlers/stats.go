package handlers

import (
	"net/http"
	"time"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalPosts      int64    `json:"total_posts"`
	TotalMessages   int64    `json:"total_messages"`
	PendingMessages int      `json:"pending_messages"`
	Threads         []string `json:"threads"`
	Sessions        int      `json:"sessions"`
	Uptime          string   `json:"uptime"`
}

// Stats returns usage counts across the examples.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalPosts, err := h.data.CountPosts(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count posts")
		return
	}

	totalMessages, err := h.messages.CountMessages(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count messages")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalPosts:      totalPosts,
		TotalMessages:   totalMessages,
		PendingMessages: h.hub.PendingCount(),
		Threads:         h.hub.Threads(),
		Sessions:        h.SessionCount(),
		Uptime:          formatUptime(time.Since(h.started)),
	})
}

// formatUptime formats a duration as a coarse human-readable string.
func formatUptime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just started"
	case d < time.Hour:
		return d.Truncate(time.Minute).String()
	default:
		return d.Truncate(time.Hour).String()
	}
}
