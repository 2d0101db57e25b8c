package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/eldtechnologies/hookcase/internal/theme"
)

const streamPing = 15 * time.Second

// eventStream writes server-sent events.
type eventStream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func openStream(w http.ResponseWriter) *eventStream {
	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &eventStream{w: w, rc: rc}
}

func (s *eventStream) send(event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *eventStream) ping() error {
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}

// ThreadEvents streams a thread as server-sent events: a "snapshot" event
// first, then one "submitted", "confirmed" or "failed" event per transition.
func (h *Handler) ThreadEvents(w http.ResponseWriter, r *http.Request) {
	q := h.queueFor(w, r)
	if q == nil {
		return
	}

	events, stop := q.Subscribe()
	defer stop()

	snap, err := q.Snapshot(r.Context())
	if err != nil {
		h.fail(w, err, "failed to fetch messages")
		return
	}

	stream := openStream(w)
	if err := stream.send("snapshot", ThreadResponse{Thread: q.ThreadID(), Snapshot: snap}); err != nil {
		return
	}

	ticker := time.NewTicker(streamPing)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := stream.send(string(e.Kind), e); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.ping(); err != nil {
				return
			}
		}
	}
}

// ThemeEvents streams the session's themed card, once on connect and again
// after every change.
func (h *Handler) ThemeEvents(w http.ResponseWriter, r *http.Request) {
	p := theme.FromContext(r.Context())
	modes, stop := p.Subscribe()
	defer stop()

	stream := openStream(w)
	if err := stream.send("theme", theme.CardFor(p.Mode())); err != nil {
		return
	}

	ticker := time.NewTicker(streamPing)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case m, ok := <-modes:
			if !ok {
				return
			}
			if err := stream.send("theme", theme.CardFor(m)); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.ping(); err != nil {
				return
			}
		}
	}
}
