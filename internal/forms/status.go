package forms

import (
	"sync"
	"time"
)

// Status tracks whether a form has a submission in flight.
type Status struct {
	mu      sync.Mutex
	pending bool
	since   time.Time
}

// StatusSnapshot is the client-facing form status.
type StatusSnapshot struct {
	Pending     bool      `json:"pending"`
	Since       time.Time `json:"since,omitempty"`
	ButtonLabel string    `json:"button_label"`
	Disabled    bool      `json:"disabled"`
}

// Begin marks the form pending. The returned function clears it. Begin fails
// with ErrBusy while another submission is pending.
func (s *Status) Begin() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending {
		return nil, ErrBusy
	}
	s.pending = true
	s.since = time.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.pending = false
			s.since = time.Time{}
			s.mu.Unlock()
		})
	}, nil
}

// Pending reports whether a submission is in flight.
func (s *Status) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Snapshot returns the status along with the submit button state.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatusSnapshot{Pending: s.pending, Since: s.since, ButtonLabel: "Submit"}
	if s.pending {
		snap.ButtonLabel = "Submitting..."
		snap.Disabled = true
	}
	return snap
}
