// Package deferred implements search filtering with a deferred term.
//
// The live term follows input immediately. The deferred term, which drives
// the expensive filter, catches up at most once per lag interval, so bursts
// of input coalesce and the deferred term lags behind. Once input stops the
// two terms are equal.
package deferred

import (
	"strings"
	"sync"
	"time"
)

// DefaultItems is the candidate list searched by the example.
var DefaultItems = []string{
	"Apple",
	"Banana",
	"Orange",
	"Grapes",
	"Pineapple",
	"Mango",
	"Blueberry",
	"Strawberry",
}

// Filter returns the items containing term, ignoring case, in list order.
// An empty term matches every item.
func Filter(items []string, term string) []string {
	needle := strings.ToLower(term)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item), needle) {
			out = append(out, item)
		}
	}
	return out
}

// Snapshot is the state of a search box at one instant.
type Snapshot struct {
	Live     string   `json:"live"`
	Deferred string   `json:"deferred"`
	Stale    bool     `json:"stale"`
	Results  []string `json:"results"`
}

// Box holds one search input.
type Box struct {
	items []string
	lag   time.Duration

	mu       sync.Mutex
	live     string
	deferred string
	timer    *time.Timer
	closed   bool
}

// NewBox creates a search box over items. A zero lag commits every update
// synchronously.
func NewBox(items []string, lag time.Duration) *Box {
	return &Box{items: items, lag: lag}
}

// Set updates the live term. The deferred term follows after the lag; calls
// made while a catch-up is already scheduled do not postpone it.
func (b *Box) Set(term string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.live = term
	if b.closed {
		return
	}
	if b.lag <= 0 {
		b.commitLocked()
		return
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.lag, b.catchUp)
	}
}

func (b *Box) catchUp() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timer = nil
	if b.closed {
		return
	}
	b.commitLocked()
}

func (b *Box) commitLocked() {
	b.deferred = b.live
}

// Flush commits the live term immediately.
func (b *Box) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.commitLocked()
}

// Snapshot returns both terms and the results for the deferred term.
func (b *Box) Snapshot() Snapshot {
	b.mu.Lock()
	live, deferred := b.live, b.deferred
	b.mu.Unlock()

	return Snapshot{
		Live:     live,
		Deferred: deferred,
		Stale:    live != deferred,
		Results:  Filter(b.items, deferred),
	}
}

// Close stops any scheduled catch-up.
func (b *Box) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
