// Package tabs implements a tab switcher whose tab changes are transitions:
// selecting a tab returns at once, the new tab renders in the background,
// and the previous tab stays visible until the render finishes. A newer
// selection supersedes an unfinished one.
package tabs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eldtechnologies/hookcase/internal/metrics"
	"github.com/eldtechnologies/hookcase/internal/validation"
)

// ID names a tab.
type ID string

const (
	Tab1 ID = "tab1"
	Tab2 ID = "tab2" // slow
	Tab3 ID = "tab3"
)

// SlowPostCount is the number of posts the slow tab renders.
const SlowPostCount = 500

// ParseID validates a tab name.
func ParseID(s string) (ID, error) {
	switch ID(s) {
	case Tab1, Tab2, Tab3:
		return ID(s), nil
	}
	return "", validation.New("tab", "must be tab1, tab2 or tab3")
}

// Content is a rendered tab.
type Content struct {
	Tab   ID       `json:"tab"`
	Text  string   `json:"text,omitempty"`
	Posts []string `json:"posts,omitempty"`
}

// Renderer produces a tab's content. It must return promptly once ctx is
// canceled.
type Renderer func(ctx context.Context, id ID) (Content, error)

// DefaultRenderer renders the three example tabs. Each post of the slow tab
// costs postCost.
func DefaultRenderer(postCost time.Duration) Renderer {
	return func(ctx context.Context, id ID) (Content, error) {
		switch id {
		case Tab1:
			return Content{Tab: id, Text: "This is Tab 1"}, nil
		case Tab3:
			return Content{Tab: id, Text: "This is Tab 3"}, nil
		}

		posts := make([]string, 0, SlowPostCount)
		for i := 0; i < SlowPostCount; i++ {
			if err := ctx.Err(); err != nil {
				return Content{}, err
			}
			if postCost > 0 {
				time.Sleep(postCost)
			}
			posts = append(posts, fmt.Sprintf("Post %d", i+1))
		}
		return Content{Tab: id, Posts: posts}, nil
	}
}

// Snapshot is what the switcher currently shows.
type Snapshot struct {
	Active  ID      `json:"active"`
	Pending bool    `json:"pending"`
	Target  ID      `json:"target,omitempty"`
	Content Content `json:"content"`
}

// Switcher holds one tab bar.
type Switcher struct {
	render Renderer
	wg     sync.WaitGroup

	mu        sync.Mutex
	committed Content
	target    ID
	cancel    context.CancelFunc
	gen       uint64
}

// NewSwitcher creates a switcher showing tab1.
func NewSwitcher(render Renderer) *Switcher {
	initial, err := render(context.Background(), Tab1)
	if err != nil {
		initial = Content{Tab: Tab1}
	}
	return &Switcher{render: render, committed: initial}
}

// Select starts a transition to id and returns without waiting for it.
func (s *Switcher) Select(id ID) error {
	if _, err := ParseID(string(id)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		metrics.TabTransitions.WithLabelValues("superseded").Inc()
	}
	s.gen++
	if id == s.committed.Tab {
		// Back to the visible tab: nothing to render
		s.target = ""
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.target = id
	gen := s.gen

	s.wg.Add(1)
	go s.transition(ctx, gen, id)
	return nil
}

func (s *Switcher) transition(ctx context.Context, gen uint64, id ID) {
	defer s.wg.Done()

	content, err := s.render(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || err != nil {
		return
	}
	s.committed = content
	s.target = ""
	s.cancel = nil
	metrics.TabTransitions.WithLabelValues("committed").Inc()
}

// Snapshot returns the committed tab and whether a transition is running.
func (s *Switcher) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Active:  s.committed.Tab,
		Pending: s.target != "",
		Target:  s.target,
		Content: s.committed,
	}
}

// Close cancels any running transition and waits for it.
func (s *Switcher) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.target = ""
	s.mu.Unlock()

	s.wg.Wait()
}
