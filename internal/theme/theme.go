// Package theme provides a light/dark mode shared by every consumer in a
// session. Providers are passed explicitly through context.Context rather
// than looked up globally.
package theme

import (
	"context"
	"sync"

	"github.com/eldtechnologies/hookcase/internal/validation"
)

// Mode is the active theme.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Light, Dark:
		return Mode(s), nil
	}
	return "", validation.New("mode", "must be light or dark")
}

// Provider holds exactly one active mode.
type Provider struct {
	mu   sync.RWMutex
	mode Mode
	subs []chan Mode
}

// NewProvider creates a provider in light mode.
func NewProvider() *Provider {
	return &Provider{mode: Light}
}

// Mode returns the active mode.
func (p *Provider) Mode() Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// Toggle flips between light and dark and returns the new mode.
func (p *Provider) Toggle() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode == Light {
		p.mode = Dark
	} else {
		p.mode = Light
	}
	p.notifyLocked()
	return p.mode
}

// Set makes m the active mode.
func (p *Provider) Set(m Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode == m {
		return
	}
	p.mode = m
	p.notifyLocked()
}

// Subscribe returns a channel that receives the mode after every change,
// and a function that ends the subscription and closes the channel. Only the
// latest undelivered mode is kept.
func (p *Provider) Subscribe() (<-chan Mode, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Mode, 1)
	p.subs = append(p.subs, ch)
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, c := range p.subs {
			if c == ch {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

func (p *Provider) notifyLocked() {
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- p.mode
	}
}

type ctxKey struct{}

// WithProvider returns a context carrying p.
func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// WithSource returns a context whose provider is looked up by get on first
// use. Requests that never read the theme never create one.
func WithSource(ctx context.Context, get func() *Provider) context.Context {
	return context.WithValue(ctx, ctxKey{}, sync.OnceValue(get))
}

// FromContext returns the provider attached to ctx. Without one it returns a
// fresh light-mode provider, mirroring a context's default value.
func FromContext(ctx context.Context) *Provider {
	switch v := ctx.Value(ctxKey{}).(type) {
	case *Provider:
		if v != nil {
			return v
		}
	case func() *Provider:
		if p := v(); p != nil {
			return p
		}
	}
	return NewProvider()
}

// Card is the themed card rendered by the example.
type Card struct {
	Mode        Mode   `json:"mode"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	ButtonLabel string `json:"button_label"`
}

const cardBody = "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed non neque " +
	"libero. Nullam mattis metus a sapien tempor, sit amet mollis est facilisis."

// CardFor builds the card as it looks in mode m.
func CardFor(m Mode) Card {
	label := "Switch to Dark Mode"
	if m == Dark {
		label = "Switch to Light Mode"
	}
	return Card{
		Mode:        m,
		Title:       "Themed Card",
		Body:        cardBody,
		ButtonLabel: label,
	}
}
