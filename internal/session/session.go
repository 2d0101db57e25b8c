// Package session scopes per-client example state to an anonymous session ID.
package session

import (
	"context"
	"sync"
	"time"
)

type ctxKey struct{}

// WithID returns a context carrying the session ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the session ID attached to ctx, or "".
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type issuedKey struct{}

// WithIssued marks ctx as belonging to a session issued by this request.
// Such a session proves nothing about the client, which can drop its cookie
// and get a new one on every request.
func WithIssued(ctx context.Context) context.Context {
	return context.WithValue(ctx, issuedKey{}, true)
}

// Issued reports whether the session in ctx was issued by this request.
func Issued(ctx context.Context) bool {
	v, _ := ctx.Value(issuedKey{}).(bool)
	return v
}

type entry[T any] struct {
	value    T
	lastUsed time.Time
}

// Registry lazily creates one value per session and drops values that have
// been idle too long.
type Registry[T any] struct {
	newFn   func() T
	closeFn func(T)
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry[T]
}

// NewRegistry creates a registry. closeFn, if non-nil, runs on values that
// are evicted or released by Close.
func NewRegistry[T any](newFn func() T, closeFn func(T)) *Registry[T] {
	return &Registry[T]{
		newFn:   newFn,
		closeFn: closeFn,
		now:     time.Now,
		entries: make(map[string]*entry[T]),
	}
}

// Get returns the value for id, creating it on first use.
func (r *Registry[T]) Get(id string) T {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		e = &entry[T]{value: r.newFn()}
		r.entries[id] = e
	}
	e.lastUsed = r.now()
	return e.value
}

// Len returns the number of live sessions.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IDs returns the sessions holding a value, in no particular order.
func (r *Registry[T]) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	return out
}

// Sweep evicts values unused for longer than maxIdle and returns how many
// were evicted.
func (r *Registry[T]) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var evicted []T
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			evicted = append(evicted, e.value)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	if r.closeFn != nil {
		for _, v := range evicted {
			r.closeFn(v)
		}
	}
	return len(evicted)
}

// Close releases every value.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry[T])
	r.mu.Unlock()

	if r.closeFn != nil {
		for _, e := range entries {
			r.closeFn(e.value)
		}
	}
}
