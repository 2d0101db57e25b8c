// Package resource loads remote or slow values once and shares the result
// between every caller waiting on it.
package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eldtechnologies/hookcase/internal/metrics"
)

// State is the lifecycle of a cached value.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

const defaultLoadTimeout = 10 * time.Second

// Fetcher produces a value.
type Fetcher[V any] func(ctx context.Context) (V, error)

// Entry is a non-blocking view of a key.
type Entry[V any] struct {
	State State  `json:"state"`
	Value V      `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

type entry[V any] struct {
	state State
	value V
	err   error
	gen   uint64
	used  time.Time
}

// Cache holds loaded values by key. Successful loads are kept until Reset;
// failed loads are not cached and the next Load retries.
type Cache[V any] struct {
	group   singleflight.Group
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry[V]
}

// NewCache creates a cache whose loads are bounded by timeout. A zero
// timeout uses a default.
func NewCache[V any](timeout time.Duration) *Cache[V] {
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	return &Cache[V]{timeout: timeout, now: time.Now, entries: make(map[string]*entry[V])}
}

func (c *Cache[V]) entryLocked(key string) *entry[V] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{state: StateIdle}
		c.entries[key] = e
	}
	e.used = c.now()
	return e
}

// Load returns the cached value for key, joins a load already in flight, or
// starts one with fetch. The fetch outlives a canceled caller so other
// waiters still get the result.
func (c *Cache[V]) Load(ctx context.Context, key string, fetch Fetcher[V]) (V, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	if e.state == StateReady {
		v := e.value
		c.mu.Unlock()
		metrics.ResourceLoads.WithLabelValues("hit").Inc()
		return v, nil
	}
	e.state = StateLoading
	e.err = nil
	gen := e.gen
	c.mu.Unlock()

	ch := c.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		v, err := fetch(fetchCtx)
		c.settle(key, gen, v, err)
		return v, err
	})

	var zero V
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Cache[V]) settle(key string, gen uint64, v V, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	if e.gen != gen {
		// Reset while loading
		return
	}
	if err != nil {
		e.state = StateFailed
		e.err = err
		metrics.ResourceLoads.WithLabelValues("failed").Inc()
		return
	}
	e.state = StateReady
	e.value = v
	metrics.ResourceLoads.WithLabelValues("fetched").Inc()
}

// Start begins loading key in the background and returns immediately.
func (c *Cache[V]) Start(key string, fetch Fetcher[V]) {
	c.mu.Lock()
	e := c.entryLocked(key)
	if e.state != StateReady {
		e.state = StateLoading
	}
	c.mu.Unlock()

	go func() {
		_, _ = c.Load(context.Background(), key, fetch)
	}()
}

// Restart discards any value or load for key and starts a fresh one.
func (c *Cache[V]) Restart(key string, fetch Fetcher[V]) {
	c.Reset(key)
	c.Start(key, fetch)
}

// Reset discards key. A load still in flight for it is ignored when it
// completes.
func (c *Cache[V]) Reset(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	var zero V
	e.gen++
	e.state = StateIdle
	e.value = zero
	e.err = nil
}

// Peek returns the state of key without blocking.
func (c *Cache[V]) Peek(key string) Entry[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry[V]{State: StateIdle}
	}
	e.used = c.now()
	out := Entry[V]{State: e.state, Value: e.value}
	if e.err != nil {
		out.Error = e.err.Error()
	}
	return out
}

// Sweep drops keys not read or loaded for longer than maxIdle and returns
// how many were dropped. Keys still loading are kept.
func (c *Cache[V]) Sweep(maxIdle time.Duration) int {
	cutoff := c.now().Add(-maxIdle)

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if e.state != StateLoading && e.used.Before(cutoff) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}
