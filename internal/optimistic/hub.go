package optimistic

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/hookcase/internal/store"
)

type hubEntry struct {
	queue    *Queue
	lastUsed time.Time
}

// Hub owns one Queue per thread, creating them on first use.
type Hub struct {
	store  store.MessageStore
	sender Sender
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	queues map[string]*hubEntry
	closed bool
}

// NewHub creates a hub whose queues share s and sender.
func NewHub(s store.MessageStore, sender Sender, logger zerolog.Logger) *Hub {
	return &Hub{
		store:  s,
		sender: sender,
		logger: logger,
		now:    time.Now,
		queues: make(map[string]*hubEntry),
	}
}

// Queue returns the queue for threadID.
func (h *Hub) Queue(threadID string) (*Queue, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	e, ok := h.queues[threadID]
	if !ok {
		e = &hubEntry{queue: NewQueue(threadID, h.store, h.sender, h.logger)}
		h.queues[threadID] = e
	}
	e.lastUsed = h.now()
	return e.queue, nil
}

// Threads returns the IDs of threads with a live queue, sorted.
func (h *Hub) Threads() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, 0, len(h.queues))
	for id := range h.queues {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (h *Hub) snapshot() []*Queue {
	h.mu.Lock()
	defer h.mu.Unlock()

	queues := make([]*Queue, 0, len(h.queues))
	for _, e := range h.queues {
		queues = append(queues, e.queue)
	}
	return queues
}

// PendingCount returns the number of in-flight submissions across threads.
func (h *Hub) PendingCount() int {
	total := 0
	for _, q := range h.snapshot() {
		total += len(q.Pending())
	}
	return total
}

// Sweep closes queues unused for longer than maxIdle that have nothing in
// flight and no subscribers, and returns how many were closed. Confirmed
// messages stay in the store; a later request reopens the thread.
func (h *Hub) Sweep(maxIdle time.Duration) int {
	cutoff := h.now().Add(-maxIdle)

	h.mu.Lock()
	var evicted []*Queue
	for id, e := range h.queues {
		if e.lastUsed.Before(cutoff) && e.queue.idle() {
			evicted = append(evicted, e.queue)
			delete(h.queues, id)
		}
	}
	h.mu.Unlock()

	for _, q := range evicted {
		q.Close()
	}
	return len(evicted)
}

// Close closes every queue. In-flight sends are canceled and rolled back.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	entries := h.queues
	h.queues = make(map[string]*hubEntry)
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(q *Queue) {
			defer wg.Done()
			q.Close()
		}(e.queue)
	}
	wg.Wait()
}
