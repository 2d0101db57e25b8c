// Package optimistic implements a message queue with optimistic updates.
//
// A submitted message shows up in the thread's view immediately, flagged as
// sending, while the real send runs in the background. When the send
// completes the message moves to the confirmed store; when it fails or is
// canceled it is rolled back and recorded as a failure. The view is never
// cached: it is derived from the confirmed store and the pending set each
// time it is read.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/hookcase/internal/ids"
	"github.com/eldtechnologies/hookcase/internal/metrics"
	"github.com/eldtechnologies/hookcase/internal/models"
	"github.com/eldtechnologies/hookcase/internal/store"
	"github.com/eldtechnologies/hookcase/internal/validation"
)

var (
	// ErrSendFailed wraps any delivery failure that rolled a message back.
	ErrSendFailed = errors.New("send failed")
	// ErrCanceled is recorded for sends canceled before they completed.
	ErrCanceled = errors.New("send canceled")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("queue closed")
	// ErrNotPending is returned by Cancel for unknown or settled submissions.
	ErrNotPending = errors.New("no pending message with that id")
)

const (
	maxFailures  = 50
	storeTimeout = 5 * time.Second
	eventBuffer  = 32
)

// EventKind identifies a queue transition.
type EventKind string

const (
	EventSubmitted EventKind = "submitted"
	EventConfirmed EventKind = "confirmed"
	EventFailed    EventKind = "failed"
)

// Event is published on every transition of a submission.
type Event struct {
	Kind     EventKind `json:"kind"`
	ThreadID string    `json:"thread"`
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Error    string    `json:"error,omitempty"`
}

type inflight struct {
	models.Pending
	cancel  context.CancelFunc
	started time.Time

	// committing is set once the send has succeeded and the message is
	// being appended; it can no longer be canceled.
	committing bool
}

// Queue holds one thread's confirmed messages and in-flight submissions.
type Queue struct {
	threadID string
	store    store.MessageStore
	sender   Sender
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// appendMu orders appends to the store. It is never held with mu.
	appendMu sync.Mutex

	mu       sync.Mutex
	pending  []*inflight // submission order
	failures []models.Failure
	subs     map[int]chan Event
	nextSub  int
	closed   bool
}

// NewQueue creates a queue for threadID backed by s.
func NewQueue(threadID string, s store.MessageStore, sender Sender, logger zerolog.Logger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		threadID: threadID,
		store:    s,
		sender:   sender,
		logger:   logger.With().Str("thread", threadID).Logger(),
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[int]chan Event),
	}
}

// ThreadID returns the thread this queue serves.
func (q *Queue) ThreadID() string {
	return q.threadID
}

// Submit adds text to the pending set and starts sending it. It never waits
// for the send. Empty or whitespace-only text is rejected without touching
// any state.
func (q *Queue) Submit(ctx context.Context, text string) (models.Pending, error) {
	if strings.TrimSpace(text) == "" {
		q.logger.Warn().Msg("dropped empty message submission")
		return models.Pending{}, validation.New("text", "is required")
	}
	if err := ctx.Err(); err != nil {
		return models.Pending{}, err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return models.Pending{}, ErrClosed
	}

	sendCtx, cancel := context.WithCancel(q.ctx)
	entry := &inflight{
		Pending: models.Pending{
			ID:          ids.NewULID(),
			Text:        text,
			SubmittedAt: time.Now().UnixMilli(),
		},
		cancel:  cancel,
		started: time.Now(),
	}
	q.pending = append(q.pending, entry)
	q.wg.Add(1)
	q.publishLocked(Event{Kind: EventSubmitted, ThreadID: q.threadID, ID: entry.ID, Text: text})
	q.mu.Unlock()

	metrics.MessagesSubmitted.Inc()
	metrics.PendingMessages.Inc()

	go q.deliver(sendCtx, entry)

	return entry.Pending, nil
}

// deliver runs one send and settles the submission with its outcome.
func (q *Queue) deliver(ctx context.Context, entry *inflight) {
	defer q.wg.Done()
	defer entry.cancel()

	err := q.sender.Send(ctx, entry.Text)
	q.settle(ctx, entry, err)
}

// settle moves a submission out of the pending set. The store append runs
// outside mu so submissions and reads never wait on it. The entry stays
// pending until the append returns; Derive drops pending entries that are
// already confirmed, so readers never see the message twice or not at all.
func (q *Queue) settle(ctx context.Context, entry *inflight, sendErr error) {
	q.mu.Lock()
	switch {
	case ctx.Err() != nil:
		// Canceled, even if the send itself returned nil
		sendErr = ErrCanceled
	case sendErr != nil:
		if !errors.Is(sendErr, ErrSendFailed) {
			sendErr = fmt.Errorf("%w: %v", ErrSendFailed, sendErr)
		}
	default:
		entry.committing = true
	}
	q.mu.Unlock()

	if sendErr == nil {
		if err := q.appendConfirmed(entry); err != nil {
			sendErr = fmt.Errorf("%w: store: %v", ErrSendFailed, err)
		}
	}

	q.mu.Lock()
	q.removePendingLocked(entry.ID)

	event := Event{Kind: EventConfirmed, ThreadID: q.threadID, ID: entry.ID, Text: entry.Text}
	outcome := "confirmed"
	if sendErr != nil {
		event.Kind = EventFailed
		event.Error = sendErr.Error()
		outcome = "failed"
		if errors.Is(sendErr, ErrCanceled) {
			outcome = "canceled"
		}
		q.recordFailureLocked(models.Failure{
			ID:       entry.ID,
			Text:     entry.Text,
			Error:    sendErr.Error(),
			FailedAt: time.Now().UnixMilli(),
		})
	}
	q.publishLocked(event)
	q.mu.Unlock()

	metrics.PendingMessages.Dec()
	metrics.MessagesSettled.WithLabelValues(outcome).Inc()
	metrics.SendLatency.Observe(time.Since(entry.started).Seconds())

	if sendErr != nil {
		q.logger.Warn().Err(sendErr).Str("id", entry.ID).Msg("message rolled back")
	} else {
		q.logger.Debug().Str("id", entry.ID).Msg("message confirmed")
	}
}

func (q *Queue) appendConfirmed(entry *inflight) error {
	q.appendMu.Lock()
	defer q.appendMu.Unlock()

	msg := &models.Message{
		ID:        entry.ID,
		ThreadID:  q.threadID,
		Text:      entry.Text,
		Timestamp: time.Now().UnixMilli(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return q.store.AppendMessage(ctx, msg)
}

func (q *Queue) removePendingLocked(id string) {
	for i, p := range q.pending {
		if p.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

func (q *Queue) recordFailureLocked(f models.Failure) {
	q.failures = append(q.failures, f)
	if len(q.failures) > maxFailures {
		q.failures = q.failures[len(q.failures)-maxFailures:]
	}
}

// Cancel aborts the in-flight send for id. The submission settles as failed
// with ErrCanceled once its send returns. A submission whose send already
// succeeded is no longer pending for Cancel.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range q.pending {
		if p.ID == id && !p.committing {
			p.cancel()
			return nil
		}
	}
	return ErrNotPending
}

// Confirmed returns the confirmed messages in append order.
func (q *Queue) Confirmed(ctx context.Context) ([]models.Message, error) {
	return q.store.ListMessages(ctx, q.threadID)
}

// Pending returns the in-flight submissions in submission order.
func (q *Queue) Pending() []models.Pending {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingLocked()
}

func (q *Queue) pendingLocked() []models.Pending {
	out := make([]models.Pending, len(q.pending))
	for i, p := range q.pending {
		out[i] = p.Pending
	}
	return out
}

// Failures returns the most recent rolled-back submissions, oldest first.
func (q *Queue) Failures() []models.Failure {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Failure, len(q.failures))
	copy(out, q.failures)
	return out
}

// Snapshot is a consistent read of a queue's state.
type Snapshot struct {
	Confirmed []models.Message `json:"confirmed"`
	Pending   []models.Pending `json:"pending"`
	View      []models.Entry   `json:"view"`
	Failures  []models.Failure `json:"failures"`
}

// Snapshot reads the pending set, then the confirmed store, and derives the
// view from them. A submission leaves the pending set only after its append
// returns, so reading in this order never loses one.
func (q *Queue) Snapshot(ctx context.Context) (Snapshot, error) {
	q.mu.Lock()
	pending := q.pendingLocked()
	failures := make([]models.Failure, len(q.failures))
	copy(failures, q.failures)
	q.mu.Unlock()

	confirmed, err := q.store.ListMessages(ctx, q.threadID)
	if err != nil {
		return Snapshot{}, err
	}
	pending = dropConfirmed(pending, confirmed)

	return Snapshot{
		Confirmed: confirmed,
		Pending:   pending,
		View:      Derive(confirmed, pending),
		Failures:  failures,
	}, nil
}

// View returns the derived view of the thread.
func (q *Queue) View(ctx context.Context) ([]models.Entry, error) {
	snap, err := q.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.View, nil
}

// idle reports whether nothing is in flight and nobody is listening.
func (q *Queue) idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0 && len(q.subs) == 0
}

// Subscribe returns a channel of queue events and a function that stops the
// subscription. Slow subscribers miss events rather than block the queue.
// The channel is closed when the queue closes.
func (q *Queue) Subscribe() (<-chan Event, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan Event, eventBuffer)
	if q.closed {
		close(ch)
		return ch, func() {}
	}
	id := q.nextSub
	q.nextSub++
	q.subs[id] = ch

	return ch, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if c, ok := q.subs[id]; ok {
			delete(q.subs, id)
			close(c)
		}
	}
}

func (q *Queue) publishLocked(e Event) {
	for _, ch := range q.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close cancels every in-flight send, waits for them to settle and closes
// all subscriptions. Further submissions return ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()

	q.mu.Lock()
	for id, ch := range q.subs {
		delete(q.subs, id)
		close(ch)
	}
	q.mu.Unlock()
}

// Derive builds the view of a thread: confirmed messages in store order
// followed by pending submissions in submission order, flagged as sending.
// A pending submission already present in confirmed is left out. It has no
// state of its own; equal inputs always give equal output.
func Derive(confirmed []models.Message, pending []models.Pending) []models.Entry {
	view := make([]models.Entry, 0, len(confirmed)+len(pending))
	for _, m := range confirmed {
		view = append(view, models.Entry{ID: m.ID, Text: m.Text})
	}
	for _, p := range dropConfirmed(pending, confirmed) {
		view = append(view, models.Entry{ID: p.ID, Text: p.Text, Sending: true})
	}
	return view
}

func dropConfirmed(pending []models.Pending, confirmed []models.Message) []models.Pending {
	if len(pending) == 0 || len(confirmed) == 0 {
		return pending
	}
	seen := make(map[string]bool, len(confirmed))
	for _, m := range confirmed {
		seen[m.ID] = true
	}
	out := make([]models.Pending, 0, len(pending))
	for _, p := range pending {
		if !seen[p.ID] {
			out = append(out, p)
		}
	}
	return out
}
