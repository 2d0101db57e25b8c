package optimistic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/hookcase/internal/models"
	"github.com/eldtechnologies/hookcase/internal/store"
	"github.com/eldtechnologies/hookcase/internal/validation"
)

// gateSender blocks each send until the test releases that text.
type gateSender struct {
	mu    sync.Mutex
	gates map[string]chan error
}

func newGateSender() *gateSender {
	return &gateSender{gates: make(map[string]chan error)}
}

func (g *gateSender) gate(text string) chan error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[text]
	if !ok {
		ch = make(chan error, 1)
		g.gates[text] = ch
	}
	return ch
}

func (g *gateSender) Send(ctx context.Context, text string) error {
	select {
	case err := <-g.gate(text):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gateSender) release(text string, err error) {
	g.gate(text) <- err
}

func newTestQueue(t *testing.T, sender Sender) (*Queue, <-chan Event) {
	t.Helper()
	q := NewQueue("general", store.NewMemoryStore(), sender, zerolog.Nop())
	events, stop := q.Subscribe()
	t.Cleanup(func() {
		stop()
		q.Close()
	})
	return q, events
}

// waitFor drains events until one of kind for text arrives.
func waitFor(t *testing.T, events <-chan Event, kind EventKind, text string) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Kind == kind && e.Text == text {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event for %q", kind, text)
		}
	}
}

func TestSubmitThenConfirm(t *testing.T) {
	sender := newGateSender()
	q, events := newTestQueue(t, sender)
	ctx := context.Background()

	p, err := q.Submit(ctx, "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	view, err := q.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Entry{{ID: p.ID, Text: "hi", Sending: true}}, view)

	sender.release("hi", nil)
	waitFor(t, events, EventConfirmed, "hi")

	confirmed, err := q.Confirmed(ctx)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "hi", confirmed[0].Text)
	assert.Equal(t, p.ID, confirmed[0].ID)

	view, err = q.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Entry{{ID: p.ID, Text: "hi"}}, view)
	assert.Empty(t, q.Pending())
}

func TestOverlappingSubmissionsKeepSubmitOrder(t *testing.T) {
	sender := newGateSender()
	q, _ := newTestQueue(t, sender)
	ctx := context.Background()

	_, err := q.Submit(ctx, "a")
	require.NoError(t, err)
	_, err = q.Submit(ctx, "b")
	require.NoError(t, err)

	view, err := q.View(ctx)
	require.NoError(t, err)
	require.Len(t, view, 2)
	assert.Equal(t, "a", view[0].Text)
	assert.True(t, view[0].Sending)
	assert.Equal(t, "b", view[1].Text)
	assert.True(t, view[1].Sending)
}

func TestReconcileInCompletionOrder(t *testing.T) {
	sender := newGateSender()
	q, events := newTestQueue(t, sender)
	ctx := context.Background()

	_, err := q.Submit(ctx, "a")
	require.NoError(t, err)
	_, err = q.Submit(ctx, "b")
	require.NoError(t, err)

	sender.release("b", nil)
	waitFor(t, events, EventConfirmed, "b")

	view, err := q.View(ctx)
	require.NoError(t, err)
	require.Len(t, view, 2)
	assert.Equal(t, models.Entry{ID: view[0].ID, Text: "b"}, view[0])
	assert.Equal(t, "a", view[1].Text)
	assert.True(t, view[1].Sending)

	sender.release("a", nil)
	waitFor(t, events, EventConfirmed, "a")

	confirmed, err := q.Confirmed(ctx)
	require.NoError(t, err)
	require.Len(t, confirmed, 2)
	// Earlier confirmations keep their position
	assert.Equal(t, "b", confirmed[0].Text)
	assert.Equal(t, "a", confirmed[1].Text)
}

func TestDuplicateTextsStayDistinct(t *testing.T) {
	releases := make(chan struct{})
	sender := SenderFunc(func(ctx context.Context, text string) error {
		<-releases
		return nil
	})
	q, events := newTestQueue(t, sender)
	ctx := context.Background()

	first, err := q.Submit(ctx, "same")
	require.NoError(t, err)
	second, err := q.Submit(ctx, "same")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	releases <- struct{}{}
	e := waitFor(t, events, EventConfirmed, "same")

	view, err := q.View(ctx)
	require.NoError(t, err)
	require.Len(t, view, 2)
	assert.Equal(t, e.ID, view[0].ID)
	assert.False(t, view[0].Sending)
	assert.True(t, view[1].Sending)
	assert.NotEqual(t, view[0].ID, view[1].ID)

	close(releases)
	waitFor(t, events, EventConfirmed, "same")
}

func TestEmptySubmissionIsRejected(t *testing.T) {
	q, _ := newTestQueue(t, newGateSender())
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := q.Submit(ctx, text)
		ve, ok := validation.As(err)
		require.True(t, ok, "expected validation error for %q", text)
		assert.Equal(t, "text", ve.Field)
	}

	assert.Empty(t, q.Pending())
	confirmed, err := q.Confirmed(ctx)
	require.NoError(t, err)
	assert.Empty(t, confirmed)
}

func TestSendFailureRollsBack(t *testing.T) {
	sender := newGateSender()
	q, events := newTestQueue(t, sender)
	ctx := context.Background()

	p, err := q.Submit(ctx, "doomed")
	require.NoError(t, err)

	sender.release("doomed", errors.New("connection reset"))
	e := waitFor(t, events, EventFailed, "doomed")
	assert.Equal(t, p.ID, e.ID)
	assert.Contains(t, e.Error, "connection reset")

	view, err := q.View(ctx)
	require.NoError(t, err)
	assert.Empty(t, view)

	failures := q.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "doomed", failures[0].Text)
	assert.Contains(t, failures[0].Error, ErrSendFailed.Error())
}

func TestCancelRollsBack(t *testing.T) {
	sender := newGateSender()
	q, events := newTestQueue(t, sender)
	ctx := context.Background()

	p, err := q.Submit(ctx, "later")
	require.NoError(t, err)

	require.NoError(t, q.Cancel(p.ID))
	waitFor(t, events, EventFailed, "later")

	assert.Empty(t, q.Pending())
	failures := q.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, ErrCanceled.Error(), failures[0].Error)

	assert.ErrorIs(t, q.Cancel(p.ID), ErrNotPending)
}

func TestViewIsIdempotent(t *testing.T) {
	sender := newGateSender()
	q, events := newTestQueue(t, sender)
	ctx := context.Background()

	_, err := q.Submit(ctx, "x")
	require.NoError(t, err)
	sender.release("x", nil)
	waitFor(t, events, EventConfirmed, "x")
	_, err = q.Submit(ctx, "y")
	require.NoError(t, err)

	first, err := q.View(ctx)
	require.NoError(t, err)
	second, err := q.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDeriveIsPure(t *testing.T) {
	confirmed := []models.Message{{ID: "1", Text: "one"}, {ID: "2", Text: "two"}}
	pending := []models.Pending{{ID: "3", Text: "three"}}

	a := Derive(confirmed, pending)
	b := Derive(confirmed, pending)
	assert.Equal(t, a, b)
	assert.Equal(t, []models.Entry{
		{ID: "1", Text: "one"},
		{ID: "2", Text: "two"},
		{ID: "3", Text: "three", Sending: true},
	}, a)

	// Mutating the output must not affect the inputs
	a[0].Text = "changed"
	assert.Equal(t, "one", confirmed[0].Text)

	assert.Empty(t, Derive(nil, nil))
	assert.GreaterOrEqual(t, len(Derive(confirmed, nil)), len(confirmed))
}

func TestCloseCancelsInflight(t *testing.T) {
	q := NewQueue("general", store.NewMemoryStore(), newGateSender(), zerolog.Nop())
	ctx := context.Background()

	_, err := q.Submit(ctx, "stuck")
	require.NoError(t, err)

	q.Close()

	assert.Empty(t, q.Pending())
	require.Len(t, q.Failures(), 1)

	_, err = q.Submit(ctx, "after")
	assert.ErrorIs(t, err, ErrClosed)

	events, stop := q.Subscribe()
	defer stop()
	_, open := <-events
	assert.False(t, open)
}

func TestDelaySender(t *testing.T) {
	s := DelaySender{Delay: 5 * time.Millisecond, FailMarker: "!fail"}

	assert.NoError(t, s.Send(context.Background(), "hello"))

	err := s.Send(context.Background(), "hello !fail")
	assert.ErrorIs(t, err, ErrSendFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := DelaySender{Delay: time.Hour}
	assert.ErrorIs(t, slow.Send(ctx, "x"), context.Canceled)
}

// blockingStore holds every append until the test releases it.
type blockingStore struct {
	*store.MemoryStore
	started chan struct{}
	release chan struct{}
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		MemoryStore: store.NewMemoryStore(),
		started:     make(chan struct{}, 8),
		release:     make(chan struct{}),
	}
}

func (s *blockingStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	s.started <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.MemoryStore.AppendMessage(ctx, msg)
}

func TestSubmitDoesNotWaitForStore(t *testing.T) {
	st := newBlockingStore()
	q := NewQueue("general", st, SenderFunc(func(ctx context.Context, text string) error {
		return nil
	}), zerolog.Nop())
	events, stop := q.Subscribe()
	t.Cleanup(func() {
		stop()
		q.Close()
	})
	ctx := context.Background()

	first, err := q.Submit(ctx, "a")
	require.NoError(t, err)

	select {
	case <-st.started:
	case <-time.After(2 * time.Second):
		t.Fatal("append never started")
	}

	// The append for "a" is stuck; submitting and reading must not wait on it
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := q.Submit(ctx, "b")
		assert.NoError(t, err)
		view, err := q.View(ctx)
		assert.NoError(t, err)
		assert.Len(t, view, 2)
	}()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("submit blocked on a pending store append")
	}

	// A send that already succeeded can no longer be canceled
	assert.ErrorIs(t, q.Cancel(first.ID), ErrNotPending)

	close(st.release)
	waitFor(t, events, EventConfirmed, "a")
	waitFor(t, events, EventConfirmed, "b")

	view, err := q.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Entry{{ID: view[0].ID, Text: "a"}, {ID: view[1].ID, Text: "b"}}, view)
}

func TestCancelWinsOverLateSuccess(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	// Ignores ctx, like a transport that completes despite cancellation
	sender := SenderFunc(func(ctx context.Context, text string) error {
		entered <- struct{}{}
		<-release
		return nil
	})
	q, events := newTestQueue(t, sender)
	ctx := context.Background()

	p, err := q.Submit(ctx, "late")
	require.NoError(t, err)
	<-entered

	require.NoError(t, q.Cancel(p.ID))
	close(release)

	e := waitFor(t, events, EventFailed, "late")
	assert.Equal(t, ErrCanceled.Error(), e.Error)

	confirmed, err := q.Confirmed(ctx)
	require.NoError(t, err)
	assert.Empty(t, confirmed)
}

func TestDeriveSkipsPendingAlreadyConfirmed(t *testing.T) {
	confirmed := []models.Message{{ID: "1", Text: "one"}}
	pending := []models.Pending{{ID: "1", Text: "one"}, {ID: "2", Text: "two"}}

	assert.Equal(t, []models.Entry{
		{ID: "1", Text: "one"},
		{ID: "2", Text: "two", Sending: true},
	}, Derive(confirmed, pending))
}
