package optimistic

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Sender delivers a message. Implementations must return promptly once ctx
// is canceled.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, text string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, text string) error {
	return f(ctx, text)
}

// DelaySender simulates a network send that succeeds after Delay.
// Messages containing FailMarker are rejected after the same delay.
type DelaySender struct {
	Delay      time.Duration
	FailMarker string
}

// Send waits for the configured delay and then reports the outcome.
func (s DelaySender) Send(ctx context.Context, text string) error {
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if s.FailMarker != "" && strings.Contains(text, s.FailMarker) {
		return fmt.Errorf("%w: delivery rejected", ErrSendFailed)
	}
	return nil
}
