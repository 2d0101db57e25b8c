package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithID(context.Background(), "abc")
	assert.Equal(t, "abc", IDFromContext(ctx))
	assert.Equal(t, "", IDFromContext(context.Background()))

	assert.False(t, Issued(ctx))
	assert.True(t, Issued(WithIssued(ctx)))
}

func TestRegistryCreatesOncePerSession(t *testing.T) {
	created := 0
	r := NewRegistry(func() *int { created++; v := created; return &v }, nil)

	a := r.Get("a")
	assert.Same(t, a, r.Get("a"))
	assert.NotSame(t, a, r.Get("b"))
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, r.Len())
}

func TestRegistrySweepEvictsIdle(t *testing.T) {
	now := time.Unix(1000, 0)
	var closed []string
	r := NewRegistry(func() string { return "v" }, func(v string) { closed = append(closed, v) })
	r.now = func() time.Time { return now }

	r.Get("old")
	now = now.Add(time.Hour)
	r.Get("fresh")

	assert.Equal(t, 1, r.Sweep(30*time.Minute))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"v"}, closed)

	r.Close()
	assert.Equal(t, 0, r.Len())
	assert.Len(t, closed, 2)
}
