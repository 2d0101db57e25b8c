package theme

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleAlternates(t *testing.T) {
	p := NewProvider()
	assert.Equal(t, Light, p.Mode())
	assert.Equal(t, Dark, p.Toggle())
	assert.Equal(t, Light, p.Toggle())
}

func TestSubscribersSeeLatestMode(t *testing.T) {
	p := NewProvider()
	ch, stop := p.Subscribe()
	defer stop()

	p.Toggle()
	p.Toggle()
	p.Set(Dark)

	assert.Equal(t, Dark, <-ch)
	select {
	case m := <-ch:
		t.Fatalf("unexpected extra mode %q", m)
	default:
	}
}

func TestContextPropagation(t *testing.T) {
	p := NewProvider()
	p.Set(Dark)

	ctx := WithProvider(context.Background(), p)
	assert.Same(t, p, FromContext(ctx))

	fallback := FromContext(context.Background())
	assert.Equal(t, Light, fallback.Mode())
}

func TestSourceIsResolvedOnce(t *testing.T) {
	calls := 0
	p := NewProvider()
	ctx := WithSource(context.Background(), func() *Provider {
		calls++
		return p
	})
	assert.Equal(t, 0, calls)

	assert.Same(t, p, FromContext(ctx))
	assert.Same(t, p, FromContext(ctx))
	assert.Equal(t, 1, calls)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	p := NewProvider()
	ch, stop := p.Subscribe()
	stop()
	stop()

	p.Toggle()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestParseModeAndCard(t *testing.T) {
	m, err := ParseMode("dark")
	require.NoError(t, err)
	assert.Equal(t, "Switch to Light Mode", CardFor(m).ButtonLabel)
	assert.Equal(t, "Switch to Dark Mode", CardFor(Light).ButtonLabel)

	_, err = ParseMode("sepia")
	assert.Error(t, err)
}
