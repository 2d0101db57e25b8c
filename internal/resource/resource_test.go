package resource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	c := NewCache[string](time.Second)
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "value", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Load(context.Background(), "k", fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool {
		return c.Peek("k").State == StateLoading
	}, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "value", v)
	}

	// Cached from now on
	v, err := c.Load(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFailedLoadIsRetried(t *testing.T) {
	c := NewCache[int](time.Second)
	attempts := 0
	fetch := func(ctx context.Context) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, errors.New("boom")
		}
		return 42, nil
	}

	_, err := c.Load(context.Background(), "k", fetch)
	assert.Error(t, err)
	peek := c.Peek("k")
	assert.Equal(t, StateFailed, peek.State)
	assert.Equal(t, "boom", peek.Error)

	v, err := c.Load(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, StateReady, c.Peek("k").State)
}

func TestStartAndPeek(t *testing.T) {
	c := NewCache[string](time.Second)
	assert.Equal(t, StateIdle, c.Peek("msg").State)

	c.Start("msg", DelayedMessage(20*time.Millisecond))
	assert.Equal(t, StateLoading, c.Peek("msg").State)

	require.Eventually(t, func() bool {
		return c.Peek("msg").State == StateReady
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, Message, c.Peek("msg").Value)
}

func TestRestartIgnoresStaleLoad(t *testing.T) {
	c := NewCache[string](time.Second)
	release := make(chan struct{})

	c.Start("k", func(ctx context.Context) (string, error) {
		<-release
		return "old", nil
	})
	c.Restart("k", func(ctx context.Context) (string, error) {
		return "new", nil
	})

	require.Eventually(t, func() bool {
		return c.Peek("k").State == StateReady
	}, time.Second, time.Millisecond)
	close(release)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, "new", c.Peek("k").Value)
}

func TestLoadHonoursCallerContext(t *testing.T) {
	c := NewCache[string](time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Load(ctx, "k", DelayedMessage(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/jokes/random":
			w.Write([]byte(`{"id":"abc","value":"Chuck Norris counted to infinity. Twice."}`))
		case "/posts":
			w.Write([]byte(`[{"userId":1,"id":1,"title":"first","body":"one"},{"userId":1,"id":2,"title":"second","body":"two"}]`))
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	joke, err := JokeFetcher(srv.Client(), srv.URL+"/jokes/random")(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", joke.ID)
	assert.Contains(t, joke.Value, "infinity")

	posts, err := PostsFetcher(srv.Client(), srv.URL+"/posts")(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "second", posts[1].Title)

	_, err = JokeFetcher(srv.Client(), srv.URL+"/missing")(ctx)
	assert.ErrorContains(t, err, "status 404")
}

func TestSweepDropsIdleKeys(t *testing.T) {
	c := NewCache[string](time.Second)
	var clockMu sync.Mutex
	now := time.Now()
	c.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}

	_, err := c.Load(context.Background(), "old", func(ctx context.Context) (string, error) {
		return "x", nil
	})
	require.NoError(t, err)

	release := make(chan struct{})
	defer close(release)
	c.Start("loading", func(ctx context.Context) (string, error) {
		<-release
		return "y", nil
	})

	clockMu.Lock()
	now = now.Add(time.Hour)
	clockMu.Unlock()
	c.Peek("fresh")
	_, _ = c.Load(context.Background(), "recent", func(ctx context.Context) (string, error) {
		return "z", nil
	})

	assert.Equal(t, 1, c.Sweep(30*time.Minute))
	assert.Equal(t, StateIdle, c.Peek("old").State)
	assert.Equal(t, StateLoading, c.Peek("loading").State)
	assert.Equal(t, StateReady, c.Peek("recent").State)
}
