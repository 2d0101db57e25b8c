package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/hookcase/internal/ids"
	"github.com/eldtechnologies/hookcase/internal/models"
)

// dataStoreContract runs the behaviour every DataStore must share.
func dataStoreContract(t *testing.T, s DataStore) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	first, err := s.CreatePost(ctx, "first", "one")
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, "second", "two")
	require.NoError(t, err)

	posts, err := s.ListPosts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, first.ID, posts[0].ID)
	assert.Equal(t, "second", posts[1].Title)

	limited, err := s.ListPosts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	count, err := s.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = s.AddCartItem(ctx, "s1", "1", "JavaScript: The Good Parts")
	require.NoError(t, err)
	_, err = s.AddCartItem(ctx, "s1", "2", "5000 V-Bucks Gift Card")
	require.NoError(t, err)
	_, err = s.AddCartItem(ctx, "s2", "1", "JavaScript: The Good Parts")
	require.NoError(t, err)

	cart, err := s.ListCartItems(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, cart, 2)
	assert.Equal(t, "1", cart[0].ItemID)
	assert.Equal(t, "2", cart[1].ItemID)

	empty, err := s.ListCartItems(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStoreDataContract(t *testing.T) {
	dataStoreContract(t, NewMemoryStore())
}

func TestSQLiteStoreDataContract(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	dataStoreContract(t, s)
}

func TestMemoryStoreMessagesKeepAppendOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, s.AppendMessage(ctx, &models.Message{ID: text, ThreadID: "t", Text: text}))
	}
	require.NoError(t, s.AppendMessage(ctx, &models.Message{ID: "x", ThreadID: "other", Text: "x"}))

	msgs, err := s.ListMessages(ctx, "t")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "a", msgs[0].Text)
	assert.Equal(t, "c", msgs[2].Text)
	assert.NotZero(t, msgs[0].Timestamp)

	// Mutating the returned slice must not leak into the store
	msgs[0].Text = "mutated"
	again, _ := s.ListMessages(ctx, "t")
	assert.Equal(t, "a", again[0].Text)

	total, err := s.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

// Set REDIS_TEST_URL (e.g. redis://localhost:6379/15) to run against Redis.
func TestRedisStoreKeepsThreadsWithoutExpiry(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()

	s, err := NewRedisStore(ctx, url)
	require.NoError(t, err)
	defer s.Close()

	thread := "test-" + ids.NewULID()
	t.Cleanup(func() {
		s.Client().Del(ctx, threadMessagesKey(thread))
		s.Client().SRem(ctx, threadsKey, thread)
	})

	require.NoError(t, s.AppendMessage(ctx, &models.Message{ThreadID: thread, Text: "a"}))
	require.NoError(t, s.AppendMessage(ctx, &models.Message{ThreadID: thread, Text: "b"}))

	msgs, err := s.ListMessages(ctx, thread)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Text)

	ttl, err := s.Client().TTL(ctx, threadMessagesKey(thread)).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}
