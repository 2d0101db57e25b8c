package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eldtechnologies/hookcase/internal/ids"
	"github.com/eldtechnologies/hookcase/internal/metrics"
	"github.com/eldtechnologies/hookcase/internal/models"
)

// threadsKey is the set of thread IDs with confirmed messages. Thread lists
// never expire: a confirmed list only grows.
const threadsKey = "threads"

// RedisStore handles Redis operations for confirmed messages.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying client for the rate limiter.
func (s *RedisStore) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// threadMessagesKey returns the key for a thread's message list.
func threadMessagesKey(threadID string) string {
	return fmt.Sprintf("thread:%s:messages", threadID)
}

// AppendMessage pushes a confirmed message onto its thread's list.
// A list rather than a sorted set keeps append order even when two
// confirmations land in the same millisecond.
func (s *RedisStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	defer observeRedis(time.Now())

	if msg.ID == "" {
		msg.ID = ids.NewULID()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := threadMessagesKey(msg.ThreadID)

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, string(data))
	pipe.SAdd(ctx, threadsKey, msg.ThreadID)
	_, err = pipe.Exec(ctx)
	return err
}

// ListMessages retrieves a thread's confirmed messages, oldest first.
func (s *RedisStore) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	defer observeRedis(time.Now())

	results, err := s.client.LRange(ctx, threadMessagesKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// CountMessages sums the lengths of all known thread lists.
func (s *RedisStore) CountMessages(ctx context.Context) (int64, error) {
	defer observeRedis(time.Now())

	threads, err := s.client.SMembers(ctx, threadsKey).Result()
	if err != nil {
		return 0, err
	}
	if len(threads) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(threads))
	for i, t := range threads {
		cmds[i] = pipe.LLen(ctx, threadMessagesKey(t))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, err
	}

	var total int64
	for _, cmd := range cmds {
		total += cmd.Val()
	}
	return total, nil
}

func observeRedis(start time.Time) {
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
}
