package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eldtechnologies/hookcase/internal/models"
)

// MemoryStore keeps everything in process memory. It is the default when no
// database or Redis URL is configured, and it matches the session-only
// lifetime of the examples.
type MemoryStore struct {
	mu       sync.RWMutex
	posts    []models.Post
	carts    map[string][]models.CartItem
	messages map[string][]models.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:    make(map[string][]models.CartItem),
		messages: make(map[string][]models.Message),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// CreatePost appends a post.
func (s *MemoryStore) CreatePost(ctx context.Context, title, body string) (*models.Post, error) {
	post := models.Post{
		ID:        uuid.New(),
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.posts = append(s.posts, post)
	s.mu.Unlock()

	return &post, nil
}

// ListPosts returns up to limit posts in creation order. A limit <= 0
// returns all posts.
func (s *MemoryStore) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.posts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.Post, n)
	copy(out, s.posts[:n])
	return out, nil
}

// CountPosts returns the number of stored posts.
func (s *MemoryStore) CountPosts(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.posts)), nil
}

// AddCartItem appends an item to a session's cart.
func (s *MemoryStore) AddCartItem(ctx context.Context, sessionID, itemID, title string) (*models.CartItem, error) {
	item := models.CartItem{
		ID:      uuid.New(),
		ItemID:  itemID,
		Title:   title,
		AddedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.carts[sessionID] = append(s.carts[sessionID], item)
	s.mu.Unlock()

	return &item, nil
}

// ListCartItems returns a session's cart in insertion order.
func (s *MemoryStore) ListCartItems(ctx context.Context, sessionID string) ([]models.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.carts[sessionID]
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out, nil
}

// AppendMessage appends a confirmed message to its thread.
func (s *MemoryStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	s.mu.Lock()
	s.messages[msg.ThreadID] = append(s.messages[msg.ThreadID], *msg)
	s.mu.Unlock()

	return nil
}

// ListMessages returns a copy of a thread's confirmed messages.
func (s *MemoryStore) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[threadID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// CountMessages returns the number of confirmed messages across threads.
func (s *MemoryStore) CountMessages(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, msgs := range s.messages {
		total += int64(len(msgs))
	}
	return total, nil
}
