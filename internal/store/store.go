package store

import (
	"context"

	"github.com/eldtechnologies/hookcase/internal/models"
)

// DataStore defines the interface for persistent storage of posts and carts.
// PostgresStore, SQLiteStore and MemoryStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Post operations
	CreatePost(ctx context.Context, title, body string) (*models.Post, error)
	ListPosts(ctx context.Context, limit int) ([]models.Post, error)
	CountPosts(ctx context.Context) (int64, error)

	// Cart operations, scoped to a client session
	AddCartItem(ctx context.Context, sessionID, itemID, title string) (*models.CartItem, error)
	ListCartItems(ctx context.Context, sessionID string) ([]models.CartItem, error)
}

// MessageStore holds confirmed messages per thread.
// Messages are listed in the order they were appended; appends never reorder
// or remove earlier entries. RedisStore and MemoryStore implement it.
type MessageStore interface {
	Ping(ctx context.Context) error
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, threadID string) ([]models.Message, error)
	CountMessages(ctx context.Context) (int64, error)
}
