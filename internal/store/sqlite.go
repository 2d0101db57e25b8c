package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eldtechnologies/hookcase/internal/metrics"
	"github.com/eldtechnologies/hookcase/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/hookcase.db".
// The special path ":memory:" opens a private in-memory database.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/hookcase.db"
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
		dsn = dbPath + "?_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cart_items (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		title TEXT NOT NULL,
		added_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
	CREATE INDEX IF NOT EXISTS idx_cart_items_session ON cart_items(session_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreatePost inserts a new post.
func (s *SQLiteStore) CreatePost(ctx context.Context, title, body string) (*models.Post, error) {
	defer observeSQLite(time.Now())

	post := &models.Post{
		ID:        uuid.New(),
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, body, created_at)
		VALUES (?, ?, ?, ?)
	`, post.ID.String(), post.Title, post.Body, post.CreatedAt)
	if err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts returns up to limit posts, oldest first. A limit <= 0 returns all.
func (s *SQLiteStore) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	defer observeSQLite(time.Now())

	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, body, created_at FROM posts
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		var idStr string
		if err := rows.Scan(&idStr, &p.Title, &p.Body, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.ID, _ = uuid.Parse(idStr)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountPosts returns the total number of posts.
func (s *SQLiteStore) CountPosts(ctx context.Context) (int64, error) {
	defer observeSQLite(time.Now())

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count)
	return count, err
}

// AddCartItem inserts an item into a session's cart.
func (s *SQLiteStore) AddCartItem(ctx context.Context, sessionID, itemID, title string) (*models.CartItem, error) {
	defer observeSQLite(time.Now())

	item := &models.CartItem{
		ID:      uuid.New(),
		ItemID:  itemID,
		Title:   title,
		AddedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (id, session_id, item_id, title, added_at)
		VALUES (?, ?, ?, ?, ?)
	`, item.ID.String(), sessionID, item.ItemID, item.Title, item.AddedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListCartItems returns a session's cart in insertion order.
func (s *SQLiteStore) ListCartItems(ctx context.Context, sessionID string) ([]models.CartItem, error) {
	defer observeSQLite(time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, title, added_at FROM cart_items
		WHERE session_id = ?
		ORDER BY added_at ASC, rowid ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		var idStr string
		if err := rows.Scan(&idStr, &item.ItemID, &item.Title, &item.AddedAt); err != nil {
			return nil, err
		}
		item.ID, _ = uuid.Parse(idStr)
		items = append(items, item)
	}
	return items, rows.Err()
}

func observeSQLite(start time.Time) {
	metrics.DatabaseLatency.WithLabelValues("sqlite").Observe(time.Since(start).Seconds())
}
