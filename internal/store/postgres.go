package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldtechnologies/hookcase/internal/metrics"
	"github.com/eldtechnologies/hookcase/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS posts (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cart_items (
	id UUID PRIMARY KEY,
	session_id TEXT NOT NULL,
	item_id TEXT NOT NULL,
	title TEXT NOT NULL,
	added_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
CREATE INDEX IF NOT EXISTS idx_cart_items_session ON cart_items(session_id, added_at);
`

// RunMigrations creates the PostgreSQL schema if it does not exist.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, postgresSchema)
	return err
}

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreatePost inserts a new post.
func (s *PostgresStore) CreatePost(ctx context.Context, title, body string) (*models.Post, error) {
	defer observePostgres(time.Now())

	post := &models.Post{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO posts (id, title, body)
		VALUES ($1, $2, $3)
		RETURNING id, title, body, created_at
	`, uuid.New(), title, body).Scan(
		&post.ID,
		&post.Title,
		&post.Body,
		&post.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts returns up to limit posts, oldest first. A limit <= 0 returns all.
func (s *PostgresStore) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	defer observePostgres(time.Now())

	query := `SELECT id, title, body, created_at FROM posts ORDER BY created_at ASC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Body, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountPosts returns the total number of posts.
func (s *PostgresStore) CountPosts(ctx context.Context) (int64, error) {
	defer observePostgres(time.Now())

	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count)
	return count, err
}

// AddCartItem inserts an item into a session's cart.
func (s *PostgresStore) AddCartItem(ctx context.Context, sessionID, itemID, title string) (*models.CartItem, error) {
	defer observePostgres(time.Now())

	item := &models.CartItem{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO cart_items (id, session_id, item_id, title)
		VALUES ($1, $2, $3, $4)
		RETURNING id, item_id, title, added_at
	`, uuid.New(), sessionID, itemID, title).Scan(
		&item.ID,
		&item.ItemID,
		&item.Title,
		&item.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListCartItems returns a session's cart in insertion order.
func (s *PostgresStore) ListCartItems(ctx context.Context, sessionID string) ([]models.CartItem, error) {
	defer observePostgres(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, title, added_at
		FROM cart_items WHERE session_id = $1
		ORDER BY added_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.ItemID, &item.Title, &item.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func observePostgres(start time.Time) {
	metrics.DatabaseLatency.WithLabelValues("postgres").Observe(time.Since(start).Seconds())
}
