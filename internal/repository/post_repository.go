package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Mudassar864/yaopets-sub001/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, postType, postID string) error
	GetByID(ctx context.Context, postID string) (*models.Post, error)
	GetCounters(ctx context.Context, postID string) (*models.Counters, error)
	Exists(ctx context.Context, postID string) (bool, error)
}

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// Create registers a post with zeroed counters. Registering the same post
// twice is a no-op so counters are never reset.
func (r *postRepository) Create(ctx context.Context, postType, postID string) error {
	query := `
		INSERT INTO posts (id, post_type, likes_count, comments_count, created_at)
		VALUES (?, ?, 0, 0, ?)
		ON DUPLICATE KEY UPDATE id = id
	`
	_, err := r.db.ExecContext(ctx, query, postID, postType, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// GetByID retrieves a post with its counters, or nil when absent
func (r *postRepository) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	query := `
		SELECT id, post_type, likes_count, comments_count, created_at
		FROM posts
		WHERE id = ?
	`
	var post models.Post
	err := r.db.GetContext(ctx, &post, query, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

// GetCounters returns the count-only projection of a post
func (r *postRepository) GetCounters(ctx context.Context, postID string) (*models.Counters, error) {
	query := `
		SELECT likes_count, comments_count
		FROM posts
		WHERE id = ?
	`
	var counters models.Counters
	err := r.db.GetContext(ctx, &counters, query, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post counters: %w", err)
	}
	return &counters, nil
}

// Exists checks whether a post is registered
func (r *postRepository) Exists(ctx context.Context, postID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM posts WHERE id = ?)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, postID)
	if err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return exists, nil
}
