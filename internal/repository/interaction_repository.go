package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Mudassar864/yaopets-sub001/internal/models"
)

// ErrCommentNotFound is returned when a comment-scoped operation targets a
// comment the store does not have
var ErrCommentNotFound = errors.New("comment not found")

type InteractionRepository interface {
	// CreatePresence inserts a like or save, bumping the relevant post counter
	// in the same transaction. Returns false when the row already existed.
	CreatePresence(ctx context.Context, kind models.Kind, userID, postType, postID string) (bool, error)
	// DeletePresence removes a like or save, decrementing the relevant post
	// counter clamped at zero. Returns false when no row matched.
	DeletePresence(ctx context.Context, kind models.Kind, userID, postID string) (bool, error)

	// CreateComment inserts a new comment row and increments comments_count
	CreateComment(ctx context.Context, comment *models.Comment) error
	// DeleteComment removes a user's own comment, decrementing comments_count
	// clamped at zero. Returns false when no row matched, and the owning post
	// ID when one did.
	DeleteComment(ctx context.Context, commentID, userID string) (bool, string, error)
	// GetComments returns all comments for a post, oldest first
	GetComments(ctx context.Context, postID string) ([]models.Comment, error)

	// CreateCommentLike inserts a comment like and resolves the comment's
	// owning post ID. Returns false when the like already existed.
	CreateCommentLike(ctx context.Context, userID, commentID string) (bool, string, error)
	// DeleteCommentLike removes a comment like. Returns false when absent.
	DeleteCommentLike(ctx context.Context, userID, commentID string) (bool, error)

	// GetByPost returns every interaction recorded against a post
	GetByPost(ctx context.Context, postID string) ([]models.Interaction, error)
	// GetByUser returns a user's interactions, optionally filtered to one post;
	// this is the reconciler's authoritative snapshot
	GetByUser(ctx context.Context, userID, postID string) ([]models.Interaction, error)
	// GetPostStatuses returns the liked/saved projection for a set of posts
	GetPostStatuses(ctx context.Context, userID string, postIDs []string) ([]models.PostStatus, error)
}

type interactionRepository struct {
	db *sqlx.DB
}

func NewInteractionRepository(db *sqlx.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

// interactionRow is the flat SQL shape of the interaction union
type interactionRow struct {
	ID        string         `db:"id"`
	DedupeKey string         `db:"dedupe_key"`
	UserID    string         `db:"user_id"`
	PostType  string         `db:"post_type"`
	PostID    string         `db:"post_id"`
	Kind      string         `db:"kind"`
	CommentID sql.NullString `db:"comment_id"`
	ParentID  sql.NullString `db:"parent_id"`
	Content   sql.NullString `db:"content"`
	CreatedAt time.Time      `db:"created_at"`
}

func (row interactionRow) toInteraction() (models.Interaction, error) {
	switch models.Kind(row.Kind) {
	case models.KindLike:
		return models.Like{UserID: row.UserID, PostType: row.PostType, PostID: row.PostID, CreatedAt: row.CreatedAt}, nil
	case models.KindSave:
		return models.Save{UserID: row.UserID, PostType: row.PostType, PostID: row.PostID, CreatedAt: row.CreatedAt}, nil
	case models.KindComment:
		return models.Comment{
			ID:        row.ID,
			UserID:    row.UserID,
			PostID:    row.PostID,
			ParentID:  row.ParentID.String,
			Content:   row.Content.String,
			CreatedAt: row.CreatedAt,
		}, nil
	case models.KindCommentLike:
		return models.CommentLike{
			UserID:    row.UserID,
			CommentID: row.CommentID.String,
			PostID:    row.PostID,
			CreatedAt: row.CreatedAt,
		}, nil
	default:
		return nil, fmt.Errorf("unknown interaction kind %q in store", row.Kind)
	}
}

// presenceDedupeKey realizes the at-most-one invariant for like/save rows
func presenceDedupeKey(kind models.Kind, userID, postID string) string {
	return fmt.Sprintf("%s:%s:%s", kind, userID, postID)
}

// commentLikeDedupeKey realizes the at-most-one invariant per (user, comment)
func commentLikeDedupeKey(userID, commentID string) string {
	return fmt.Sprintf("clike:%s:%s", userID, commentID)
}

// counterColumn maps a kind to the post counter it adjusts, if any
func counterColumn(kind models.Kind) string {
	switch kind {
	case models.KindLike:
		return "likes_count"
	case models.KindComment:
		return "comments_count"
	}
	return ""
}

func (r *interactionRepository) CreatePresence(ctx context.Context, kind models.Kind, userID, postType, postID string) (created bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	insert := `
		INSERT INTO interactions (id, dedupe_key, user_id, post_type, post_id, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id
	`
	result, err := tx.ExecContext(ctx, insert,
		uuid.New().String(),
		presenceDedupeKey(kind, userID, postID),
		userID, postType, postID, string(kind),
		time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", kind, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	// Zero affected rows means the interaction already existed; the counter
	// must not be touched (idempotent create).
	if rowsAffected == 0 {
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return false, nil
	}

	if col := counterColumn(kind); col != "" {
		bump := fmt.Sprintf(`UPDATE posts SET %s = %s + 1 WHERE id = ?`, col, col)
		if _, err = tx.ExecContext(ctx, bump, postID); err != nil {
			return false, fmt.Errorf("failed to increment %s: %w", col, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

func (r *interactionRepository) DeletePresence(ctx context.Context, kind models.Kind, userID, postID string) (deleted bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM interactions WHERE dedupe_key = ?`,
		presenceDedupeKey(kind, userID, postID),
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	// Deleting a row that is not there is a no-op, not an error
	if rowsAffected == 0 {
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return false, nil
	}

	if col := counterColumn(kind); col != "" {
		// Clamped at zero to tolerate duplicate-delete races
		drop := fmt.Sprintf(`UPDATE posts SET %s = GREATEST(%s - 1, 0) WHERE id = ?`, col, col)
		if _, err = tx.ExecContext(ctx, drop, postID); err != nil {
			return false, fmt.Errorf("failed to decrement %s: %w", col, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

func (r *interactionRepository) CreateComment(ctx context.Context, comment *models.Comment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	insert := `
		INSERT INTO interactions (id, dedupe_key, user_id, post_id, kind, comment_id, parent_id, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var parentID interface{}
	if comment.ParentID != "" {
		parentID = comment.ParentID
	}
	// A comment's own ID is its dedupe key: every call inserts a new row
	_, err = tx.ExecContext(ctx, insert,
		comment.ID, comment.ID,
		comment.UserID, comment.PostID, string(models.KindComment),
		comment.ID, parentID, comment.Content,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE posts SET comments_count = comments_count + 1 WHERE id = ?`,
		comment.PostID,
	); err != nil {
		return fmt.Errorf("failed to increment comments_count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *interactionRepository) DeleteComment(ctx context.Context, commentID, userID string) (deleted bool, postID string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	err = tx.GetContext(ctx, &postID,
		`SELECT post_id FROM interactions WHERE id = ? AND user_id = ? AND kind = ?`,
		commentID, userID, string(models.KindComment),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if err = tx.Commit(); err != nil {
				return false, "", fmt.Errorf("failed to commit transaction: %w", err)
			}
			return false, "", nil
		}
		return false, "", fmt.Errorf("failed to find comment: %w", err)
	}

	// The comment's likes go with it
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM interactions WHERE comment_id = ?`, commentID,
	); err != nil {
		return false, "", fmt.Errorf("failed to delete comment: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE posts SET comments_count = GREATEST(comments_count - 1, 0) WHERE id = ?`,
		postID,
	); err != nil {
		return false, "", fmt.Errorf("failed to decrement comments_count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, postID, nil
}

func (r *interactionRepository) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	query := `
		SELECT id, dedupe_key, user_id, post_type, post_id, kind, comment_id, parent_id, content, created_at
		FROM interactions
		WHERE post_id = ? AND kind = ?
		ORDER BY created_at ASC
	`
	var rows []interactionRow
	err := r.db.SelectContext(ctx, &rows, query, postID, string(models.KindComment))
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}

	comments := make([]models.Comment, 0, len(rows))
	for _, row := range rows {
		in, err := row.toInteraction()
		if err != nil {
			return nil, err
		}
		comments = append(comments, in.(models.Comment))
	}
	return comments, nil
}

func (r *interactionRepository) CreateCommentLike(ctx context.Context, userID, commentID string) (created bool, postID string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// Resolve the owning post; the client only knows the comment ID
	err = tx.GetContext(ctx, &postID,
		`SELECT post_id FROM interactions WHERE id = ? AND kind = ?`,
		commentID, string(models.KindComment),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrCommentNotFound
			return false, "", err
		}
		return false, "", fmt.Errorf("failed to resolve comment: %w", err)
	}

	insert := `
		INSERT INTO interactions (id, dedupe_key, user_id, post_id, kind, comment_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id
	`
	result, err := tx.ExecContext(ctx, insert,
		uuid.New().String(),
		commentLikeDedupeKey(userID, commentID),
		userID, postID, string(models.KindCommentLike), commentID,
		time.Now().UTC(),
	)
	if err != nil {
		return false, "", fmt.Errorf("failed to create comment like: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, "", fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rowsAffected > 0, postID, nil
}

func (r *interactionRepository) DeleteCommentLike(ctx context.Context, userID, commentID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM interactions WHERE dedupe_key = ?`,
		commentLikeDedupeKey(userID, commentID),
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete comment like: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *interactionRepository) GetByPost(ctx context.Context, postID string) ([]models.Interaction, error) {
	query := `
		SELECT id, dedupe_key, user_id, post_type, post_id, kind, comment_id, parent_id, content, created_at
		FROM interactions
		WHERE post_id = ?
		ORDER BY created_at ASC
	`
	var rows []interactionRow
	err := r.db.SelectContext(ctx, &rows, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get interactions by post: %w", err)
	}
	return rowsToInteractions(rows)
}

func (r *interactionRepository) GetByUser(ctx context.Context, userID, postID string) ([]models.Interaction, error) {
	var rows []interactionRow
	var err error

	if postID != "" {
		query := `
			SELECT id, dedupe_key, user_id, post_type, post_id, kind, comment_id, parent_id, content, created_at
			FROM interactions
			WHERE user_id = ? AND post_id = ?
			ORDER BY created_at ASC
		`
		err = r.db.SelectContext(ctx, &rows, query, userID, postID)
	} else {
		query := `
			SELECT id, dedupe_key, user_id, post_type, post_id, kind, comment_id, parent_id, content, created_at
			FROM interactions
			WHERE user_id = ?
			ORDER BY created_at ASC
		`
		err = r.db.SelectContext(ctx, &rows, query, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interactions by user: %w", err)
	}
	return rowsToInteractions(rows)
}

func (r *interactionRepository) GetPostStatuses(ctx context.Context, userID string, postIDs []string) ([]models.PostStatus, error) {
	if len(postIDs) == 0 {
		return []models.PostStatus{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT post_id, kind
		FROM interactions
		WHERE user_id = ? AND kind IN (?, ?) AND post_id IN (?)
	`, userID, string(models.KindLike), string(models.KindSave), postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build status query: %w", err)
	}

	var rows []struct {
		PostID string `db:"post_id"`
		Kind   string `db:"kind"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get post statuses: %w", err)
	}

	byPost := make(map[string]*models.PostStatus, len(postIDs))
	for _, row := range rows {
		status, ok := byPost[row.PostID]
		if !ok {
			status = &models.PostStatus{PostID: row.PostID}
			byPost[row.PostID] = status
		}
		switch models.Kind(row.Kind) {
		case models.KindLike:
			status.IsLiked = true
		case models.KindSave:
			status.IsSaved = true
		}
	}

	// One entry per requested post, absent posts included with both flags false
	result := make([]models.PostStatus, 0, len(postIDs))
	for _, postID := range postIDs {
		if status, ok := byPost[postID]; ok {
			result = append(result, *status)
			continue
		}
		result = append(result, models.PostStatus{PostID: postID})
	}
	return result, nil
}

func rowsToInteractions(rows []interactionRow) ([]models.Interaction, error) {
	interactions := make([]models.Interaction, 0, len(rows))
	for _, row := range rows {
		in, err := row.toInteraction()
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, in)
	}
	return interactions, nil
}
