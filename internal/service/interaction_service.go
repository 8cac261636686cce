package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Mudassar864/yaopets-sub001/internal/events"
	"github.com/Mudassar864/yaopets-sub001/internal/models"
	"github.com/Mudassar864/yaopets-sub001/internal/publisher"
	"github.com/Mudassar864/yaopets-sub001/internal/repository"
	"github.com/Mudassar864/yaopets-sub001/pkg/logger"
	"github.com/Mudassar864/yaopets-sub001/pkg/metrics"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrEmptyContent    = errors.New("comment content is empty")
	ErrContentTooLong  = errors.New("comment content too long")
	ErrInvalidKind     = errors.New("invalid interaction kind")
)

// maxCommentLength bounds comment bodies the same way the UI does
const maxCommentLength = 2000

type InteractionService interface {
	// RegisterPost creates the post's counter row, initialized to zero
	RegisterPost(ctx context.Context, postType, postID string) error

	// CreatePresence records a like or save. Idempotent: created is false when
	// the interaction already existed. Returns the updated counters.
	CreatePresence(ctx context.Context, kind models.Kind, userID, postType, postID string) (*models.Counters, bool, error)
	// DeletePresence removes a like or save. Idempotent: deleted is false when
	// nothing matched. Returns the updated counters.
	DeletePresence(ctx context.Context, kind models.Kind, userID, postID string) (*models.Counters, bool, error)

	// AddComment mints a comment ID, stores the comment, and returns it with
	// the updated counters
	AddComment(ctx context.Context, userID, postID, content, parentID string) (*models.Comment, *models.Counters, error)
	// DeleteComment removes a user's own comment
	DeleteComment(ctx context.Context, commentID, userID string) (bool, error)
	// GetComments returns a post's comments, oldest first
	GetComments(ctx context.Context, postID string) ([]models.Comment, error)

	// LikeComment records a comment like and returns the owning post ID
	LikeComment(ctx context.Context, userID, commentID string) (bool, string, error)
	// UnlikeComment removes a comment like
	UnlikeComment(ctx context.Context, userID, commentID string) (bool, error)

	// GetPostInteractions returns everything recorded against one post
	GetPostInteractions(ctx context.Context, postID string) ([]models.Interaction, error)
	// GetPostCounters returns the count-only projection of a post
	GetPostCounters(ctx context.Context, postID string) (*models.Counters, error)
	// GetUserSnapshot returns a user's interactions, optionally for one post
	GetUserSnapshot(ctx context.Context, userID, postID string) ([]models.Interaction, error)
	// GetPostStatuses returns the liked/saved projection for a set of posts
	GetPostStatuses(ctx context.Context, userID string, postIDs []string) ([]models.PostStatus, error)
}

type interactionService struct {
	interactions repository.InteractionRepository
	posts        repository.PostRepository
	publisher    publisher.EventPublisher
	metrics      *metrics.Metrics
	log          *logger.Logger
}

func NewInteractionService(
	interactions repository.InteractionRepository,
	posts repository.PostRepository,
	pub publisher.EventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) InteractionService {
	return &interactionService{
		interactions: interactions,
		posts:        posts,
		publisher:    pub,
		metrics:      m,
		log:          log,
	}
}

func (s *interactionService) RegisterPost(ctx context.Context, postType, postID string) error {
	if err := s.posts.Create(ctx, postType, postID); err != nil {
		return fmt.Errorf("failed to register post: %w", err)
	}
	return nil
}

func (s *interactionService) CreatePresence(ctx context.Context, kind models.Kind, userID, postType, postID string) (*models.Counters, bool, error) {
	if kind != models.KindLike && kind != models.KindSave {
		return nil, false, ErrInvalidKind
	}

	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return nil, false, ErrPostNotFound
	}

	created, err := s.interactions.CreatePresence(ctx, kind, userID, postType, postID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create %s: %w", kind, err)
	}

	counters, err := s.posts.GetCounters(ctx, postID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read counters: %w", err)
	}

	if created {
		s.metrics.InteractionsCreated.WithLabelValues(string(kind)).Inc()
		event := events.PostLikedEvent{
			UserID:    userID,
			PostType:  postType,
			PostID:    postID,
			Timestamp: time.Now().UTC(),
		}
		if kind == models.KindLike {
			s.publisher.PublishPostLiked(event)
		} else {
			s.publisher.PublishPostSaved(event)
		}
	}
	return counters, created, nil
}

func (s *interactionService) DeletePresence(ctx context.Context, kind models.Kind, userID, postID string) (*models.Counters, bool, error) {
	if kind != models.KindLike && kind != models.KindSave {
		return nil, false, ErrInvalidKind
	}

	deleted, err := s.interactions.DeletePresence(ctx, kind, userID, postID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	counters, err := s.posts.GetCounters(ctx, postID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read counters: %w", err)
	}

	if deleted {
		s.metrics.InteractionsDeleted.WithLabelValues(string(kind)).Inc()
	}
	return counters, deleted, nil
}

func (s *interactionService) AddComment(ctx context.Context, userID, postID, content, parentID string) (*models.Comment, *models.Counters, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, ErrEmptyContent
	}
	// Length is counted in runes, never sliced in bytes: cutting a multi-byte
	// comment mid-rune would store invalid UTF-8
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, nil, ErrContentTooLong
	}

	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return nil, nil, ErrPostNotFound
	}

	// The comment ID is minted authoritatively here; the client never invents one
	comment := &models.Comment{
		ID:        uuid.New().String(),
		UserID:    userID,
		PostID:    postID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.interactions.CreateComment(ctx, comment); err != nil {
		return nil, nil, fmt.Errorf("failed to add comment: %w", err)
	}

	counters, err := s.posts.GetCounters(ctx, postID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read counters: %w", err)
	}

	s.metrics.InteractionsCreated.WithLabelValues(string(models.KindComment)).Inc()
	s.publisher.PublishPostCommented(events.PostCommentedEvent{
		CommentID: comment.ID,
		PostID:    postID,
		UserID:    userID,
		ParentID:  parentID,
		Content:   content,
		Timestamp: comment.CreatedAt,
	})
	return comment, counters, nil
}

func (s *interactionService) DeleteComment(ctx context.Context, commentID, userID string) (bool, error) {
	deleted, _, err := s.interactions.DeleteComment(ctx, commentID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete comment: %w", err)
	}
	if deleted {
		s.metrics.InteractionsDeleted.WithLabelValues(string(models.KindComment)).Inc()
	}
	return deleted, nil
}

func (s *interactionService) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	comments, err := s.interactions.GetComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	return comments, nil
}

func (s *interactionService) LikeComment(ctx context.Context, userID, commentID string) (bool, string, error) {
	created, postID, err := s.interactions.CreateCommentLike(ctx, userID, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return false, "", ErrCommentNotFound
		}
		return false, "", fmt.Errorf("failed to like comment: %w", err)
	}

	if created {
		s.metrics.InteractionsCreated.WithLabelValues(string(models.KindCommentLike)).Inc()
		s.publisher.PublishCommentLiked(events.CommentLikedEvent{
			CommentID: commentID,
			PostID:    postID,
			UserID:    userID,
			Timestamp: time.Now().UTC(),
		})
	}
	return created, postID, nil
}

func (s *interactionService) UnlikeComment(ctx context.Context, userID, commentID string) (bool, error) {
	deleted, err := s.interactions.DeleteCommentLike(ctx, userID, commentID)
	if err != nil {
		return false, fmt.Errorf("failed to unlike comment: %w", err)
	}
	if deleted {
		s.metrics.InteractionsDeleted.WithLabelValues(string(models.KindCommentLike)).Inc()
	}
	return deleted, nil
}

func (s *interactionService) GetPostInteractions(ctx context.Context, postID string) ([]models.Interaction, error) {
	interactions, err := s.interactions.GetByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post interactions: %w", err)
	}
	return interactions, nil
}

func (s *interactionService) GetPostCounters(ctx context.Context, postID string) (*models.Counters, error) {
	counters, err := s.posts.GetCounters(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get counters: %w", err)
	}
	if counters == nil {
		return nil, ErrPostNotFound
	}
	return counters, nil
}

func (s *interactionService) GetUserSnapshot(ctx context.Context, userID, postID string) ([]models.Interaction, error) {
	interactions, err := s.interactions.GetByUser(ctx, userID, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user snapshot: %w", err)
	}
	return interactions, nil
}

func (s *interactionService) GetPostStatuses(ctx context.Context, userID string, postIDs []string) ([]models.PostStatus, error) {
	statuses, err := s.interactions.GetPostStatuses(ctx, userID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get post statuses: %w", err)
	}
	return statuses, nil
}
