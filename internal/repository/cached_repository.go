package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mudassar864/yaopets-sub001/internal/models"
	"github.com/Mudassar864/yaopets-sub001/pkg/logger"
)

func countersKey(postID string) string {
	return fmt.Sprintf("post:counters:%s", postID)
}

// CachedPostRepository is a cache-aside decorator for post counter reads.
// Redis failures are soft: the call falls through to the persistent store.
type CachedPostRepository struct {
	repo        PostRepository
	redisClient *redis.Client
	ttl         time.Duration
	log         *logger.Logger
}

func NewCachedPostRepository(repo PostRepository, redisClient *redis.Client, ttl time.Duration, log *logger.Logger) *CachedPostRepository {
	return &CachedPostRepository{
		repo:        repo,
		redisClient: redisClient,
		ttl:         ttl,
		log:         log,
	}
}

func (c *CachedPostRepository) Create(ctx context.Context, postType, postID string) error {
	if err := c.repo.Create(ctx, postType, postID); err != nil {
		return err
	}
	c.invalidate(ctx, postID)
	return nil
}

func (c *CachedPostRepository) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	return c.repo.GetByID(ctx, postID)
}

func (c *CachedPostRepository) GetCounters(ctx context.Context, postID string) (*models.Counters, error) {
	data, err := c.redisClient.Get(ctx, countersKey(postID)).Bytes()
	if err == nil {
		var counters models.Counters
		if err := json.Unmarshal(data, &counters); err == nil {
			return &counters, nil
		}
		// Unreadable cache entry, drop it and fall through
		c.invalidate(ctx, postID)
	} else if !errors.Is(err, redis.Nil) {
		c.log.WithError(err).Warn("redis counters read failed")
	}

	counters, err := c.repo.GetCounters(ctx, postID)
	if err != nil || counters == nil {
		return counters, err
	}

	if data, err := json.Marshal(counters); err == nil {
		if err := c.redisClient.Set(ctx, countersKey(postID), data, c.ttl).Err(); err != nil {
			c.log.WithError(err).Warn("redis counters write failed")
		}
	}
	return counters, nil
}

func (c *CachedPostRepository) Exists(ctx context.Context, postID string) (bool, error) {
	return c.repo.Exists(ctx, postID)
}

func (c *CachedPostRepository) invalidate(ctx context.Context, postID string) {
	if err := c.redisClient.Del(ctx, countersKey(postID)).Err(); err != nil {
		c.log.WithError(err).Warn("redis counters invalidation failed")
	}
}

// CachedInteractionRepository decorates the interaction store to invalidate
// cached post counters whenever a write may have adjusted them
type CachedInteractionRepository struct {
	InteractionRepository
	redisClient *redis.Client
	log         *logger.Logger
}

func NewCachedInteractionRepository(repo InteractionRepository, redisClient *redis.Client, log *logger.Logger) *CachedInteractionRepository {
	return &CachedInteractionRepository{
		InteractionRepository: repo,
		redisClient:           redisClient,
		log:                   log,
	}
}

func (c *CachedInteractionRepository) CreatePresence(ctx context.Context, kind models.Kind, userID, postType, postID string) (bool, error) {
	created, err := c.InteractionRepository.CreatePresence(ctx, kind, userID, postType, postID)
	if err == nil && created {
		c.invalidate(ctx, postID)
	}
	return created, err
}

func (c *CachedInteractionRepository) DeletePresence(ctx context.Context, kind models.Kind, userID, postID string) (bool, error) {
	deleted, err := c.InteractionRepository.DeletePresence(ctx, kind, userID, postID)
	if err == nil && deleted {
		c.invalidate(ctx, postID)
	}
	return deleted, err
}

func (c *CachedInteractionRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := c.InteractionRepository.CreateComment(ctx, comment); err != nil {
		return err
	}
	c.invalidate(ctx, comment.PostID)
	return nil
}

func (c *CachedInteractionRepository) DeleteComment(ctx context.Context, commentID, userID string) (bool, string, error) {
	deleted, postID, err := c.InteractionRepository.DeleteComment(ctx, commentID, userID)
	if err == nil && deleted {
		c.invalidate(ctx, postID)
	}
	return deleted, postID, err
}

func (c *CachedInteractionRepository) invalidate(ctx context.Context, postID string) {
	if err := c.redisClient.Del(ctx, countersKey(postID)).Err(); err != nil {
		c.log.WithError(err).Warn("redis counters invalidation failed")
	}
}
