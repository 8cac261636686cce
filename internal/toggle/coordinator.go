package toggle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Mudassar864/yaopets-sub001/internal/cache"
	"github.com/Mudassar864/yaopets-sub001/internal/client"
	"github.com/Mudassar864/yaopets-sub001/internal/models"
	"github.com/Mudassar864/yaopets-sub001/pkg/logger"
)

// placeholderPostID marks a comment like whose owning post is not yet known;
// the server resolves the real post ID on confirmation
const placeholderPostID = "pending"

// Op distinguishes the two directions of a toggle commit
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// Result is the explicit outcome of one network commit. Toggles never block
// the caller on it; the configured result hook receives it.
type Result struct {
	Kind      models.Kind
	PostID    string
	CommentID string
	Op        Op
	Synced    bool
	Err       error
}

// Dispatcher runs a commit task. The default dispatcher runs it on its own
// goroutine; tests substitute a synchronous one.
type Dispatcher func(task func())

// Option configures a Coordinator
type Option func(*Coordinator)

// WithDispatcher overrides how commits are scheduled
func WithDispatcher(d Dispatcher) Option {
	return func(c *Coordinator) { c.dispatch = d }
}

// WithResultHook registers a callback invoked with every commit result
func WithResultHook(hook func(Result)) Option {
	return func(c *Coordinator) { c.onResult = hook }
}

// Coordinator is the single entry point UI actions call. It owns the
// optimistic-update plus commit sequencing: the local cache flips first, the
// returned boolean reflects the flip, and the server call follows without
// blocking the caller. A failed call never rolls the cache back; the sync
// reconciler repairs divergence later.
//
// One Coordinator serves exactly one user session. Switching users means
// constructing a new Coordinator over that user's own cache scope.
type Coordinator struct {
	userID   string
	cache    *cache.Cache
	api      client.API
	log      *logger.Logger
	dispatch Dispatcher
	onResult func(Result)
	wg       sync.WaitGroup
}

// NewCoordinator builds the session coordinator for one user. The cache scope
// is created here so two users can never share a record.
func NewCoordinator(userID string, store cache.KVStore, api client.API, log *logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		userID: userID,
		cache:  cache.New(userID, store, log),
		api:    api,
		log:    log,
	}
	c.dispatch = func(task func()) {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			task()
		}()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache exposes the session's cache for membership queries and reconciliation
func (c *Coordinator) Cache() *cache.Cache {
	return c.cache
}

// ToggleLike flips the like state of a post and returns the new state. The
// server commit happens off the caller's path.
func (c *Coordinator) ToggleLike(postType, postID string) bool {
	return c.togglePresence(models.KindLike, postType, postID, c.cache.IsLiked(postID))
}

// ToggleSave flips the save state of a post and returns the new state
func (c *Coordinator) ToggleSave(postType, postID string) bool {
	return c.togglePresence(models.KindSave, postType, postID, c.cache.IsSaved(postID))
}

func (c *Coordinator) togglePresence(kind models.Kind, postType, postID string, wasPresent bool) bool {
	nowPresent := !wasPresent

	if nowPresent {
		switch kind {
		case models.KindLike:
			c.cache.Add(models.Like{UserID: c.userID, PostType: postType, PostID: postID, CreatedAt: time.Now().UTC()})
		case models.KindSave:
			c.cache.Add(models.Save{UserID: c.userID, PostType: postType, PostID: postID, CreatedAt: time.Now().UTC()})
		}
	} else {
		c.cache.RemovePresence(kind, postID)
	}

	c.dispatch(func() {
		// The commit outlives the view that issued it
		ctx := context.Background()
		var err error
		op := OpRemove
		if nowPresent {
			op = OpAdd
			_, err = c.api.CreatePresence(ctx, kind, c.userID, postType, postID)
		} else {
			_, err = c.api.DeletePresence(ctx, kind, c.userID, postID)
		}
		c.settlePresence(kind, postID, "", op, err)
	})

	return nowPresent
}

// ToggleCommentLike flips the like state of a comment and returns the new
// state. The owning post is unknown until the server responds, so the cache
// entry temporarily carries a placeholder post ID.
func (c *Coordinator) ToggleCommentLike(commentID string) bool {
	wasPresent := c.cache.IsCommentLiked(commentID)
	nowPresent := !wasPresent

	if nowPresent {
		c.cache.Add(models.CommentLike{
			UserID:    c.userID,
			CommentID: commentID,
			PostID:    placeholderPostID,
			CreatedAt: time.Now().UTC(),
		})
	} else {
		c.cache.RemoveCommentLike(commentID)
	}

	c.dispatch(func() {
		ctx := context.Background()
		if nowPresent {
			postID, err := c.api.LikeComment(ctx, c.userID, commentID)
			if err == nil && postID != "" {
				c.cache.SetCommentLikePost(commentID, postID)
			}
			c.settlePresence(models.KindCommentLike, "", commentID, OpAdd, err)
			return
		}
		err := c.api.UnlikeComment(ctx, c.userID, commentID)
		c.settlePresence(models.KindCommentLike, "", commentID, OpRemove, err)
	})

	return nowPresent
}

// settlePresence records the commit outcome: tombstone failed removals so the
// reconciler retries them, and clear tombstones once a removal lands
func (c *Coordinator) settlePresence(kind models.Kind, postID, commentID string, op Op, err error) {
	switch {
	case err == nil && op == OpRemove:
		c.cache.ClearTombstone(kind, postID, commentID)
	case err != nil && op == OpRemove:
		c.cache.AddTombstone(cache.Tombstone{
			Kind:      kind,
			PostID:    postID,
			CommentID: commentID,
			CreatedAt: time.Now().UTC(),
		})
		c.log.WithError(err).WithField("kind", string(kind)).Warn("removal not synced, tombstoned for retry")
	case err != nil:
		// The optimistic entry stays; the reconciler pushes it later
		c.log.WithError(err).WithField("kind", string(kind)).Warn("toggle not synced, kept locally")
	}

	if c.onResult != nil {
		c.onResult(Result{
			Kind:      kind,
			PostID:    postID,
			CommentID: commentID,
			Op:        op,
			Synced:    err == nil,
			Err:       err,
		})
	}
}

// AddComment creates a comment through a synchronous server round trip: the
// comment ID must be minted authoritatively, so there is no optimistic path.
// Only on success is the comment cached; a failure is returned to the caller
// to surface.
func (c *Coordinator) AddComment(ctx context.Context, postID, content, parentID string) (*models.Comment, error) {
	comment, err := c.api.AddComment(ctx, c.userID, postID, content, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	c.cache.Add(*comment)
	return comment, nil
}

// Close drains in-flight commits; call at session end
func (c *Coordinator) Close() {
	c.wg.Wait()
}
