package toggle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mudassar864/yaopets-sub001/internal/cache"
	"github.com/Mudassar864/yaopets-sub001/internal/models"
	"github.com/Mudassar864/yaopets-sub001/pkg/logger"
)

type fakeAPI struct {
	createPresenceFunc func(ctx context.Context, kind models.Kind, userID, postType, postID string) (*models.Counters, error)
	deletePresenceFunc func(ctx context.Context, kind models.Kind, userID, postID string) (*models.Counters, error)
	addCommentFunc     func(ctx context.Context, userID, postID, content, parentID string) (*models.Comment, error)
	likeCommentFunc    func(ctx context.Context, userID, commentID string) (string, error)
	unlikeCommentFunc  func(ctx context.Context, userID, commentID string) error
}

func (f *fakeAPI) CreatePresence(ctx context.Context, kind models.Kind, userID, postType, postID string) (*models.Counters, error) {
	if f.createPresenceFunc != nil {
		return f.createPresenceFunc(ctx, kind, userID, postType, postID)
	}
	return &models.Counters{}, nil
}

func (f *fakeAPI) DeletePresence(ctx context.Context, kind models.Kind, userID, postID string) (*models.Counters, error) {
	if f.deletePresenceFunc != nil {
		return f.deletePresenceFunc(ctx, kind, userID, postID)
	}
	return &models.Counters{}, nil
}

func (f *fakeAPI) AddComment(ctx context.Context, userID, postID, content, parentID string) (*models.Comment, error) {
	if f.addCommentFunc != nil {
		return f.addCommentFunc(ctx, userID, postID, content, parentID)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) LikeComment(ctx context.Context, userID, commentID string) (string, error) {
	if f.likeCommentFunc != nil {
		return f.likeCommentFunc(ctx, userID, commentID)
	}
	return "", nil
}

func (f *fakeAPI) UnlikeComment(ctx context.Context, userID, commentID string) error {
	if f.unlikeCommentFunc != nil {
		return f.unlikeCommentFunc(ctx, userID, commentID)
	}
	return nil
}

func (f *fakeAPI) GetPostStatuses(ctx context.Context, userID string, postIDs []string) ([]models.PostStatus, error) {
	return nil, nil
}

func (f *fakeAPI) GetUserSnapshot(ctx context.Context, userID, postID string) ([]models.Interaction, error) {
	return nil, nil
}

func (f *fakeAPI) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	return nil, nil
}

// synchronous runs commits inline so tests observe their effects immediately
func synchronous(task func()) { task() }

func newTestCoordinator(t *testing.T, api *fakeAPI, opts ...Option) *Coordinator {
	t.Helper()
	opts = append([]Option{WithDispatcher(synchronous)}, opts...)
	return NewCoordinator("u1", cache.NewMemoryStore(), api, logger.NewNop(), opts...)
}

func TestToggleLike_DoubleToggleRestoresState(t *testing.T) {
	c := newTestCoordinator(t, &fakeAPI{})

	assert.True(t, c.ToggleLike("pet", "p1"))
	assert.True(t, c.Cache().IsLiked("p1"))

	assert.False(t, c.ToggleLike("pet", "p1"))
	assert.False(t, c.Cache().IsLiked("p1"))
	assert.Empty(t, c.Cache().Tombstones())
}

func TestToggleLike_NoRollbackOnNetworkFailure(t *testing.T) {
	var results []Result
	api := &fakeAPI{
		createPresenceFunc: func(ctx context.Context, kind models.Kind, userID, postType, postID string) (*models.Counters, error) {
			return nil, errors.New("connection refused")
		},
	}
	c := newTestCoordinator(t, api, WithResultHook(func(r Result) { results = append(results, r) }))

	liked := c.ToggleLike("pet", "p1")

	// The optimistic flip survives the failed commit
	assert.True(t, liked)
	assert.True(t, c.Cache().IsLiked("p1"))
	require.Len(t, results, 1)
	assert.False(t, results[0].Synced)
	assert.Equal(t, OpAdd, results[0].Op)
}

func TestToggleLike_FailedRemovalIsTombstoned(t *testing.T) {
	api := &fakeAPI{
		deletePresenceFunc: func(ctx context.Context, kind models.Kind, userID, postID string) (*models.Counters, error) {
			return nil, errors.New("timeout")
		},
	}
	c := newTestCoordinator(t, api)

	c.ToggleLike("pet", "p1")
	c.ToggleLike("pet", "p1")

	// Locally unliked, but the server still thinks liked: the tombstone tells
	// the reconciler to re-issue the delete instead of pulling the like back
	assert.False(t, c.Cache().IsLiked("p1"))
	assert.True(t, c.Cache().HasTombstone(models.KindLike, "p1", ""))
}

func TestToggleSave_IndependentOfLike(t *testing.T) {
	c := newTestCoordinator(t, &fakeAPI{})

	c.ToggleLike("pet", "p1")
	c.ToggleSave("pet", "p1")
	c.ToggleLike("pet", "p1")

	assert.False(t, c.Cache().IsLiked("p1"))
	assert.True(t, c.Cache().IsSaved("p1"))
}

func TestToggleCommentLike_PlaceholderResolved(t *testing.T) {
	api := &fakeAPI{
		likeCommentFunc: func(ctx context.Context, userID, commentID string) (string, error) {
			return "p9", nil
		},
	}
	c := newTestCoordinator(t, api)

	assert.True(t, c.ToggleCommentLike("c1"))
	assert.True(t, c.Cache().IsCommentLiked("c1"))

	for _, in := range c.Cache().Interactions() {
		if cl, ok := in.(models.CommentLike); ok {
			assert.Equal(t, "p9", cl.PostID)
		}
	}
}

func TestToggleCommentLike_FailedAddKeepsPlaceholder(t *testing.T) {
	api := &fakeAPI{
		likeCommentFunc: func(ctx context.Context, userID, commentID string) (string, error) {
			return "", errors.New("network down")
		},
	}
	c := newTestCoordinator(t, api)

	assert.True(t, c.ToggleCommentLike("c1"))
	assert.True(t, c.Cache().IsCommentLiked("c1"))

	for _, in := range c.Cache().Interactions() {
		if cl, ok := in.(models.CommentLike); ok {
			assert.Equal(t, placeholderPostID, cl.PostID)
		}
	}
}

func TestToggleCommentLike_FailedRemovalIsTombstoned(t *testing.T) {
	api := &fakeAPI{
		unlikeCommentFunc: func(ctx context.Context, userID, commentID string) error {
			return errors.New("timeout")
		},
	}
	c := newTestCoordinator(t, api)

	c.ToggleCommentLike("c1")
	c.ToggleCommentLike("c1")

	assert.False(t, c.Cache().IsCommentLiked("c1"))
	assert.True(t, c.Cache().HasTombstone(models.KindCommentLike, "", "c1"))
}

func TestAddComment_ServerFirst(t *testing.T) {
	api := &fakeAPI{
		addCommentFunc: func(ctx context.Context, userID, postID, content, parentID string) (*models.Comment, error) {
			return &models.Comment{
				ID:        uuid.New().String(),
				UserID:    userID,
				PostID:    postID,
				Content:   content,
				CreatedAt: time.Now().UTC(),
			}, nil
		},
	}
	c := newTestCoordinator(t, api)

	comment, err := c.AddComment(context.Background(), "p1", "welcome home", "")
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)
	assert.True(t, c.Cache().IsCommentCached(comment.ID))
}

func TestAddComment_FailureCachesNothing(t *testing.T) {
	api := &fakeAPI{
		addCommentFunc: func(ctx context.Context, userID, postID, content, parentID string) (*models.Comment, error) {
			return nil, errors.New("service unavailable")
		},
	}
	c := newTestCoordinator(t, api)

	_, err := c.AddComment(context.Background(), "p1", "welcome home", "")
	require.Error(t, err)
	assert.Empty(t, c.Cache().ListByType(models.KindComment))
}

func TestAsyncDispatcherDrainsOnClose(t *testing.T) {
	done := make(chan struct{})
	api := &fakeAPI{
		createPresenceFunc: func(ctx context.Context, kind models.Kind, userID, postType, postID string) (*models.Counters, error) {
			close(done)
			return &models.Counters{}, nil
		},
	}
	c := NewCoordinator("u1", cache.NewMemoryStore(), api, logger.NewNop())

	assert.True(t, c.ToggleLike("pet", "p1"))
	c.Close()

	select {
	case <-done:
	default:
		t.Fatal("commit did not run before Close returned")
	}
}
