package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mudassar864/yaopets-sub001/internal/models"
	"github.com/Mudassar864/yaopets-sub001/pkg/logger"
)

func newTestCache(t *testing.T) (*Cache, KVStore) {
	t.Helper()
	store := NewMemoryStore()
	return New("u1", store, logger.NewNop()), store
}

func TestAddPresence_ReplacesExisting(t *testing.T) {
	c, _ := newTestCache(t)

	c.Add(models.Like{UserID: "u1", PostID: "p1", CreatedAt: time.Now()})
	c.Add(models.Like{UserID: "u1", PostID: "p1", CreatedAt: time.Now()})

	assert.True(t, c.IsLiked("p1"))
	assert.Len(t, c.ListByType(models.KindLike), 1)
}

func TestLikeAndSaveAreIndependent(t *testing.T) {
	c, _ := newTestCache(t)

	c.Add(models.Like{UserID: "u1", PostID: "p1"})

	assert.True(t, c.IsLiked("p1"))
	assert.False(t, c.IsSaved("p1"))

	c.Add(models.Save{UserID: "u1", PostID: "p1"})
	c.RemovePresence(models.KindLike, "p1")

	assert.False(t, c.IsLiked("p1"))
	assert.True(t, c.IsSaved("p1"))
}

func TestAddComment_DedupesByID(t *testing.T) {
	c, _ := newTestCache(t)

	c.Add(models.Comment{ID: "c1", UserID: "u1", PostID: "p1", Content: "so cute"})
	c.Add(models.Comment{ID: "c1", UserID: "u1", PostID: "p1", Content: "so cute"})
	c.Add(models.Comment{ID: "c2", UserID: "u1", PostID: "p1", Content: "so cute"})

	assert.ElementsMatch(t, []string{"c1", "c2"}, c.ListByType(models.KindComment))
}

func TestPersistenceAcrossRestart(t *testing.T) {
	store := NewMemoryStore()
	log := logger.NewNop()

	first := New("u1", store, log)
	first.Add(models.Like{UserID: "u1", PostID: "p1"})
	first.Add(models.Save{UserID: "u1", PostID: "p2"})
	first.Add(models.CommentLike{UserID: "u1", CommentID: "c1", PostID: "p1"})
	first.AddTombstone(Tombstone{Kind: models.KindLike, PostID: "p9", CreatedAt: time.Now()})

	// A fresh Cache over the same store sees everything the first one wrote
	second := New("u1", store, log)
	assert.True(t, second.IsLiked("p1"))
	assert.True(t, second.IsSaved("p2"))
	assert.True(t, second.IsCommentLiked("c1"))
	assert.True(t, second.HasTombstone(models.KindLike, "p9", ""))
}

func TestCorruptRecordLoadsEmpty(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put("interactions/u1", []byte("{not json")))

	c := New("u1", store, logger.NewNop())
	assert.Empty(t, c.Interactions())

	// The cache stays usable and overwrites the corrupt record
	c.Add(models.Like{UserID: "u1", PostID: "p1"})
	again := New("u1", store, logger.NewNop())
	assert.True(t, again.IsLiked("p1"))
}

func TestTombstoneLifecycle(t *testing.T) {
	c, _ := newTestCache(t)

	c.AddTombstone(Tombstone{Kind: models.KindSave, PostID: "p1", CreatedAt: time.Now()})
	c.AddTombstone(Tombstone{Kind: models.KindSave, PostID: "p1", CreatedAt: time.Now()})
	assert.Len(t, c.Tombstones(), 1)

	// Re-adding the interaction clears its tombstone
	c.Add(models.Save{UserID: "u1", PostID: "p1"})
	assert.False(t, c.HasTombstone(models.KindSave, "p1", ""))

	c.AddTombstone(Tombstone{Kind: models.KindCommentLike, CommentID: "c1", CreatedAt: time.Now()})
	c.ClearTombstone(models.KindCommentLike, "", "c1")
	assert.Empty(t, c.Tombstones())
}

func TestSetCommentLikePost(t *testing.T) {
	c, _ := newTestCache(t)

	c.Add(models.CommentLike{UserID: "u1", CommentID: "c1", PostID: "pending"})
	c.SetCommentLikePost("c1", "p4")

	for _, in := range c.Interactions() {
		if cl, ok := in.(models.CommentLike); ok && cl.CommentID == "c1" {
			assert.Equal(t, "p4", cl.PostID)
			return
		}
	}
	t.Fatal("comment like not found in cache")
}

func TestRemoveComment(t *testing.T) {
	c, _ := newTestCache(t)

	c.Add(models.Comment{ID: "c1", UserID: "u1", PostID: "p1", Content: "hi"})
	c.Add(models.Comment{ID: "c2", UserID: "u1", PostID: "p1", Content: "bye"})
	c.RemoveComment("c1")

	assert.Equal(t, []string{"c2"}, c.ListByType(models.KindComment))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/cache.db"

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	c := New("u1", store, logger.NewNop())
	c.Add(models.Like{UserID: "u1", PostID: "p1"})
	c.Add(models.Comment{ID: "c1", UserID: "u1", PostID: "p1", Content: "hello"})
	require.NoError(t, store.Close())

	// Reopen the file, simulating an app restart
	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	c2 := New("u1", reopened, logger.NewNop())
	assert.True(t, c2.IsLiked("p1"))
	assert.True(t, c2.IsCommentCached("c1"))
}

func TestMemoryStoreDeleteAndMiss(t *testing.T) {
	store := NewMemoryStore()

	data, err := store.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, store.Put("k", []byte("v")))
	require.NoError(t, store.Delete("k"))

	data, err = store.Get("k")
	require.NoError(t, err)
	assert.Nil(t, data)
}
