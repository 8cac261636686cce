package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Mudassar864/yaopets-sub001/internal/models"
	"github.com/Mudassar864/yaopets-sub001/pkg/logger"
)

// Tombstone records a presence-flag removal whose network call failed, so the
// reconciler can re-issue the delete instead of resurrecting the interaction
type Tombstone struct {
	Kind      models.Kind `json:"kind"`
	PostID    string      `json:"post_id,omitempty"`
	CommentID string      `json:"comment_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// record is the persisted shape of one user's cache
type record struct {
	Interactions []models.Envelope `json:"interactions"`
	Tombstones   []Tombstone       `json:"tombstones,omitempty"`
}

// Cache is the per-user local copy of interaction facts. It is scoped to
// exactly one user; switching users means constructing a new Cache. Entries
// may be dropped and rebuilt from the authoritative store at any time, except
// local-only entries not yet transmitted, which only exist here.
type Cache struct {
	mu     sync.Mutex
	userID string
	store  KVStore
	log    *logger.Logger

	interactions []models.Interaction
	tombstones   []Tombstone
}

func cacheKey(userID string) string {
	return "interactions/" + userID
}

// New loads the user's cached record from the store. An unreadable or corrupt
// record loads as empty: presence-flag state is always rebuildable from the
// server.
func New(userID string, store KVStore, log *logger.Logger) *Cache {
	c := &Cache{
		userID: userID,
		store:  store,
		log:    log,
	}

	data, err := store.Get(cacheKey(userID))
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("cache unreadable, starting empty")
		return c
	}
	if data == nil {
		return c
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("cache corrupt, starting empty")
		return c
	}

	for _, env := range rec.Interactions {
		in, err := models.Unwrap(env)
		if err != nil {
			log.WithError(err).Warn("skipping unreadable cache entry")
			continue
		}
		c.interactions = append(c.interactions, in)
	}
	c.tombstones = rec.Tombstones
	return c
}

// UserID returns the user this cache is scoped to
func (c *Cache) UserID() string {
	return c.userID
}

// IsLiked reports whether the cache holds a like for the post
func (c *Cache) IsLiked(postID string) bool {
	return c.hasPresence(models.KindLike, postID)
}

// IsSaved reports whether the cache holds a save for the post
func (c *Cache) IsSaved(postID string) bool {
	return c.hasPresence(models.KindSave, postID)
}

// IsCommentCached reports whether the cache already holds the comment
func (c *Cache) IsCommentCached(commentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasCommentLocked(commentID)
}

// IsCommentLiked reports whether the cache holds a like for the comment
func (c *Cache) IsCommentLiked(commentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, in := range c.interactions {
		if cl, ok := in.(models.CommentLike); ok && cl.CommentID == commentID {
			return true
		}
	}
	return false
}

func (c *Cache) hasPresence(kind models.Kind, postID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, in := range c.interactions {
		if in.Kind() == kind && in.Post() == postID {
			return true
		}
	}
	return false
}

// Add records an interaction. Presence-flag kinds replace any existing entry
// for the same target; comments append, deduplicated by comment ID so repeated
// sync warm-ups stay idempotent. Adding clears any matching tombstone.
func (c *Cache) Add(in models.Interaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch v := in.(type) {
	case models.Like, models.Save:
		c.removePresenceLocked(in.Kind(), in.Post())
		c.clearTombstoneLocked(in.Kind(), in.Post(), "")
	case models.CommentLike:
		c.removeCommentLikeLocked(v.CommentID)
		c.clearTombstoneLocked(models.KindCommentLike, "", v.CommentID)
	case models.Comment:
		if v.ID != "" && c.hasCommentLocked(v.ID) {
			return
		}
	}

	c.interactions = append(c.interactions, in)
	c.persistLocked()
}

// RemovePresence deletes a like or save for the post
func (c *Cache) RemovePresence(kind models.Kind, postID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removePresenceLocked(kind, postID)
	c.persistLocked()
}

// RemoveCommentLike deletes the like for the comment
func (c *Cache) RemoveCommentLike(commentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeCommentLikeLocked(commentID)
	c.persistLocked()
}

// RemoveComment deletes a cached comment by ID
func (c *Cache) RemoveComment(commentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.interactions[:0]
	for _, in := range c.interactions {
		if cm, ok := in.(models.Comment); ok && cm.ID == commentID {
			continue
		}
		kept = append(kept, in)
	}
	c.interactions = kept
	c.persistLocked()
}

// SetCommentLikePost corrects the denormalized post ID of a cached comment
// like once the server has confirmed the owning post
func (c *Cache) SetCommentLikePost(commentID, postID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, in := range c.interactions {
		if cl, ok := in.(models.CommentLike); ok && cl.CommentID == commentID {
			cl.PostID = postID
			c.interactions[i] = cl
		}
	}
	c.persistLocked()
}

// ListByType returns the target IDs of all cached interactions of one kind:
// post IDs for likes and saves, comment IDs for comments and comment likes
func (c *Cache) ListByType(kind models.Kind) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for _, in := range c.interactions {
		if in.Kind() != kind {
			continue
		}
		switch v := in.(type) {
		case models.Comment:
			ids = append(ids, v.ID)
		case models.CommentLike:
			ids = append(ids, v.CommentID)
		default:
			ids = append(ids, in.Post())
		}
	}
	return ids
}

// Interactions returns a snapshot copy of all cached interactions
func (c *Cache) Interactions() []models.Interaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Interaction, len(c.interactions))
	copy(out, c.interactions)
	return out
}

// AddTombstone records a failed removal for the reconciler to retry
func (c *Cache) AddTombstone(t Tombstone) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.tombstones {
		if existing.Kind == t.Kind && existing.PostID == t.PostID && existing.CommentID == t.CommentID {
			return
		}
	}
	c.tombstones = append(c.tombstones, t)
	c.persistLocked()
}

// ClearTombstone drops a tombstone once its removal reached the server
func (c *Cache) ClearTombstone(kind models.Kind, postID, commentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearTombstoneLocked(kind, postID, commentID)
	c.persistLocked()
}

// HasTombstone reports whether a failed removal is pending for the target
func (c *Cache) HasTombstone(kind models.Kind, postID, commentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tombstones {
		if t.Kind == kind && t.PostID == postID && t.CommentID == commentID {
			return true
		}
	}
	return false
}

// Tombstones returns a snapshot copy of pending removals
func (c *Cache) Tombstones() []Tombstone {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Tombstone, len(c.tombstones))
	copy(out, c.tombstones)
	return out
}

func (c *Cache) removePresenceLocked(kind models.Kind, postID string) {
	kept := c.interactions[:0]
	for _, in := range c.interactions {
		if in.Kind() == kind && in.Post() == postID {
			continue
		}
		kept = append(kept, in)
	}
	c.interactions = kept
}

func (c *Cache) removeCommentLikeLocked(commentID string) {
	kept := c.interactions[:0]
	for _, in := range c.interactions {
		if cl, ok := in.(models.CommentLike); ok && cl.CommentID == commentID {
			continue
		}
		kept = append(kept, in)
	}
	c.interactions = kept
}

func (c *Cache) hasCommentLocked(commentID string) bool {
	for _, in := range c.interactions {
		if cm, ok := in.(models.Comment); ok && cm.ID == commentID {
			return true
		}
	}
	return false
}

func (c *Cache) clearTombstoneLocked(kind models.Kind, postID, commentID string) {
	kept := c.tombstones[:0]
	for _, t := range c.tombstones {
		if t.Kind == kind && t.PostID == postID && t.CommentID == commentID {
			continue
		}
		kept = append(kept, t)
	}
	c.tombstones = kept
}

// persistLocked writes the record through to durable storage. A write failure
// keeps the in-memory state and is logged; the next mutation retries.
func (c *Cache) persistLocked() {
	rec := record{Tombstones: c.tombstones}
	rec.Interactions = make([]models.Envelope, 0, len(c.interactions))
	for _, in := range c.interactions {
		env, err := models.Wrap(in)
		if err != nil {
			c.log.WithError(err).Warn("failed to encode cache entry")
			continue
		}
		rec.Interactions = append(rec.Interactions, env)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		c.log.WithError(err).Warn("failed to encode cache record")
		return
	}
	if err := c.store.Put(cacheKey(c.userID), data); err != nil {
		c.log.WithError(err).WithField("user_id", c.userID).Warn(
			fmt.Sprintf("failed to persist cache (%d entries kept in memory)", len(c.interactions)))
	}
}
