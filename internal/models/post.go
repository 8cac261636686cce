package models

import "time"

// Post holds the denormalized aggregate counters maintained by the
// authoritative store. Counters always equal the cardinality of matching
// interaction rows.
type Post struct {
	ID            string    `json:"id" db:"id"`
	Type          string    `json:"post_type" db:"post_type"`
	LikesCount    int32     `json:"likes_count" db:"likes_count"`
	CommentsCount int32     `json:"comments_count" db:"comments_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Counters is the count-only projection of a post
type Counters struct {
	LikesCount    int32 `json:"likes_count" db:"likes_count"`
	CommentsCount int32 `json:"comments_count" db:"comments_count"`
}

// PostStatus is the per-post membership projection for one user, used to
// render liked/saved indicators across a feed and by the sync reconciler
type PostStatus struct {
	PostID  string `json:"post_id"`
	IsLiked bool   `json:"is_liked"`
	IsSaved bool   `json:"is_saved"`
}
