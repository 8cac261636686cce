package events

import "time"

const (
	SubjectPostLiked     = "post.liked"
	SubjectPostSaved     = "post.saved"
	SubjectPostCommented = "post.commented"
	SubjectCommentLiked  = "post.comment.liked"
)

// PostLikedEvent is published when a like or save is recorded
type PostLikedEvent struct {
	UserID    string    `json:"user_id"`
	PostType  string    `json:"post_type"`
	PostID    string    `json:"post_id"`
	Timestamp time.Time `json:"timestamp"`
}

// PostCommentedEvent is published when a comment is created
type PostCommentedEvent struct {
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CommentLikedEvent is published when a comment like is recorded
type CommentLikedEvent struct {
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}
