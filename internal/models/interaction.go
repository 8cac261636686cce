package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies one of the four interaction variants
type Kind string

const (
	KindLike        Kind = "like"
	KindSave        Kind = "save"
	KindComment     Kind = "comment"
	KindCommentLike Kind = "comment_like"
)

// IsPresenceFlag reports whether at most one interaction of this kind may
// exist per (user, target) pair
func (k Kind) IsPresenceFlag() bool {
	return k == KindLike || k == KindSave || k == KindCommentLike
}

// Valid reports whether k is one of the four known kinds
func (k Kind) Valid() bool {
	switch k {
	case KindLike, KindSave, KindComment, KindCommentLike:
		return true
	}
	return false
}

// Interaction is the closed union over the four interaction variants. Each
// variant carries exactly the fields its kind needs.
type Interaction interface {
	Kind() Kind
	User() string
	// Post returns the owning post ID. For comment likes this is denormalized
	// and may temporarily hold a placeholder until the server confirms.
	Post() string
	OccurredAt() time.Time
}

// Like marks a post as liked by a user
type Like struct {
	UserID    string    `json:"user_id"`
	PostType  string    `json:"post_type"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l Like) Kind() Kind            { return KindLike }
func (l Like) User() string          { return l.UserID }
func (l Like) Post() string          { return l.PostID }
func (l Like) OccurredAt() time.Time { return l.CreatedAt }

// Save marks a post as saved by a user
type Save struct {
	UserID    string    `json:"user_id"`
	PostType  string    `json:"post_type"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Save) Kind() Kind            { return KindSave }
func (s Save) User() string          { return s.UserID }
func (s Save) Post() string          { return s.PostID }
func (s Save) OccurredAt() time.Time { return s.CreatedAt }

// Comment is a text comment on a post, optionally replying to another comment
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Comment) Kind() Kind            { return KindComment }
func (c Comment) User() string          { return c.UserID }
func (c Comment) Post() string          { return c.PostID }
func (c Comment) OccurredAt() time.Time { return c.CreatedAt }

// CommentLike marks a comment as liked by a user. PostID is denormalized for
// cache indexing; the comment ID is the semantic key.
type CommentLike struct {
	UserID    string    `json:"user_id"`
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (cl CommentLike) Kind() Kind            { return KindCommentLike }
func (cl CommentLike) User() string          { return cl.UserID }
func (cl CommentLike) Post() string          { return cl.PostID }
func (cl CommentLike) OccurredAt() time.Time { return cl.CreatedAt }

// Envelope makes the union serializable: a kind tag plus the variant payload
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Wrap serializes an interaction into its envelope
func Wrap(in Interaction) (Envelope, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s interaction: %w", in.Kind(), err)
	}
	return Envelope{Kind: in.Kind(), Payload: payload}, nil
}

// Unwrap deserializes an envelope back into its concrete variant
func Unwrap(env Envelope) (Interaction, error) {
	switch env.Kind {
	case KindLike:
		var l Like
		if err := json.Unmarshal(env.Payload, &l); err != nil {
			return nil, fmt.Errorf("failed to unmarshal like: %w", err)
		}
		return l, nil
	case KindSave:
		var s Save
		if err := json.Unmarshal(env.Payload, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal save: %w", err)
		}
		return s, nil
	case KindComment:
		var c Comment
		if err := json.Unmarshal(env.Payload, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal comment: %w", err)
		}
		return c, nil
	case KindCommentLike:
		var cl CommentLike
		if err := json.Unmarshal(env.Payload, &cl); err != nil {
			return nil, fmt.Errorf("failed to unmarshal comment like: %w", err)
		}
		return cl, nil
	default:
		return nil, fmt.Errorf("unknown interaction kind %q", env.Kind)
	}
}
