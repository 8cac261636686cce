package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Mudassar864/yaopets-sub001/internal/models"
)

// API is the boundary contract by which the client-side engine reaches the
// authoritative store. The toggle coordinator and the sync reconciler consume
// this interface; the HTTP client below is the production implementation.
type API interface {
	CreatePresence(ctx context.Context, kind models.Kind, userID, postType, postID string) (*models.Counters, error)
	DeletePresence(ctx context.Context, kind models.Kind, userID, postID string) (*models.Counters, error)
	AddComment(ctx context.Context, userID, postID, content, parentID string) (*models.Comment, error)
	LikeComment(ctx context.Context, userID, commentID string) (string, error)
	UnlikeComment(ctx context.Context, userID, commentID string) error
	GetPostStatuses(ctx context.Context, userID string, postIDs []string) ([]models.PostStatus, error)
	GetUserSnapshot(ctx context.Context, userID, postID string) ([]models.Interaction, error)
	GetComments(ctx context.Context, postID string) ([]models.Comment, error)
}

// InteractionClient talks to the interaction service over HTTP JSON
type InteractionClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewInteractionClient creates a client for the given service base URL. The
// http.Client owns timeout policy; pass nil for the default client.
func NewInteractionClient(baseURL string, httpClient *http.Client) *InteractionClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &InteractionClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type presencePayload struct {
	UserID   string `json:"user_id"`
	PostType string `json:"post_type,omitempty"`
	PostID   string `json:"post_id"`
	Kind     string `json:"type"`
}

type presenceResult struct {
	Created  bool             `json:"created"`
	Deleted  bool             `json:"deleted"`
	Counters *models.Counters `json:"counters"`
}

func (c *InteractionClient) CreatePresence(ctx context.Context, kind models.Kind, userID, postType, postID string) (*models.Counters, error) {
	var result presenceResult
	err := c.do(ctx, http.MethodPost, "/interactions", presencePayload{
		UserID:   userID,
		PostType: postType,
		PostID:   postID,
		Kind:     string(kind),
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Counters, nil
}

func (c *InteractionClient) DeletePresence(ctx context.Context, kind models.Kind, userID, postID string) (*models.Counters, error) {
	var result presenceResult
	err := c.do(ctx, http.MethodDelete, "/interactions", presencePayload{
		UserID: userID,
		PostID: postID,
		Kind:   string(kind),
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Counters, nil
}

func (c *InteractionClient) AddComment(ctx context.Context, userID, postID, content, parentID string) (*models.Comment, error) {
	payload := map[string]string{
		"user_id":   userID,
		"content":   content,
		"parent_id": parentID,
	}
	var result struct {
		Comment *models.Comment `json:"comment"`
	}
	err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", payload, &result)
	if err != nil {
		return nil, err
	}
	if result.Comment == nil {
		return nil, fmt.Errorf("server returned no comment")
	}
	return result.Comment, nil
}

func (c *InteractionClient) LikeComment(ctx context.Context, userID, commentID string) (string, error) {
	payload := map[string]string{"user_id": userID}
	var result struct {
		PostID string `json:"post_id"`
	}
	err := c.do(ctx, http.MethodPost, "/comments/"+url.PathEscape(commentID)+"/likes", payload, &result)
	if err != nil {
		return "", err
	}
	return result.PostID, nil
}

func (c *InteractionClient) UnlikeComment(ctx context.Context, userID, commentID string) error {
	path := fmt.Sprintf("/comments/%s/likes?userId=%s", url.PathEscape(commentID), url.QueryEscape(userID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *InteractionClient) GetPostStatuses(ctx context.Context, userID string, postIDs []string) ([]models.PostStatus, error) {
	path := fmt.Sprintf("/users/%s/posts/status?postIds=%s",
		url.PathEscape(userID),
		url.QueryEscape(strings.Join(postIDs, ",")),
	)
	var statuses []models.PostStatus
	if err := c.do(ctx, http.MethodGet, path, nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (c *InteractionClient) GetUserSnapshot(ctx context.Context, userID, postID string) ([]models.Interaction, error) {
	path := "/users/" + url.PathEscape(userID) + "/interactions"
	if postID != "" {
		path += "?postId=" + url.QueryEscape(postID)
	}

	var envelopes []models.Envelope
	if err := c.do(ctx, http.MethodGet, path, nil, &envelopes); err != nil {
		return nil, err
	}

	interactions := make([]models.Interaction, 0, len(envelopes))
	for _, env := range envelopes {
		in, err := models.Unwrap(env)
		if err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
		interactions = append(interactions, in)
	}
	return interactions, nil
}

func (c *InteractionClient) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID)+"/comments", nil, &comments)
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// do issues a request and decodes the JSON response. Any non-2xx status is an
// unambiguous failure.
func (c *InteractionClient) do(ctx context.Context, method, path string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
