package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mudassar864/yaopets-sub001/internal/models"
)

func TestCreatePresence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/interactions", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "like", payload["type"])
		assert.Equal(t, "u1", payload["user_id"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"created":  true,
			"counters": map[string]int{"likes_count": 7},
		})
	}))
	defer server.Close()

	c := NewInteractionClient(server.URL, nil)
	counters, err := c.CreatePresence(context.Background(), models.KindLike, "u1", "pet", "p1")
	require.NoError(t, err)
	assert.Equal(t, int32(7), counters.LikesCount)
}

func TestDeletePresence_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
	}))
	defer server.Close()

	c := NewInteractionClient(server.URL, nil)
	_, err := c.DeletePresence(context.Background(), models.KindSave, "u1", "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "internal error")
}

func TestAddComment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/posts/p1/comments", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"comment": map[string]string{
				"id":      "c1",
				"user_id": "u1",
				"post_id": "p1",
				"content": "hello",
			},
		})
	}))
	defer server.Close()

	c := NewInteractionClient(server.URL, nil)
	comment, err := c.AddComment(context.Background(), "u1", "p1", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "c1", comment.ID)
}

func TestAddComment_MissingCommentInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer server.Close()

	c := NewInteractionClient(server.URL, nil)
	_, err := c.AddComment(context.Background(), "u1", "p1", "hello", "")
	require.Error(t, err)
}

func TestLikeComment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments/c1/likes", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"created": true,
			"post_id": "p9",
		})
	}))
	defer server.Close()

	c := NewInteractionClient(server.URL, nil)
	postID, err := c.LikeComment(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "p9", postID)
}

func TestUnlikeComment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/comments/c1/likes", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("userId"))
		json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
	}))
	defer server.Close()

	c := NewInteractionClient(server.URL, nil)
	require.NoError(t, c.UnlikeComment(context.Background(), "u1", "c1"))
}

func TestGetPostStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u1/posts/status", r.URL.Path)
		assert.Equal(t, "p1,p2", r.URL.Query().Get("postIds"))
		json.NewEncoder(w).Encode([]models.PostStatus{
			{PostID: "p1", IsLiked: true},
			{PostID: "p2", IsSaved: true},
		})
	}))
	defer server.Close()

	c := NewInteractionClient(server.URL, nil)
	statuses, err := c.GetPostStatuses(context.Background(), "u1", []string{"p1", "p2"})
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].IsLiked)
	assert.True(t, statuses[1].IsSaved)
}

func TestGetUserSnapshot_DecodesEnvelopes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u1/interactions", r.URL.Path)

		like, _ := models.Wrap(models.Like{UserID: "u1", PostID: "p1"})
		comment, _ := models.Wrap(models.Comment{ID: "c1", UserID: "u1", PostID: "p1", Content: "hi"})
		json.NewEncoder(w).Encode([]models.Envelope{like, comment})
	}))
	defer server.Close()

	c := NewInteractionClient(server.URL, nil)
	interactions, err := c.GetUserSnapshot(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Len(t, interactions, 2)

	assert.Equal(t, models.KindLike, interactions[0].Kind())
	comment, ok := interactions[1].(models.Comment)
	require.True(t, ok)
	assert.Equal(t, "c1", comment.ID)
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c := NewInteractionClient(server.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetComments(ctx, "p1")
	require.Error(t, err)
}
