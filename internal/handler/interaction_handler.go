package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Mudassar864/yaopets-sub001/internal/models"
	"github.com/Mudassar864/yaopets-sub001/internal/service"
	"github.com/Mudassar864/yaopets-sub001/pkg/logger"
	"github.com/Mudassar864/yaopets-sub001/pkg/validation"
)

// InteractionHandler exposes the interaction service over HTTP JSON
type InteractionHandler struct {
	service   service.InteractionService
	validator *validation.Validator
	log       *logger.Logger
}

func NewInteractionHandler(svc service.InteractionService, v *validation.Validator, log *logger.Logger) *InteractionHandler {
	return &InteractionHandler{
		service:   svc,
		validator: v,
		log:       log,
	}
}

// Register mounts all interaction routes on the router
func (h *InteractionHandler) Register(r *mux.Router) {
	r.HandleFunc("/posts", h.RegisterPost).Methods(http.MethodPost)
	r.HandleFunc("/interactions", h.CreateInteraction).Methods(http.MethodPost)
	r.HandleFunc("/interactions", h.DeleteInteraction).Methods(http.MethodDelete)
	r.HandleFunc("/posts/{postId}/comments", h.AddComment).Methods(http.MethodPost)
	r.HandleFunc("/posts/{postId}/comments", h.GetComments).Methods(http.MethodGet)
	r.HandleFunc("/comments/{commentId}", h.DeleteComment).Methods(http.MethodDelete)
	r.HandleFunc("/comments/{commentId}/likes", h.LikeComment).Methods(http.MethodPost)
	r.HandleFunc("/comments/{commentId}/likes", h.UnlikeComment).Methods(http.MethodDelete)
	r.HandleFunc("/posts/{postId}/interactions", h.GetPostInteractions).Methods(http.MethodGet)
	r.HandleFunc("/users/{userId}/interactions", h.GetUserSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/users/{userId}/posts/status", h.GetPostStatuses).Methods(http.MethodGet)
}

type registerPostRequest struct {
	PostType string `json:"post_type" validate:"required"`
	PostID   string `json:"post_id" validate:"required"`
}

type interactionRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	PostType string `json:"post_type"`
	PostID   string `json:"post_id" validate:"required"`
	Kind     string `json:"type" validate:"required,interaction_kind"`
}

type presenceResponse struct {
	Created  bool             `json:"created,omitempty"`
	Deleted  bool             `json:"deleted,omitempty"`
	Counters *models.Counters `json:"counters,omitempty"`
}

type addCommentRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Content  string `json:"content" validate:"required,max=2000"`
	ParentID string `json:"parent_id"`
}

type commentResponse struct {
	Comment  *models.Comment  `json:"comment"`
	Counters *models.Counters `json:"counters"`
}

type commentLikeRequest struct {
	UserID string `json:"user_id" validate:"required"`
	PostID string `json:"post_id"`
}

type commentLikeResponse struct {
	Created bool   `json:"created,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
	PostID  string `json:"post_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *InteractionHandler) RegisterPost(w http.ResponseWriter, r *http.Request) {
	var req registerPostRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.RegisterPost(r.Context(), req.PostType, req.PostID); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"post_id": req.PostID})
}

func (h *InteractionHandler) CreateInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if !h.decode(w, r, &req) {
		return
	}

	counters, created, err := h.service.CreatePresence(r.Context(), models.Kind(req.Kind), req.UserID, req.PostType, req.PostID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presenceResponse{Created: created, Counters: counters})
}

func (h *InteractionHandler) DeleteInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if !h.decode(w, r, &req) {
		return
	}

	counters, deleted, err := h.service.DeletePresence(r.Context(), models.Kind(req.Kind), req.UserID, req.PostID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presenceResponse{Deleted: deleted, Counters: counters})
}

func (h *InteractionHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["postId"]

	var req addCommentRequest
	if !h.decode(w, r, &req) {
		return
	}

	comment, counters, err := h.service.AddComment(r.Context(), req.UserID, postID, req.Content, req.ParentID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, commentResponse{Comment: comment, Counters: counters})
}

func (h *InteractionHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["postId"]

	comments, err := h.service.GetComments(r.Context(), postID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *InteractionHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["commentId"]
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId query parameter is required"})
		return
	}

	deleted, err := h.service.DeleteComment(r.Context(), commentID, userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *InteractionHandler) LikeComment(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["commentId"]

	var req commentLikeRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, postID, err := h.service.LikeComment(r.Context(), req.UserID, commentID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commentLikeResponse{Created: created, PostID: postID})
}

func (h *InteractionHandler) UnlikeComment(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["commentId"]
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId query parameter is required"})
		return
	}

	deleted, err := h.service.UnlikeComment(r.Context(), userID, commentID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commentLikeResponse{Deleted: deleted})
}

func (h *InteractionHandler) GetPostInteractions(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["postId"]

	if r.URL.Query().Get("countOnly") == "true" {
		counters, err := h.service.GetPostCounters(r.Context(), postID)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counters)
		return
	}

	interactions, err := h.service.GetPostInteractions(r.Context(), postID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeEnvelopes(w, h, interactions)
}

func (h *InteractionHandler) GetUserSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	postID := r.URL.Query().Get("postId")

	interactions, err := h.service.GetUserSnapshot(r.Context(), userID, postID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeEnvelopes(w, h, interactions)
}

func (h *InteractionHandler) GetPostStatuses(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var postIDs []string
	if raw := r.URL.Query().Get("postIds"); raw != "" {
		postIDs = strings.Split(raw, ",")
	}

	statuses, err := h.service.GetPostStatuses(r.Context(), userID, postIDs)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

// decode parses and validates a JSON body, writing a 400 on failure
func (h *InteractionHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	if err := h.validator.Validate(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

// fail maps service errors onto HTTP status codes
func (h *InteractionHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPostNotFound), errors.Is(err, service.ErrCommentNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrContentTooLong), errors.Is(err, service.ErrInvalidKind):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeEnvelopes(w http.ResponseWriter, h *InteractionHandler, interactions []models.Interaction) {
	envelopes := make([]models.Envelope, 0, len(interactions))
	for _, in := range interactions {
		env, err := models.Wrap(in)
		if err != nil {
			h.fail(w, err)
			return
		}
		envelopes = append(envelopes, env)
	}
	writeJSON(w, http.StatusOK, envelopes)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
