package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/claims"
	"github.com/ong-aas/claims-portal/internal/content"
	"github.com/ong-aas/claims-portal/internal/guard"
	"github.com/ong-aas/claims-portal/internal/http/respond"
	"github.com/ong-aas/claims-portal/internal/middleware"
	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/models/dto"
	"github.com/ong-aas/claims-portal/internal/storage"
)

// maxCommentLength caps a single comment body, in bytes.
const maxCommentLength = 2000

// Landing is the public homepage payload.
type Landing struct {
	Content content.Homepage      `json:"content"`
	Posts   []models.Post         `json:"posts"`
	Claims  []models.ClaimSummary `json:"claims"`
}

// FeedHandler serves the public landing page and post comments.
type FeedHandler struct {
	content  *content.Loader
	posts    storage.PostStore
	claims   *claims.Service
	sessions middleware.SessionResolver
	logger   *zap.Logger
}

// NewFeedHandler constructs the handler.
func NewFeedHandler(loader *content.Loader, posts storage.PostStore, svc *claims.Service, sessions middleware.SessionResolver, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{content: loader, posts: posts, claims: svc, sessions: sessions, logger: logger}
}

// Register attaches the landing, comment and fallback routes to the mux.
func (h *FeedHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleLanding)
	mux.HandleFunc("GET /posts/{id}/comments", h.handleListComments)
	mux.Handle("POST /posts/{id}/comments", middleware.RequireSession(h.sessions, guard.Verified, h.logger)(http.HandlerFunc(h.handleComment)))
	mux.HandleFunc("/", h.handleUnknown)
}

func (h *FeedHandler) handleLanding(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPosts(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load posts")
		return
	}
	summaries, err := h.claims.Summaries(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load claims progress")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", Landing{Content: h.content.Load(), Posts: posts, Claims: summaries})
}

func (h *FeedHandler) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.posts.ListComments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load comments")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", comments)
}

func (h *FeedHandler) handleComment(w http.ResponseWriter, r *http.Request) {
	var req dto.CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	body := strings.TrimSpace(req.Content)
	if body == "" {
		respond.Fail(w, http.StatusBadRequest, "comment.empty", "comment cannot be empty", nil)
		return
	}
	if len(body) > maxCommentLength {
		respond.Fail(w, http.StatusBadRequest, "comment.too_long", "comment is too long", nil)
		return
	}
	user, _ := middleware.UserFrom(r.Context())
	comment, err := h.posts.CreateComment(r.Context(), models.Comment{PostID: r.PathValue("id"), UserID: user.ID, Content: body})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to add comment")
		return
	}
	respond.JSON(w, http.StatusCreated, "comment added", comment)
}

// handleUnknown sends browsers back to the landing page.
func (h *FeedHandler) handleUnknown(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	respond.Error(w, http.StatusNotFound, "not found")
}
