package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/admin"
	"github.com/ong-aas/claims-portal/internal/claims"
	"github.com/ong-aas/claims-portal/internal/export"
	"github.com/ong-aas/claims-portal/internal/guard"
	"github.com/ong-aas/claims-portal/internal/http/respond"
	"github.com/ong-aas/claims-portal/internal/middleware"
	"github.com/ong-aas/claims-portal/internal/models/dto"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminHandler serves the staff dashboard API. Every route requires the admin role.
type AdminHandler struct {
	svc      *admin.Service
	sessions middleware.SessionResolver
	logger   *zap.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(svc *admin.Service, sessions middleware.SessionResolver, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, sessions: sessions, logger: logger}
}

// Register attaches admin routes to the mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	adminOnly := middleware.RequireSession(h.sessions, guard.Admin, h.logger)
	routes := map[string]http.HandlerFunc{
		"GET /admin/stats":               h.handleStats,
		"GET /admin/users":               h.handleListUsers,
		"POST /admin/users/{id}/verify":  h.handleVerifyUser,
		"GET /admin/claims":              h.handleListClaims,
		"GET /admin/claims/export":       h.handleExportClaims,
		"PATCH /admin/claims/{id}":       h.handleUpdateClaim,
		"GET /admin/claims/{id}/updates": h.handleClaimHistory,
		"GET /admin/posts":               h.handleListPosts,
		"POST /admin/posts":              h.handleCreatePost,
		"PUT /admin/posts/{id}":          h.handleUpdatePost,
		"DELETE /admin/posts/{id}":       h.handleDeletePost,
		"GET /admin/posts/{id}/comments": h.handleListComments,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, adminOnly(fn))
	}
}

func (h *AdminHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load stats")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", stats)
}

func (h *AdminHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load users")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", users)
}

func (h *AdminHandler) handleVerifyUser(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, stats, err := h.svc.VerifyUser(r.Context(), r.PathValue("id"), req.Version)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to verify user")
		return
	}
	respond.JSON(w, http.StatusOK, "user verified", dto.AdminMutation{Item: user, Stats: stats})
}

func (h *AdminHandler) handleListClaims(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListClaims(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load claims")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", list)
}

func (h *AdminHandler) handleExportClaims(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListClaims(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load claims")
		return
	}
	// Buffer so a failed render can still answer with an error status.
	var buf bytes.Buffer
	if err := export.WriteClaims(&buf, list); err != nil {
		h.logger.Error("export claims", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to export claims")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="claims-%s.xlsx"`, time.Now().UTC().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *AdminHandler) handleUpdateClaim(w http.ResponseWriter, r *http.Request) {
	var req dto.ClaimEditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	staff, _ := middleware.UserFrom(r.Context())
	claim, stats, err := h.svc.UpdateClaim(r.Context(), staff, r.PathValue("id"), claims.Edit{
		Status:   req.Status,
		Progress: req.Progress,
		Note:     req.Note,
		Version:  req.Version,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update claim")
		return
	}
	respond.JSON(w, http.StatusOK, "claim updated", dto.AdminMutation{Item: claim, Stats: stats})
}

func (h *AdminHandler) handleClaimHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.ClaimHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load claim history")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", history)
}

func (h *AdminHandler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListPosts(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load posts")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", posts)
}

func (h *AdminHandler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req dto.PostRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	staff, _ := middleware.UserFrom(r.Context())
	post, stats, err := h.svc.CreatePost(r.Context(), staff, req.Title, req.Content, req.Media)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create post")
		return
	}
	respond.JSON(w, http.StatusCreated, "post created", dto.AdminMutation{Item: post, Stats: stats})
}

func (h *AdminHandler) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req dto.PostRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	post, stats, err := h.svc.UpdatePost(r.Context(), r.PathValue("id"), req.Title, req.Content, req.Media, req.Version)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update post")
		return
	}
	respond.JSON(w, http.StatusOK, "post updated", dto.AdminMutation{Item: post, Stats: stats})
}

func (h *AdminHandler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.DeletePost(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to delete post")
		return
	}
	respond.JSON(w, http.StatusOK, "post deleted", dto.AdminMutation{Stats: stats})
}

func (h *AdminHandler) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.ListComments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load comments")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", comments)
}
