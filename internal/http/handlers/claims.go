package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/claims"
	"github.com/ong-aas/claims-portal/internal/guard"
	"github.com/ong-aas/claims-portal/internal/http/respond"
	"github.com/ong-aas/claims-portal/internal/middleware"
	"github.com/ong-aas/claims-portal/internal/models/dto"
)

// ClaimHandler serves a member's own claims.
type ClaimHandler struct {
	claims   *claims.Service
	sessions middleware.SessionResolver
	logger   *zap.Logger
}

// NewClaimHandler constructs the handler.
func NewClaimHandler(svc *claims.Service, sessions middleware.SessionResolver, logger *zap.Logger) *ClaimHandler {
	return &ClaimHandler{claims: svc, sessions: sessions, logger: logger}
}

// Register attaches dashboard claim routes to the mux.
func (h *ClaimHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET /dashboard/claims", middleware.RequireSession(h.sessions, guard.Authenticated, h.logger)(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /dashboard/claims", middleware.RequireSession(h.sessions, guard.Verified, h.logger)(http.HandlerFunc(h.handleSubmit)))
}

func (h *ClaimHandler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	list, err := h.claims.ListOwn(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load claims")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", list)
}

func (h *ClaimHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req dto.ClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, _ := middleware.UserFrom(r.Context())
	claim, err := h.claims.Submit(r.Context(), &user, claims.Submission{
		Title:            req.Title,
		Description:      req.Description,
		Date:             req.Date,
		AccidentImages:   req.AccidentImages,
		PoliceReport:     req.PoliceReport,
		InsuranceReceipt: req.InsuranceReceipt,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to submit claim")
		return
	}
	respond.JSON(w, http.StatusCreated, "claim submitted", claim)
}
