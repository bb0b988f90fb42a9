package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/http/respond"
	"github.com/ong-aas/claims-portal/internal/identity"
	"github.com/ong-aas/claims-portal/internal/models/dto"
)

// IdentityHandler bridges invitation and recovery links to the identity provider.
type IdentityHandler struct {
	client *identity.Client
	logger *zap.Logger
}

// NewIdentityHandler constructs the handler. client may be nil when no provider is configured.
func NewIdentityHandler(client *identity.Client, logger *zap.Logger) *IdentityHandler {
	return &IdentityHandler{client: client, logger: logger}
}

// Register attaches identity routes to the mux.
func (h *IdentityHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /identity/invitation", h.handleInvitation)
	mux.HandleFunc("POST /identity/password-setup", h.handlePasswordSetup)
}

func (h *IdentityHandler) handleInvitation(w http.ResponseWriter, r *http.Request) {
	inv, cleaned, err := identity.ParseInvitation(r.URL.Query().Get("url"))
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "identity.invalid_link", err.Error(), nil)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", map[string]string{
		"type":        inv.Type,
		"email":       inv.Email,
		"cleaned_url": cleaned,
	})
}

func (h *IdentityHandler) handlePasswordSetup(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordSetupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, _, err := identity.ParseInvitation(req.URL)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "identity.invalid_link", err.Error(), nil)
		return
	}

	_, err = h.client.SetupPassword(r.Context(), inv, req.Password)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, "password set", map[string]string{"type": inv.Type, "redirect": "/admin"})
	case errors.Is(err, identity.ErrWeakPassword):
		respond.Fail(w, http.StatusBadRequest, "identity.weak_password", err.Error(), nil)
	case errors.Is(err, identity.ErrRejected):
		respond.Fail(w, http.StatusBadRequest, "identity.invalid_link", identity.ErrNoToken.Error(), nil)
	case errors.Is(err, identity.ErrNotConfigured):
		respond.Error(w, http.StatusServiceUnavailable, "identity provider not configured")
	default:
		h.logger.Warn("password setup failed", zap.String("type", inv.Type), zap.Error(err))
		respond.Error(w, http.StatusBadGateway, "identity provider unavailable")
	}
}
