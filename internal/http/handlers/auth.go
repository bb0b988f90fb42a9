package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/auth"
	"github.com/ong-aas/claims-portal/internal/guard"
	"github.com/ong-aas/claims-portal/internal/http/respond"
	"github.com/ong-aas/claims-portal/internal/middleware"
	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/models/dto"
	"github.com/ong-aas/claims-portal/internal/session"
	"github.com/ong-aas/claims-portal/internal/storage"
)

// AuthHandler owns registration and the phone + PIN session endpoints.
type AuthHandler struct {
	users    storage.UserStore
	sessions *session.Store
	logger   *zap.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(users storage.UserStore, sessions *session.Store, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, logger: logger}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	requireSession := middleware.RequireSession(h.sessions, guard.Authenticated, h.logger)
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.Handle("POST /logout", requireSession(http.HandlerFunc(h.handleLogout)))
	mux.Handle("GET /me", requireSession(http.HandlerFunc(h.handleMe)))
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := newMember(req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	user.PINHash, err = auth.HashPIN(req.PIN)
	if err != nil {
		h.logger.Error("hash pin", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	created, err := h.users.CreateUser(r.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Fail(w, http.StatusConflict, "register.phone_taken", "phone number already registered", nil)
		default:
			h.logger.Error("create user", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "failed to create account")
		}
		return
	}
	h.logger.Info("user registered", zap.String("user_id", created.ID))
	respond.JSON(w, http.StatusCreated, "account created; awaiting verification", created)
}

func newMember(req dto.RegisterRequest) (models.User, error) {
	user := models.User{
		FullName:          strings.TrimSpace(req.FullName),
		CarNumber:         strings.TrimSpace(req.CarNumber),
		PhoneNumber:       strings.TrimSpace(req.PhoneNumber),
		ProfileImage:      strings.TrimSpace(req.ProfileImage),
		DriverLicense:     strings.TrimSpace(req.DriverLicense),
		InsuranceDocument: strings.TrimSpace(req.InsuranceDocument),
		Role:              models.RoleUser,
	}
	if user.FullName == "" || user.CarNumber == "" {
		return models.User{}, errors.New("full name and car number are required")
	}
	if err := auth.ValidatePhone(user.PhoneNumber); err != nil {
		return models.User{}, err
	}
	if err := auth.ValidatePIN(req.PIN); err != nil {
		return models.User{}, err
	}
	if user.ProfileImage == "" || user.DriverLicense == "" || user.InsuranceDocument == "" {
		return models.User{}, errors.New("profile image, driver license and insurance document are required")
	}
	start, err := time.Parse(time.DateOnly, strings.TrimSpace(req.InsuranceStart))
	if err != nil {
		return models.User{}, errors.New("insurance start must be YYYY-MM-DD")
	}
	end, err := time.Parse(time.DateOnly, strings.TrimSpace(req.InsuranceEnd))
	if err != nil {
		return models.User{}, errors.New("insurance end must be YYYY-MM-DD")
	}
	if !end.After(start) {
		return models.User{}, errors.New("insurance end must be after insurance start")
	}
	user.InsuranceStart, user.InsuranceEnd = &start, &end
	return user, nil
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	phone, pin := strings.TrimSpace(req.PhoneNumber), strings.TrimSpace(req.PIN)
	if phone == "" || pin == "" {
		respond.Error(w, http.StatusBadRequest, "phone number and PIN are required")
		return
	}

	sess, err := h.sessions.Login(r.Context(), phone, pin)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrTooManyAttempts):
			respond.Fail(w, http.StatusTooManyRequests, "login.locked", "too many failed attempts; try again later", nil)
		case errors.Is(err, session.ErrInvalidCredentials):
			respond.Fail(w, http.StatusUnauthorized, "login.invalid", "invalid phone number or PIN", nil)
		default:
			h.logger.Error("login", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "login failed")
		}
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.Unix(),
		User:      sess.User,
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		if errors.Is(err, session.ErrUnavailable) {
			h.logger.Warn("logout", zap.Error(err))
			respond.Error(w, http.StatusServiceUnavailable, "session store unavailable")
			return
		}
		respond.Error(w, http.StatusUnauthorized, "no active session")
		return
	}
	respond.JSON(w, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	respond.JSON(w, http.StatusOK, "ok", user)
}
