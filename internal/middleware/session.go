package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/guard"
	"github.com/ong-aas/claims-portal/internal/http/respond"
	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/session"
)

// SessionResolver turns a bearer token into the persisted identity.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (models.User, error)
}

type ctxKey struct{}

// WithUser stores the identity on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFrom returns the identity placed by RequireSession.
func UserFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(models.User)
	return user, ok
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authorize resolves the caller and evaluates policy. The user is only meaningful on Allow.
func Authorize(r *http.Request, sessions SessionResolver, policy guard.Policy, logger *zap.Logger) (models.User, guard.Decision) {
	state := guard.StateReady
	var current *models.User

	if token := BearerToken(r); token != "" {
		user, err := sessions.Resolve(r.Context(), token)
		switch {
		case err == nil:
			current = &user
		case errors.Is(err, session.ErrUnavailable):
			logger.Warn("session backend unavailable", zap.Error(err))
			state = guard.StateLoading
		}
	}

	decision := guard.Decide(state, current, policy)
	if decision != guard.Allow {
		return models.User{}, decision
	}
	return *current, decision
}

// Deny writes the response for a non-Allow decision.
func Deny(w http.ResponseWriter, d guard.Decision) {
	code, location := d.Status()
	if location != "" {
		w.Header().Set("Location", location)
	}
	if d == guard.Loading {
		w.Header().Set("Retry-After", "1")
	}
	respond.Fail(w, code, "guard."+d.String(), d.Message(), nil)
}

// RequireSession evaluates policy on every request and injects the identity on Allow.
func RequireSession(sessions SessionResolver, policy guard.Policy, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, decision := Authorize(r, sessions, policy, logger)
			if decision != guard.Allow {
				Deny(w, decision)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
