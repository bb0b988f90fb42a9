package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ong-aas/claims-portal/internal/guard"
	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/session"
)

type fakeResolver map[string]models.User

func (f fakeResolver) Resolve(_ context.Context, token string) (models.User, error) {
	if token == "down" {
		return models.User{}, fmt.Errorf("%w: dial tcp", session.ErrUnavailable)
	}
	user, ok := f[token]
	if !ok {
		return models.User{}, session.ErrNoSession
	}
	return user, nil
}

var resolver = fakeResolver{
	"member":   {ID: "u1", Role: models.RoleUser},
	"verified": {ID: "u2", Role: models.RoleUser, Verified: true},
	"admin":    {ID: "u3", Role: models.RoleAdmin, Verified: true},
}

func TestRequireSession(t *testing.T) {
	cases := []struct {
		name     string
		token    string
		policy   guard.Policy
		status   int
		location string
	}{
		{"no token", "", guard.Authenticated, http.StatusUnauthorized, guard.LoginPath},
		{"unknown token", "stale", guard.Authenticated, http.StatusUnauthorized, guard.LoginPath},
		{"backend down", "down", guard.Authenticated, http.StatusServiceUnavailable, ""},
		{"member on admin route", "member", guard.Admin, http.StatusForbidden, guard.DefaultPath},
		{"unverified on verified route", "member", guard.Verified, http.StatusForbidden, ""},
		{"verified", "verified", guard.Verified, http.StatusOK, ""},
		{"admin", "admin", guard.Admin, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen models.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = UserFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			h := RequireSession(resolver, tc.policy, zap.NewNop())(next)

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.location, rec.Header().Get("Location"))
			if tc.status == http.StatusOK {
				assert.Equal(t, resolver[tc.token].ID, seen.ID)
			}
			if tc.status == http.StatusServiceUnavailable {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req))
	req.Header.Set("Authorization", "bearer abc ")
	assert.Equal(t, "abc", BearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, BearerToken(req))
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := CORS([]string{"https://portal.test/"}, next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://portal.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "https://portal.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Location")

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingRecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logging(zap.New(core), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/uploads/police-report", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.ErrorLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, int64(http.StatusBadGateway), fields["status"])
	assert.Equal(t, "/uploads/police-report", fields["path"])
}
