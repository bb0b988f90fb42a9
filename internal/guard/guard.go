// Package guard decides whether a caller may reach a protected route.
package guard

import (
	"net/http"

	"github.com/ong-aas/claims-portal/internal/models"
)

// Policy is the static configuration a route is registered with.
type Policy struct {
	AdminOnly           bool
	RequireVerification bool
}

var (
	// Authenticated admits any logged-in identity.
	Authenticated = Policy{}
	// Verified admits logged-in identities an admin has verified.
	Verified = Policy{RequireVerification: true}
	// Admin admits staff only.
	Admin = Policy{AdminOnly: true}
)

// SessionState reports whether the identity lookup has completed.
type SessionState int

const (
	// StateLoading means the session backend could not answer yet.
	StateLoading SessionState = iota
	// StateReady means the identity (or its absence) is known.
	StateReady
)

// Decision is the outcome of evaluating a policy.
type Decision int

const (
	Allow Decision = iota
	Loading
	RedirectLogin
	RedirectDefault
	NeedsVerification
)

// Paths the guard redirects to.
const (
	LoginPath   = "/login"
	DefaultPath = "/dashboard"
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDefault:
		return "redirect_default"
	case NeedsVerification:
		return "needs_verification"
	}
	return "unknown"
}

// Decide evaluates the rules in order: loading, no identity, admin-only, verification, allow.
// It holds no state and must be called for every request.
func Decide(state SessionState, user *models.User, p Policy) Decision {
	switch {
	case state == StateLoading:
		return Loading
	case user == nil:
		return RedirectLogin
	case p.AdminOnly && !user.IsAdmin():
		return RedirectDefault
	case p.RequireVerification && !user.Verified:
		return NeedsVerification
	default:
		return Allow
	}
}

// Status maps a decision to the HTTP status and redirect location used by the API.
func (d Decision) Status() (code int, location string) {
	switch d {
	case Loading:
		return http.StatusServiceUnavailable, ""
	case RedirectLogin:
		return http.StatusUnauthorized, LoginPath
	case RedirectDefault:
		return http.StatusForbidden, DefaultPath
	case NeedsVerification:
		return http.StatusForbidden, ""
	default:
		return http.StatusOK, ""
	}
}

// Message is the user-facing text for a denial.
func (d Decision) Message() string {
	switch d {
	case Loading:
		return "session is loading, retry shortly"
	case RedirectLogin:
		return "login required"
	case RedirectDefault:
		return "admin access required"
	case NeedsVerification:
		return "account must be verified by an administrator"
	}
	return ""
}
