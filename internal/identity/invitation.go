// Package identity bridges invitation and recovery links to the hosted identity provider.
package identity

import (
	"errors"
	"net/url"
	"strings"
)

// Invitation kinds.
const (
	TypeInvite   = "invite"
	TypeRecovery = "recovery"
)

// ErrNoToken means the link carries no invite or recovery token.
var ErrNoToken = errors.New("invitation link is invalid or expired")

// Invitation is what a password-setup link carries.
type Invitation struct {
	Token string `json:"-"`
	Type  string `json:"type"`
	Email string `json:"email,omitempty"`
	// Bearer is set when Token is already a provider access token rather than a
	// one-time verification token.
	Bearer bool `json:"-"`
}

var tokenParams = []string{
	"invite_token", "recovery_token", "access_token", "refresh_token",
	"token", "token_type", "expires_in", "expires_at", "type", "email",
}

// ParseInvitation extracts the token from a password-setup link. The fragment is read first,
// then the query string. A fragment that carried the token is dropped whole; otherwise every
// token-bearing parameter is removed from the returned URL.
func ParseInvitation(rawURL string) (Invitation, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Invitation{}, "", ErrNoToken
	}

	fragment, _ := url.ParseQuery(u.Fragment)
	query := u.Query()

	inv, inFragment := fromFragment(fragment)
	ok := inFragment
	if !ok {
		inv, ok = fromQuery(query)
	}
	if !ok {
		return Invitation{}, "", ErrNoToken
	}
	if inv.Email == "" {
		inv.Email = firstNonEmpty(fragment.Get("email"), query.Get("email"))
	}

	for _, p := range tokenParams {
		query.Del(p)
		fragment.Del(p)
	}
	u.RawQuery = query.Encode()
	u.Fragment = fragment.Encode()
	if inFragment {
		u.Fragment = ""
	}
	u.RawFragment = ""
	return inv, u.String(), nil
}

func fromFragment(v url.Values) (Invitation, bool) {
	switch {
	case v.Get("invite_token") != "":
		return Invitation{Token: v.Get("invite_token"), Type: TypeInvite}, true
	case v.Get("recovery_token") != "":
		return Invitation{Token: v.Get("recovery_token"), Type: TypeRecovery}, true
	case v.Get("access_token") != "" && v.Get("type") == TypeInvite:
		return Invitation{Token: v.Get("access_token"), Type: TypeInvite, Bearer: true}, true
	}
	return Invitation{}, false
}

func fromQuery(v url.Values) (Invitation, bool) {
	token := firstNonEmpty(v.Get("token"), v.Get("invite_token"))
	if token == "" {
		return Invitation{}, false
	}
	kind := v.Get("type")
	if kind != TypeRecovery {
		kind = TypeInvite
	}
	return Invitation{Token: token, Type: kind, Email: v.Get("email")}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
