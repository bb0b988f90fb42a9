package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// MinPasswordLength mirrors the identity provider's default password policy.
const MinPasswordLength = 6

var (
	// ErrNotConfigured is returned when no identity provider URL is set.
	ErrNotConfigured = errors.New("identity provider not configured")
	// ErrRejected means the provider refused the token or password.
	ErrRejected = errors.New("identity provider rejected the request")
	// ErrWeakPassword is returned before any call for passwords below MinPasswordLength.
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// Settings is the provider's public configuration.
type Settings struct {
	DisableSignup bool            `json:"disable_signup"`
	Autoconfirm   bool            `json:"autoconfirm"`
	External      map[string]bool `json:"external"`
}

// Grant is the session the provider issues after a successful verification.
type Grant struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

type verifyRequest struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	Password string `json:"password,omitempty"`
}

type providerError struct {
	Code        int    `json:"code"`
	Msg         string `json:"msg"`
	Description string `json:"error_description"`
}

func (e providerError) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Description
}

// Client calls a GoTrue-compatible identity API.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient returns a client for baseURL, or nil when baseURL is empty.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		return nil
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: client, logger: logger}
}

// Settings fetches the provider configuration.
func (c *Client) Settings(ctx context.Context) (Settings, error) {
	if c == nil {
		return Settings{}, ErrNotConfigured
	}
	var settings Settings
	resp, err := c.http.R().SetContext(ctx).SetResult(&settings).Get("/settings")
	if err := c.check("settings", resp, err); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// AcceptInvite completes an invitation by setting the account password.
func (c *Client) AcceptInvite(ctx context.Context, token, password string) (Grant, error) {
	if c == nil {
		return Grant{}, ErrNotConfigured
	}
	if len(password) < MinPasswordLength {
		return Grant{}, ErrWeakPassword
	}
	return c.verify(ctx, verifyRequest{Type: "signup", Token: token, Password: password})
}

// Recover exchanges a recovery token for a session and sets a new password with it.
func (c *Client) Recover(ctx context.Context, token, password string) (Grant, error) {
	if c == nil {
		return Grant{}, ErrNotConfigured
	}
	if len(password) < MinPasswordLength {
		return Grant{}, ErrWeakPassword
	}
	grant, err := c.verify(ctx, verifyRequest{Type: "recovery", Token: token})
	if err != nil {
		return Grant{}, err
	}
	if err := c.updatePassword(ctx, grant.AccessToken, password); err != nil {
		return Grant{}, err
	}
	return grant, nil
}

// SetPassword sets the password of the account an access token belongs to. Invitations
// the provider has already confirmed arrive this way.
func (c *Client) SetPassword(ctx context.Context, accessToken, password string) (Grant, error) {
	if c == nil {
		return Grant{}, ErrNotConfigured
	}
	if len(password) < MinPasswordLength {
		return Grant{}, ErrWeakPassword
	}
	if err := c.updatePassword(ctx, accessToken, password); err != nil {
		return Grant{}, err
	}
	return Grant{AccessToken: accessToken, TokenType: "bearer"}, nil
}

func (c *Client) updatePassword(ctx context.Context, accessToken, password string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(map[string]string{"password": password}).
		Put("/user")
	return c.check("update user", resp, err)
}

// SetupPassword dispatches on the invitation type.
func (c *Client) SetupPassword(ctx context.Context, inv Invitation, password string) (Grant, error) {
	if inv.Bearer {
		return c.SetPassword(ctx, inv.Token, password)
	}
	if inv.Type == TypeRecovery {
		return c.Recover(ctx, inv.Token, password)
	}
	return c.AcceptInvite(ctx, inv.Token, password)
}

func (c *Client) verify(ctx context.Context, body verifyRequest) (Grant, error) {
	var grant Grant
	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(&grant).Post("/verify")
	if err := c.check("verify "+body.Type, resp, err); err != nil {
		return Grant{}, err
	}
	return grant, nil
}

func (c *Client) check(call string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Error("identity provider call failed", zap.String("call", call), zap.Error(err))
		return fmt.Errorf("identity %s: %w", call, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest && resp.StatusCode() < http.StatusInternalServerError {
		var perr providerError
		_ = json.Unmarshal(resp.Body(), &perr)
		c.logger.Info("identity provider rejected request",
			zap.String("call", call),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", perr.message()),
		)
		return fmt.Errorf("%w: %s", ErrRejected, perr.message())
	}
	if resp.IsError() {
		c.logger.Error("identity provider error", zap.String("call", call), zap.Int("status_code", resp.StatusCode()))
		return fmt.Errorf("identity %s: status %d", call, resp.StatusCode())
	}
	return nil
}
