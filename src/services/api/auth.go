package api

import (
	"context"
	"net/http"
	"time"

	"scanchat/src/types"
)

// AuthResponse is returned by login, signup and admin login.
type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// MeResponse is the account snapshot from GET /me: the user plus the current
// quota and subscription state.
type MeResponse struct {
	User                types.User       `json:"user"`
	Remaining           float64          `json:"remaining"`
	Used                float64          `json:"used"`
	Plan                string           `json:"plan"`
	Limits              types.PlanLimits `json:"limits"`
	SubscriptionStatus  string           `json:"subscription_status,omitempty"`
	SubscriptionExpires *time.Time       `json:"subscription_expires,omitempty"`
}

// Balance extracts the quota portion of the snapshot.
func (m *MeResponse) Balance() types.UsageBalance {
	return types.UsageBalance{
		Remaining: m.Remaining,
		Used:      m.Used,
		Plan:      m.Plan,
		Limits:    m.Limits,
	}
}

// Login exchanges email and password for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signup registers a new account. The backend sends a verification email;
// the returned token is usable immediately.
func (c *Client) Signup(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password, "name": name}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyEmail confirms the address with the token from the verification mail.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/verify-email", map[string]string{"token": token}, nil)
}

// RequestPasswordReset asks the backend to mail a reset token.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/password-reset", map[string]string{"email": email}, nil)
}

// ConfirmPasswordReset sets a new password using a reset token.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "password": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/password-reset-confirm", body, nil)
}

// Me fetches the account snapshot. A 401 or 404 here means the credential is
// dead; callers clear it and force re-authentication.
func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	var resp MeResponse
	if err := c.do(ctx, http.MethodGet, "/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
