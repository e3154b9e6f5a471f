package api

import (
	"context"
	"net/http"
)

// All payment processing happens server-side through Stripe; the client only
// opens checkout URLs and asks the backend about payment state.

// CreateCheckout starts a Stripe checkout for the given plan and returns the
// hosted checkout URL for the user to open.
func (c *Client) CreateCheckout(ctx context.Context, plan string) (string, error) {
	var resp struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/stripe/create-checkout", map[string]string{"plan": plan}, &resp); err != nil {
		return "", err
	}
	return resp.CheckoutURL, nil
}

// VerifyPayment asks the backend whether a checkout session completed.
func (c *Client) VerifyPayment(ctx context.Context, sessionID string) (bool, error) {
	var resp struct {
		Verified bool `json:"verified"`
	}
	if err := c.do(ctx, http.MethodPost, "/stripe/verify-payment", map[string]string{"session_id": sessionID}, &resp); err != nil {
		return false, err
	}
	return resp.Verified, nil
}

// CancelSubscription cancels the active subscription at period end.
func (c *Client) CancelSubscription(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stripe/cancel-subscription", nil, nil)
}

// SimulateWebhook triggers a fake Stripe event. Dev-only; the production
// backend rejects it.
func (c *Client) SimulateWebhook(ctx context.Context, event string) error {
	return c.do(ctx, http.MethodPost, "/stripe/simulate-webhook", map[string]string{"event": event}, nil)
}
