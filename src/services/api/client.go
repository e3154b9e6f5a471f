// Package api is the HTTP client for the scan backend. Every endpoint the
// application touches lives here; no other package builds requests or parses
// response bodies. Errors carry the HTTP status and the backend's `detail`
// string so callers can show it verbatim where the contract requires that.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TokenSource supplies the bearer token for outgoing requests and clears it
// when the backend rejects it. Implemented by storage.CredStore.
type TokenSource interface {
	Token() string
	Clear() error
}

// Client talks to one backend with one credential pair. The admin console
// uses a second Client built over the admin credential store.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient creates a backend client. baseURL must not end with a slash.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// APIError is a non-2xx response. Detail is the backend's `detail` field when
// the body carried one, otherwise empty.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("API returned status %d", e.Status)
}

// IsAuthFailure reports whether err is the backend rejecting the credential
// (401, or 404 from /me for a deleted account).
func IsAuthFailure(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusNotFound)
}

// StatusOf returns the HTTP status behind err, or 0 for transport failures.
func StatusOf(err error) int {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Status
	}
	return 0
}

// do issues one JSON request and decodes the response into out (which may be
// nil). The token is read from the source on every call, not cached, so a
// logout elsewhere is picked up on the next request. Exactly one attempt is
// made; retrying is the user's decision, never the client's.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if data, err := io.ReadAll(resp.Body); err == nil {
			if json.Unmarshal(data, &detail) == nil {
				apiErr.Detail = detail.Detail
			}
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// ClearCredentials wipes the stored token after an auth failure.
func (c *Client) ClearCredentials() error {
	return c.tokens.Clear()
}
