package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"scanchat/src/types"
)

// Admin surface. These calls authenticate with the admin credential pair, so
// they belong to a Client built over the admin token store, not the user one.

// AdminLogin exchanges admin credentials for an admin bearer token.
func (c *Client) AdminLogin(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/admin/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminUserRow is one account as the admin console sees it.
type AdminUserRow struct {
	User      types.User `json:"user"`
	Plan      string     `json:"plan"`
	Used      float64    `json:"used"`
	Remaining float64    `json:"remaining"`
}

// ListUsers pages through all accounts.
func (c *Client) ListUsers(ctx context.Context, page, limit int) ([]AdminUserRow, error) {
	var resp struct {
		Users []AdminUserRow `json:"users"`
	}
	path := fmt.Sprintf("/admin/users?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// AdminScanRow is one scan as the admin console sees it.
type AdminScanRow struct {
	ID         string    `json:"id"`
	UserEmail  string    `json:"user_email"`
	ListingURL string    `json:"listing_url"`
	Label      string    `json:"label"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListScans pages through all scans across accounts.
func (c *Client) ListScans(ctx context.Context, page, limit int) ([]AdminScanRow, error) {
	var resp struct {
		Scans []AdminScanRow `json:"scans"`
	}
	path := fmt.Sprintf("/admin/scans?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Scans, nil
}

// RevenueReport summarizes subscription revenue.
type RevenueReport struct {
	TotalRevenue   float64 `json:"total_revenue"`
	MonthlyRevenue float64 `json:"monthly_revenue"`
	ActivePlans    int     `json:"active_plans"`
	Cancellations  int     `json:"cancellations"`
}

// RevenueAnalytics fetches the revenue summary.
func (c *Client) RevenueAnalytics(ctx context.Context) (*RevenueReport, error) {
	var resp RevenueReport
	if err := c.do(ctx, http.MethodGet, "/admin/analytics/revenue", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DashboardStats is the headline counters block of the admin dashboard.
type DashboardStats struct {
	Users    int `json:"users"`
	Scans    int `json:"scans"`
	Compares int `json:"compares"`
	Chats    int `json:"chats"`
}

// Dashboard fetches the headline counters.
func (c *Client) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var resp DashboardStats
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MissingListing is a URL users tried to scan that the backend could not
// resolve to a listing.
type MissingListing struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Requests  int       `json:"requests"`
	FirstSeen time.Time `json:"first_seen"`
}

// MissingListings lists unresolved listing URLs, most requested first.
func (c *Client) MissingListings(ctx context.Context) ([]MissingListing, error) {
	var resp struct {
		Listings []MissingListing `json:"listings"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/missing-listings", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Listings, nil
}

// ManualListing is a listing an operator added by hand to cover a gap.
type ManualListing struct {
	ID         string    `json:"id"`
	ListingURL string    `json:"listing_url"`
	Title      string    `json:"title"`
	AddedBy    string    `json:"added_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// ManuallyAddedListings lists operator-added listings.
func (c *Client) ManuallyAddedListings(ctx context.Context) ([]ManualListing, error) {
	var resp struct {
		Listings []ManualListing `json:"listings"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/manually-added-listings", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Listings, nil
}

// AddManualListing registers a listing by hand.
func (c *Client) AddManualListing(ctx context.Context, listingURL, title string) (*ManualListing, error) {
	body := map[string]string{"listing_url": listingURL, "title": title}
	var resp ManualListing
	if err := c.do(ctx, http.MethodPost, "/admin/manually-added-listings", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteManualListing removes an operator-added listing.
func (c *Client) DeleteManualListing(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/manually-added-listings/"+url.PathEscape(id), nil, nil)
}

// FlushCache clears the backend's scan cache.
func (c *Client) FlushCache(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/admin/cache/flush", nil, nil)
}
