// types.go - Shared data types for the scan/compare chat client.
// Everything here mirrors the JSON the backend speaks; the UI packages and the
// session controller exchange these types instead of raw response bodies.

package types

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message types. A message without a type is ordinary conversation text.
const (
	MessageTypeScan     = "scan"
	MessageTypeQuestion = "question"
	MessageTypeCompare  = "compare"
)

// Chat types as reported by the backend.
const (
	ChatTypeScan    = "scan"
	ChatTypeCompare = "compare"
)

// Message is a single entry in the active conversation. Messages are appended
// in order and never mutated once appended, except to patch in late-arriving
// ComparedScans data.
type Message struct {
	Role          string         `json:"role"`
	Content       string         `json:"content"`
	Timestamp     time.Time      `json:"timestamp"`
	MessageType   string         `json:"message_type,omitempty"`
	ScanData      *ScanResult    `json:"scan_data,omitempty"`
	IsComparison  bool           `json:"is_comparison,omitempty"`
	ComparedScans *ComparedScans `json:"compared_scans,omitempty"`
	IsError       bool           `json:"is_error,omitempty"`
}

// ComparedScans identifies the two sides of a comparison message.
type ComparedScans struct {
	Scan1 CompareSide `json:"scan1"`
	Scan2 CompareSide `json:"scan2"`
}

// CompareSide is one listing in a comparison. Title may be empty until
// enrichment resolves it; display code falls back to the listing URL.
type CompareSide struct {
	ScanID     string `json:"scan_id"`
	Title      string `json:"title,omitempty"`
	ListingURL string `json:"listing_url"`
}

// ScanResult is the scored analysis of one listing URL. The client treats it
// as a value: fetched once per chat, cached, never recomputed locally.
type ScanResult struct {
	ID         string         `json:"id"`
	ListingURL string         `json:"listing_url"`
	Title      string         `json:"title,omitempty"`
	Location   string         `json:"location,omitempty"`
	Label      string         `json:"label,omitempty"`
	Score      float64        `json:"score,omitempty"`
	Categories []ScanCategory `json:"categories,omitempty"`
}

// ScanCategory is one scored slice of a scan's breakdown.
type ScanCategory struct {
	Name    string   `json:"name"`
	Score   float64  `json:"score"`
	Signals []string `json:"signals,omitempty"`
}

// ChatSummary is one row in the session list sidebar. Immutable except for
// Title, which compare chats resolve lazily.
type ChatSummary struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	ScanID     string    `json:"scan_id,omitempty"`
	ListingURL string    `json:"listing_url,omitempty"`
}

// UsageBalance mirrors the server-side quota. It is refreshed from the
// backend after every billable action, never computed client-side.
type UsageBalance struct {
	Remaining float64    `json:"remaining"`
	Used      float64    `json:"used"`
	Plan      string     `json:"plan"`
	Limits    PlanLimits `json:"limits"`
}

// PlanLimits is the per-plan allowance breakdown.
type PlanLimits struct {
	Scans     int `json:"scans"`
	Questions int `json:"questions"`
	Compares  int `json:"compares"`
}

// User is the authenticated account as returned by the auth endpoints and /me.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Verified  bool      `json:"verified,omitempty"`
	IsAdmin   bool      `json:"is_admin,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ComparisonSelection is the transient state of the comparison picker. It
// exists only while the picker is open and is discarded after submission.
type ComparisonSelection struct {
	Scan1ID  string
	Scan2ID  string
	Question string
}
