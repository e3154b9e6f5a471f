// Package session holds the state of the active scan/compare conversation
// and drives every backend interaction behind it. The UI layers render
// snapshots of this controller and call its handlers; they never talk to the
// API client directly.
//
// Every user-triggered action is tagged with a monotonic sequence number when
// it starts. A completion whose sequence is no longer current is discarded,
// so the visible message order always matches the order the user acted in,
// even when two slow responses race.
package session

import (
	"log/slog"
	"sync"
	"time"

	"scanchat/src/services/api"
	"scanchat/src/types"
)

// Controller is the root of the conversation state: the ordered message
// list, the active chat id, the sidebar chat list, the usage balance and the
// per-chat scan cache. All fields are guarded by mu; handlers may be called
// from concurrent tea.Cmd goroutines.
type Controller struct {
	mu     sync.Mutex
	api    *api.Client
	logger *slog.Logger

	seq uint64 // sequence of the most recently started action

	messages      []types.Message
	currentChatID string

	chats              []types.ChatSummary
	chatIDs            map[string]bool
	page               int
	hasMore            bool
	compareSectionOpen bool

	balance       types.UsageBalance
	balanceLoaded bool
	loggedOut     bool

	showComparePicker bool

	// scanCache holds at most one ScanResult per chat id, so revisiting a
	// chat never re-fetches its scan.
	scanCache map[string]*types.ScanResult
	// chatTitles caches resolved compare-chat titles by chat id.
	chatTitles map[string]string
	// localCompares holds comparisons whose persistence failed; they exist
	// only in this process, under a synthesized "local-" id.
	localCompares map[string]*localCompare
}

type localCompare struct {
	question  string
	answer    string
	side1     types.CompareSide
	side2     types.CompareSide
	createdAt time.Time
}

// NewController creates a controller over an authenticated API client.
func NewController(client *api.Client, logger *slog.Logger) *Controller {
	return &Controller{
		api:           client,
		logger:        logger,
		chatIDs:       map[string]bool{},
		scanCache:     map[string]*types.ScanResult{},
		chatTitles:    map[string]string{},
		localCompares: map[string]*localCompare{},
	}
}

// begin starts a new user action and returns its sequence number. Callers
// must hold mu.
func (c *Controller) begin() uint64 {
	c.seq++
	return c.seq
}

// stale reports whether a newer action started after seq. Callers must hold
// mu. Stale completions are dropped instead of appending out of order.
func (c *Controller) stale(seq uint64) bool {
	return c.seq != seq
}

// appendLocked appends a message. Callers must hold mu.
func (c *Controller) appendLocked(msg types.Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	c.messages = append(c.messages, msg)
}

// appendErrorLocked appends a recoverable error as a chat message.
func (c *Controller) appendErrorLocked(text string) {
	c.appendLocked(types.Message{
		Role:    types.RoleAssistant,
		Content: text,
		IsError: true,
	})
}

// StartNewChat clears the conversation and detaches from any chat id.
func (c *Controller) StartNewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.begin() // invalidate any in-flight completion
	c.messages = nil
	c.currentChatID = ""
	c.showComparePicker = false
}

// Messages returns a copy of the conversation in append order.
func (c *Controller) Messages() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// CurrentChatID returns the active chat id, or "" for a fresh session.
func (c *Controller) CurrentChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentChatID
}

// Chats returns a copy of the sidebar chat list.
func (c *Controller) Chats() []types.ChatSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.ChatSummary, len(c.chats))
	copy(out, c.chats)
	return out
}

// HasMoreChats reports whether another sidebar page can be loaded.
func (c *Controller) HasMoreChats() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// Page returns the last loaded sidebar page number.
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Balance returns the last refreshed usage balance.
func (c *Controller) Balance() types.UsageBalance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// BalanceLoaded reports whether the usage balance has been fetched at least
// once. Until then the balance field holds zero values, not a real quota.
func (c *Controller) BalanceLoaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balanceLoaded
}

// LoggedOut reports whether the backend invalidated the stored credentials;
// the app must return to the login screen when this turns true.
func (c *Controller) LoggedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedOut
}

// ShowComparePicker reports whether the comparison picker should be open.
func (c *Controller) ShowComparePicker() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showComparePicker
}

// DismissComparePicker closes the picker without comparing.
func (c *Controller) DismissComparePicker() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showComparePicker = false
}

// hasScanMessageLocked reports whether the active chat already holds a scan
// result. One scan per chat; callers must hold mu.
func (c *Controller) hasScanMessageLocked() bool {
	for _, msg := range c.messages {
		if msg.ScanData != nil {
			return true
		}
	}
	return false
}

// registerChatLocked puts a summary at the top of the sidebar list. Callers
// must hold mu.
func (c *Controller) registerChatLocked(summary types.ChatSummary) {
	if c.chatIDs[summary.ID] {
		return
	}
	c.chatIDs[summary.ID] = true
	c.chats = append([]types.ChatSummary{summary}, c.chats...)
}
