package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"scanchat/src/types"
)

// ChatPage is the normalized form of a chat-list response. The backend has
// two shapes in the wild: the current `{chats, pagination}` envelope and a
// legacy bare array. Both are mapped here, at the network boundary, so the
// rest of the app never re-checks shape. A bare array means no further pages.
type ChatPage struct {
	Chats   []types.ChatSummary
	Page    int
	HasMore bool
}

// ListChats fetches one page of chat summaries.
func (c *Client) ListChats(ctx context.Context, page, limit int) (*ChatPage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/chats?"+q.Encode(), nil, &raw); err != nil {
		return nil, err
	}
	return normalizeChatPage(raw, page)
}

// normalizeChatPage maps either server shape into a ChatPage.
func normalizeChatPage(data []byte, page int) (*ChatPage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var chats []types.ChatSummary
		if err := json.Unmarshal(trimmed, &chats); err != nil {
			return nil, fmt.Errorf("decoding legacy chat list: %w", err)
		}
		return &ChatPage{Chats: chats, Page: page, HasMore: false}, nil
	}

	var envelope struct {
		Chats      []types.ChatSummary `json:"chats"`
		Pagination struct {
			Page    int  `json:"page"`
			HasMore bool `json:"has_more"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decoding chat list: %w", err)
	}
	resolved := envelope.Pagination.Page
	if resolved == 0 {
		resolved = page
	}
	return &ChatPage{
		Chats:   envelope.Chats,
		Page:    resolved,
		HasMore: envelope.Pagination.HasMore,
	}, nil
}

// ChatMeta describes a stored chat. Scan chats carry ScanID; compare chats
// carry ScanIDs with one entry per side.
type ChatMeta struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title,omitempty"`
	ScanID    string    `json:"scan_id,omitempty"`
	ScanIDs   []string  `json:"scan_ids,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ChatMessage is one stored message of a chat, as the backend returns it.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ChatDetail is the full stored conversation for GET /chat/{id}.
type ChatDetail struct {
	Chat     ChatMeta      `json:"chat"`
	Messages []ChatMessage `json:"messages"`
}

// GetChat fetches one stored chat with its message history.
func (c *Client) GetChat(ctx context.Context, id string) (*ChatDetail, error) {
	var resp ChatDetail
	if err := c.do(ctx, http.MethodGet, "/chat/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NewScanResponse is the result of submitting a listing for analysis.
type NewScanResponse struct {
	ChatID string           `json:"chat_id"`
	Scan   types.ScanResult `json:"scan"`
}

// NewScan submits a listing URL for analysis. This opens a new chat dedicated
// to the scanned property. Statuses 400/402/404/409 carry a user-facing
// `detail` string that must be shown verbatim.
func (c *Client) NewScan(ctx context.Context, listingURL string) (*NewScanResponse, error) {
	body := map[string]string{"listing_url": listingURL}
	var resp NewScanResponse
	if err := c.do(ctx, http.MethodPost, "/chat/new-scan", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ask sends a follow-up question in an existing chat.
func (c *Client) Ask(ctx context.Context, chatID, question string) (string, error) {
	body := map[string]string{"question": question}
	var resp struct {
		Answer string `json:"answer"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat/"+url.PathEscape(chatID)+"/ask", body, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// PreScanAsk answers a general question before any scan exists in the session.
func (c *Client) PreScanAsk(ctx context.Context, question string) (string, error) {
	body := map[string]string{"question": question}
	var resp struct {
		Answer string `json:"answer"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat/pre-scan/ask", body, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// GetScan fetches the full scan result by id.
func (c *Client) GetScan(ctx context.Context, id string) (*types.ScanResult, error) {
	var resp types.ScanResult
	if err := c.do(ctx, http.MethodGet, "/scan/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
