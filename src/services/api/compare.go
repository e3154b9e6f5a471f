package api

import (
	"context"
	"net/http"
)

// Compare runs a comparison of two previously scanned listings, optionally
// focused by a question, and returns the answer text. The comparison is not
// persisted by this call; SaveCompare does that separately so the answer can
// be shown before persistence completes.
func (c *Client) Compare(ctx context.Context, scanAURL, scanBURL, question string) (string, error) {
	body := map[string]string{
		"scan_a_url": scanAURL,
		"scan_b_url": scanBURL,
		"question":   question,
	}
	var resp struct {
		Answer string `json:"answer"`
	}
	if err := c.do(ctx, http.MethodPost, "/compare", body, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// SaveCompare persists a finished comparison as a chat and returns the chat
// id the backend assigned to it.
func (c *Client) SaveCompare(ctx context.Context, scanAURL, scanBURL, answer, question string) (string, error) {
	body := map[string]string{
		"scan_a_url": scanAURL,
		"scan_b_url": scanBURL,
		"answer":     answer,
		"question":   question,
	}
	var resp struct {
		ChatID string `json:"chat_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/save-compare", body, &resp); err != nil {
		return "", err
	}
	return resp.ChatID, nil
}
