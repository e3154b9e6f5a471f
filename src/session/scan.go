package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"scanchat/src/services/api"
	"scanchat/src/services/listing"
	"scanchat/src/types"
)

// User-facing strings for precondition failures. These are deterministic so
// the UI shows the same message for the same cause every time.
const (
	msgEmptyURL     = "Please paste a listing URL to scan."
	msgNoBalance    = "You've used up your scans. Upgrade your plan to keep scanning."
	msgChatHasScan  = "This chat is dedicated to the property you just scanned."
	msgUnreachable  = "Could not reach the scan service. Check your connection and try again."
	msgFollowUp     = "Want to dig deeper? Ask me anything about this listing - pricing, location, or red flags."
	msgNeedTwoScans = "You need at least two scanned listings before you can compare. Scan another one first."
)

// HandleScan submits a listing URL for analysis. Preconditions are checked
// client-side and fail without any network call: the balance must cover one
// scan, the URL must be non-empty, and the active chat must not already hold
// a scan. Exactly one attempt is made per call.
func (c *Controller) HandleScan(ctx context.Context, url string) {
	url = strings.TrimSpace(url)

	c.mu.Lock()
	if url == "" {
		c.appendErrorLocked(msgEmptyURL)
		c.mu.Unlock()
		return
	}
	if c.hasScanMessageLocked() {
		c.appendLocked(types.Message{Role: types.RoleUser, Content: url, MessageType: types.MessageTypeScan})
		c.appendErrorLocked(msgChatHasScan)
		c.mu.Unlock()
		return
	}
	if c.balance.Remaining < 1.0 {
		c.appendLocked(types.Message{Role: types.RoleUser, Content: url, MessageType: types.MessageTypeScan})
		c.appendErrorLocked(msgNoBalance)
		c.mu.Unlock()
		return
	}
	c.appendLocked(types.Message{Role: types.RoleUser, Content: url, MessageType: types.MessageTypeScan})
	seq := c.begin()
	c.mu.Unlock()

	resp, err := c.api.NewScan(ctx, url)

	c.mu.Lock()
	if c.stale(seq) {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.appendErrorLocked(scanErrorText(err))
		c.mu.Unlock()
		return
	}

	scan := resp.Scan
	c.currentChatID = resp.ChatID
	c.scanCache[resp.ChatID] = &scan
	c.appendLocked(types.Message{
		Role:        types.RoleAssistant,
		Content:     scan.Label,
		MessageType: types.MessageTypeScan,
		ScanData:    &scan,
	})
	c.appendLocked(types.Message{Role: types.RoleAssistant, Content: msgFollowUp})
	c.registerChatLocked(types.ChatSummary{
		ID:         resp.ChatID,
		Type:       types.ChatTypeScan,
		Title:      scan.Title,
		ScanID:     scan.ID,
		ListingURL: scan.ListingURL,
	})
	c.mu.Unlock()

	c.RefreshBalance(ctx)
}

// scanErrorText maps a scan failure to its user-facing message. The statuses
// the backend uses for user errors (400/402/404/409) carry a detail string
// shown verbatim; everything else gets a generic message.
func scanErrorText(err error) string {
	status := api.StatusOf(err)
	switch status {
	case 0:
		return msgUnreachable
	case http.StatusBadRequest, http.StatusPaymentRequired, http.StatusNotFound, http.StatusConflict:
		if apiErr, ok := err.(*api.APIError); ok && apiErr.Detail != "" {
			return apiErr.Detail
		}
	}
	return fmt.Sprintf("The scan failed (status %d). Please try again in a moment.", status)
}

// HandleAsk sends a question, routed to the active chat when one exists or
// to the pre-scan endpoint otherwise. Questions are billable, so a balance
// refresh follows every successful answer.
func (c *Controller) HandleAsk(ctx context.Context, question string) {
	question = strings.TrimSpace(question)
	if question == "" {
		return
	}

	c.mu.Lock()
	c.appendLocked(types.Message{Role: types.RoleUser, Content: question, MessageType: types.MessageTypeQuestion})
	chatID := c.currentChatID
	seq := c.begin()
	c.mu.Unlock()

	var answer string
	var err error
	if chatID == "" || strings.HasPrefix(chatID, localChatPrefix) {
		answer, err = c.api.PreScanAsk(ctx, question)
	} else {
		answer, err = c.api.Ask(ctx, chatID, question)
	}

	c.mu.Lock()
	if c.stale(seq) {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.appendErrorLocked(askErrorText(err))
		c.mu.Unlock()
		return
	}
	c.appendLocked(types.Message{Role: types.RoleAssistant, Content: answer, MessageType: types.MessageTypeQuestion})
	c.mu.Unlock()

	c.RefreshBalance(ctx)
}

func askErrorText(err error) string {
	status := api.StatusOf(err)
	if status == 0 {
		return msgUnreachable
	}
	if apiErr, ok := err.(*api.APIError); ok && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fmt.Sprintf("I couldn't answer that (status %d). Please try again.", status)
}

// HandleInput routes free-form input: a compare request with two URLs runs a
// direct comparison, a bare "compare" with enough prior scans opens the
// picker, a supported listing URL starts a scan, and anything else is a
// question.
func (c *Controller) HandleInput(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if listing.IsCompareRequest(text) {
		urls := listing.ExtractSupportedURLs(text)
		if len(urls) >= 2 {
			c.HandleCompareURLs(ctx, urls[0], urls[1], text)
			return
		}
		// One URL plus "compare" is ambiguous; treat it as a question so the
		// backend can ask for the missing side.
		c.HandleAsk(ctx, text)
		return
	}

	if strings.Contains(strings.ToLower(text), "compare") && !listing.IsSupportedURL(text) {
		c.mu.Lock()
		if len(c.compareOptionsLocked()) >= 2 {
			c.appendLocked(types.Message{Role: types.RoleUser, Content: text, MessageType: types.MessageTypeCompare})
			c.showComparePicker = true
			c.mu.Unlock()
			return
		}
		c.appendLocked(types.Message{Role: types.RoleUser, Content: text, MessageType: types.MessageTypeCompare})
		c.appendErrorLocked(msgNeedTwoScans)
		c.mu.Unlock()
		return
	}

	if listing.IsSupportedURL(text) {
		urls := listing.ExtractSupportedURLs(text)
		c.HandleScan(ctx, urls[0])
		return
	}

	c.HandleAsk(ctx, text)
}
