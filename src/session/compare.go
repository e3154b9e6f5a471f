package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"scanchat/src/models"
	"scanchat/src/types"
)

// localChatPrefix marks compare chats whose persistence failed; they live
// only in this process but stay fully navigable.
const localChatPrefix = "local-"

// CompareOption is one prior scan offered by the comparison picker.
type CompareOption struct {
	ScanID     string
	Title      string
	ListingURL string
}

// Label is the display text for the option, falling back to the raw listing
// URL when no title was resolved.
func (o CompareOption) Label() string {
	if o.Title != "" {
		return o.Title
	}
	return o.ListingURL
}

// compareOptionsLocked collects the user's prior scans that qualify for
// comparison: scan-type chats with a resolvable listing URL, deduplicated by
// scan id. Callers must hold mu.
func (c *Controller) compareOptionsLocked() []CompareOption {
	seen := map[string]bool{}
	var options []CompareOption
	for _, chat := range c.chats {
		if chat.Type != types.ChatTypeScan || chat.ListingURL == "" || chat.ScanID == "" {
			continue
		}
		if seen[chat.ScanID] {
			continue
		}
		seen[chat.ScanID] = true
		options = append(options, CompareOption{
			ScanID:     chat.ScanID,
			Title:      chat.Title,
			ListingURL: chat.ListingURL,
		})
	}
	return options
}

// CompareOptions returns the picker's dropdown contents.
func (c *Controller) CompareOptions() []CompareOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compareOptionsLocked()
}

// HandleCompare runs a comparison for a picker selection. Both sides must be
// distinct prior scans; the picker enforces that, and the controller checks
// again before touching the network. The answer is shown as soon as the
// comparison returns; persisting it is best-effort and never blocks the
// conversation. When saving fails, the chat continues under a synthesized
// local id.
func (c *Controller) HandleCompare(ctx context.Context, sel types.ComparisonSelection) error {
	if sel.Scan1ID == "" || sel.Scan2ID == "" {
		return &models.ValidationError{Message: "Select two listings to compare"}
	}
	if sel.Scan1ID == sel.Scan2ID {
		return &models.ValidationError{Message: "Cannot compare the same listing"}
	}

	c.mu.Lock()
	var side1, side2 *CompareOption
	for _, opt := range c.compareOptionsLocked() {
		opt := opt
		if opt.ScanID == sel.Scan1ID {
			side1 = &opt
		}
		if opt.ScanID == sel.Scan2ID {
			side2 = &opt
		}
	}
	if side1 == nil || side2 == nil {
		c.mu.Unlock()
		return &models.ValidationError{Message: "Both selections must be previously scanned listings"}
	}
	c.showComparePicker = false
	c.mu.Unlock()

	c.runCompare(ctx, compareSides{
		side1:    types.CompareSide{ScanID: side1.ScanID, Title: side1.Title, ListingURL: side1.ListingURL},
		side2:    types.CompareSide{ScanID: side2.ScanID, Title: side2.Title, ListingURL: side2.ListingURL},
		question: sel.Question,
	})
	return nil
}

// HandleCompareURLs runs a comparison for two explicit listing URLs taken
// from a compare request typed into the chat.
func (c *Controller) HandleCompareURLs(ctx context.Context, urlA, urlB, text string) {
	c.mu.Lock()
	c.appendLocked(types.Message{Role: types.RoleUser, Content: text, MessageType: types.MessageTypeCompare})
	side1 := types.CompareSide{ListingURL: urlA}
	side2 := types.CompareSide{ListingURL: urlB}
	for _, opt := range c.compareOptionsLocked() {
		if opt.ListingURL == urlA {
			side1.ScanID, side1.Title = opt.ScanID, opt.Title
		}
		if opt.ListingURL == urlB {
			side2.ScanID, side2.Title = opt.ScanID, opt.Title
		}
	}
	c.mu.Unlock()

	c.runCompare(ctx, compareSides{side1: side1, side2: side2, question: text, announced: true})
}

type compareSides struct {
	side1    types.CompareSide
	side2    types.CompareSide
	question string
	// announced is set when the triggering input is already in the message
	// list, so runCompare must not add a second user message.
	announced bool
}

func (c *Controller) runCompare(ctx context.Context, sides compareSides) {
	c.mu.Lock()
	if !sides.announced {
		content := sides.question
		if content == "" {
			content = fmt.Sprintf("Compare %s with %s", sideLabel(sides.side1), sideLabel(sides.side2))
		}
		c.appendLocked(types.Message{
			Role:        types.RoleUser,
			Content:     content,
			MessageType: types.MessageTypeCompare,
		})
	}
	seq := c.begin()
	c.mu.Unlock()

	answer, err := c.api.Compare(ctx, sides.side1.ListingURL, sides.side2.ListingURL, sides.question)

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
	c.appendLocked(types.Message{
		Role:          types.RoleAssistant,
		Content:       answer,
		MessageType:   types.MessageTypeCompare,
		IsComparison:  true,
		ComparedScans: &types.ComparedScans{Scan1: sides.side1, Scan2: sides.side2},
	})
	c.mu.Unlock()

	// Show first, persist second. The conversation keeps working whether or
	// not the save lands; only the chat id differs.
	chatID, saveErr := c.api.SaveCompare(ctx, sides.side1.ListingURL, sides.side2.ListingURL, answer, sides.question)

	c.mu.Lock()
	if saveErr != nil {
		chatID = localChatPrefix + uuid.NewString()
		c.localCompares[chatID] = &localCompare{
			question:  sides.question,
			answer:    answer,
			side1:     sides.side1,
			side2:     sides.side2,
			createdAt: time.Now(),
		}
		c.logger.Warn("compare persistence failed, using local chat id", "error", saveErr, "chat_id", chatID)
	}
	if !c.stale(seq) {
		c.currentChatID = chatID
	}
	c.registerChatLocked(types.ChatSummary{
		ID:    chatID,
		Type:  types.ChatTypeCompare,
		Title: compareTitle(sides.side1, sides.side2),
	})
	c.chatTitles[chatID] = compareTitle(sides.side1, sides.side2)
	c.mu.Unlock()

	c.RefreshBalance(ctx)
}

func sideLabel(side types.CompareSide) string {
	if side.Title != "" {
		return side.Title
	}
	return side.ListingURL
}

func compareTitle(a, b types.CompareSide) string {
	return sideLabel(a) + " vs " + sideLabel(b)
}

// IsLocalChat reports whether id names a compare chat that was never
// persisted to the backend.
func IsLocalChat(id string) bool {
	return strings.HasPrefix(id, localChatPrefix)
}
