package session

import (
	"context"
	"fmt"
	"sync"

	"scanchat/src/services/api"
	"scanchat/src/types"
)

const msgChatLoadFailed = "This chat could not be loaded. It is still saved; try opening it again."
const msgScanDetailFailed = "The scan details for this chat could not be loaded right now."

// LoadChat replaces the conversation with a stored session. Three shapes are
// handled: scan chats, compare chats persisted on the backend, and compare
// chats that exist only in local memory. Hydration fetches (scan detail,
// per-side titles) are best-effort: what loaded is shown, and a single
// recoverable error message marks what didn't. The comparison picker is
// never opened by loading a chat, whatever its type.
func (c *Controller) LoadChat(ctx context.Context, id string) {
	c.mu.Lock()
	seq := c.begin()
	c.showComparePicker = false

	if local, ok := c.localCompares[id]; ok {
		c.currentChatID = id
		c.messages = localCompareMessages(local)
		c.mu.Unlock()
		return
	}
	cachedScan := c.scanCache[id]
	c.mu.Unlock()

	detail, err := c.api.GetChat(ctx, id)

	if err != nil {
		c.mu.Lock()
		if !c.stale(seq) {
			c.currentChatID = id
			c.messages = nil
			c.appendErrorLocked(msgChatLoadFailed)
		}
		c.mu.Unlock()
		return
	}

	var messages []types.Message
	var scanToCache *types.ScanResult
	switch detail.Chat.Type {
	case types.ChatTypeCompare:
		messages = c.compareChatMessages(ctx, detail)
	default:
		messages, scanToCache = c.scanChatMessages(ctx, detail, cachedScan)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale(seq) {
		return
	}
	c.currentChatID = id
	c.messages = messages
	if scanToCache != nil {
		c.scanCache[id] = scanToCache
	}
}

// scanChatMessages rebuilds a scan chat: the original submission, the scan
// card, and any stored follow-up Q&A. The scan detail comes from the cache
// when the chat was visited before.
func (c *Controller) scanChatMessages(ctx context.Context, detail *api.ChatDetail, cached *types.ScanResult) ([]types.Message, *types.ScanResult) {
	var messages []types.Message

	submitted := detail.Chat.Title
	scan := cached
	var scanErr error
	if scan == nil && detail.Chat.ScanID != "" {
		scan, scanErr = c.api.GetScan(ctx, detail.Chat.ScanID)
	}
	if scan != nil && scan.ListingURL != "" {
		submitted = scan.ListingURL
	}
	messages = append(messages, types.Message{
		Role:        types.RoleUser,
		Content:     submitted,
		MessageType: types.MessageTypeScan,
		Timestamp:   detail.Chat.CreatedAt,
	})
	if scan != nil {
		messages = append(messages, types.Message{
			Role:        types.RoleAssistant,
			Content:     scan.Label,
			MessageType: types.MessageTypeScan,
			ScanData:    scan,
			Timestamp:   detail.Chat.CreatedAt,
		})
	}
	for _, stored := range detail.Messages {
		messages = append(messages, types.Message{
			Role:        stored.Role,
			Content:     stored.Content,
			MessageType: types.MessageTypeQuestion,
			Timestamp:   stored.CreatedAt,
		})
	}
	if scanErr != nil {
		c.logger.Warn("scan detail hydration failed", "scan_id", detail.Chat.ScanID, "error", scanErr)
		messages = append(messages, types.Message{
			Role:    types.RoleAssistant,
			Content: msgScanDetailFailed,
			IsError: true,
		})
	}
	return messages, scan
}

// compareChatMessages rebuilds a stored compare chat. Both sides are
// hydrated concurrently; a side whose fetch fails falls back to whatever
// identifier is at hand rather than blocking the chat.
func (c *Controller) compareChatMessages(ctx context.Context, detail *api.ChatDetail) []types.Message {
	sides := c.hydrateSides(ctx, detail.Chat.ScanIDs)

	var compared *types.ComparedScans
	if len(sides) == 2 {
		compared = &types.ComparedScans{Scan1: sides[0], Scan2: sides[1]}
		title := compareTitle(sides[0], sides[1])
		c.mu.Lock()
		c.chatTitles[detail.Chat.ID] = title
		for i := range c.chats {
			if c.chats[i].ID == detail.Chat.ID {
				c.chats[i].Title = title
			}
		}
		c.mu.Unlock()
	}

	var messages []types.Message
	if compared != nil {
		messages = append(messages, types.Message{
			Role:        types.RoleUser,
			Content:     fmt.Sprintf("Compare %s with %s", sideLabel(compared.Scan1), sideLabel(compared.Scan2)),
			MessageType: types.MessageTypeCompare,
			Timestamp:   detail.Chat.CreatedAt,
		})
	}
	for i, stored := range detail.Messages {
		msg := types.Message{
			Role:        stored.Role,
			Content:     stored.Content,
			MessageType: types.MessageTypeCompare,
			Timestamp:   stored.CreatedAt,
		}
		// The first assistant message is the comparison itself.
		if i == 0 && stored.Role == types.RoleAssistant {
			msg.IsComparison = true
			msg.ComparedScans = compared
		}
		messages = append(messages, msg)
	}
	return messages
}

// hydrateSides resolves scan ids to display sides. The fetches fan out
// concurrently; result handling is serialized after both finish.
func (c *Controller) hydrateSides(ctx context.Context, scanIDs []string) []types.CompareSide {
	sides := make([]types.CompareSide, len(scanIDs))
	var wg sync.WaitGroup
	for i, id := range scanIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sides[i] = types.CompareSide{ScanID: id, ListingURL: id}
			scan, err := c.api.GetScan(ctx, id)
			if err != nil {
				c.logger.Warn("compare side hydration failed", "scan_id", id, "error", err)
				return
			}
			sides[i] = types.CompareSide{ScanID: id, Title: scan.Title, ListingURL: scan.ListingURL}
		}(i, id)
	}
	wg.Wait()
	return sides
}

// localCompareMessages rebuilds a compare chat that only exists in local
// memory because persistence failed.
func localCompareMessages(local *localCompare) []types.Message {
	question := local.question
	if question == "" {
		question = fmt.Sprintf("Compare %s with %s", sideLabel(local.side1), sideLabel(local.side2))
	}
	return []types.Message{
		{
			Role:        types.RoleUser,
			Content:     question,
			MessageType: types.MessageTypeCompare,
			Timestamp:   local.createdAt,
		},
		{
			Role:          types.RoleAssistant,
			Content:       local.answer,
			MessageType:   types.MessageTypeCompare,
			IsComparison:  true,
			ComparedScans: &types.ComparedScans{Scan1: local.side1, Scan2: local.side2},
			Timestamp:     local.createdAt,
		},
	}
}
