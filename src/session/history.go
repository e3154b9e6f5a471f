package session

import (
	"context"
	"strings"

	"scanchat/src/types"
)

// LoadChatsOnly fetches one page of chat summaries for the sidebar. The
// first page replaces the list; appendMode adds a further page without ever
// duplicating an id that is already present. Local-only compare chats are
// re-registered after a replace so they stay visible.
func (c *Controller) LoadChatsOnly(ctx context.Context, page int, appendMode bool) error {
	result, err := c.api.ListChats(ctx, page, chatPageLimit)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !appendMode {
		c.chats = nil
		c.chatIDs = map[string]bool{}
	}
	for _, chat := range result.Chats {
		if c.chatIDs[chat.ID] {
			continue
		}
		c.chatIDs[chat.ID] = true
		if title, ok := c.chatTitles[chat.ID]; ok && chat.Type == types.ChatTypeCompare {
			chat.Title = title
		}
		c.chats = append(c.chats, chat)
	}
	if !appendMode {
		for id, local := range c.localCompares {
			if c.chatIDs[id] {
				continue
			}
			c.chatIDs[id] = true
			c.chats = append([]types.ChatSummary{{
				ID:        id,
				Type:      types.ChatTypeCompare,
				Title:     compareTitle(local.side1, local.side2),
				CreatedAt: local.createdAt,
			}}, c.chats...)
		}
	}
	c.page = result.Page
	c.hasMore = result.HasMore
	return nil
}

const chatPageLimit = 20

// SetCompareSectionOpen records whether the sidebar's compare section is
// expanded. Title resolution only runs while it is, so opening the app never
// causes a fetch per compare chat.
func (c *Controller) SetCompareSectionOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compareSectionOpen = open
}

// CompareSectionOpen reports the sidebar compare-section state.
func (c *Controller) CompareSectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compareSectionOpen
}

// isPlaceholderTitle reports whether a compare title still looks unresolved:
// empty, the backend's "Comparison #…" filler, or a bare chat id.
func isPlaceholderTitle(title, chatID string) bool {
	if title == "" {
		return true
	}
	if strings.HasPrefix(title, "Comparison #") {
		return true
	}
	return title == chatID
}

// ResolveCompareTitles corrects placeholder titles on compare summaries. It
// is a no-op unless the compare section is open and expanded, and each title
// is resolved at most once; the result is cached by chat id.
func (c *Controller) ResolveCompareTitles(ctx context.Context) {
	c.mu.Lock()
	if !c.compareSectionOpen {
		c.mu.Unlock()
		return
	}
	var pending []types.ChatSummary
	for _, chat := range c.chats {
		if chat.Type != types.ChatTypeCompare || IsLocalChat(chat.ID) {
			continue
		}
		if _, resolved := c.chatTitles[chat.ID]; resolved {
			continue
		}
		if isPlaceholderTitle(chat.Title, chat.ID) {
			pending = append(pending, chat)
		}
	}
	c.mu.Unlock()

	for _, chat := range pending {
		detail, err := c.api.GetChat(ctx, chat.ID)
		if err != nil {
			c.logger.Warn("compare title resolution failed", "chat_id", chat.ID, "error", err)
			continue
		}
		sides := c.hydrateSides(ctx, detail.Chat.ScanIDs)
		if len(sides) != 2 {
			continue
		}
		title := compareTitle(sides[0], sides[1])

		c.mu.Lock()
		c.chatTitles[chat.ID] = title
		for i := range c.chats {
			if c.chats[i].ID == chat.ID {
				c.chats[i].Title = title
			}
		}
		c.mu.Unlock()
	}
}
