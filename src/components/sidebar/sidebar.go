// sidebar.go - Chat history sidebar with a scans section, a collapsible
// comparisons section, a new-chat row and a load-more row for older pages.

package sidebar

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scanchat/src/types"
)

// Action is what the app should do after a sidebar keypress.
type Action int

const (
	ActionNone Action = iota
	ActionNewChat
	ActionOpenChat
	ActionLoadMore
	ActionToggleCompares
)

// row kinds inside the flattened cursor space.
const (
	rowNewChat = iota
	rowChat
	rowCompareHeader
	rowLoadMore
)

type row struct {
	kind   int
	chatID string
	label  string
}

var (
	sectionTitleStyle = lipgloss.NewStyle().Bold(true)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("33")).
				Background(lipgloss.Color("236")).
				Bold(true)

	activeMarkerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("40"))

	sidebarDimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	sidebarStyle = lipgloss.NewStyle().
			Padding(1, 1).
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("240"))
)

// Model is the sidebar state. Chats arrive as a snapshot from the session
// controller; the model only tracks the cursor and the comparison section's
// expanded flag.
type Model struct {
	chats        []types.ChatSummary
	hasMore      bool
	activeChatID string
	comparesOpen bool
	cursor       int
	width        int
	height       int
	Focused      bool
}

// New returns a sidebar with the comparison section collapsed.
func New() *Model {
	return &Model{width: 28, height: 24}
}

// SetChats replaces the chat list snapshot.
func (m *Model) SetChats(chats []types.ChatSummary, hasMore bool) {
	m.chats = chats
	m.hasMore = hasMore
	m.clampCursor()
}

// SetActiveChat highlights the chat the transcript is showing.
func (m *Model) SetActiveChat(id string) {
	m.activeChatID = id
}

// SetSize records the pane dimensions.
func (m *Model) SetSize(width, height int) {
	if width > 0 {
		m.width = width
	}
	if height > 0 {
		m.height = height
	}
}

// ComparesOpen reports whether the comparison section is expanded.
func (m *Model) ComparesOpen() bool {
	return m.comparesOpen
}

// rows flattens the visible sidebar into cursor targets.
func (m *Model) rows() []row {
	rows := []row{{kind: rowNewChat, label: "[+] New Chat"}}
	for _, chat := range m.chats {
		if chat.Type == types.ChatTypeCompare {
			continue
		}
		rows = append(rows, row{kind: rowChat, chatID: chat.ID, label: chatLabel(chat)})
	}
	rows = append(rows, row{kind: rowCompareHeader})
	if m.comparesOpen {
		for _, chat := range m.chats {
			if chat.Type != types.ChatTypeCompare {
				continue
			}
			rows = append(rows, row{kind: rowChat, chatID: chat.ID, label: chatLabel(chat)})
		}
	}
	if m.hasMore {
		rows = append(rows, row{kind: rowLoadMore, label: "Load more…"})
	}
	return rows
}

func chatLabel(chat types.ChatSummary) string {
	if chat.Title != "" {
		return chat.Title
	}
	if chat.ListingURL != "" {
		return chat.ListingURL
	}
	return chat.ID
}

func (m *Model) clampCursor() {
	if n := len(m.rows()); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// HandleKey moves the cursor or activates the row under it. The returned
// chat id is only meaningful for ActionOpenChat.
func (m *Model) HandleKey(msg tea.KeyMsg) (Action, string) {
	rows := m.rows()
	switch msg.Type {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		} else {
			m.cursor = len(rows) - 1
		}
	case tea.KeyDown:
		if m.cursor < len(rows)-1 {
			m.cursor++
		} else {
			m.cursor = 0
		}
	case tea.KeyEnter:
		r := rows[m.cursor]
		switch r.kind {
		case rowNewChat:
			return ActionNewChat, ""
		case rowChat:
			return ActionOpenChat, r.chatID
		case rowCompareHeader:
			m.comparesOpen = !m.comparesOpen
			m.clampCursor()
			return ActionToggleCompares, ""
		case rowLoadMore:
			return ActionLoadMore, ""
		}
	}
	return ActionNone, ""
}

// View renders the sidebar pane.
func (m *Model) View() string {
	var b strings.Builder
	rows := m.rows()
	b.WriteString(sectionTitleStyle.Render("Scans") + "\n")
	b.WriteString(strings.Repeat("─", m.width-2) + "\n")
	for i, r := range rows {
		switch r.kind {
		case rowCompareHeader:
			arrow := "▸"
			if m.comparesOpen {
				arrow = "▾"
			}
			b.WriteString("\n" + m.renderRow(i, sectionTitleStyle.Render(arrow+" Comparisons")) + "\n")
			if m.comparesOpen {
				b.WriteString(strings.Repeat("─", m.width-2) + "\n")
			}
		case rowLoadMore:
			b.WriteString("\n" + m.renderRow(i, sidebarDimStyle.Render(r.label)) + "\n")
		default:
			label := truncate(r.label, m.width-4)
			if r.kind == rowChat && r.chatID == m.activeChatID {
				label = activeMarkerStyle.Render("● ") + label
			}
			b.WriteString(m.renderRow(i, label) + "\n")
		}
	}
	return sidebarStyle.Width(m.width).Height(m.height).Render(b.String())
}

func (m *Model) renderRow(idx int, label string) string {
	if m.Focused && idx == m.cursor {
		return selectedRowStyle.Render("> " + label)
	}
	return "  " + label
}

func truncate(s string, max int) string {
	if max <= 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
