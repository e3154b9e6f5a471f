package sidebar

import (
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanchat/src/types"
)

func seededSidebar() *Model {
	m := New()
	m.SetChats([]types.ChatSummary{
		{ID: "c1", Type: types.ChatTypeScan, Title: "Canal Loft"},
		{ID: "c2", Type: types.ChatTypeCompare, Title: "Comparison #deadbeef"},
		{ID: "c3", Type: types.ChatTypeScan, Title: "Harbor Flat"},
	}, true)
	m.Focused = true
	return m
}

func press(m *Model, t tea.KeyType) (Action, string) {
	return m.HandleKey(tea.KeyMsg{Type: t})
}

func TestSidebarComparesStartCollapsed(t *testing.T) {
	m := seededSidebar()

	require.False(t, m.ComparesOpen())
	// new chat, two scan rows, compare header, load more
	assert.Len(t, m.rows(), 5)
}

func TestSidebarEnterOnHeaderTogglesCompares(t *testing.T) {
	m := seededSidebar()

	press(m, tea.KeyDown) // first scan chat
	press(m, tea.KeyDown) // second scan chat
	press(m, tea.KeyDown) // comparisons header
	action, _ := press(m, tea.KeyEnter)

	require.Equal(t, ActionToggleCompares, action)
	assert.True(t, m.ComparesOpen())
	assert.Len(t, m.rows(), 6, "compare rows become visible")

	action, _ = press(m, tea.KeyEnter)
	require.Equal(t, ActionToggleCompares, action)
	assert.False(t, m.ComparesOpen())
}

func TestSidebarOpensChatUnderCursor(t *testing.T) {
	m := seededSidebar()

	press(m, tea.KeyDown)
	action, id := press(m, tea.KeyEnter)

	assert.Equal(t, ActionOpenChat, action)
	assert.Equal(t, "c1", id)
}

func TestSidebarNewChatAndLoadMoreRows(t *testing.T) {
	m := seededSidebar()

	action, _ := press(m, tea.KeyEnter)
	assert.Equal(t, ActionNewChat, action)

	press(m, tea.KeyUp) // wraps to the last row
	action, _ = press(m, tea.KeyEnter)
	assert.Equal(t, ActionLoadMore, action)
}

func TestSidebarCursorSurvivesShrinkingList(t *testing.T) {
	m := seededSidebar()
	press(m, tea.KeyUp) // last row

	m.SetChats(nil, false)
	action, _ := press(m, tea.KeyEnter)
	assert.Equal(t, ActionToggleCompares, action, "cursor clamps onto the remaining rows")
}

func TestTruncateKeepsWholeRunes(t *testing.T) {
	assert.Equal(t, "Châte…", truncate("Château d'Aix", 6))
	assert.True(t, utf8.ValidString(truncate("Séjour à Paris", 7)))
	assert.Equal(t, "short", truncate("short", 10))
}
