// transcript.go - Renders the active conversation: plain messages, scan
// cards, comparison cards and inline errors. The transcript is a dumb view;
// the session controller owns the message list and this model only displays
// the latest snapshot it was handed.

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scanchat/src/types"
)

var (
	userTagStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33")).
			Padding(0, 1)

	assistantTagStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("129")).
				Padding(0, 1)

	errorTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	msgBoxStyle = lipgloss.NewStyle().
			Padding(0, 2).
			MarginBottom(1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 2).
			MarginBottom(1)

	cardTitleStyle = lipgloss.NewStyle().Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	waitingNotice = "⏳ Waiting for response"
	emptyNotice   = "Paste an Airbnb, Booking.com or Agoda listing URL to scan it."
)

// riskLabelStyle picks a color for a scan's risk label.
func riskLabelStyle(label string) lipgloss.Style {
	switch strings.ToLower(label) {
	case "high", "high risk":
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	case "medium", "medium risk":
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	case "low", "low risk":
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("40"))
	}
	return lipgloss.NewStyle().Bold(true)
}

// Transcript shows the message list for the current chat with manual
// scrolling. SetMessages snaps the viewport to the bottom so new replies are
// always visible.
type Transcript struct {
	messages []types.Message
	scroll   int
	waiting  bool
	width    int
	height   int
}

// NewTranscript returns an empty transcript view.
func NewTranscript() *Transcript {
	return &Transcript{width: 80, height: 24}
}

// SetMessages replaces the rendered snapshot and scrolls to the bottom.
func (t *Transcript) SetMessages(messages []types.Message) {
	t.messages = messages
	t.scroll = -1
}

// SetWaiting toggles the pending-response notice under the last message.
func (t *Transcript) SetWaiting(waiting bool) {
	t.waiting = waiting
}

// SetSize records the pane dimensions used by View.
func (t *Transcript) SetSize(width, height int) {
	if width > 0 {
		t.width = width
	}
	if height > 0 {
		t.height = height
	}
}

// ScrollUp moves the viewport toward older messages.
func (t *Transcript) ScrollUp(lines int) {
	if t.scroll < 0 {
		t.scroll = t.bottomScroll()
	}
	t.scroll -= lines
	if t.scroll < 0 {
		t.scroll = 0
	}
}

// ScrollDown moves the viewport toward newer messages.
func (t *Transcript) ScrollDown(lines int) {
	if t.scroll < 0 {
		return
	}
	t.scroll += lines
	if t.scroll >= t.bottomScroll() {
		t.scroll = -1
	}
}

func (t *Transcript) bottomScroll() int {
	total := len(strings.Split(t.renderAll(), "\n"))
	if total <= t.height {
		return 0
	}
	return total - t.height
}

// View renders the visible slice of the transcript.
func (t *Transcript) View() string {
	if len(t.messages) == 0 && !t.waiting {
		return lipgloss.Place(t.width, t.height, lipgloss.Center, lipgloss.Center,
			dimStyle.Render(emptyNotice))
	}
	content := t.renderAll()
	lines := strings.Split(content, "\n")
	start := t.scroll
	if start < 0 {
		start = t.bottomScroll()
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := start + t.height
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

func (t *Transcript) renderAll() string {
	var parts []string
	for _, msg := range t.messages {
		parts = append(parts, t.renderMessage(msg))
	}
	if t.waiting {
		parts = append(parts, dimStyle.Render(waitingNotice))
	}
	return strings.Join(parts, "\n")
}

func (t *Transcript) renderMessage(msg types.Message) string {
	tag := assistantTagStyle.Render("Assistant")
	if msg.Role == types.RoleUser {
		tag = userTagStyle.Render("You")
	}

	var body string
	switch {
	case msg.IsError:
		body = msgBoxStyle.Render(errorTextStyle.Render(msg.Content))
	case msg.ScanData != nil:
		body = t.renderScanCard(msg.ScanData)
	case msg.IsComparison && msg.ComparedScans != nil:
		body = t.renderCompareCard(msg)
	default:
		body = msgBoxStyle.Width(t.width).Render(msg.Content)
	}
	return lipgloss.JoinVertical(lipgloss.Left, tag, body)
}

// renderScanCard draws the scored breakdown for one listing.
func (t *Transcript) renderScanCard(scan *types.ScanResult) string {
	var b strings.Builder
	title := scan.Title
	if title == "" {
		title = scan.ListingURL
	}
	b.WriteString(cardTitleStyle.Render(title) + "\n")
	if scan.Location != "" {
		b.WriteString(dimStyle.Render(scan.Location) + "\n")
	}
	b.WriteString(fmt.Sprintf("%s  %.0f/100\n",
		riskLabelStyle(scan.Label).Render(scan.Label), scan.Score))
	for _, cat := range scan.Categories {
		b.WriteString(fmt.Sprintf("  %-20s %.0f\n", cat.Name, cat.Score))
		for _, signal := range cat.Signals {
			b.WriteString(dimStyle.Render("    • "+signal) + "\n")
		}
	}
	b.WriteString(dimStyle.Render(scan.ListingURL))
	return cardStyle.Render(b.String())
}

// renderCompareCard draws the two compared listings side by side above the
// comparison answer.
func (t *Transcript) renderCompareCard(msg types.Message) string {
	left := t.renderCompareSide(msg.ComparedScans.Scan1)
	right := t.renderCompareSide(msg.ComparedScans.Scan2)
	vs := lipgloss.NewStyle().Padding(1, 2).Bold(true).Render("vs")
	header := lipgloss.JoinHorizontal(lipgloss.Top, left, vs, right)
	answer := msgBoxStyle.Width(t.width).Render(msg.Content)
	return lipgloss.JoinVertical(lipgloss.Left, header, answer)
}

func (t *Transcript) renderCompareSide(side types.CompareSide) string {
	label := side.Title
	if label == "" {
		label = side.ListingURL
	}
	return cardStyle.Render(cardTitleStyle.Render(label))
}
