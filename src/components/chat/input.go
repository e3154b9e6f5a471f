// input.go - Single-line input box at the bottom of the chat layout.

package chat

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1)

	inputBoxFocusedStyle = inputBoxStyle.
				BorderForeground(lipgloss.Color("33"))

	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	cursorStyle = lipgloss.NewStyle().Reverse(true)
)

// Input is the chat text input. It owns its buffer and cursor; the app reads
// the buffer on Enter and resets it. The buffer is kept as runes so editing
// never splits a multi-byte character.
type Input struct {
	buffer      []rune
	cursor      int
	Placeholder string
	Focused     bool
	width       int
}

// NewInput returns an input box with the standard placeholder.
func NewInput() *Input {
	return &Input{
		Placeholder: "Paste a listing URL or ask a question…",
		Focused:     true,
		width:       80,
	}
}

// SetWidth records the render width.
func (in *Input) SetWidth(width int) {
	if width > 0 {
		in.width = width
	}
}

// Reset clears the buffer after a submission.
func (in *Input) Reset() {
	in.buffer = nil
	in.cursor = 0
}

// Value returns the current buffer contents.
func (in *Input) Value() string {
	return string(in.buffer)
}

// HandleKey applies one keypress to the buffer. Enter is not handled here;
// the app decides what a submission means.
func (in *Input) HandleKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		text := msg.Runes
		if msg.Type == tea.KeySpace {
			text = []rune{' '}
		}
		in.buffer = append(in.buffer[:in.cursor:in.cursor], append(text, in.buffer[in.cursor:]...)...)
		in.cursor += len(text)
	case tea.KeyBackspace:
		if in.cursor > 0 {
			in.buffer = append(in.buffer[:in.cursor-1], in.buffer[in.cursor:]...)
			in.cursor--
		}
	case tea.KeyDelete:
		if in.cursor < len(in.buffer) {
			in.buffer = append(in.buffer[:in.cursor], in.buffer[in.cursor+1:]...)
		}
	case tea.KeyLeft:
		if in.cursor > 0 {
			in.cursor--
		}
	case tea.KeyRight:
		if in.cursor < len(in.buffer) {
			in.cursor++
		}
	case tea.KeyHome:
		in.cursor = 0
	case tea.KeyEnd:
		in.cursor = len(in.buffer)
	case tea.KeyCtrlU:
		in.Reset()
	}
}

// View renders the input box with a block cursor when focused.
func (in *Input) View() string {
	style := inputBoxStyle
	if in.Focused {
		style = inputBoxFocusedStyle
	}
	content := string(in.buffer)
	if content == "" && !in.Focused {
		return style.Width(in.width).Render(placeholderStyle.Render(in.Placeholder))
	}
	if in.Focused {
		before := string(in.buffer[:in.cursor])
		at := " "
		after := ""
		if in.cursor < len(in.buffer) {
			at = string(in.buffer[in.cursor])
			after = string(in.buffer[in.cursor+1:])
		}
		content = before + cursorStyle.Render(at) + after
	}
	return style.Width(in.width).Render(content)
}
