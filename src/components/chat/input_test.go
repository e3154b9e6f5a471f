package chat

import (
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func typeRunes(in *Input, text string) {
	for _, r := range text {
		if r == ' ' {
			in.HandleKey(tea.KeyMsg{Type: tea.KeySpace})
			continue
		}
		in.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestInputBackspaceRemovesWholeRune(t *testing.T) {
	in := NewInput()

	typeRunes(in, "café")
	in.HandleKey(key(tea.KeyBackspace))

	assert.Equal(t, "caf", in.Value())
	assert.True(t, utf8.ValidString(in.Value()))
}

func TestInputArrowKeysMoveByRune(t *testing.T) {
	in := NewInput()

	typeRunes(in, "naïve")
	in.HandleKey(key(tea.KeyLeft))
	in.HandleKey(key(tea.KeyLeft))
	in.HandleKey(key(tea.KeyLeft))
	typeRunes(in, "x")

	assert.Equal(t, "naxïve", in.Value())
	assert.True(t, utf8.ValidString(in.Value()))
}

func TestInputDeleteAtHomeRemovesFirstRune(t *testing.T) {
	in := NewInput()

	typeRunes(in, "déjà vu")
	in.HandleKey(key(tea.KeyHome))
	in.HandleKey(key(tea.KeyDelete))

	assert.Equal(t, "éjà vu", in.Value())

	in.HandleKey(key(tea.KeyEnd))
	in.HandleKey(key(tea.KeyBackspace))
	assert.Equal(t, "éjà v", in.Value())
}

func TestInputCtrlUClearsBuffer(t *testing.T) {
	in := NewInput()

	typeRunes(in, "https://www.airbnb.com/rooms/123")
	in.HandleKey(key(tea.KeyCtrlU))

	assert.Empty(t, in.Value())

	typeRunes(in, "ok")
	assert.Equal(t, "ok", in.Value())
}
