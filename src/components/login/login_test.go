package login

import (
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(m *Model, text string) {
	for _, r := range text {
		m.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func press(m *Model, t tea.KeyType) *Submit {
	return m.HandleKey(tea.KeyMsg{Type: t})
}

func TestLoginSubmitsCredentials(t *testing.T) {
	m := New("scanchat")

	typeText(m, "guest@example.com")
	require.Nil(t, press(m, tea.KeyEnter), "enter advances to the password field")
	typeText(m, "hunter2!")
	sub := press(m, tea.KeyEnter)

	require.NotNil(t, sub)
	assert.Equal(t, ModeLogin, sub.Mode)
	assert.Equal(t, "guest@example.com", sub.Email)
	assert.Equal(t, "hunter2!", sub.Password)
}

func TestLoginRejectsBadEmailLocally(t *testing.T) {
	m := New("scanchat")

	typeText(m, "not-an-email")
	press(m, tea.KeyEnter)
	typeText(m, "hunter2!")
	sub := press(m, tea.KeyEnter)

	assert.Nil(t, sub)
	assert.Contains(t, m.View(80, 24), "valid email")
}

func TestSignupRequiresMatchingPasswords(t *testing.T) {
	m := New("scanchat")
	m.SetMode(ModeSignup)

	typeText(m, "Ada")
	press(m, tea.KeyEnter)
	typeText(m, "ada@example.com")
	press(m, tea.KeyEnter)
	typeText(m, "correcthorse")
	press(m, tea.KeyEnter)
	typeText(m, "wronghorse!!")
	sub := press(m, tea.KeyEnter)

	assert.Nil(t, sub)
	assert.Contains(t, m.View(80, 24), "Passwords do not match")
}

func TestSignupSubmitsWhenValid(t *testing.T) {
	m := New("scanchat")
	m.SetMode(ModeSignup)

	typeText(m, "Ada")
	press(m, tea.KeyEnter)
	typeText(m, "ada@example.com")
	press(m, tea.KeyEnter)
	typeText(m, "correcthorse")
	press(m, tea.KeyEnter)
	typeText(m, "correcthorse")
	sub := press(m, tea.KeyEnter)

	require.NotNil(t, sub)
	assert.Equal(t, ModeSignup, sub.Mode)
	assert.Equal(t, "Ada", sub.Name)
}

func TestModeSwitchClearsErrors(t *testing.T) {
	m := New("scanchat")
	m.SetError("Invalid email or password")

	press(m, tea.KeyCtrlS)
	assert.Equal(t, ModeSignup, m.Mode())
	assert.NotContains(t, m.View(80, 24), "Invalid email or password")
}

func TestBusyFormIgnoresInput(t *testing.T) {
	m := New("scanchat")
	m.Busy = true

	typeText(m, "guest@example.com")
	sub := press(m, tea.KeyEnter)

	assert.Nil(t, sub)
	assert.NotContains(t, m.View(80, 24), "guest@example.com")
}

func TestBackspaceRemovesWholeRuneFromField(t *testing.T) {
	m := New("scanchat")

	typeText(m, "guest@example.com")
	require.Nil(t, press(m, tea.KeyEnter))
	typeText(m, "sécrets1é")
	press(m, tea.KeyBackspace)
	typeText(m, "2")
	sub := press(m, tea.KeyEnter)

	require.NotNil(t, sub)
	assert.Equal(t, "sécrets12", sub.Password)
	assert.True(t, utf8.ValidString(sub.Password))
}
