// login.go - Authentication forms: sign in, sign up and password reset.
// The form only validates locally; the app runs the actual API call and
// feeds errors back through SetError.

package login

import (
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Mode selects which form is shown.
type Mode int

const (
	ModeLogin Mode = iota
	ModeSignup
	ModeReset
)

// Submit is a locally validated form submission for the app to execute.
type Submit struct {
	Mode     Mode
	Email    string
	Password string
	Name     string
}

type field struct {
	label  string
	value  string
	secret bool
}

var (
	formBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(1, 4)

	formTitleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)

	formLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	formFocusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)

	formErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).MarginTop(1)

	formNoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("40")).MarginTop(1)

	formHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Model is the authentication screen. Title distinguishes the user login
// from the admin console login; the forms behave identically.
type Model struct {
	Title  string
	mode   Mode
	fields []field
	focus  int
	errMsg string
	notice string
	Busy   bool
}

// New returns the sign-in form.
func New(title string) *Model {
	m := &Model{Title: title}
	m.SetMode(ModeLogin)
	return m
}

// Mode returns the active form.
func (m *Model) Mode() Mode {
	return m.mode
}

// SetMode switches forms and clears transient state.
func (m *Model) SetMode(mode Mode) {
	m.mode = mode
	m.focus = 0
	m.errMsg = ""
	switch mode {
	case ModeLogin:
		m.fields = []field{
			{label: "Email"},
			{label: "Password", secret: true},
		}
	case ModeSignup:
		m.fields = []field{
			{label: "Name"},
			{label: "Email"},
			{label: "Password", secret: true},
			{label: "Confirm password", secret: true},
		}
	case ModeReset:
		m.fields = []field{
			{label: "Email"},
		}
	}
}

// SetError shows a failure from the app, e.g. a rejected login.
func (m *Model) SetError(msg string) {
	m.Busy = false
	m.errMsg = msg
	m.notice = ""
}

// SetNotice shows a success message, e.g. that a reset email was sent.
func (m *Model) SetNotice(msg string) {
	m.Busy = false
	m.notice = msg
	m.errMsg = ""
}

// HandleKey applies one keypress. A non-nil Submit means the form passed
// local validation and the app should run the request.
func (m *Model) HandleKey(msg tea.KeyMsg) *Submit {
	if m.Busy {
		return nil
	}
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		m.focus = (m.focus + 1) % len(m.fields)
	case tea.KeyShiftTab, tea.KeyUp:
		m.focus = (m.focus + len(m.fields) - 1) % len(m.fields)
	case tea.KeyEnter:
		if m.focus < len(m.fields)-1 {
			m.focus++
			return nil
		}
		return m.submit()
	case tea.KeyBackspace:
		f := &m.fields[m.focus]
		if len(f.value) > 0 {
			_, size := utf8.DecodeLastRuneInString(f.value)
			f.value = f.value[:len(f.value)-size]
		}
	case tea.KeyRunes, tea.KeySpace:
		f := &m.fields[m.focus]
		if msg.Type == tea.KeySpace {
			f.value += " "
		} else {
			f.value += string(msg.Runes)
		}
	case tea.KeyCtrlS:
		if m.mode == ModeLogin {
			m.SetMode(ModeSignup)
		} else {
			m.SetMode(ModeLogin)
		}
	case tea.KeyCtrlR:
		if m.mode == ModeReset {
			m.SetMode(ModeLogin)
		} else {
			m.SetMode(ModeReset)
		}
	}
	return nil
}

func (m *Model) valueOf(label string) string {
	for _, f := range m.fields {
		if f.label == label {
			return strings.TrimSpace(f.value)
		}
	}
	return ""
}

func (m *Model) submit() *Submit {
	email := m.valueOf("Email")
	if email == "" || !strings.Contains(email, "@") {
		m.errMsg = "Enter a valid email address"
		return nil
	}
	switch m.mode {
	case ModeLogin:
		password := m.valueOf("Password")
		if password == "" {
			m.errMsg = "Password is required"
			return nil
		}
		m.errMsg = ""
		return &Submit{Mode: ModeLogin, Email: email, Password: password}
	case ModeSignup:
		password := m.valueOf("Password")
		if len(password) < 8 {
			m.errMsg = "Password must be at least 8 characters"
			return nil
		}
		if password != m.valueOf("Confirm password") {
			m.errMsg = "Passwords do not match"
			return nil
		}
		m.errMsg = ""
		return &Submit{Mode: ModeSignup, Email: email, Password: password, Name: m.valueOf("Name")}
	case ModeReset:
		m.errMsg = ""
		return &Submit{Mode: ModeReset, Email: email}
	}
	return nil
}

func (m *Model) title() string {
	switch m.mode {
	case ModeSignup:
		return m.Title + " · Sign up"
	case ModeReset:
		return m.Title + " · Reset password"
	}
	return m.Title + " · Sign in"
}

// View renders the form centered in the given region.
func (m *Model) View(width, height int) string {
	var b strings.Builder
	b.WriteString(formTitleStyle.Render(m.title()) + "\n")
	for i, f := range m.fields {
		value := f.value
		if f.secret {
			value = strings.Repeat("•", len(f.value))
		}
		line := formLabelStyle.Render(f.label+": ") + value
		if i == m.focus {
			b.WriteString(formFocusStyle.Render("> ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	if m.Busy {
		b.WriteString(formHintStyle.Render("⏳ Working…"))
	}
	if m.errMsg != "" {
		b.WriteString(formErrorStyle.Render(m.errMsg))
	}
	if m.notice != "" {
		b.WriteString(formNoticeStyle.Render(m.notice))
	}
	b.WriteString("\n" + formHintStyle.Render("Enter: submit  Ctrl+S: sign up  Ctrl+R: reset password"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		formBoxStyle.Render(b.String()))
}
