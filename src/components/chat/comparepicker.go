// comparepicker.go - Modal for picking two previously scanned listings to
// compare. Submission stays disabled until two distinct scans are selected.

package chat

import (
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scanchat/src/session"
	"scanchat/src/types"
)

const (
	fieldSide1 = iota
	fieldSide2
	fieldQuestion
	fieldSubmit
)

const sameListingWarning = "Cannot compare the same listing"

var (
	pickerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(1, 3)

	pickerTitleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)

	fieldLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	fieldFocusedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("33")).
				Bold(true)

	submitStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Border(lipgloss.NormalBorder())

	submitDisabledStyle = submitStyle.Foreground(lipgloss.Color("240"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			MarginTop(1)
)

// Picker is the comparison selection modal. Options come from the session
// controller, already deduplicated and limited to prior scans.
type Picker struct {
	options  []session.CompareOption
	focus    int
	sel1     int
	sel2     int
	question string
}

// NewPicker builds a picker over the given options. Nothing is preselected.
func NewPicker(options []session.CompareOption) *Picker {
	return &Picker{options: options, sel1: -1, sel2: -1}
}

// Selection returns the current picker state.
func (p *Picker) Selection() types.ComparisonSelection {
	sel := types.ComparisonSelection{Question: strings.TrimSpace(p.question)}
	if p.sel1 >= 0 && p.sel1 < len(p.options) {
		sel.Scan1ID = p.options[p.sel1].ScanID
	}
	if p.sel2 >= 0 && p.sel2 < len(p.options) {
		sel.Scan2ID = p.options[p.sel2].ScanID
	}
	return sel
}

// CanSubmit reports whether two distinct listings are selected.
func (p *Picker) CanSubmit() bool {
	sel := p.Selection()
	return sel.Scan1ID != "" && sel.Scan2ID != "" && sel.Scan1ID != sel.Scan2ID
}

// Warning returns the inline validation message, empty when there is none.
func (p *Picker) Warning() string {
	sel := p.Selection()
	if sel.Scan1ID != "" && sel.Scan1ID == sel.Scan2ID {
		return sameListingWarning
	}
	return ""
}

// HandleKey applies one keypress. It reports whether the user submitted a
// valid selection; Esc is handled by the caller.
func (p *Picker) HandleKey(msg tea.KeyMsg) (submitted bool) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		p.focus = (p.focus + 1) % 4
		return false
	case tea.KeyShiftTab, tea.KeyUp:
		p.focus = (p.focus + 3) % 4
		return false
	case tea.KeyLeft:
		p.cycle(-1)
		return false
	case tea.KeyRight:
		p.cycle(1)
		return false
	case tea.KeyEnter:
		if p.focus == fieldSubmit && p.CanSubmit() {
			return true
		}
		if p.focus != fieldQuestion {
			p.cycle(1)
		}
		return false
	case tea.KeyBackspace:
		if p.focus == fieldQuestion && len(p.question) > 0 {
			_, size := utf8.DecodeLastRuneInString(p.question)
			p.question = p.question[:len(p.question)-size]
		}
		return false
	case tea.KeyRunes, tea.KeySpace:
		if p.focus == fieldQuestion {
			if msg.Type == tea.KeySpace {
				p.question += " "
			} else {
				p.question += string(msg.Runes)
			}
		}
		return false
	}
	return false
}

// cycle advances the selection of the focused dropdown, wrapping around.
func (p *Picker) cycle(delta int) {
	if len(p.options) == 0 {
		return
	}
	target := &p.sel1
	if p.focus == fieldSide2 {
		target = &p.sel2
	} else if p.focus != fieldSide1 {
		return
	}
	if *target < 0 {
		if delta > 0 {
			*target = 0
		} else {
			*target = len(p.options) - 1
		}
		return
	}
	*target = (*target + delta + len(p.options)) % len(p.options)
}

func (p *Picker) optionLabel(idx int) string {
	if idx < 0 || idx >= len(p.options) {
		return "– select a listing –"
	}
	return p.options[idx].Label()
}

func (p *Picker) renderField(label, value string, focused bool) string {
	line := fieldLabelStyle.Render(label+": ") + value
	if focused {
		return fieldFocusedStyle.Render("> ") + line
	}
	return "  " + line
}

// View renders the picker centered in the given region.
func (p *Picker) View(width, height int) string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("Compare two listings") + "\n")
	b.WriteString(p.renderField("First listing", p.optionLabel(p.sel1), p.focus == fieldSide1) + "\n")
	b.WriteString(p.renderField("Second listing", p.optionLabel(p.sel2), p.focus == fieldSide2) + "\n")

	question := p.question
	if question == "" {
		question = placeholderStyle.Render("optional question")
	}
	b.WriteString(p.renderField("Question", question, p.focus == fieldQuestion) + "\n\n")

	submit := submitDisabledStyle.Render("Compare")
	if p.CanSubmit() {
		submit = submitStyle.Render("Compare")
		if p.focus == fieldSubmit {
			submit = submitStyle.BorderForeground(lipgloss.Color("33")).Bold(true).Render("Compare")
		}
	}
	b.WriteString(submit)

	if warning := p.Warning(); warning != "" {
		b.WriteString("\n" + warningStyle.Render(warning))
	}
	b.WriteString("\n\n" + fieldLabelStyle.Render("Tab: next field  ←/→: change  Enter: compare  Esc: cancel"))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		pickerBoxStyle.Render(b.String()))
}
