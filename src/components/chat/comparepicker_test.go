package chat

import (
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanchat/src/session"
)

func pickerOptions() []session.CompareOption {
	return []session.CompareOption{
		{ScanID: "s1", Title: "Canal Loft", ListingURL: "https://www.airbnb.com/rooms/1"},
		{ScanID: "s2", Title: "Harbor Flat", ListingURL: "https://www.airbnb.com/rooms/2"},
		{ScanID: "s3", ListingURL: "https://www.booking.com/hotel/nl/plain"},
	}
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func TestPickerStartsWithNothingSelected(t *testing.T) {
	p := NewPicker(pickerOptions())

	assert.False(t, p.CanSubmit())
	assert.Empty(t, p.Warning())
	sel := p.Selection()
	assert.Empty(t, sel.Scan1ID)
	assert.Empty(t, sel.Scan2ID)
}

func TestPickerLabelsFallBackToURL(t *testing.T) {
	p := NewPicker(pickerOptions())

	assert.Equal(t, "Canal Loft", p.optionLabel(0))
	assert.Equal(t, "https://www.booking.com/hotel/nl/plain", p.optionLabel(2),
		"an unresolved title shows the raw listing URL")
}

func TestPickerSelectingDistinctListingsEnablesSubmit(t *testing.T) {
	p := NewPicker(pickerOptions())

	p.HandleKey(key(tea.KeyRight)) // first dropdown -> s1
	p.HandleKey(key(tea.KeyTab))   // focus second dropdown
	p.HandleKey(key(tea.KeyRight)) // -> s1
	p.HandleKey(key(tea.KeyRight)) // -> s2

	require.True(t, p.CanSubmit())
	assert.Empty(t, p.Warning())
	sel := p.Selection()
	assert.Equal(t, "s1", sel.Scan1ID)
	assert.Equal(t, "s2", sel.Scan2ID)
}

func TestPickerSameListingDisablesSubmitWithWarning(t *testing.T) {
	p := NewPicker(pickerOptions())

	p.HandleKey(key(tea.KeyRight)) // first dropdown -> s1
	p.HandleKey(key(tea.KeyTab))
	p.HandleKey(key(tea.KeyRight)) // second dropdown -> s1

	assert.False(t, p.CanSubmit())
	assert.Equal(t, "Cannot compare the same listing", p.Warning())

	// Enter on the submit button must not go through.
	p.focus = fieldSubmit
	assert.False(t, p.HandleKey(key(tea.KeyEnter)))
}

func TestPickerWarningClearsWhenSelectionDiverges(t *testing.T) {
	p := NewPicker(pickerOptions())

	p.HandleKey(key(tea.KeyRight))
	p.HandleKey(key(tea.KeyTab))
	p.HandleKey(key(tea.KeyRight))
	require.NotEmpty(t, p.Warning())

	p.HandleKey(key(tea.KeyRight)) // move the second side off s1
	assert.Empty(t, p.Warning())
	assert.True(t, p.CanSubmit())
}

func TestPickerSubmitDeliversQuestion(t *testing.T) {
	p := NewPicker(pickerOptions())

	p.HandleKey(key(tea.KeyRight))
	p.HandleKey(key(tea.KeyTab))
	p.HandleKey(key(tea.KeyRight))
	p.HandleKey(key(tea.KeyRight))
	p.HandleKey(key(tea.KeyTab)) // question field
	for _, r := range "which is safer" {
		p.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	p.HandleKey(key(tea.KeyTab)) // submit button

	require.True(t, p.HandleKey(key(tea.KeyEnter)))
	sel := p.Selection()
	assert.Equal(t, "s1", sel.Scan1ID)
	assert.Equal(t, "s2", sel.Scan2ID)
	assert.Equal(t, "which is safer", sel.Question)
}

func TestPickerDropdownWrapsAround(t *testing.T) {
	p := NewPicker(pickerOptions())

	p.HandleKey(key(tea.KeyLeft)) // from unset, left lands on the last option
	assert.Equal(t, "s3", p.Selection().Scan1ID)

	p.HandleKey(key(tea.KeyRight))
	assert.Equal(t, "s1", p.Selection().Scan1ID)
}

func TestPickerWithNoOptionsNeverSubmits(t *testing.T) {
	p := NewPicker(nil)

	p.HandleKey(key(tea.KeyRight))
	p.focus = fieldSubmit
	assert.False(t, p.HandleKey(key(tea.KeyEnter)))
	assert.False(t, p.CanSubmit())
}

func TestPickerQuestionBackspaceKeepsValidText(t *testing.T) {
	p := NewPicker(pickerOptions())

	p.HandleKey(key(tea.KeyTab))
	p.HandleKey(key(tea.KeyTab)) // question field
	for _, r := range "en qué" {
		if r == ' ' {
			p.HandleKey(tea.KeyMsg{Type: tea.KeySpace})
			continue
		}
		p.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	p.HandleKey(key(tea.KeyBackspace))

	assert.Equal(t, "en qu", p.Selection().Question)
	assert.True(t, utf8.ValidString(p.question))
}
