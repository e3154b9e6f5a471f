// admin.go - Operator console: dashboard counters, user and scan listings,
// revenue, missing-listing triage and the manual listing registry. Unlike the
// chat views this model drives its own fetches, returning tea.Cmds that call
// the admin API and deliver section content back as messages.

package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scanchat/src/services/api"
)

const fetchTimeout = 15 * time.Second

var menuEntries = []string{
	"Dashboard",
	"Users",
	"Scans",
	"Revenue",
	"Missing listings",
	"Manual listings",
	"Flush scan cache",
}

var (
	adminTitleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)

	adminEntryStyle = lipgloss.NewStyle().Padding(0, 1)

	adminSelectedStyle = adminEntryStyle.
				Bold(true).
				Foreground(lipgloss.Color("203")).
				Background(lipgloss.Color("236"))

	adminErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	adminHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// DataMsg carries a rendered section body back into the console.
type DataMsg struct {
	Section string
	Content string
}

// ErrMsg carries a failed fetch back into the console.
type ErrMsg struct {
	Section string
	Err     error
}

// Model is the admin console. client must authenticate with the admin token.
type Model struct {
	client  *api.Client
	cursor  int
	section string
	content string
	errMsg  string
	loading bool
}

// New returns the console at its menu.
func New(client *api.Client) *Model {
	return &Model{client: client}
}

// AtMenu reports whether the console is showing its top-level menu, which is
// where Esc should hand control back to the app.
func (m *Model) AtMenu() bool {
	return m.section == "" && !m.loading
}

// HandleMsg consumes fetch results. It reports whether the message was one
// of the console's own.
func (m *Model) HandleMsg(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case DataMsg:
		m.loading = false
		m.section = msg.Section
		m.content = msg.Content
		m.errMsg = ""
		return true
	case ErrMsg:
		m.loading = false
		m.section = msg.Section
		m.content = ""
		m.errMsg = msg.Err.Error()
		return true
	}
	return false
}

// HandleKey navigates the menu or backs out of a section. The returned Cmd,
// when non-nil, runs a fetch.
func (m *Model) HandleKey(msg tea.KeyMsg) tea.Cmd {
	if m.section != "" || m.loading {
		if msg.Type == tea.KeyEsc {
			m.section = ""
			m.content = ""
			m.errMsg = ""
			m.loading = false
		}
		return nil
	}
	switch msg.Type {
	case tea.KeyUp:
		m.cursor = (m.cursor + len(menuEntries) - 1) % len(menuEntries)
	case tea.KeyDown:
		m.cursor = (m.cursor + 1) % len(menuEntries)
	case tea.KeyEnter:
		entry := menuEntries[m.cursor]
		m.loading = true
		return m.fetch(entry)
	}
	return nil
}

func (m *Model) fetch(section string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		content, err := m.fetchSection(ctx, section)
		if err != nil {
			return ErrMsg{Section: section, Err: err}
		}
		return DataMsg{Section: section, Content: content}
	}
}

func (m *Model) fetchSection(ctx context.Context, section string) (string, error) {
	switch section {
	case "Dashboard":
		stats, err := m.client.Dashboard(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Users:    %d\nScans:    %d\nCompares: %d\nChats:    %d",
			stats.Users, stats.Scans, stats.Compares, stats.Chats), nil

	case "Users":
		users, err := m.client.ListUsers(ctx, 1, 50)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%-32s %-10s %8s %10s\n", "EMAIL", "PLAN", "USED", "REMAINING")
		for _, u := range users {
			fmt.Fprintf(&b, "%-32s %-10s %8.1f %10.1f\n", u.User.Email, u.Plan, u.Used, u.Remaining)
		}
		return b.String(), nil

	case "Scans":
		scans, err := m.client.ListScans(ctx, 1, 50)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%-26s %-10s %s\n", "USER", "LABEL", "LISTING")
		for _, s := range scans {
			fmt.Fprintf(&b, "%-26s %-10s %s\n", s.UserEmail, s.Label, s.ListingURL)
		}
		return b.String(), nil

	case "Revenue":
		report, err := m.client.RevenueAnalytics(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Total revenue:   %.2f\nThis month:      %.2f\nActive plans:    %d\nCancellations:   %d",
			report.TotalRevenue, report.MonthlyRevenue, report.ActivePlans, report.Cancellations), nil

	case "Missing listings":
		listings, err := m.client.MissingListings(ctx)
		if err != nil {
			return "", err
		}
		if len(listings) == 0 {
			return "No unresolved listing URLs.", nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%8s  %s\n", "REQUESTS", "URL")
		for _, l := range listings {
			fmt.Fprintf(&b, "%8d  %s\n", l.Requests, l.URL)
		}
		return b.String(), nil

	case "Manual listings":
		listings, err := m.client.ManuallyAddedListings(ctx)
		if err != nil {
			return "", err
		}
		if len(listings) == 0 {
			return "No manually added listings.", nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%-30s %-20s %s\n", "TITLE", "ADDED BY", "LISTING")
		for _, l := range listings {
			fmt.Fprintf(&b, "%-30s %-20s %s\n", l.Title, l.AddedBy, l.ListingURL)
		}
		return b.String(), nil

	case "Flush scan cache":
		if err := m.client.FlushCache(ctx); err != nil {
			return "", err
		}
		return "Scan cache flushed.", nil
	}
	return "", fmt.Errorf("unknown section %q", section)
}

// View renders the console centered in the given region.
func (m *Model) View(width, height int) string {
	var b strings.Builder
	b.WriteString(adminTitleStyle.Render("Admin console") + "\n")
	switch {
	case m.loading:
		b.WriteString("⏳ Loading…\n")
	case m.section != "":
		b.WriteString(adminTitleStyle.Render(m.section) + "\n")
		if m.errMsg != "" {
			b.WriteString(adminErrorStyle.Render(m.errMsg) + "\n")
		} else {
			b.WriteString(m.content + "\n")
		}
		b.WriteString(adminHintStyle.Render("Esc: back"))
	default:
		for i, entry := range menuEntries {
			style := adminEntryStyle
			if i == m.cursor {
				style = adminSelectedStyle
			}
			b.WriteString(style.Render(entry) + "\n")
		}
		b.WriteString(adminHintStyle.Render("Up/Down: navigate  Enter: open  Esc: leave console"))
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}
