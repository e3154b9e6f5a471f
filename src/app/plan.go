// plan.go - Plan and billing overlay: shows the current quota and drives
// checkout and cancellation through the billing endpoints.

package app

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scanchat/src/services/api"
	"scanchat/src/types"
)

var planEntries = []string{
	"Upgrade to Pro",
	"Cancel subscription",
	"Close",
}

var (
	planBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(1, 3)

	planTitleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)

	planDimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	planNoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("40")).MarginTop(1)

	planErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).MarginTop(1)
)

// planResultMsg is the outcome of a billing call started from the overlay.
type planResultMsg struct {
	notice string
	err    error
}

type planView struct {
	client  *api.Client
	balance types.UsageBalance
	cursor  int
	notice  string
	errMsg  string
	busy    bool
}

func newPlanView(client *api.Client, balance types.UsageBalance) *planView {
	return &planView{client: client, balance: balance}
}

func (p *planView) apply(msg planResultMsg) {
	p.busy = false
	if msg.err != nil {
		p.errMsg = msg.err.Error()
		p.notice = ""
		return
	}
	p.notice = msg.notice
	p.errMsg = ""
}

// handleKey returns close=true when the overlay should be dismissed.
func (p *planView) handleKey(msg tea.KeyMsg) (close bool, cmd tea.Cmd) {
	if p.busy {
		return false, nil
	}
	switch msg.Type {
	case tea.KeyEsc:
		return true, nil
	case tea.KeyUp:
		p.cursor = (p.cursor + len(planEntries) - 1) % len(planEntries)
	case tea.KeyDown:
		p.cursor = (p.cursor + 1) % len(planEntries)
	case tea.KeyEnter:
		switch planEntries[p.cursor] {
		case "Close":
			return true, nil
		case "Upgrade to Pro":
			p.busy = true
			return false, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
				defer cancel()
				url, err := p.client.CreateCheckout(ctx, "pro")
				if err != nil {
					return planResultMsg{err: err}
				}
				return planResultMsg{notice: "Open this link to finish checkout:\n" + url}
			}
		case "Cancel subscription":
			p.busy = true
			return false, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
				defer cancel()
				if err := p.client.CancelSubscription(ctx); err != nil {
					return planResultMsg{err: err}
				}
				return planResultMsg{notice: "Subscription canceled. Your plan stays active until it expires."}
			}
		}
	}
	return false, nil
}

func (p *planView) View(width, height int) string {
	var b strings.Builder
	plan := p.balance.Plan
	if plan == "" {
		plan = "free"
	}
	b.WriteString(planTitleStyle.Render("Your plan: "+plan) + "\n")
	b.WriteString(fmt.Sprintf("Scans remaining: %s\n", formatScansLeft(p.balance.Remaining)))
	limits := p.balance.Limits
	if limits.Scans > 0 || limits.Questions > 0 || limits.Compares > 0 {
		b.WriteString(planDimStyle.Render(fmt.Sprintf(
			"Allowance: %d scans · %d questions · %d compares", limits.Scans, limits.Questions, limits.Compares)) + "\n")
	}
	b.WriteString("\n")
	for i, entry := range planEntries {
		if i == p.cursor {
			b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")).Render("> "+entry) + "\n")
		} else {
			b.WriteString("  " + entry + "\n")
		}
	}
	if p.busy {
		b.WriteString(planDimStyle.Render("⏳ Working…"))
	}
	if p.notice != "" {
		b.WriteString(planNoticeStyle.Render(p.notice))
	}
	if p.errMsg != "" {
		b.WriteString(planErrorStyle.Render(p.errMsg))
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		planBoxStyle.Render(b.String()))
}

func (m *Model) updatePlan(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	closed, cmd := m.plan.handleKey(msg)
	if closed {
		m.plan = nil
		// the quota may have changed while the overlay was open
		return m, m.runTask(func(ctx context.Context) {
			m.controller.RefreshBalance(ctx)
		})
	}
	return m, cmd
}
