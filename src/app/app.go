// app.go - Root Bubble Tea model. Routes input between the login screen,
// the chat layout (sidebar, transcript, input, compare picker), the plan
// view and the admin console, and bridges keypresses into session
// controller calls that run as background commands.

package app

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scanchat/src/components/admin"
	"scanchat/src/components/chat"
	"scanchat/src/components/login"
	"scanchat/src/components/sidebar"
	"scanchat/src/services/api"
	"scanchat/src/services/storage"
	"scanchat/src/session"
)

type mode int

const (
	modeLogin mode = iota
	modeChat
	modeAdminLogin
	modeAdmin
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

const taskTimeout = 90 * time.Second

// taskDoneMsg signals that one controller call finished; the views re-pull
// their snapshots from the controller.
type taskDoneMsg struct{}

// authResultMsg carries the outcome of a login, signup or reset request.
type authResultMsg struct {
	submit login.Submit
	admin  bool
	resp   *api.AuthResponse
	err    error
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	headerInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 1)
)

// Model is the application root.
type Model struct {
	logger     *slog.Logger
	client     *api.Client
	admClient  *api.Client
	creds      *storage.CredStore
	adminCreds *storage.CredStore
	controller *session.Controller

	mode  mode
	focus focusArea

	transcript *chat.Transcript
	input      *chat.Input
	picker     *chat.Picker
	sideBar    *sidebar.Model
	loginForm  *login.Model
	adminForm  *login.Model
	console    *admin.Model
	plan       *planView

	width   int
	height  int
	pending int
}

// New wires the application together. The user and admin clients share a
// base URL but authenticate with separate credential stores.
func New(client, admClient *api.Client, creds, adminCreds *storage.CredStore,
	controller *session.Controller, logger *slog.Logger) *Model {

	m := &Model{
		logger:     logger,
		client:     client,
		admClient:  admClient,
		creds:      creds,
		adminCreds: adminCreds,
		controller: controller,
		transcript: chat.NewTranscript(),
		input:      chat.NewInput(),
		sideBar:    sidebar.New(),
		loginForm:  login.New("scanchat"),
		adminForm:  login.New("scanchat admin"),
		console:    admin.New(admClient),
		width:      100,
		height:     30,
	}
	if creds.Token() != "" {
		m.mode = modeChat
	}
	return m
}

// Init starts the session bootstrap when a stored token exists.
func (m *Model) Init() tea.Cmd {
	if m.mode == modeChat {
		return m.runTask(func(ctx context.Context) {
			if err := m.controller.Bootstrap(ctx); err != nil {
				m.logger.Warn("bootstrap failed", "error", err)
			}
		})
	}
	return nil
}

// runTask executes one controller call off the UI goroutine.
func (m *Model) runTask(fn func(ctx context.Context)) tea.Cmd {
	m.pending++
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		fn(ctx)
		return taskDoneMsg{}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case taskDoneMsg:
		if m.pending > 0 {
			m.pending--
		}
		m.syncFromController()
		return m, nil

	case authResultMsg:
		return m.handleAuthResult(msg)

	case planResultMsg:
		if m.plan != nil {
			m.plan.apply(msg)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeLogin:
			return m.updateLogin(msg)
		case modeAdminLogin:
			return m.updateAdminLogin(msg)
		case modeAdmin:
			return m.updateAdmin(msg)
		default:
			return m.updateChat(msg)
		}
	}

	if m.mode == modeAdmin && m.console.HandleMsg(msg) {
		return m, nil
	}
	return m, nil
}

func (m *Model) layout() {
	sidebarWidth := 30
	if m.width < 80 {
		sidebarWidth = m.width / 3
	}
	contentHeight := m.height - 4
	m.sideBar.SetSize(sidebarWidth, contentHeight)
	m.transcript.SetSize(m.width-sidebarWidth-2, contentHeight-3)
	m.input.SetWidth(m.width - sidebarWidth - 4)
}

// syncFromController refreshes every view from the controller's snapshot.
func (m *Model) syncFromController() {
	if m.controller.LoggedOut() && m.mode == modeChat {
		m.mode = modeLogin
		m.loginForm.SetError("Your session has expired. Please sign in again.")
		return
	}
	m.transcript.SetMessages(m.controller.Messages())
	m.transcript.SetWaiting(m.pending > 0)
	m.sideBar.SetChats(m.controller.Chats(), m.controller.HasMoreChats())
	m.sideBar.SetActiveChat(m.controller.CurrentChatID())
	if m.controller.ShowComparePicker() {
		if m.picker == nil {
			m.picker = chat.NewPicker(m.controller.CompareOptions())
		}
	} else if m.picker != nil && m.pending == 0 {
		m.picker = nil
	}
}

// --- login ---------------------------------------------------------------

func (m *Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if sub := m.loginForm.HandleKey(msg); sub != nil {
		m.loginForm.Busy = true
		return m, m.authCmd(*sub, false)
	}
	return m, nil
}

func (m *Model) updateAdminLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.mode = modeChat
		return m, nil
	}
	if sub := m.adminForm.HandleKey(msg); sub != nil {
		m.adminForm.Busy = true
		return m, m.authCmd(*sub, true)
	}
	return m, nil
}

func (m *Model) authCmd(sub login.Submit, asAdmin bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		var resp *api.AuthResponse
		var err error
		switch {
		case asAdmin:
			resp, err = m.admClient.AdminLogin(ctx, sub.Email, sub.Password)
		case sub.Mode == login.ModeSignup:
			resp, err = m.client.Signup(ctx, sub.Email, sub.Password, sub.Name)
		case sub.Mode == login.ModeReset:
			err = m.client.RequestPasswordReset(ctx, sub.Email)
		default:
			resp, err = m.client.Login(ctx, sub.Email, sub.Password)
		}
		return authResultMsg{submit: sub, admin: asAdmin, resp: resp, err: err}
	}
}

func (m *Model) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	form := m.loginForm
	if msg.admin {
		form = m.adminForm
	}
	if msg.err != nil {
		form.SetError(msg.err.Error())
		return m, nil
	}
	if msg.submit.Mode == login.ModeReset {
		form.SetNotice("If that address has an account, a reset link is on its way.")
		form.SetMode(login.ModeLogin)
		return m, nil
	}

	if msg.admin {
		if err := m.adminCreds.Save(msg.resp.Token, &msg.resp.User); err != nil {
			form.SetError(err.Error())
			return m, nil
		}
		form.Busy = false
		m.mode = modeAdmin
		return m, nil
	}

	if err := m.creds.Save(msg.resp.Token, &msg.resp.User); err != nil {
		form.SetError(err.Error())
		return m, nil
	}
	form.Busy = false
	m.mode = modeChat
	m.controller.StartNewChat()
	return m, m.runTask(func(ctx context.Context) {
		if err := m.controller.Bootstrap(ctx); err != nil {
			m.logger.Warn("bootstrap failed", "error", err)
		}
	})
}

// --- admin ---------------------------------------------------------------

func (m *Model) updateAdmin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc && m.console.AtMenu() {
		m.mode = modeChat
		return m, nil
	}
	return m, m.console.HandleKey(msg)
}

// --- chat ----------------------------------------------------------------

func (m *Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.plan != nil {
		return m.updatePlan(msg)
	}
	if m.picker != nil {
		return m.updatePicker(msg)
	}

	switch msg.Type {
	case tea.KeyTab:
		if m.focus == focusInput {
			m.focus = focusSidebar
		} else {
			m.focus = focusInput
		}
		m.input.Focused = m.focus == focusInput
		m.sideBar.Focused = m.focus == focusSidebar
		return m, nil
	case tea.KeyCtrlN:
		m.controller.StartNewChat()
		m.syncFromController()
		return m, nil
	case tea.KeyCtrlA:
		if m.adminCreds.Token() != "" {
			m.mode = modeAdmin
		} else {
			m.mode = modeAdminLogin
		}
		return m, nil
	case tea.KeyCtrlP:
		m.plan = newPlanView(m.client, m.controller.Balance())
		return m, nil
	case tea.KeyCtrlL:
		if err := m.creds.Clear(); err != nil {
			m.logger.Error("clearing credentials failed", "error", err)
		}
		m.mode = modeLogin
		m.loginForm.SetMode(login.ModeLogin)
		m.controller.StartNewChat()
		return m, nil
	case tea.KeyPgUp:
		m.transcript.ScrollUp(10)
		return m, nil
	case tea.KeyPgDown:
		m.transcript.ScrollDown(10)
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.updateSidebar(msg)
	}
	return m.updateInput(msg)
}

func (m *Model) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action, chatID := m.sideBar.HandleKey(msg)
	switch action {
	case sidebar.ActionNewChat:
		m.controller.StartNewChat()
		m.syncFromController()
		m.focus = focusInput
		m.input.Focused = true
		m.sideBar.Focused = false
	case sidebar.ActionOpenChat:
		return m, m.runTask(func(ctx context.Context) {
			m.controller.LoadChat(ctx, chatID)
		})
	case sidebar.ActionLoadMore:
		next := m.controller.Page() + 1
		return m, m.runTask(func(ctx context.Context) {
			if err := m.controller.LoadChatsOnly(ctx, next, true); err != nil {
				m.logger.Warn("loading chat page failed", "page", next, "error", err)
			}
		})
	case sidebar.ActionToggleCompares:
		open := m.sideBar.ComparesOpen()
		m.controller.SetCompareSectionOpen(open)
		if open {
			return m, m.runTask(func(ctx context.Context) {
				m.controller.ResolveCompareTitles(ctx)
			})
		}
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		return m, m.runTask(func(ctx context.Context) {
			m.controller.HandleInput(ctx, text)
		})
	case tea.KeyUp:
		m.transcript.ScrollUp(1)
		return m, nil
	case tea.KeyDown:
		m.transcript.ScrollDown(1)
		return m, nil
	}
	m.input.HandleKey(msg)
	return m, nil
}

func (m *Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.controller.DismissComparePicker()
		m.picker = nil
		return m, nil
	}
	if m.picker.HandleKey(msg) {
		sel := m.picker.Selection()
		m.picker = nil
		return m, m.runTask(func(ctx context.Context) {
			if err := m.controller.HandleCompare(ctx, sel); err != nil {
				m.logger.Warn("comparison rejected", "error", err)
			}
		})
	}
	return m, nil
}

// --- view ----------------------------------------------------------------

// View implements tea.Model.
func (m *Model) View() string {
	switch m.mode {
	case modeLogin:
		return m.loginForm.View(m.width, m.height)
	case modeAdminLogin:
		return m.adminForm.View(m.width, m.height)
	case modeAdmin:
		return m.console.View(m.width, m.height)
	}

	header := m.renderHeader()
	footer := footerStyle.Render(m.footerHints())
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)

	if m.plan != nil {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.plan.View(m.width, bodyHeight), footer)
	}
	if m.picker != nil {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.picker.View(m.width, bodyHeight), footer)
	}

	main := lipgloss.JoinVertical(lipgloss.Left, m.transcript.View(), m.input.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.sideBar.View(), main)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderHeader() string {
	title := headerStyle.Render("scanchat")
	info := ""
	// The quota is unknown until the first balance refresh lands.
	if m.controller.BalanceLoaded() {
		balance := m.controller.Balance()
		info = headerInfoStyle.Render(
			balance.Plan + " · " + formatScansLeft(balance.Remaining))
	}
	if user := m.creds.User(); user != nil && user.Email != "" {
		info += headerInfoStyle.Render(user.Email)
	}
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(info)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + info
}

func formatScansLeft(remaining float64) string {
	value := strconv.FormatFloat(remaining, 'f', -1, 64)
	if value == "1" {
		return "1 scan left"
	}
	return value + " scans left"
}

func (m *Model) footerHints() string {
	switch {
	case m.plan != nil:
		return "Up/Down: navigate  Enter: select  Esc: close"
	case m.picker != nil:
		return "Tab: next field  Enter: compare  Esc: cancel"
	case m.focus == focusSidebar:
		return "Up/Down: navigate  Enter: open  Tab: input  Ctrl+N: new chat  Ctrl+C: quit"
	}
	return "Enter: send  Tab: sidebar  Ctrl+N: new chat  Ctrl+P: plan  Ctrl+L: log out  Ctrl+C: quit"
}
