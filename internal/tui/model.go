package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dmelo/agentchat/internal/chat"
	"github.com/dmelo/agentchat/internal/render"
)

// orchEventMsg is sent whenever the orchestrator mutates a session or
// reports a transient notice or a failed turn
type orchEventMsg struct {
	sessionID string
	notice    string
	err       error
}

// statusMsg carries a transient status line (clipboard feedback etc.)
type statusMsg struct {
	text string
}

// Model represents the chat TUI state
type Model struct {
	store *chat.SessionStore
	orch  *chat.Orchestrator

	// updates carries orchestrator events into the event loop
	updates chan orchEventMsg

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	ready  bool
	err    error
	status string

	// Session list overlay state
	selectingSession bool
	sessionCursor    int

	// Dimensions
	width  int
	height int
}

// NewChatModel creates a new chat TUI model. The orchestrator is built
// here so that its notifications feed this model's event loop.
func NewChatModel(store *chat.SessionStore, client chat.Streamer) *Model {
	updates := make(chan orchEventMsg, 256)

	// Never block a streaming goroutine on a slow UI; a dropped
	// change notification is repaired by the next one
	push := func(ev orchEventMsg) {
		select {
		case updates <- ev:
		default:
		}
	}

	m := &Model{
		store:   store,
		updates: updates,
	}

	m.orch = chat.NewOrchestrator(store, client, nil, chat.Events{
		OnChange: func(sessionID string) {
			push(orchEventMsg{sessionID: sessionID})
		},
		OnNotice: func(sessionID, text string) {
			push(orchEventMsg{sessionID: sessionID, notice: text})
		},
		OnStreamError: func(sessionID string, err error) {
			push(orchEventMsg{sessionID: sessionID, err: err})
		},
	})

	ta := textarea.New()
	ta.Placeholder = "Ask a question..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m.textarea = ta
	m.spinner = s

	return m
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.waitForUpdate(),
	)
}

// waitForUpdate returns a command that delivers the next orchestrator
// event
func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.selectingSession {
		return m.updateSessionList(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		inputHeight := 6
		statusHeight := 1
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}

		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.textarea.SetWidth(contentWidth - 4)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
			m.textarea.SetWidth(contentWidth - 4)
		}
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.orch.Shutdown()
			return m, tea.Quit

		case "esc":
			if m.streaming() {
				m.orch.CancelSession(m.store.ActiveID())
			} else {
				m.orch.Shutdown()
				return m, tea.Quit
			}

		case "ctrl+n":
			m.store.CreateSession()
			m.err = nil
			m.status = ""
			m.updateViewport()

		case "ctrl+l":
			m.selectingSession = true
			m.sessionCursor = 0

		case "ctrl+r":
			if !m.streaming() {
				if id, ok := m.lastAssistantID(); ok {
					m.orch.Regenerate(context.Background(), m.store.ActiveID(), id)
					m.updateViewport()
					m.viewport.GotoBottom()
				}
			}

		case "ctrl+y":
			return m, m.copyLastCode()

		case "enter":
			if !m.streaming() && strings.TrimSpace(m.textarea.Value()) != "" {
				input := strings.TrimSpace(m.textarea.Value())
				if input == "exit" || input == "quit" || input == "/exit" || input == "/quit" {
					m.orch.Shutdown()
					return m, tea.Quit
				}

				m.err = nil
				m.status = ""
				m.textarea.Reset()

				m.orch.Submit(context.Background(), input)
				m.updateViewport()
				m.viewport.GotoBottom()

				return m, m.spinner.Tick
			}
		}

	case orchEventMsg:
		if msg.sessionID == m.store.ActiveID() {
			if msg.err != nil {
				m.err = msg.err
			}
			if msg.notice != "" {
				m.status = msg.notice
			}
			m.updateViewport()
			m.viewport.GotoBottom()
		}
		cmds = append(cmds, m.waitForUpdate())

	case statusMsg:
		m.status = msg.text

	case spinner.TickMsg:
		if m.streaming() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// Only pass KeyMsg to the textarea to prevent escape sequence leaks
	if !m.streaming() {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// streaming reports whether the active session has a stream in flight
func (m *Model) streaming() bool {
	return m.orch.Streaming(m.store.ActiveID())
}

// lastAssistantID finds the most recent assistant message in the active
// session
func (m *Model) lastAssistantID() (string, bool) {
	session, ok := m.store.Active()
	if !ok {
		return "", false
	}
	for i := len(session.Messages) - 1; i >= 0; i-- {
		if session.Messages[i].Role == chat.RoleAssistant {
			return session.Messages[i].ID, true
		}
	}
	return "", false
}

// copyLastCode copies the most recent generated code block to the
// clipboard
func (m *Model) copyLastCode() tea.Cmd {
	return func() tea.Msg {
		session, ok := m.store.Active()
		if !ok {
			return statusMsg{text: "nothing to copy"}
		}
		for i := len(session.Messages) - 1; i >= 0; i-- {
			if code := session.Messages[i].GeneratedCode; code != "" {
				if err := clipboard.WriteAll(code); err != nil {
					return statusMsg{text: "clipboard unavailable"}
				}
				return statusMsg{text: "code copied to clipboard"}
			}
		}
		return statusMsg{text: "no code to copy"}
	}
}

// View renders the TUI
func (m *Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	if m.selectingSession {
		return m.renderSessionList()
	}

	var sections []string
	contentWidth := m.width - 4

	// Header
	headerParts := []string{
		titleStyle.Render("✦ Agent Chat"),
	}
	if session, ok := m.store.Active(); ok {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render(session.Title),
		)
	}
	headerContent := lipgloss.JoinHorizontal(lipgloss.Center, headerParts...)
	header := headerStyle.Width(contentWidth).Render(headerContent)
	sections = append(sections, header)

	// Messages area
	var messagesContent string
	session, hasSession := m.store.Active()
	if !hasSession || len(session.Messages) == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}

	messagesPanel := messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent)
	sections = append(sections, messagesPanel)

	// Input area
	var inputContent string
	if m.streaming() {
		inputContent = loadingStyle.Render(m.spinner.View() + " Thinking...")
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}

	inputPanel := inputPanelStyle.Width(contentWidth).Render(inputContent)
	sections = append(sections, inputPanel)

	// Status bar
	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.status != "" {
		sections = append(sections, hintStyle.Render("  "+m.status))
	}

	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderWelcome renders the welcome screen when no messages exist
func (m *Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	icon := welcomeIconStyle.Width(width).Render("✦")
	title := welcomeTitleStyle.Width(width).Render("Welcome to Agent Chat")
	subtitle := welcomeStyle.Width(width).Render("Ask about your documentation, get explanations and code")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		icon,
		"",
		title,
		"",
		subtitle,
		"",
	)

	contentHeight := lipgloss.Height(content)
	topPadding := (height - contentHeight) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	return strings.Repeat("\n", topPadding) + content
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m *Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"^N", "New chat"},
		{"^L", "Sessions"},
		{"^R", "Regenerate"},
		{"^Y", "Copy code"},
		{"Esc", "Cancel/Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		item := lipgloss.JoinHorizontal(
			lipgloss.Center,
			statusKeyStyle.Render(s.key),
			statusDescStyle.Render(" "+s.desc),
		)
		items = append(items, item)
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Center, strings.Join(items, "  │  "))
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// updateViewport refreshes the viewport content with styled messages
func (m *Model) updateViewport() {
	session, ok := m.store.Active()
	if !ok {
		m.viewport.SetContent("")
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6

	for i, msg := range session.Messages {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.Role == chat.RoleUser {
			label := userLabelStyle.Render("⬤ You")
			bubble := userBubbleStyle.Width(bubbleWidth).Render(msg.Content)
			content.WriteString(label + "\n" + bubble)
		} else {
			label := assistantLabelStyle.Render("✦ Agent")
			content.WriteString(label + "\n")

			text := msg.Content
			if msg.Streaming {
				text += "▌"
			}

			rendered, err := render.MarkdownWithWidth(text, bubbleWidth-4)
			if err != nil {
				rendered = text
			}
			rendered = strings.TrimRight(rendered, "\n")

			bubble := assistantBubbleStyle.Width(bubbleWidth).Render(rendered)
			content.WriteString(bubble)

			if msg.GeneratedCode != "" {
				code, err := render.CodeBlock(msg.GeneratedCode, render.DefaultOptions().WithWidth(bubbleWidth-4))
				if err != nil {
					code = msg.GeneratedCode
				}
				code = strings.TrimRight(code, "\n")
				content.WriteString("\n" + codeLabelStyle.Render("Generated code") + "\n")
				content.WriteString(codePanelStyle.Width(bubbleWidth).Render(code))
			}

			if msg.ExecutionResult != "" {
				content.WriteString("\n" + resultPanelStyle.Width(bubbleWidth).Render("Output: "+msg.ExecutionResult))
			}
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// updateSessionList handles updates when the session overlay is open
func (m *Model) updateSessionList(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case orchEventMsg:
		return m, m.waitForUpdate()

	case tea.KeyMsg:
		sessions := m.store.Sessions()

		switch msg.String() {
		case "ctrl+c":
			m.orch.Shutdown()
			return m, tea.Quit

		case "esc":
			m.selectingSession = false

		case "up", "k":
			if len(sessions) > 0 {
				m.sessionCursor--
				if m.sessionCursor < 0 {
					m.sessionCursor = len(sessions) - 1
				}
			}

		case "down", "j":
			if len(sessions) > 0 {
				m.sessionCursor++
				if m.sessionCursor >= len(sessions) {
					m.sessionCursor = 0
				}
			}

		case "enter":
			if m.sessionCursor < len(sessions) {
				m.store.SelectSession(sessions[m.sessionCursor].ID)
				m.selectingSession = false
				m.err = nil
				m.updateViewport()
				m.viewport.GotoBottom()
			}

		case "d", "delete":
			if m.sessionCursor < len(sessions) {
				id := sessions[m.sessionCursor].ID
				m.orch.CancelSession(id)
				m.store.DeleteSession(id)
				if m.sessionCursor >= m.store.Len() && m.sessionCursor > 0 {
					m.sessionCursor--
				}
				m.updateViewport()
			}
		}
	}

	return m, nil
}

// renderSessionList renders the session selection overlay
func (m *Model) renderSessionList() string {
	width := m.width - 8
	if width < 40 {
		width = 40
	}

	var content strings.Builder

	content.WriteString(sessionTitleStyle.Render("Chat Sessions"))
	content.WriteString("\n\n")

	sessions := m.store.Sessions()
	if len(sessions) == 0 {
		content.WriteString(hintStyle.Render("  No sessions yet. Press Esc and start chatting."))
	} else {
		activeID := m.store.ActiveID()
		for i, session := range sessions {
			cursor := "  "
			nameStyle := sessionItemStyle
			if i == m.sessionCursor {
				cursor = sessionCursorStyle.Render("▸ ")
				nameStyle = sessionSelectedStyle
			}

			marker := ""
			if session.ID == activeID {
				marker = sessionActiveStyle.Render(" ●")
			}

			line := fmt.Sprintf("%s%s%s %s",
				cursor,
				nameStyle.Render(session.Title),
				marker,
				hintStyle.Render(fmt.Sprintf("(%d messages)", len(session.Messages))),
			)
			content.WriteString(line)
			content.WriteString("\n")
		}
	}

	content.WriteString("\n")

	shortcuts := []string{
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Navigate"),
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Open"),
		statusKeyStyle.Render("d") + statusDescStyle.Render(" Delete"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Back"),
	}
	content.WriteString(strings.Join(shortcuts, "  │  "))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(1, 2).
		Width(width)

	return boxStyle.Render(content.String())
}

// RunChat starts the chat TUI
func RunChat(store *chat.SessionStore, client chat.Streamer) error {
	m := NewChatModel(store, client)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
