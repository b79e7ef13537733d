package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/nhle/ettsumailer/internal/bridge"
	"github.com/nhle/ettsumailer/internal/configstore"
	"github.com/nhle/ettsumailer/internal/keys"
	"github.com/nhle/ettsumailer/internal/theme"
	"github.com/nhle/ettsumailer/internal/ui"
	"github.com/nhle/ettsumailer/internal/ui/command"
	"github.com/nhle/ettsumailer/internal/ui/detail"
	helpview "github.com/nhle/ettsumailer/internal/ui/help"
	"github.com/nhle/ettsumailer/internal/ui/inbox"
	"github.com/nhle/ettsumailer/internal/ui/settings"
)

const appTitle = "ettsumailer"

// savedNotice replaces the key hints after a confirmed save until the
// next key press.
const savedNotice = "✓ Settings saved"

// Prompt shown while the configuration is incomplete.
const (
	welcomeText = "Welcome to ettsumailer! Please configure your email accounts to get started."
	welcomeHint = "Press s to configure now"
)

// ViewState is the main view's state. Settings is an overlay on top of
// it, not a state of its own.
type ViewState int

const (
	ViewBootstrapping ViewState = iota
	ViewConfigPrompt
	ViewInbox
)

func (v ViewState) String() string {
	switch v {
	case ViewConfigPrompt:
		return "setup"
	case ViewInbox:
		return "inbox"
	default:
		return "starting"
	}
}

type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlayCommand
)

// Model is the root Bubble Tea model. It routes messages between the
// list, detail and settings regions and owns the view state.
type Model struct {
	state         ViewState
	overlay       overlay
	layout        ui.Layout
	client        *bridge.Client
	store         *configstore.Store
	keys          *keys.KeyMap
	inbox         inbox.Model
	detail        detail.Model
	settings      settings.Model
	helpView      helpview.Model
	commandView   command.Model
	detailFocused bool
	bootErr       error
	notice        string
	ready         bool
}

// New creates the root model. The store must be empty; it is filled by
// the startup fetch.
func New(client *bridge.Client, store *configstore.Store) Model {
	k := keys.DefaultKeyMap()
	return Model{
		state:       ViewBootstrapping,
		client:      client,
		store:       store,
		keys:        k,
		inbox:       inbox.New(client, k, 40, 20),
		detail:      detail.New(client, k, 40, 20),
		settings:    settings.New(client, store, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}
}

// Init starts the configuration fetch.
func (m Model) Init() tea.Cmd {
	return m.fetchConfig()
}

// Update handles messages and dispatches them to the regions.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.inbox.SetSize(m.layout.ListWidth(), m.layout.PaneHeight())
		m.detail.SetSize(m.layout.DetailWidth(), m.layout.PaneHeight())
		m.settings.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		// Forward so an open huh form can lay itself out.
		var cmd tea.Cmd
		m.settings, cmd = m.settings.Update(msg)
		return m, cmd

	case configLoadedMsg:
		return m.handleConfigLoaded(msg)

	case inbox.EmailsLoadedMsg:
		var cmd tea.Cmd
		m.inbox, cmd = m.inbox.Update(msg)
		return m, cmd

	case inbox.SelectedEmailMsg:
		cmd := tea.Batch(m.detail.Display(msg.UID), m.detail.Tick())
		return m, cmd

	case detail.BodyLoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case settings.SavedMsg:
		return m.handleSaved()

	case settings.CancelledMsg:
		return m, nil

	case command.CommandMsg:
		m.closeOverlay()
		cmd := m.executeCommand(string(msg))
		return m, cmd

	case spinner.TickMsg:
		var listCmd, detailCmd tea.Cmd
		m.inbox, listCmd = m.inbox.Update(msg)
		m.detail, detailCmd = m.detail.Update(msg)
		return m, tea.Batch(listCmd, detailCmd)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Anything else belongs to the settings form or the palette input.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.settings, cmd = m.settings.Update(msg)
	cmds = append(cmds, cmd)
	if m.overlay == overlayCommand {
		m.commandView, cmd = m.commandView.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// handleSaved follows a confirmed save. The first complete save leaves
// the setup prompt for the inbox; in the inbox the list is refreshed.
func (m Model) handleSaved() (Model, tea.Cmd) {
	m.notice = savedNotice
	switch m.state {
	case ViewInbox:
		cmd := m.refreshInbox()
		return m, cmd
	case ViewConfigPrompt:
		if !m.store.Complete() {
			return m, nil
		}
		log.Info().Str("module", "app").Msg("Configuration complete, opening inbox")
		m.state = ViewInbox
		cmd := m.loadInbox()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	m.notice = ""

	// The modal takes every key while it is up.
	if m.settings.IsOpen() {
		var cmd tea.Cmd
		m.settings, cmd = m.settings.Update(msg)
		return m, cmd
	}

	switch m.overlay {
	case overlayHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Back, m.keys.Quit) {
			m.closeOverlay()
		}
		return m, nil
	case overlayCommand:
		if key.Matches(msg, m.keys.Back) || msg.String() == ":" {
			m.closeOverlay()
			return m, nil
		}
		var cmd tea.Cmd
		m.commandView, cmd = m.commandView.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.overlay = overlayHelp
		return m, nil
	}

	if m.state == ViewBootstrapping {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Settings):
		cmd := m.settings.Open()
		return m, cmd
	case key.Matches(msg, m.keys.Command):
		m.overlay = overlayCommand
		cmd := m.commandView.Focus()
		return m, cmd
	}

	if m.state != ViewInbox {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		cmd := m.loadInbox()
		return m, cmd
	case key.Matches(msg, m.keys.Focus):
		m.detailFocused = !m.detailFocused
		return m, nil
	case key.Matches(msg, m.keys.Back) && m.detailFocused:
		m.detailFocused = false
		return m, nil
	}

	var cmd tea.Cmd
	if m.detailFocused {
		m.detail, cmd = m.detail.Update(msg)
	} else {
		m.inbox, cmd = m.inbox.Update(msg)
	}
	return m, cmd
}

func (m *Model) closeOverlay() {
	if m.overlay == overlayCommand {
		m.commandView.Blur()
	}
	m.overlay = overlayNone
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "refresh", "reload":
		if m.state != ViewInbox {
			return nil
		}
		return m.loadInbox()
	case "settings", "config":
		return m.settings.Open()
	case "help":
		m.overlay = overlayHelp
		return nil
	case "quit", "q":
		return tea.Quit
	default:
		log.Debug().Str("module", "app").Str("command", cmd).Msg("Unknown command")
		return nil
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.headerStatus())
	statusBar := m.layout.RenderStatusBar(m.keyHints())
	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

func (m Model) headerTitle() string {
	if m.state != ViewInbox {
		return appTitle
	}
	if n := m.inbox.Mailbox().UnreadCount(); n > 0 {
		return fmt.Sprintf("%s [%d unread]", appTitle, n)
	}
	return appTitle
}

func (m Model) headerStatus() string {
	if m.bootErr != nil {
		return bootstrapStatus
	}
	if m.state == ViewInbox {
		return m.inbox.Mailbox().State().String()
	}
	return m.state.String()
}

// renderContent returns the content area for the current state.
func (m Model) renderContent() string {
	if m.settings.IsOpen() {
		return m.settings.View()
	}
	switch m.overlay {
	case overlayHelp:
		return m.helpView.View()
	case overlayCommand:
		return m.commandView.View()
	}

	center := lipgloss.NewStyle().
		Width(m.layout.ContentWidth()).
		Height(m.layout.ContentHeight()).
		Align(lipgloss.Center, lipgloss.Center)

	switch m.state {
	case ViewConfigPrompt:
		return center.Render(lipgloss.JoinVertical(lipgloss.Center,
			lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(welcomeText),
			"",
			theme.HelpStyle.Render(welcomeHint),
		))
	case ViewInbox:
		return m.layout.RenderPanes(m.inbox.View(), m.detail.View(), m.detailFocused)
	}

	if m.bootErr != nil {
		return center.Render(lipgloss.JoinVertical(lipgloss.Center,
			theme.ErrorStyle.Render(bootstrapErrorText),
			"",
			theme.DimmedStyle.Render(m.bootErr.Error()),
		))
	}
	return center.Render(theme.PlaceholderStyle.Render("Loading configuration..."))
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.bootErr != nil {
		return m.bootErr.Error()
	}
	if m.notice != "" {
		return m.notice
	}
	if m.settings.IsOpen() {
		return "tab next field | enter submit | esc cancel"
	}
	switch m.overlay {
	case overlayHelp:
		return "? close help | esc back"
	case overlayCommand:
		return "enter execute | esc back"
	}
	switch m.state {
	case ViewConfigPrompt:
		return "s settings | ? help | q quit"
	case ViewInbox:
		if m.detailFocused {
			return "j/k scroll | tab list | esc back | q quit"
		}
		return "j/k move | enter open | r reload | s settings | tab detail | : command | ? help | q quit"
	}
	return "q quit"
}

// State returns the main view state.
func (m Model) State() ViewState {
	return m.state
}

// SettingsOpen reports whether the settings modal is showing.
func (m Model) SettingsOpen() bool {
	return m.settings.IsOpen()
}
