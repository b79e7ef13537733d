package inbox

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/nhle/ettsumailer/internal/bridge"
	"github.com/nhle/ettsumailer/internal/keys"
	"github.com/nhle/ettsumailer/internal/mailbox"
	"github.com/nhle/ettsumailer/internal/model"
	"github.com/nhle/ettsumailer/internal/theme"
)

// Placeholder texts for the list region.
const (
	LoadingText = "Loading emails..."
	EmptyText   = "Your inbox is empty."
)

// EmailsLoadedMsg carries the result of a fetch_emails round-trip.
type EmailsLoadedMsg struct {
	Emails []model.EmailSummary
	Err    error
}

// SelectedEmailMsg is sent when the user opens an email.
type SelectedEmailMsg struct {
	UID uint32
}

// Model is the list region. Rows are a projection of the mailbox model
// and are rebuilt whenever it changes.
type Model struct {
	client  *bridge.Client
	mailbox *mailbox.Model
	list    list.Model
	spinner spinner.Model
	keys    *keys.KeyMap
	width   int
	height  int
}

// New creates a list region backed by an empty mailbox.
func New(client *bridge.Client, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, itemDelegate{now: time.Now}, width, height)
	l.Title = "Inbox"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		client:  client,
		mailbox: mailbox.New(),
		list:    l,
		spinner: sp,
		keys:    k,
		width:   width,
		height:  height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Load starts a fetch_emails round-trip and shows the loading
// placeholder. It returns nil while a fetch is already outstanding.
func (m Model) Load() tea.Cmd {
	if !m.mailbox.BeginLoad() {
		return nil
	}
	return m.fetch()
}

func (m Model) fetch() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		emails, err := client.FetchEmails(context.Background())
		return EmailsLoadedMsg{Emails: emails, Err: err}
	}
}

// Refresh is Load for a changed configuration: when a fetch is already
// outstanding it returns nil and a new fetch is issued as soon as that
// one resolves.
func (m Model) Refresh() tea.Cmd {
	if !m.mailbox.RequestRefresh() {
		log.Debug().Str("module", "inbox").Msg("Refresh deferred until the current fetch resolves")
		return nil
	}
	return m.fetch()
}

// Tick keeps the loading spinner moving.
func (m Model) Tick() tea.Cmd {
	return m.spinner.Tick
}

// Select activates uid. It returns nil, changing nothing, when uid is not
// in the last loaded snapshot.
func (m *Model) Select(uid uint32) tea.Cmd {
	if !m.mailbox.Select(uid) {
		return nil
	}
	m.syncItems()
	return func() tea.Msg {
		return SelectedEmailMsg{UID: uid}
	}
}

// Update handles messages for the list region.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EmailsLoadedMsg:
		m.mailbox.Loaded(msg.Emails, msg.Err)
		if msg.Err != nil {
			log.Warn().Str("module", "inbox").Err(msg.Err).Msg("Failed to fetch emails")
		} else {
			log.Debug().Str("module", "inbox").Int("count", len(msg.Emails)).Msg("Emails loaded")
			m.syncItems()
			m.list.ResetSelected()
		}
		if m.mailbox.TakeRefresh() {
			// The spinner tick chain is still running; only the fetch is new.
			cmd := m.Load()
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		if m.mailbox.State() != mailbox.StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.mailbox.State() != mailbox.StateReady {
			return m, nil
		}
		if key.Matches(msg, m.keys.Select) {
			// Resolve the row against the current snapshot at key time.
			it, ok := m.list.SelectedItem().(emailItem)
			if !ok {
				return m, nil
			}
			cmd := m.Select(it.summary.UID)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list region.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Padding(1, 1)

	switch m.mailbox.State() {
	case mailbox.StateIdle:
		return style.Render("")
	case mailbox.StateLoading:
		return style.Render(m.spinner.View() + " " + theme.PlaceholderStyle.Render(LoadingText))
	case mailbox.StateEmpty:
		return style.Render(theme.PlaceholderStyle.Render(EmptyText))
	case mailbox.StateFailed:
		return style.Render(theme.ErrorStyle.Render("Error: " + m.mailbox.Err().Error()))
	}

	return m.list.View()
}

// Mailbox exposes the underlying list model.
func (m Model) Mailbox() *mailbox.Model {
	return m.mailbox
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}

// syncItems rebuilds the rows from the mailbox model.
func (m *Model) syncItems() {
	emails := m.mailbox.Emails()
	items := make([]list.Item, len(emails))
	for i, e := range emails {
		items[i] = emailItem{summary: e, active: m.mailbox.IsActive(e.UID)}
	}
	m.list.SetItems(items)
}
