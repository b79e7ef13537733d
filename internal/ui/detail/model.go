package detail

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nhle/ettsumailer/internal/bridge"
	"github.com/nhle/ettsumailer/internal/keys"
	"github.com/nhle/ettsumailer/internal/model"
	"github.com/nhle/ettsumailer/internal/theme"
)

// Placeholder texts for the detail region.
const (
	EmptyText   = "Select an email to read it."
	LoadingText = "Loading email..."
)

// State describes what the detail region shows.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateLoaded
	StateFailed
)

// BodyLoadedMsg carries the result of one fetch_email_body round-trip,
// tagged with the request it answers.
type BodyLoadedMsg struct {
	Request string
	UID     uint32
	Body    model.EmailBody
	Err     error
}

// Model is the detail region. Only the response to the most recent
// Display call is ever rendered.
type Model struct {
	client   *bridge.Client
	viewport viewport.Model
	spinner  spinner.Model
	keys     *keys.KeyMap
	state    State
	uid      uint32
	request  string
	body     model.EmailBody
	err      error
	width    int
	height   int
}

// New creates a new detail view model.
func New(client *bridge.Client, k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		client:   client,
		viewport: vp,
		spinner:  sp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Display shows the loading placeholder and starts fetching uid. Any
// response still outstanding for an earlier call becomes stale.
func (m *Model) Display(uid uint32) tea.Cmd {
	req := uuid.NewString()
	m.request = req
	m.uid = uid
	m.state = StateLoading
	m.err = nil

	client := m.client
	return func() tea.Msg {
		body, err := client.FetchEmailBody(context.Background(), uid)
		return BodyLoadedMsg{Request: req, UID: uid, Body: body, Err: err}
	}
}

// Tick keeps the loading spinner moving.
func (m Model) Tick() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case BodyLoadedMsg:
		if msg.Request != m.request || msg.UID != m.uid {
			log.Debug().Str("module", "detail").Uint32("uid", msg.UID).
				Uint32("current", m.uid).Msg("Dropping stale email body")
			return m, nil
		}
		if msg.Err != nil {
			log.Warn().Str("module", "detail").Uint32("uid", msg.UID).Err(msg.Err).
				Msg("Failed to fetch email body")
			m.state = StateFailed
			m.err = msg.Err
			return m, nil
		}
		m.state = StateLoaded
		m.body = msg.Body
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if m.state != StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center)

	switch m.state {
	case StateEmpty:
		return placeholder.Render(theme.PlaceholderStyle.Render(EmptyText))
	case StateLoading:
		return placeholder.Render(m.spinner.View() + " " + theme.PlaceholderStyle.Render(LoadingText))
	case StateFailed:
		return placeholder.Render(theme.ErrorStyle.Render("Could not load email: " + m.err.Error()))
	}

	return m.viewport.View()
}

// renderContent builds the header block and plain-text body. The HTML
// part is never rendered.
func (m Model) renderContent() string {
	b := m.body
	var sections []string

	subject := b.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Width(m.width).Render(subject), "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	field := func(label, value string) string {
		return fmt.Sprintf("%s %s", metaStyle.Render(label), valStyle.Render(value))
	}

	sections = append(sections, field("From:", b.From))
	sections = append(sections, field("To:  ", b.To))
	if b.Cc != "" {
		sections = append(sections, field("CC:  ", b.Cc))
	}
	sections = append(sections, field("Date:", formatDate(b)))

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width, 80), 1)))
	sections = append(sections, "", separator, "")

	body := b.TextBody
	if strings.TrimSpace(body) == "" {
		body = theme.PlaceholderStyle.Render("(no plain-text body)")
	}
	sections = append(sections, lipgloss.NewStyle().Width(m.width).Render(body))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// formatDate renders the date in local time, or as received when it
// cannot be parsed.
func formatDate(b model.EmailBody) string {
	t := b.Time()
	if t.IsZero() {
		return b.Date
	}
	return t.Local().Format("2006-01-02 15:04")
}

// State returns the detail region's state and the UID it is showing or
// loading.
func (m Model) State() (State, uint32) {
	return m.state, m.uid
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	if m.state == StateLoaded {
		m.viewport.SetContent(m.renderContent())
	}
}
