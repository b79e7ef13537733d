// Package settings is the account settings modal. It owns the only write
// path into the config store after startup: a configuration is swapped in
// only once the engine has confirmed the save.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/nhle/ettsumailer/internal/bridge"
	"github.com/nhle/ettsumailer/internal/configstore"
	"github.com/nhle/ettsumailer/internal/keys"
	"github.com/nhle/ettsumailer/internal/model"
	"github.com/nhle/ettsumailer/internal/theme"
)

// Phase is the modal's lifecycle state.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseOpen
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "closed"
	}
}

// ValidationError reports form input that was rejected before anything was
// sent to the engine.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must be a number between 1 and 65535, got %q", e.Field, e.Value)
}

// FormValues are the raw strings of the eight form fields.
type FormValues struct {
	IMAPHost            string
	IMAPPort            string
	IMAPUsername        string
	IMAPPasswordCommand string
	SMTPHost            string
	SMTPPort            string
	SMTPUsername        string
	SMTPPasswordCommand string
}

// ValuesFrom fills the form from cfg. A zero port is shown as blank.
func ValuesFrom(cfg model.Config) FormValues {
	return FormValues{
		IMAPHost:            cfg.IMAP.Host,
		IMAPPort:            portString(cfg.IMAP.Port),
		IMAPUsername:        cfg.IMAP.Username,
		IMAPPasswordCommand: cfg.IMAP.PasswordCommand,
		SMTPHost:            cfg.SMTP.Host,
		SMTPPort:            portString(cfg.SMTP.Port),
		SMTPUsername:        cfg.SMTP.Username,
		SMTPPasswordCommand: cfg.SMTP.PasswordCommand,
	}
}

// Config coerces the form into a configuration. Ports that do not parse
// as an integer in range yield a *ValidationError.
func (v FormValues) Config() (model.Config, error) {
	imapPort, err := parsePort("IMAP port", v.IMAPPort)
	if err != nil {
		return model.Config{}, err
	}
	smtpPort, err := parsePort("SMTP port", v.SMTPPort)
	if err != nil {
		return model.Config{}, err
	}
	return model.Config{
		IMAP: model.Profile{
			Host:            strings.TrimSpace(v.IMAPHost),
			Port:            imapPort,
			Username:        v.IMAPUsername,
			PasswordCommand: v.IMAPPasswordCommand,
		},
		SMTP: model.Profile{
			Host:            strings.TrimSpace(v.SMTPHost),
			Port:            smtpPort,
			Username:        v.SMTPUsername,
			PasswordCommand: v.SMTPPasswordCommand,
		},
	}, nil
}

func parsePort(field, s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !model.ValidPort(p) {
		return 0, &ValidationError{Field: field, Value: s}
	}
	return p, nil
}

func portString(p int) string {
	if p == 0 {
		return ""
	}
	return strconv.Itoa(p)
}

// SavedMsg is emitted once a save was confirmed and the store replaced.
type SavedMsg struct {
	Config model.Config
}

// CancelledMsg is emitted when the modal is dismissed without saving.
type CancelledMsg struct{}

// saveResultMsg carries the save_config round-trip back to Update.
type saveResultMsg struct {
	receipt bridge.Receipt
	err     error
}

// Model is the settings modal.
type Model struct {
	client *bridge.Client
	store  *configstore.Store
	keys   *keys.KeyMap
	phase  Phase
	form   *huh.Form
	// fb lives on the heap so huh's Value pointers survive model copies.
	fb     *FormValues
	err    error
	width  int
	height int
}

// New creates a closed settings modal.
func New(client *bridge.Client, store *configstore.Store, k *keys.KeyMap, width, height int) Model {
	return Model{
		client: client,
		store:  store,
		keys:   k,
		fb:     &FormValues{},
		width:  width,
		height: height,
	}
}

// Open populates the form from the store. It does nothing while the store
// is empty or the modal is already up.
func (m *Model) Open() tea.Cmd {
	if m.phase != PhaseClosed {
		return nil
	}
	cfg, ok := m.store.Current()
	if !ok {
		return nil
	}
	*m.fb = ValuesFrom(cfg)
	m.err = nil
	m.phase = PhaseOpen
	m.form = m.buildForm()
	return m.form.Init()
}

// Cancel closes the modal without saving. It only applies while the form
// is open; a pending save cannot be cancelled.
func (m *Model) Cancel() tea.Cmd {
	if m.phase != PhaseOpen {
		return nil
	}
	m.phase = PhaseClosed
	m.form = nil
	m.err = nil
	return func() tea.Msg { return CancelledMsg{} }
}

// Submit validates values and, if they coerce, sends them to the engine.
// Invalid input keeps the modal open with the error shown.
func (m *Model) Submit(values FormValues) tea.Cmd {
	if m.phase != PhaseOpen {
		return nil
	}
	*m.fb = values

	cfg, err := values.Config()
	if err != nil {
		log.Debug().Str("module", "settings").Err(err).Msg("Rejected settings form")
		m.err = err
		m.form = m.buildForm()
		return m.form.Init()
	}

	m.phase = PhaseSubmitting
	m.err = nil
	client := m.client
	return func() tea.Msg {
		receipt, err := client.SaveConfig(context.Background(), cfg)
		return saveResultMsg{receipt: receipt, err: err}
	}
}

// Update handles messages for the settings modal.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(saveResultMsg); ok {
		return m.handleSaveResult(msg)
	}

	if m.phase != PhaseOpen || m.form == nil {
		return m, nil
	}

	if kmsg, ok := msg.(tea.KeyMsg); ok && key.Matches(kmsg, m.keys.Back) {
		cmd := m.Cancel()
		return m, cmd
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		cmd = m.Submit(*m.fb)
	case huh.StateAborted:
		cmd = m.Cancel()
	}
	return m, cmd
}

func (m Model) handleSaveResult(msg saveResultMsg) (Model, tea.Cmd) {
	if m.phase != PhaseSubmitting {
		return m, nil
	}
	if msg.err != nil {
		log.Warn().Str("module", "settings").Err(msg.err).Msg("Failed to save configuration")
		m.phase = PhaseOpen
		m.err = msg.err
		m.form = m.buildForm()
		return m, m.form.Init()
	}

	m.store.Replace(msg.receipt)
	m.phase = PhaseClosed
	m.form = nil
	m.err = nil
	cfg := msg.receipt.Config()
	log.Info().Str("module", "settings").Str("imap_host", cfg.IMAP.Host).Msg("Configuration saved")
	return m, func() tea.Msg { return SavedMsg{Config: cfg} }
}

// View renders the modal.
func (m Model) View() string {
	if m.phase == PhaseClosed {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Account Settings"))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(theme.ErrorStyle.Render(m.err.Error()))
		b.WriteString("\n\n")
	}

	if m.phase == PhaseSubmitting {
		b.WriteString(theme.PlaceholderStyle.Render("Saving..."))
	} else if m.form != nil {
		b.WriteString(m.form.View())
		b.WriteString("\n")
		b.WriteString(theme.HelpStyle.Render("esc: cancel"))
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(b.String())
}

// Phase returns the modal's current phase.
func (m Model) Phase() Phase {
	return m.phase
}

// IsOpen reports whether the modal is showing, including while a save is
// pending.
func (m Model) IsOpen() bool {
	return m.phase != PhaseClosed
}

// Err returns the error shown in the modal, if any.
func (m Model) Err() error {
	return m.err
}

// Values returns the current form values.
func (m Model) Values() FormValues {
	return *m.fb
}

// SetSize updates the modal dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		m.profileGroup("IMAP", "imap.example.com", "993",
			&m.fb.IMAPHost, &m.fb.IMAPPort, &m.fb.IMAPUsername, &m.fb.IMAPPasswordCommand),
		m.profileGroup("SMTP", "smtp.example.com", "587",
			&m.fb.SMTPHost, &m.fb.SMTPPort, &m.fb.SMTPUsername, &m.fb.SMTPPasswordCommand),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

func (m *Model) profileGroup(label, hostHint, portHint string, host, port, user, cmd *string) *huh.Group {
	return huh.NewGroup(
		huh.NewInput().
			Title(label+" Host").
			Description(label+" server hostname").
			Placeholder(hostHint).
			Value(host),
		huh.NewInput().
			Title(label+" Port").
			Description(fmt.Sprintf("%s server port (e.g., %s)", label, portHint)).
			Placeholder(portHint).
			Value(port).
			Validate(func(s string) error {
				_, err := parsePort(label+" port", s)
				return err
			}),
		huh.NewInput().
			Title(label+" Username").
			Placeholder("user@example.com").
			Value(user),
		huh.NewInput().
			Title(label+" Password Command").
			Description("Shell command that prints the password, or keyring:<name>").
			Placeholder("pass show mail/"+strings.ToLower(label)).
			Value(cmd),
	).Title(label)
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}
