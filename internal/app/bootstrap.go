package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/nhle/ettsumailer/internal/configstore"
	"github.com/nhle/ettsumailer/internal/model"
)

// Bootstrap error texts.
const (
	bootstrapErrorText = "Could not load configuration. The app may not function correctly."
	bootstrapStatus    = "⚠ configuration unavailable"
)

// configLoadedMsg carries the startup get_config round-trip.
type configLoadedMsg struct {
	cfg model.Config
	err error
}

// fetchConfig requests the configuration once, at startup.
func (m Model) fetchConfig() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		cfg, err := configstore.Fetch(context.Background(), client)
		return configLoadedMsg{cfg: cfg, err: err}
	}
}

// handleConfigLoaded leaves Bootstrapping for the inbox or the setup
// prompt. A failed fetch keeps the session in Bootstrapping: nothing
// assumes a usable configuration and no retry is attempted.
func (m Model) handleConfigLoaded(msg configLoadedMsg) (Model, tea.Cmd) {
	if m.state != ViewBootstrapping {
		return m, nil
	}

	complete, err := m.store.Initialize(msg.cfg, msg.err)
	if err != nil {
		log.Error().Str("module", "app").Err(err).Msg("Failed to load configuration")
		m.bootErr = err
		return m, nil
	}

	if !complete {
		log.Info().Str("module", "app").Msg("Configuration incomplete, prompting for setup")
		m.state = ViewConfigPrompt
		return m, nil
	}

	m.state = ViewInbox
	cmd := m.loadInbox()
	return m, cmd
}

// loadInbox starts a list fetch unless one is already outstanding.
func (m *Model) loadInbox() tea.Cmd {
	cmd := m.inbox.Load()
	if cmd == nil {
		return nil
	}
	return tea.Batch(cmd, m.inbox.Tick())
}

// refreshInbox reloads the list after the configuration changed. A fetch
// already in flight is followed by another one instead of being doubled.
func (m *Model) refreshInbox() tea.Cmd {
	cmd := m.inbox.Refresh()
	if cmd == nil {
		return nil
	}
	return tea.Batch(cmd, m.inbox.Tick())
}
