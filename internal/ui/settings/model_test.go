package settings

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ettsumailer/internal/bridge"
	"github.com/nhle/ettsumailer/internal/bridge/bridgetest"
	"github.com/nhle/ettsumailer/internal/configstore"
	"github.com/nhle/ettsumailer/internal/keys"
	"github.com/nhle/ettsumailer/internal/model"
)

var storedConfig = model.Config{
	IMAP: model.Profile{Host: "imap.example.com", Port: 993, Username: "me", PasswordCommand: "pass imap"},
	SMTP: model.Profile{Host: "smtp.example.com", Port: 587, Username: "me", PasswordCommand: "pass smtp"},
}

func newTestSettings(t *testing.T, ch *bridgetest.Channel, cfg *model.Config) (Model, *configstore.Store) {
	t.Helper()
	store := configstore.New()
	if cfg != nil {
		_, err := store.Initialize(*cfg, nil)
		require.NoError(t, err)
	}
	return New(ch.Client(), store, keys.DefaultKeyMap(), 80, 30), store
}

func validValues() FormValues {
	return FormValues{
		IMAPHost: "imap.new.com", IMAPPort: "143", IMAPUsername: "u", IMAPPasswordCommand: "echo a",
		SMTPHost: "smtp.new.com", SMTPPort: "25", SMTPUsername: "u", SMTPPasswordCommand: "echo b",
	}
}

func TestOpenWithEmptyStoreIsNoop(t *testing.T) {
	m, _ := newTestSettings(t, bridgetest.New(), nil)
	assert.Nil(t, m.Open())
	assert.Equal(t, PhaseClosed, m.Phase())
	assert.Empty(t, m.View())
}

func TestOpenPopulatesFromStore(t *testing.T) {
	cfg := storedConfig
	m, _ := newTestSettings(t, bridgetest.New(), &cfg)

	m.Open()
	assert.Equal(t, PhaseOpen, m.Phase())
	assert.Equal(t, ValuesFrom(storedConfig), m.Values())
	assert.Equal(t, "993", m.Values().IMAPPort)
	assert.Contains(t, m.View(), "Account Settings")

	// already open
	assert.Nil(t, m.Open())
}

func TestOpenShowsBlankZeroPort(t *testing.T) {
	m, _ := newTestSettings(t, bridgetest.New(), &model.Config{})
	m.Open()
	assert.Equal(t, "", m.Values().IMAPPort)
	assert.Equal(t, "", m.Values().SMTPPort)
}

func TestCancelLeavesStoreUntouched(t *testing.T) {
	ch := bridgetest.New()
	cfg := storedConfig
	m, store := newTestSettings(t, ch, &cfg)

	m.Open()
	cmd := m.Cancel()
	require.NotNil(t, cmd)
	assert.IsType(t, CancelledMsg{}, cmd())
	assert.Equal(t, PhaseClosed, m.Phase())

	got, _ := store.Current()
	assert.Equal(t, storedConfig, got)
	assert.Zero(t, ch.Calls(bridge.OpSaveConfig))

	// not open any more
	assert.Nil(t, m.Cancel())
}

func TestEscCancels(t *testing.T) {
	cfg := storedConfig
	m, _ := newTestSettings(t, bridgetest.New(), &cfg)
	m.Open()

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, CancelledMsg{}, cmd())
	assert.False(t, m.IsOpen())
}

func TestSubmitRejectsMalformedPort(t *testing.T) {
	tests := []struct {
		name  string
		port  string
		field string
	}{
		{"not a number", "abc", "IMAP port"},
		{"blank", "", "IMAP port"},
		{"zero", "0", "IMAP port"},
		{"too large", "70000", "IMAP port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := bridgetest.New()
			cfg := storedConfig
			m, store := newTestSettings(t, ch, &cfg)
			m.Open()

			values := validValues()
			values.IMAPPort = tt.port
			m.Submit(values)

			assert.Equal(t, PhaseOpen, m.Phase())
			var verr *ValidationError
			require.ErrorAs(t, m.Err(), &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.port, verr.Value)
			assert.Equal(t, values, m.Values())
			assert.Zero(t, ch.Calls(bridge.OpSaveConfig))

			got, _ := store.Current()
			assert.Equal(t, storedConfig, got)
		})
	}
}

func TestSubmitSuccessReplacesStore(t *testing.T) {
	ch := bridgetest.New()
	cfg := storedConfig
	m, store := newTestSettings(t, ch, &cfg)
	m.Open()

	cmd := m.Submit(validValues())
	require.NotNil(t, cmd)
	assert.Equal(t, PhaseSubmitting, m.Phase())
	assert.True(t, m.IsOpen())

	// store is not touched before the engine confirms
	got, _ := store.Current()
	assert.Equal(t, storedConfig, got)

	m, cmd = m.Update(cmd())
	require.NotNil(t, cmd)
	saved, ok := cmd().(SavedMsg)
	require.True(t, ok)

	want, err := validValues().Config()
	require.NoError(t, err)
	assert.Equal(t, want, saved.Config)
	assert.Equal(t, PhaseClosed, m.Phase())

	got, _ = store.Current()
	assert.Equal(t, want, got)
	assert.Equal(t, []model.Config{want}, ch.Saved())

	// a fresh Open shows the saved values
	m.Open()
	assert.Equal(t, ValuesFrom(want), m.Values())
}

func TestSubmitFailureKeepsModalOpen(t *testing.T) {
	ch := bridgetest.New()
	ch.Fail(bridge.OpSaveConfig, "disk full")
	cfg := storedConfig
	m, store := newTestSettings(t, ch, &cfg)
	m.Open()

	values := validValues()
	cmd := m.Submit(values)
	m, _ = m.Update(cmd())

	assert.Equal(t, PhaseOpen, m.Phase())
	assert.Equal(t, values, m.Values())
	assert.EqualError(t, m.Err(), "disk full")
	assert.Contains(t, m.View(), "disk full")

	got, _ := store.Current()
	assert.Equal(t, storedConfig, got)

	// retry after the engine recovers
	ch.Recover(bridge.OpSaveConfig)
	cmd = m.Submit(values)
	m, cmd = m.Update(cmd())
	require.NotNil(t, cmd)
	assert.IsType(t, SavedMsg{}, cmd())
	assert.False(t, m.IsOpen())
}

func TestSubmitWhileSubmittingIsIgnored(t *testing.T) {
	ch := bridgetest.New()
	cfg := storedConfig
	m, _ := newTestSettings(t, ch, &cfg)
	m.Open()

	require.NotNil(t, m.Submit(validValues()))
	assert.Nil(t, m.Submit(validValues()))
	assert.Nil(t, m.Cancel())
	assert.Equal(t, PhaseSubmitting, m.Phase())
}

func TestFormValuesConfig(t *testing.T) {
	values := validValues()
	values.IMAPHost = "  imap.new.com "
	values.SMTPPort = " 25 "

	cfg, err := values.Config()
	require.NoError(t, err)
	assert.Equal(t, "imap.new.com", cfg.IMAP.Host)
	assert.Equal(t, 143, cfg.IMAP.Port)
	assert.Equal(t, 25, cfg.SMTP.Port)
	assert.Equal(t, "echo b", cfg.SMTP.PasswordCommand)

	_, err = bridgetest.New().Client().SaveConfig(context.Background(), cfg)
	require.NoError(t, err)
}

func TestValidationErrorMessage(t *testing.T) {
	_, err := FormValues{IMAPPort: "993", SMTPPort: "x"}.Config()
	assert.EqualError(t, err, `SMTP port must be a number between 1 and 65535, got "x"`)
}
