package app

import (
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ettsumailer/internal/bridge"
	"github.com/nhle/ettsumailer/internal/bridge/bridgetest"
	"github.com/nhle/ettsumailer/internal/configstore"
	"github.com/nhle/ettsumailer/internal/mailbox"
	"github.com/nhle/ettsumailer/internal/model"
	"github.com/nhle/ettsumailer/internal/ui/detail"
	"github.com/nhle/ettsumailer/internal/ui/inbox"
	"github.com/nhle/ettsumailer/internal/ui/settings"
)

var completeConfig = model.Config{
	IMAP: model.Profile{Host: "imap.example.com", Port: 993, Username: "me", PasswordCommand: "pass imap"},
	SMTP: model.Profile{Host: "smtp.example.com", Port: 587, Username: "me", PasswordCommand: "pass smtp"},
}

func newTestApp(ch *bridgetest.Channel) (Model, *configstore.Store) {
	store := configstore.New()
	m := New(ch.Client(), store)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), store
}

// run executes cmd and feeds the resulting messages back into m. Spinner
// ticks are dropped so nothing waits on a timer.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case nil, spinner.TickMsg:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = run(t, m, c)
		}
		return m
	default:
		next, nextCmd := m.Update(msg)
		return run(t, next.(Model), nextCmd)
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, s string) (Model, tea.Cmd) {
	next, cmd := m.Update(keyMsg(s))
	return next.(Model), cmd
}

func boot(t *testing.T, m Model) Model {
	t.Helper()
	return run(t, m, m.Init())
}

func TestBootEmptyConfigPrompts(t *testing.T) {
	ch := bridgetest.New()
	m, store := newTestApp(ch)

	assert.Equal(t, ViewBootstrapping, m.State())
	m = boot(t, m)

	assert.Equal(t, ViewConfigPrompt, m.State())
	assert.True(t, store.Initialized())
	assert.Zero(t, ch.Calls(bridge.OpFetchEmails))
	assert.Contains(t, m.View(), welcomeText)
	assert.Contains(t, m.View(), welcomeHint)
}

func TestBootPartialConfigPrompts(t *testing.T) {
	ch := bridgetest.New()
	cfg := completeConfig
	cfg.SMTP.Host = ""
	ch.SetConfig(cfg)
	m, _ := newTestApp(ch)

	m = boot(t, m)
	assert.Equal(t, ViewConfigPrompt, m.State())
	assert.Zero(t, ch.Calls(bridge.OpFetchEmails))
}

func TestBootCompleteConfigLoadsInbox(t *testing.T) {
	ch := bridgetest.New()
	ch.SetConfig(completeConfig)
	ch.SetEmails(
		model.EmailSummary{UID: 2, From: "bob@x", Subject: "Second", Date: "2024-01-02T00:00:00Z", Unread: true},
		model.EmailSummary{UID: 1, From: "alice@x", Subject: "First", Date: "2024-01-01T00:00:00Z"},
	)
	m, _ := newTestApp(ch)

	m = boot(t, m)
	assert.Equal(t, ViewInbox, m.State())
	assert.Equal(t, 1, ch.Calls(bridge.OpFetchEmails))

	view := m.View()
	assert.Contains(t, view, "Second")
	assert.Contains(t, view, "First")
	assert.Contains(t, view, "[1 unread]")
	assert.Contains(t, view, detail.EmptyText)
}

func TestBootFailureIsReported(t *testing.T) {
	ch := bridgetest.New()
	ch.Fail(bridge.OpGetConfig, "engine unreachable")
	m, store := newTestApp(ch)

	m = boot(t, m)
	assert.Equal(t, ViewBootstrapping, m.State())
	assert.False(t, store.Initialized())
	assert.Zero(t, ch.Calls(bridge.OpFetchEmails))

	view := m.View()
	assert.Contains(t, view, bootstrapErrorText)
	assert.Contains(t, view, "engine unreachable")

	// settings cannot open without a configuration
	m, cmd := press(m, "s")
	assert.Nil(t, cmd)
	assert.False(t, m.SettingsOpen())
	assert.Equal(t, 1, ch.Calls(bridge.OpGetConfig))
}

func TestFirstSaveOpensInbox(t *testing.T) {
	ch := bridgetest.New()
	m, store := newTestApp(ch)
	m = boot(t, m)
	require.Equal(t, ViewConfigPrompt, m.State())

	m, _ = press(m, "s")
	require.True(t, m.SettingsOpen())

	saveCmd := m.settings.Submit(settings.ValuesFrom(completeConfig))
	m = run(t, m, saveCmd)

	assert.False(t, m.SettingsOpen())
	assert.Equal(t, ViewInbox, m.State())
	assert.True(t, store.Complete())
	assert.Equal(t, 1, ch.Calls(bridge.OpFetchEmails))
	assert.Contains(t, m.View(), "Your inbox is empty.")
}

func TestIncompleteSaveStaysOnPrompt(t *testing.T) {
	ch := bridgetest.New()
	m, _ := newTestApp(ch)
	m = boot(t, m)

	m, _ = press(m, "s")
	values := settings.ValuesFrom(completeConfig)
	values.SMTPHost = ""
	saveCmd := m.settings.Submit(values)
	m = run(t, m, saveCmd)

	assert.False(t, m.SettingsOpen())
	assert.Equal(t, ViewConfigPrompt, m.State())
	assert.Zero(t, ch.Calls(bridge.OpFetchEmails))
}

func TestSaveFailureKeepsModalAndStore(t *testing.T) {
	ch := bridgetest.New()
	ch.SetConfig(completeConfig)
	m, store := newTestApp(ch)
	m = boot(t, m)
	require.Equal(t, ViewInbox, m.State())

	m, _ = press(m, "s")
	require.True(t, m.SettingsOpen())

	ch.Fail(bridge.OpSaveConfig, "invalid imap port 0")
	values := settings.ValuesFrom(completeConfig)
	values.IMAPHost = "imap.other.com"
	saveCmd := m.settings.Submit(values)
	require.NotNil(t, saveCmd)

	// Only the save result itself; the rebuilt form's commands are not run.
	next, _ := m.Update(saveCmd())
	m = next.(Model)

	assert.True(t, m.SettingsOpen())
	assert.Equal(t, values, m.settings.Values())
	assert.Contains(t, m.View(), "invalid imap port 0")
	got, _ := store.Current()
	assert.Equal(t, completeConfig, got)
	assert.Equal(t, 1, ch.Calls(bridge.OpFetchEmails))
}

func TestSaveFromInboxRefreshesList(t *testing.T) {
	ch := bridgetest.New()
	ch.SetConfig(completeConfig)
	m, _ := newTestApp(ch)
	m = boot(t, m)

	m, _ = press(m, "s")
	ch.SetEmails(model.EmailSummary{UID: 9, From: "new@x", Subject: "After save", Date: "2024-01-03T00:00:00Z"})
	saveCmd := m.settings.Submit(settings.ValuesFrom(completeConfig))
	m = run(t, m, saveCmd)

	assert.Equal(t, 2, ch.Calls(bridge.OpFetchEmails))
	assert.Contains(t, m.View(), "After save")
}

func TestSaveDuringListLoadRefreshesAfterIt(t *testing.T) {
	ch := bridgetest.New()
	ch.SetConfig(completeConfig)
	ch.SetEmails(model.EmailSummary{UID: 1, From: "old@x", Subject: "Old account", Date: "2024-01-01T00:00:00Z"})
	m, store := newTestApp(ch)

	// deliver the config; the list reply is produced but held back
	next, loadCmd := m.Update(m.Init()())
	m = next.(Model)
	require.NotNil(t, loadCmd)
	var listMsg tea.Msg
	for _, c := range loadCmd().(tea.BatchMsg) {
		if msg, ok := c().(inbox.EmailsLoadedMsg); ok {
			listMsg = msg
		}
	}
	require.NotNil(t, listMsg)
	require.Equal(t, mailbox.StateLoading, m.inbox.Mailbox().State())

	m, _ = press(m, "s")
	require.True(t, m.SettingsOpen())
	values := settings.ValuesFrom(completeConfig)
	values.IMAPHost = "imap.other.com"
	saveCmd := m.settings.Submit(values)
	m = run(t, m, saveCmd)

	require.False(t, m.SettingsOpen())
	got, _ := store.Current()
	assert.Equal(t, "imap.other.com", got.IMAP.Host)
	assert.Equal(t, 1, ch.Calls(bridge.OpFetchEmails), "no second fetch while one is outstanding")

	ch.SetEmails(model.EmailSummary{UID: 5, From: "new@x", Subject: "New account", Date: "2024-01-02T00:00:00Z"})
	next, refreshCmd := m.Update(listMsg)
	m = next.(Model)
	require.NotNil(t, refreshCmd)
	m = run(t, m, refreshCmd)

	assert.Equal(t, 2, ch.Calls(bridge.OpFetchEmails))
	assert.Equal(t, mailbox.StateReady, m.inbox.Mailbox().State())
	assert.Contains(t, m.View(), "New account")
	assert.NotContains(t, m.View(), "Old account")
}

func TestSaveShowsNoticeUntilNextKey(t *testing.T) {
	ch := bridgetest.New()
	ch.SetConfig(completeConfig)
	m, _ := newTestApp(ch)
	m = boot(t, m)

	m, _ = press(m, "s")
	saveCmd := m.settings.Submit(settings.ValuesFrom(completeConfig))
	m = run(t, m, saveCmd)
	assert.Contains(t, m.View(), savedNotice)

	m, _ = press(m, "j")
	assert.NotContains(t, m.View(), savedNotice)
}

func TestEscCancelsSettings(t *testing.T) {
	ch := bridgetest.New()
	ch.SetConfig(completeConfig)
	m, _ := newTestApp(ch)
	m = boot(t, m)

	m, _ = press(m, "s")
	require.True(t, m.SettingsOpen())

	m, cmd := press(m, "esc")
	m = run(t, m, cmd)
	assert.False(t, m.SettingsOpen())
	assert.Equal(t, ViewInbox, m.State())
	assert.Zero(t, ch.Calls(bridge.OpSaveConfig))
}

func TestSelectingEmailShowsBody(t *testing.T) {
	ch := bridgetest.New()
	ch.SetConfig(completeConfig)
	ch.SetEmails(
		model.EmailSummary{UID: 7, From: "alice@x", Subject: "Lunch?", Date: "2024-01-01T00:00:00Z", Unread: true},
	)
	ch.SetBody(7, model.EmailBody{From: "Alice <alice@x>", To: "me@x", Subject: "Lunch?", Date: "2024-01-01T00:00:00Z", TextBody: "Noon at the usual place"})
	m, _ := newTestApp(ch)
	m = boot(t, m)

	m, cmd := press(m, "enter")
	m = run(t, m, cmd)

	assert.Equal(t, 1, ch.Calls(bridge.OpFetchEmailBody))
	assert.Contains(t, m.View(), "Noon at the usual place")
	assert.Zero(t, m.inbox.Mailbox().UnreadCount())
	assert.NotContains(t, m.View(), "unread]")
}

func TestDetailErrorDoesNotAffectList(t *testing.T) {
	ch := bridgetest.New()
	ch.SetConfig(completeConfig)
	ch.SetEmails(model.EmailSummary{UID: 7, From: "alice@x", Subject: "Lunch?", Date: "2024-01-01T00:00:00Z"})
	m, _ := newTestApp(ch)
	m = boot(t, m)

	m, cmd := press(m, "enter")
	m = run(t, m, cmd)

	view := m.View()
	assert.Contains(t, view, "No message found for UID 7")
	assert.Contains(t, view, "Lunch?")
	assert.Equal(t, mailbox.StateReady, m.inbox.Mailbox().State())
}

func TestReloadWhileLoadingIsIgnored(t *testing.T) {
	ch := bridgetest.New()
	ch.SetConfig(completeConfig)
	m, _ := newTestApp(ch)

	// deliver the config but hold the list fetch
	next, loadCmd := m.Update(m.Init()())
	m = next.(Model)
	require.NotNil(t, loadCmd)

	m, cmd := press(m, "r")
	assert.Nil(t, cmd)

	m = run(t, m, loadCmd)
	assert.Equal(t, 1, ch.Calls(bridge.OpFetchEmails))

	m, cmd = press(m, "r")
	require.NotNil(t, cmd)
	run(t, m, cmd)
	assert.Equal(t, 2, ch.Calls(bridge.OpFetchEmails))
}

func TestListErrorIsInline(t *testing.T) {
	ch := bridgetest.New()
	ch.SetConfig(completeConfig)
	ch.Fail(bridge.OpFetchEmails, "IMAP host is not configured.")
	m, _ := newTestApp(ch)
	m = boot(t, m)

	assert.Equal(t, ViewInbox, m.State())
	assert.Contains(t, m.View(), "Error: IMAP host is not configured.")
	assert.Contains(t, m.View(), detail.EmptyText)
}

func TestHelpOverlayToggles(t *testing.T) {
	ch := bridgetest.New()
	m, _ := newTestApp(ch)
	m = boot(t, m)

	m, _ = press(m, "?")
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m, _ = press(m, "?")
	assert.NotContains(t, m.View(), "Keyboard Shortcuts")
	assert.Contains(t, m.View(), welcomeText)
}

func TestCommandPaletteRefresh(t *testing.T) {
	ch := bridgetest.New()
	ch.SetConfig(completeConfig)
	m, _ := newTestApp(ch)
	m = boot(t, m)

	m, _ = press(m, ":")
	for _, r := range "refresh" {
		m, _ = press(m, string(r))
	}
	m, cmd := press(m, "enter")
	m = run(t, m, cmd)

	assert.Equal(t, 2, ch.Calls(bridge.OpFetchEmails))
	assert.NotContains(t, m.View(), "Command Palette")
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestApp(bridgetest.New())

	_, cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
