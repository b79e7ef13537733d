package bridge_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ettsumailer/internal/bridge"
	"github.com/nhle/ettsumailer/internal/bridge/bridgetest"
	"github.com/nhle/ettsumailer/internal/model"
)

func testConfig() model.Config {
	return model.Config{
		IMAP: model.Profile{Host: "imap.example.com", Port: 993, Username: "me", PasswordCommand: "pass imap"},
		SMTP: model.Profile{Host: "smtp.example.com", Port: 587, Username: "me", PasswordCommand: "pass smtp"},
	}
}

func TestSaveThenGetConfig(t *testing.T) {
	ch := bridgetest.New()
	client := ch.Client()
	ctx := context.Background()

	receipt, err := client.SaveConfig(ctx, testConfig())
	require.NoError(t, err)
	assert.Equal(t, testConfig(), receipt.Config())

	got, err := client.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, testConfig(), got)
}

func TestSaveConfigWireFormat(t *testing.T) {
	ch := bridgetest.New()
	_, err := ch.Client().SaveConfig(context.Background(), testConfig())
	require.NoError(t, err)

	reqs := ch.Requests(bridge.OpSaveConfig)
	require.Len(t, reqs, 1)
	var raw map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(reqs[0], &raw))
	assert.Equal(t, "imap.example.com", raw["config"]["imap"]["host"])
	assert.Equal(t, "pass smtp", raw["config"]["smtp"]["password_command"])
}

func TestErrorsAreSurfacedVerbatim(t *testing.T) {
	ch := bridgetest.New()
	ch.Fail(bridge.OpFetchEmails, "Failed to connect to IMAP server: refused")

	emails, err := ch.Client().FetchEmails(context.Background())
	require.Error(t, err)
	assert.Nil(t, emails)
	assert.True(t, bridge.IsError(err))
	assert.Equal(t, "Failed to connect to IMAP server: refused", err.Error())

	var bErr *bridge.Error
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, bridge.OpFetchEmails, bErr.Op)
	assert.Equal(t, 1, ch.Calls(bridge.OpFetchEmails), "no retries")
}

func TestSaveFailureYieldsNoReceipt(t *testing.T) {
	ch := bridgetest.New()
	ch.Fail(bridge.OpSaveConfig, "invalid imap port 0")

	receipt, err := ch.Client().SaveConfig(context.Background(), testConfig())
	require.Error(t, err)
	assert.Equal(t, model.Config{}, receipt.Config())
	assert.Empty(t, ch.Saved())
}

func TestFetchEmailsEmptyMailbox(t *testing.T) {
	ch := bridgetest.New()
	emails, err := ch.Client().FetchEmails(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, emails)
	assert.Empty(t, emails)
}

func TestFetchEmailBody(t *testing.T) {
	ch := bridgetest.New()
	ch.SetBody(7, model.EmailBody{Subject: "Hi", TextBody: "hello"})
	client := ch.Client()

	body, err := client.FetchEmailBody(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "hello", body.TextBody)

	_, err = client.FetchEmailBody(context.Background(), 8)
	assert.EqualError(t, err, "No message found for UID 8")
}
