// Package engine is the in-process mail engine behind the bridge. It owns
// configuration persistence, credential resolution and IMAP access; the UI
// reaches it only through bridge.Channel.
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/nhle/ettsumailer/internal/bridge"
	"github.com/nhle/ettsumailer/internal/model"
	"github.com/nhle/ettsumailer/internal/store"
)

// Mailer reads messages for an IMAP profile.
type Mailer interface {
	FetchEmails(ctx context.Context, p model.Profile) ([]model.EmailSummary, error)
	FetchEmailBody(ctx context.Context, p model.Profile, uid uint32) (model.EmailBody, error)
}

// Host answers bridge calls.
type Host struct {
	store  store.Store
	mailer Mailer
}

var _ bridge.Channel = (*Host)(nil)

// NewHost returns a host backed by s and m.
func NewHost(s store.Store, m Mailer) *Host {
	return &Host{store: s, mailer: m}
}

// Invoke implements bridge.Channel.
func (h *Host) Invoke(ctx context.Context, op bridge.Op, payload []byte) ([]byte, error) {
	logger := log.With().Str("module", "engine").Str("op", string(op)).Logger()
	logger.Debug().Msg("Handling command")

	reply, err := h.dispatch(ctx, op, payload)
	if err != nil {
		logger.Warn().Err(err).Msg("Command failed")
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}
	return json.Marshal(reply)
}

func (h *Host) dispatch(ctx context.Context, op bridge.Op, payload []byte) (any, error) {
	switch op {
	case bridge.OpGetConfig:
		return h.store.GetConfig(ctx)

	case bridge.OpSaveConfig:
		var args bridge.SaveConfigArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, fmt.Errorf("invalid save_config payload: %w", err)
		}
		return nil, h.store.SaveConfig(ctx, args.Config)

	case bridge.OpFetchEmails:
		cfg, err := h.store.GetConfig(ctx)
		if err != nil {
			return nil, err
		}
		return h.mailer.FetchEmails(ctx, cfg.IMAP)

	case bridge.OpFetchEmailBody:
		var args bridge.FetchEmailBodyArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, fmt.Errorf("invalid fetch_email_body payload: %w", err)
		}
		cfg, err := h.store.GetConfig(ctx)
		if err != nil {
			return nil, err
		}
		return h.mailer.FetchEmailBody(ctx, cfg.IMAP, args.UID)
	}

	return nil, fmt.Errorf("unknown command %q", op)
}
