// Package bridge is the typed request/response client for the host mail
// engine. It holds no state: every call is one round-trip over a Channel
// and every failure is returned to the caller as an *Error, unretried.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nhle/ettsumailer/internal/model"
)

// Op names a bridge operation on the wire.
type Op string

const (
	OpGetConfig      Op = "get_config"
	OpSaveConfig     Op = "save_config"
	OpFetchEmails    Op = "fetch_emails"
	OpFetchEmailBody Op = "fetch_email_body"
)

// Channel is the host RPC channel. Payloads and replies are JSON; a nil
// payload means the operation takes no arguments.
type Channel interface {
	Invoke(ctx context.Context, op Op, payload []byte) ([]byte, error)
}

// Error is a failure reported by the host or by the channel itself.
// Message is the host's text, unmodified.
type Error struct {
	Op      Op
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsError reports whether err (or any error in its chain) is an *Error.
func IsError(err error) bool {
	var bErr *Error
	return errors.As(err, &bErr)
}

// SaveConfigArgs is the save_config request payload.
type SaveConfigArgs struct {
	Config model.Config `json:"config"`
}

// FetchEmailBodyArgs is the fetch_email_body request payload.
type FetchEmailBodyArgs struct {
	UID uint32 `json:"uid"`
}

// Receipt proves that a configuration was accepted by the host. Only
// Client.SaveConfig produces one.
type Receipt struct {
	cfg model.Config
}

// Config returns the configuration that was saved.
func (r Receipt) Config() model.Config {
	return r.cfg
}

// Client wraps a Channel with the four typed operations.
type Client struct {
	ch Channel
}

// New creates a client speaking over ch.
func New(ch Channel) *Client {
	return &Client{ch: ch}
}

// GetConfig fetches the current configuration.
func (c *Client) GetConfig(ctx context.Context) (model.Config, error) {
	var cfg model.Config
	err := c.call(ctx, OpGetConfig, nil, &cfg)
	return cfg, err
}

// SaveConfig asks the host to persist cfg. The returned Receipt is the
// only way to replace the value held by a configstore.Store.
func (c *Client) SaveConfig(ctx context.Context, cfg model.Config) (Receipt, error) {
	if err := c.call(ctx, OpSaveConfig, SaveConfigArgs{Config: cfg}, nil); err != nil {
		return Receipt{}, err
	}
	return Receipt{cfg: cfg}, nil
}

// FetchEmails lists the inbox. An empty mailbox yields an empty,
// non-nil slice.
func (c *Client) FetchEmails(ctx context.Context) ([]model.EmailSummary, error) {
	var emails []model.EmailSummary
	if err := c.call(ctx, OpFetchEmails, nil, &emails); err != nil {
		return nil, err
	}
	if emails == nil {
		emails = []model.EmailSummary{}
	}
	return emails, nil
}

// FetchEmailBody fetches the full message for uid.
func (c *Client) FetchEmailBody(ctx context.Context, uid uint32) (model.EmailBody, error) {
	var body model.EmailBody
	err := c.call(ctx, OpFetchEmailBody, FetchEmailBodyArgs{UID: uid}, &body)
	return body, err
}

func (c *Client) call(ctx context.Context, op Op, args any, reply any) error {
	logger := log.With().Str("module", "bridge").Str("op", string(op)).
		Str("request", uuid.NewString()).Logger()

	var payload []byte
	if args != nil {
		var err error
		if payload, err = json.Marshal(args); err != nil {
			return &Error{Op: op, Message: fmt.Sprintf("encoding %s request: %v", op, err)}
		}
	}

	start := time.Now()
	raw, err := c.ch.Invoke(ctx, op, payload)
	if err != nil {
		logger.Warn().Err(err).Dur("took", time.Since(start)).Msg("Bridge call failed")
		var bErr *Error
		if errors.As(err, &bErr) {
			return bErr
		}
		return &Error{Op: op, Message: err.Error()}
	}
	logger.Debug().Dur("took", time.Since(start)).Int("bytes", len(raw)).Msg("Bridge call complete")

	if reply == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, reply); err != nil {
		return &Error{Op: op, Message: fmt.Sprintf("decoding %s reply: %v", op, err)}
	}
	return nil
}
