// Package bridgetest provides a scriptable in-memory bridge.Channel for
// tests of the components that talk to the mail engine.
package bridgetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nhle/ettsumailer/internal/bridge"
	"github.com/nhle/ettsumailer/internal/model"
)

// Channel answers bridge calls from canned replies and records every
// request it receives.
type Channel struct {
	mu       sync.Mutex
	config   model.Config
	saved    []model.Config
	emails   []model.EmailSummary
	bodies   map[uint32]model.EmailBody
	failures map[bridge.Op]string
	calls    map[bridge.Op][][]byte
}

// New returns a channel holding an empty configuration and mailbox.
func New() *Channel {
	return &Channel{
		bodies:   make(map[uint32]model.EmailBody),
		failures: make(map[bridge.Op]string),
		calls:    make(map[bridge.Op][][]byte),
	}
}

// Client returns a bridge client bound to c.
func (c *Channel) Client() *bridge.Client {
	return bridge.New(c)
}

// SetConfig sets the value returned by get_config.
func (c *Channel) SetConfig(cfg model.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = cfg
}

// SetEmails sets the value returned by fetch_emails.
func (c *Channel) SetEmails(emails ...model.EmailSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emails = emails
}

// SetBody registers the body returned for uid.
func (c *Channel) SetBody(uid uint32, body model.EmailBody) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies[uid] = body
}

// Fail makes every later call to op fail with msg.
func (c *Channel) Fail(op bridge.Op, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = msg
}

// Recover undoes Fail for op.
func (c *Channel) Recover(op bridge.Op) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failures, op)
}

// Calls returns how many times op was invoked.
func (c *Channel) Calls(op bridge.Op) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls[op])
}

// Requests returns the raw payloads sent for op, oldest first.
func (c *Channel) Requests(op bridge.Op) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.calls[op]...)
}

// Saved returns every configuration accepted by save_config.
func (c *Channel) Saved() []model.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Config(nil), c.saved...)
}

// Invoke implements bridge.Channel.
func (c *Channel) Invoke(_ context.Context, op bridge.Op, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[op] = append(c.calls[op], payload)
	if msg, ok := c.failures[op]; ok {
		return nil, errors.New(msg)
	}

	switch op {
	case bridge.OpGetConfig:
		return json.Marshal(c.config)

	case bridge.OpSaveConfig:
		var args bridge.SaveConfigArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, err
		}
		c.config = args.Config
		c.saved = append(c.saved, args.Config)
		return nil, nil

	case bridge.OpFetchEmails:
		return json.Marshal(c.emails)

	case bridge.OpFetchEmailBody:
		var args bridge.FetchEmailBodyArgs
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, err
		}
		body, ok := c.bodies[args.UID]
		if !ok {
			return nil, fmt.Errorf("No message found for UID %d", args.UID)
		}
		return json.Marshal(body)
	}

	return nil, fmt.Errorf("unknown command %q", op)
}
