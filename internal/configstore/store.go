// Package configstore holds the session's one current account
// configuration. It is shared by reference between the main view and the
// settings form; after initialisation the only writer is a confirmed save.
package configstore

import (
	"context"
	"errors"

	"github.com/nhle/ettsumailer/internal/bridge"
	"github.com/nhle/ettsumailer/internal/model"
)

// ErrAlreadyInitialized is returned by Initialize on a store that
// already holds a configuration.
var ErrAlreadyInitialized = errors.New("config store already initialized")

// Store holds at most one model.Config. The zero value is empty.
type Store struct {
	cfg   model.Config
	valid bool
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Fetch performs the get_config round-trip for Initialize. It does not
// touch any store so it may run off the control thread.
func Fetch(ctx context.Context, client *bridge.Client) (model.Config, error) {
	return client.GetConfig(ctx)
}

// Initialize stores the result of the startup fetch and returns the
// completeness verdict. A failed fetch leaves the store empty and the
// error is returned unchanged.
func (s *Store) Initialize(cfg model.Config, fetchErr error) (bool, error) {
	if fetchErr != nil {
		return false, fetchErr
	}
	if s.valid {
		return false, ErrAlreadyInitialized
	}
	s.cfg = cfg
	s.valid = true
	return cfg.Complete(), nil
}

// Replace swaps in the configuration carried by a save receipt. Both
// profiles are replaced together.
func (s *Store) Replace(r bridge.Receipt) {
	s.cfg = r.Config()
	s.valid = true
}

// Current returns the held configuration and whether there is one.
func (s *Store) Current() (model.Config, bool) {
	return s.cfg, s.valid
}

// Initialized reports whether the store holds a configuration.
func (s *Store) Initialized() bool {
	return s.valid
}

// Complete reports whether the held configuration is complete. An empty
// store is never complete.
func (s *Store) Complete() bool {
	return s.valid && s.cfg.Complete()
}
