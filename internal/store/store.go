// Package store persists the account configuration for the mail engine.
package store

import (
	"context"

	"github.com/nhle/ettsumailer/internal/model"
)

// Store defines the persistence interface for the account configuration.
type Store interface {
	// GetConfig returns the saved configuration, or a zero Config when
	// nothing has been saved yet.
	GetConfig(ctx context.Context) (model.Config, error)

	// SaveConfig replaces both profiles at once.
	SaveConfig(ctx context.Context, cfg model.Config) error

	Close() error
}
