package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/nhle/ettsumailer/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// profileRow is one row of the profiles table.
type profileRow struct {
	Kind            string `db:"kind"`
	Host            string `db:"host"`
	Port            int    `db:"port"`
	Username        string `db:"username"`
	PasswordCommand string `db:"password_command"`
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		log.Debug().Str("module", "store").Int("version", m.version).Msg("Applied migration")
	}

	return nil
}

// GetConfig implements Store.
func (s *SQLiteStore) GetConfig(ctx context.Context) (model.Config, error) {
	var rows []profileRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT kind, host, port, username, password_command FROM profiles",
	)
	if err != nil {
		return model.Config{}, fmt.Errorf("querying profiles: %w", err)
	}

	var cfg model.Config
	for _, r := range rows {
		p := model.Profile{
			Host:            r.Host,
			Port:            r.Port,
			Username:        r.Username,
			PasswordCommand: r.PasswordCommand,
		}
		switch model.ProfileKind(r.Kind) {
		case model.ProfileIMAP:
			cfg.IMAP = p
		case model.ProfileSMTP:
			cfg.SMTP = p
		}
	}

	return cfg, nil
}

// SaveConfig implements Store. Ports outside 1-65535 are rejected before
// anything is written.
func (s *SQLiteStore) SaveConfig(ctx context.Context, cfg model.Config) error {
	if err := cfg.CheckPorts(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO profiles (kind, host, port, username, password_command, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET
			host = excluded.host,
			port = excluded.port,
			username = excluded.username,
			password_command = excluded.password_command,
			updated_at = excluded.updated_at`

	now := time.Now().UTC()
	for _, kind := range []model.ProfileKind{model.ProfileIMAP, model.ProfileSMTP} {
		p := cfg.Profile(kind)
		_, err := tx.ExecContext(ctx, query,
			string(kind), p.Host, p.Port, p.Username, p.PasswordCommand, now,
		)
		if err != nil {
			return fmt.Errorf("saving %s profile: %w", kind, err)
		}
	}

	return tx.Commit()
}
