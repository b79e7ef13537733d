// Package appconfig loads the application settings: where data and logs
// live and how the mail engine talks to the server. Account profiles are
// not settings; they are stored by the engine.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ETTSUMAILER_LOG_LEVEL.
const EnvPrefix = "ETTSUMAILER"

// LogSettings controls the log file.
type LogSettings struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// File is the log path; empty means ettsumailer.log in the data dir.
	File string `mapstructure:"file"`
	JSON bool   `mapstructure:"json"`
}

// MailSettings tunes the IMAP reader.
type MailSettings struct {
	Mailbox     string        `mapstructure:"mailbox"`
	FetchLimit  int           `mapstructure:"fetch_limit"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Settings is the top-level application configuration.
type Settings struct {
	DataDir string       `mapstructure:"data_dir"`
	Log     LogSettings  `mapstructure:"log"`
	Mail    MailSettings `mapstructure:"mail"`
}

// DefaultSettingsPath returns ~/.config/ettsumailer/settings.yaml.
func DefaultSettingsPath() string {
	return filepath.Join(defaultDir(), "settings.yaml")
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ettsumailer")
}

// flagKeys maps command line flags onto settings keys.
var flagKeys = map[string]string{
	"data-dir":  "data_dir",
	"log-level": "log.level",
	"log-file":  "log.file",
	"log-json":  "log.json",
}

// Load reads settings from the YAML file at path, then applies
// environment overrides and any flags set in fs. A missing file yields
// the defaults.
func Load(path string, fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", defaultDir())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.json", false)
	v.SetDefault("mail.mailbox", "INBOX")
	v.SetDefault("mail.fetch_limit", 30)
	v.SetDefault("mail.dial_timeout", 30*time.Second)

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading settings %s: %w", path, err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	switch s.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level %q not one of: debug, info, warn, error", s.Log.Level)
	}
	if s.Mail.FetchLimit < 1 {
		return fmt.Errorf("mail.fetch_limit must be positive, got %d", s.Mail.FetchLimit)
	}
	if s.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	return nil
}

// DBPath is the engine's database file.
func (s *Settings) DBPath() string {
	return filepath.Join(s.DataDir, "ettsumailer.db")
}

// LogPath is the log file, defaulting into the data dir.
func (s *Settings) LogPath() string {
	if s.Log.File != "" {
		return s.Log.File
	}
	return filepath.Join(s.DataDir, "ettsumailer.log")
}
