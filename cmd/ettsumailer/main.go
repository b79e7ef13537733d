// main is the ettsumailer terminal mail reader launcher
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/nhle/ettsumailer/internal/app"
	"github.com/nhle/ettsumailer/internal/appconfig"
	"github.com/nhle/ettsumailer/internal/bridge"
	"github.com/nhle/ettsumailer/internal/configstore"
	"github.com/nhle/ettsumailer/internal/credential"
	"github.com/nhle/ettsumailer/internal/engine"
	"github.com/nhle/ettsumailer/internal/store"
)

// version contains the build version number, populated during linking.
var version = "undefined"

func main() {
	fs := pflag.NewFlagSet("ettsumailer", pflag.ExitOnError)
	help := fs.BoolP("help", "h", false, "Displays help on flags and env variables.")
	settingsPath := fs.String("settings", appconfig.DefaultSettingsPath(), "Read settings from the specified YAML file.")
	fs.String("data-dir", "", "Store the database and default log in this directory.")
	fs.String("log-level", "", "Log level: debug, info, warn, error.")
	fs.String("log-file", "", "Write the log into the specified file.")
	fs.Bool("log-json", false, "Logs are written in JSON format.")
	storePassword := fs.String("store-password", "", "Read a password from stdin, save it in the keyring under `name`, and exit.")
	forgetPassword := fs.String("forget-password", "", "Remove the keyring password stored under `name` and exit.")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: ettsumailer [options]")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if *help {
		fs.Usage()
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintf(os.Stderr, "Every setting can be overridden with %s_<KEY>, e.g. %s_LOG_LEVEL=debug.\n",
			appconfig.EnvPrefix, appconfig.EnvPrefix)
		return
	}

	switch {
	case *storePassword != "":
		if err := savePassword(*storePassword, os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "Keyring error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Saved; use password command %s\n", credential.Ref(*storePassword))
		return
	case *forgetPassword != "":
		if err := credential.Delete(*forgetPassword); err != nil {
			fmt.Fprintf(os.Stderr, "Keyring error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	settings, err := appconfig.Load(*settingsPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(settings.DataDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Data directory error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := openLog(settings.Log.Level, settings.LogPath(), settings.Log.JSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Log error: %v\n", err)
		os.Exit(1)
	}
	startupLog := log.With().Str("phase", "startup").Logger()
	startupLog.Info().Str("version", version).Str("data_dir", settings.DataDir).
		Msg("ettsumailer starting")

	db, err := store.NewSQLiteStore(settings.DBPath())
	if err != nil {
		startupLog.Error().Err(err).Str("module", "store").Msg("Failed to open database")
		closeLog()
		fmt.Fprintf(os.Stderr, "Database error: %v\n", err)
		os.Exit(1)
	}

	host := engine.NewHost(db, &engine.IMAPMailer{
		Mailbox:     settings.Mail.Mailbox,
		Limit:       settings.Mail.FetchLimit,
		DialTimeout: settings.Mail.DialTimeout,
		Resolve:     credential.Resolve,
	})
	client := bridge.New(host)

	p := tea.NewProgram(app.New(client, configstore.New()), tea.WithAltScreen())
	_, runErr := p.Run()

	if err := db.Close(); err != nil {
		log.Error().Str("phase", "shutdown").Err(err).Msg("Failed to close database")
	}
	if runErr != nil {
		log.Error().Str("phase", "shutdown").Err(runErr).Msg("UI exited with error")
	}
	log.Info().Str("phase", "shutdown").Msg("ettsumailer stopped")
	closeLog()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

// savePassword stores the first line read from r in the keyring.
func savePassword(name string, r io.Reader) error {
	fmt.Fprintf(os.Stderr, "Password for %s: ", name)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return fmt.Errorf("empty password")
	}
	return credential.Set(name, password)
}

// openLog configures zerolog output, returns func to close logfile. The
// terminal belongs to the UI, so the log always goes to a file.
func openLog(level string, logfile string, json bool) (close func(), err error) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		return nil, fmt.Errorf("log level %q not one of: debug, info, warn, error", level)
	}
	logf, err := os.OpenFile(logfile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(logf)
	close = func() {
		_ = bw.Flush()
		_ = logf.Close()
	}
	w := zerolog.SyncWriter(bw)
	if json {
		log.Logger = log.Output(w)
		return close, nil
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05",
	})
	return close, nil
}
