package model

import "fmt"

// ProfileKind names one of the two symmetric halves of a Config.
type ProfileKind string

const (
	ProfileIMAP ProfileKind = "imap"
	ProfileSMTP ProfileKind = "smtp"
)

// Profile holds the connection settings for one mail protocol.
type Profile struct {
	// Host is the server hostname. An empty host means the profile is
	// not configured.
	Host string `json:"host"`

	// Port is the server port, 1-65535.
	Port int `json:"port"`

	// Username is the login name.
	Username string `json:"username"`

	// PasswordCommand is a shell command whose output is the password.
	// The password itself is never stored in a Profile.
	PasswordCommand string `json:"password_command"`
}

// Config is the account configuration shared by the main view and the
// settings form.
type Config struct {
	IMAP Profile `json:"imap"`
	SMTP Profile `json:"smtp"`
}

// Complete reports whether both profiles have a host. An incomplete
// configuration sends the user to the setup prompt instead of the inbox.
func (c Config) Complete() bool {
	return c.IMAP.Host != "" && c.SMTP.Host != ""
}

// Profile returns the profile of the given kind.
func (c Config) Profile(kind ProfileKind) Profile {
	if kind == ProfileSMTP {
		return c.SMTP
	}
	return c.IMAP
}

// ValidPort reports whether p is a usable TCP port.
func ValidPort(p int) bool {
	return p >= 1 && p <= 65535
}

// CheckPorts returns an error naming the first profile whose port is out
// of range.
func (c Config) CheckPorts() error {
	for _, kind := range []ProfileKind{ProfileIMAP, ProfileSMTP} {
		if p := c.Profile(kind).Port; !ValidPort(p) {
			return fmt.Errorf("invalid %s port %d", kind, p)
		}
	}
	return nil
}
