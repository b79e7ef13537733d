package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "ettsumailer"

// KeyringPrefix marks a password_command that names a keyring entry.
const KeyringPrefix = "keyring:"

// ErrEmptyName is returned for a keyring reference without a name.
var ErrEmptyName = errors.New("keyring entry name is empty")

// Ref builds the password_command that points at the keyring entry name.
func Ref(name string) string {
	return KeyringPrefix + strings.TrimSpace(name)
}

// ParseRef extracts the entry name from a keyring:<name> password_command.
// ok is false when ref is not a keyring reference at all.
func ParseRef(ref string) (name string, ok bool) {
	name, ok = strings.CutPrefix(strings.TrimSpace(ref), KeyringPrefix)
	return strings.TrimSpace(name), ok
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/ettsumailer/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("ettsumailer-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves the password stored under name.
func Get(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}
	return lookup(ring, name)
}

// Set stores a password under name. Profiles then use Ref(name) as their
// password_command.
func Set(name string, password string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	return store(ring, name, password)
}

// Delete removes the password stored under name.
func Delete(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(name); err != nil {
		return fmt.Errorf("deleting keyring entry %q: %w", name, err)
	}
	return nil
}

func lookup(ring keyring.Keyring, name string) (string, error) {
	item, err := ring.Get(name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("no keyring entry %q; store one with --store-password %s", name, name)
	}
	if err != nil {
		return "", fmt.Errorf("reading keyring entry %q: %w", name, err)
	}

	password := strings.TrimRight(string(item.Data), "\r\n")
	if password == "" {
		return "", fmt.Errorf("keyring entry %q is empty", name)
	}
	return password, nil
}

func store(ring keyring.Keyring, name, password string) error {
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return fmt.Errorf("refusing to store an empty password for %q", name)
	}

	err := ring.Set(keyring.Item{
		Key:         name,
		Data:        []byte(password),
		Label:       serviceName + " " + name,
		Description: "mail password",
	})
	if err != nil {
		return fmt.Errorf("saving keyring entry %q: %w", name, err)
	}
	return nil
}
