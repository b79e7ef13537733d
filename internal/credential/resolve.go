// Package credential turns a profile's password_command into a password.
// The value is either a shell command whose output is the password or a
// keyring:<name> reference into the system keyring.
package credential

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoCommand is returned for an empty password_command.
var ErrNoCommand = errors.New("no password command configured")

// keyringGet is swapped out in tests.
var keyringGet = Get

// Resolve returns the password for ref.
func Resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrNoCommand
	}

	if name, ok := ParseRef(ref); ok {
		return keyringGet(name)
	}

	return run(ctx, ref)
}

// run executes command with sh -c and returns its trimmed stdout.
func run(ctx context.Context, command string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("password command failed: %s", msg)
	}

	return strings.TrimSpace(stdout.String()), nil
}
