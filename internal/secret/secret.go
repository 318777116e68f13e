// Package secret stores the device admin password in the OS keyring.
package secret

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const service = "belfry"

var (
	// ErrNotFound is returned when no password is stored for the device.
	ErrNotFound = errors.New("password not found in keyring")
	// ErrUnavailable is returned when the OS keyring cannot be reached.
	ErrUnavailable = errors.New("OS keyring is not available")
)

// Account returns the keyring user name for a device login.
func Account(device, username string) string {
	return strings.TrimSpace(username) + "@" + strings.TrimSpace(device)
}

// Get returns the stored password for username on device.
func Get(device, username string) (string, error) {
	password, err := keyring.Get(service, Account(device, username))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return password, nil
}

// Set stores password for username on device.
func Set(device, username, password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}
	if err := keyring.Set(service, Account(device, username), password); err != nil {
		return fmt.Errorf("store password in keyring: %w", err)
	}
	return nil
}

// Delete removes the stored password.
func Delete(device, username string) error {
	if err := keyring.Delete(service, Account(device, username)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete password from keyring: %w", err)
	}
	return nil
}
