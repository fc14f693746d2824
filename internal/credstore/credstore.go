// Package credstore stores account passwords in the OS keychain, with an
// encrypted-file fallback for headless systems. Secrets never transit the
// config file or the logs.
package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

// serviceName namespaces our entries in the OS credential store.
const serviceName = "megawait"

// ErrNotFound is returned when no password is stored for the account.
var ErrNotFound = errors.New("credstore: no stored credentials")

// Store wraps one opened keyring.
type Store struct {
	ring keyring.Keyring
}

// Open opens the platform credential store. The file backend lands under
// the user config dir and is only selected when no native backend exists.
func Open() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("credstore: resolving user config dir: %w", err)
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir: filepath.Join(dir, "megawait", "keyring"),
		FilePasswordFunc: func(prompt string) (string, error) {
			if pw := os.Getenv("MEGAWAIT_KEYRING_PASSWORD"); pw != "" {
				return pw, nil
			}

			return keyring.TerminalPrompt(prompt)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("credstore: opening keyring: %w", err)
	}

	return &Store{ring: ring}, nil
}

// Save stores the password for the given account email.
func (s *Store) Save(email, password string) error {
	err := s.ring.Set(keyring.Item{
		Key:   email,
		Data:  []byte(password),
		Label: serviceName + ": " + email,
	})
	if err != nil {
		return fmt.Errorf("credstore: storing credentials for %s: %w", email, err)
	}

	return nil
}

// Load returns the stored password for the account email.
func (s *Store) Load(email string) (string, error) {
	item, err := s.ring.Get(email)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("credstore: reading credentials for %s: %w", email, err)
	}

	return string(item.Data), nil
}

// Delete removes the stored password for the account email. Deleting an
// absent entry is not an error.
func (s *Store) Delete(email string) error {
	err := s.ring.Remove(email)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("credstore: removing credentials for %s: %w", email, err)
	}

	return nil
}
