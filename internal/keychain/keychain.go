// Package keychain stores RCON passwords in the OS credential store, one
// item per server name. Passwords never touch the config file.
package keychain

import (
	"errors"

	"github.com/99designs/keyring"
)

// ServiceName identifies the cs2ctl namespace in the credential store.
const ServiceName = "cs2ctl"

// ErrNotFound indicates no password is stored for the server.
var ErrNotFound = errors.New("no stored password")

// Store wraps the OS keyring.
type Store struct {
	ring keyring.Keyring
}

// Open initializes the platform credential store (macOS Keychain, Windows
// Credential Manager, Secret Service on Linux, with keyring's defaults as
// fallback).
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
	})
	if err != nil {
		return nil, err
	}
	return &Store{ring: ring}, nil
}

// SetPassword stores or replaces the password for a server name.
func (s *Store) SetPassword(server, password string) error {
	return s.ring.Set(keyring.Item{
		Key:   server,
		Label: "cs2ctl RCON password for " + server,
		Data:  []byte(password),
	})
}

// Password retrieves the stored password for a server name.
func (s *Store) Password(server string) (string, error) {
	item, err := s.ring.Get(server)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(item.Data), nil
}

// DeletePassword removes a server's password. Missing entries are not an
// error.
func (s *Store) DeletePassword(server string) error {
	err := s.ring.Remove(server)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
