// Package credential keeps the lookup API token in the system keyring.
package credential

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName = "techtracker"

	// LookupTokenKey names the keyring item holding the repository search token.
	LookupTokenKey = "lookup-token"
)

// ErrNoToken is returned when no token has been stored yet.
var ErrNoToken = errors.New("no token stored")

// Vault reads and writes secrets in a keyring.
type Vault struct {
	ring keyring.Keyring
}

// NewVault wraps an already opened keyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

// Open returns a Vault over the first available system backend. The file
// backend lives under dir and is used when no OS keychain is reachable.
func Open(dir string) (*Vault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("techtracker-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewVault(ring), nil
}

// LookupToken returns the stored search token or ErrNoToken.
func (v *Vault) LookupToken() (string, error) {
	item, err := v.ring.Get(LookupTokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", LookupTokenKey, err)
	}
	return string(item.Data), nil
}

// SetLookupToken stores token, replacing any previous value.
func (v *Vault) SetLookupToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("setting credential %q: empty token", LookupTokenKey)
	}
	err := v.ring.Set(keyring.Item{
		Key:         LookupTokenKey,
		Data:        []byte(token),
		Label:       "Tech tracker lookup token",
		Description: "Token sent to the repository search API",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", LookupTokenKey, err)
	}
	return nil
}

// DeleteLookupToken removes the stored token. Removing a missing token is
// not an error.
func (v *Vault) DeleteLookupToken() error {
	err := v.ring.Remove(LookupTokenKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", LookupTokenKey, err)
	}
	return nil
}
