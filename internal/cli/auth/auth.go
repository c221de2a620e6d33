package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "seap-cli"
)

// getTokenKey returns a unique key for storing the credential per server
func getTokenKey(server string) string {
	return fmt.Sprintf("token-%s", server)
}

// getUserKey returns a unique key for storing the identity record per server
func getUserKey(server string) string {
	return fmt.Sprintf("user-%s", server)
}

// KeyringStorage persists a session in the OS keychain/credential manager.
// The credential and the identity are two separate entries, written as a pair.
type KeyringStorage struct {
	server string
}

// NewKeyringStorage returns storage scoped to one SEAP server
func NewKeyringStorage(server string) *KeyringStorage {
	return &KeyringStorage{server: server}
}

// Load returns both entries. A missing entry comes back empty, so a
// half-written pair is visible to the caller.
func (k *KeyringStorage) Load(ctx context.Context) (string, []byte, error) {
	token, err := get(getTokenKey(k.server))
	if err != nil {
		return "", nil, fmt.Errorf("failed to load token: %w", err)
	}
	user, err := get(getUserKey(k.server))
	if err != nil {
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == "" {
		return token, nil, nil
	}
	return token, []byte(user), nil
}

// setSecret writes one keyring entry
var setSecret = keyring.Set

// Save writes the credential then the identity. If the identity cannot be
// written the previous credential is put back, so the stored pair stays
// whatever it was before the call.
func (k *KeyringStorage) Save(ctx context.Context, credential string, identity []byte) error {
	tokenKey := getTokenKey(k.server)
	previous, prevErr := get(tokenKey)

	if err := setSecret(service, tokenKey, credential); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := setSecret(service, getUserKey(k.server), string(identity)); err != nil {
		k.rollback(previous, prevErr)
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// rollback restores the credential that was stored before a failed Save.
// When it cannot be restored both entries are removed.
func (k *KeyringStorage) rollback(previous string, prevErr error) {
	tokenKey := getTokenKey(k.server)
	if prevErr == nil && previous != "" {
		if err := setSecret(service, tokenKey, previous); err == nil {
			return
		}
	}
	_ = del(tokenKey)
	if prevErr != nil || previous != "" {
		_ = del(getUserKey(k.server))
	}
}

// Clear removes both entries. Missing entries are not an error.
func (k *KeyringStorage) Clear(ctx context.Context) error {
	return errors.Join(del(getTokenKey(k.server)), del(getUserKey(k.server)))
}

func get(key string) (string, error) {
	value, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func del(key string) error {
	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
