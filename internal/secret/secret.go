// Package secret stores provider API keys in the OS credential store.
//
// Keys are never logged or written to the plain config file. Lookups fall
// back to environment variables so CI and containers work without a keyring.
package secret

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service is the credential store service name.
const Service = "somas_prompt_generator"

// Sentinel errors.
var (
	// ErrNotFound indicates no secret is stored under the key.
	ErrNotFound = errors.New("secret not found")

	// ErrEmptySecret indicates an attempt to store an empty secret.
	ErrEmptySecret = errors.New("secret is empty")
)

// Store is an opaque key/secret store.
type Store interface {
	Get(key string) (string, error)
	Set(key, secret string) error
	Delete(key string) error
}

// KeyName returns the store key of a provider's API key.
func KeyName(providerID string) string {
	return strings.ToLower(providerID) + "_api_key"
}

// Compile-time interface compliance check.
var _ Store = (*Keyring)(nil)

// Keyring is a Store backed by the OS credential store
// (Keychain, Secret Service, Windows Credential Manager).
type Keyring struct {
	service string
}

// NewKeyring returns a keyring store for service. Empty means Service.
func NewKeyring(service string) *Keyring {
	if service == "" {
		service = Service
	}
	return &Keyring{service: service}
}

// Get returns the secret stored under key.
func (k *Keyring) Get(key string) (string, error) {
	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", key, err)
	}
	return v, nil
}

// Set stores secret under key, replacing any previous value.
func (k *Keyring) Set(key, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrEmptySecret
	}
	if err := keyring.Set(k.service, key, secret); err != nil {
		return fmt.Errorf("keyring set %s: %w", key, err)
	}
	return nil
}

// Delete removes the secret stored under key.
func (k *Keyring) Delete(key string) error {
	err := keyring.Delete(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("keyring delete %s: %w", key, err)
	}
	return nil
}

// Origin tells where a resolved key came from.
type Origin string

// Key origins.
const (
	OriginStore Origin = "keyring"
	OriginEnv   Origin = "env"
)

// Resolver looks up API keys in the store first, then in the environment.
type Resolver struct {
	store  Store
	getenv func(string) string
}

// NewResolver returns a Resolver. A nil store resolves from the environment only.
func NewResolver(store Store, getenv func(string) string) *Resolver {
	return &Resolver{store: store, getenv: getenv}
}

// APIKey returns the key of providerID. envName is the fallback variable,
// e.g. "OPENAI_API_KEY". An unusable keyring does not stop the env fallback.
func (r *Resolver) APIKey(providerID, envName string) (string, Origin, error) {
	var storeErr error
	if r.store != nil {
		key, err := r.store.Get(KeyName(providerID))
		if err == nil && key != "" {
			return key, OriginStore, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			storeErr = err
		}
	}

	if envName != "" && r.getenv != nil {
		if key := strings.TrimSpace(r.getenv(envName)); key != "" {
			return key, OriginEnv, nil
		}
	}

	if storeErr != nil {
		return "", "", fmt.Errorf("%s: %w (%v)", providerID, ErrNotFound, storeErr)
	}
	return "", "", fmt.Errorf("%s: %w", providerID, ErrNotFound)
}

// Mask renders a key for display, keeping only the last four characters.
func Mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}
