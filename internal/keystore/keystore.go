// Package keystore stores user-supplied provider credentials in the system
// keychain. A provider's stored key is addressed deterministically by the
// provider id alone, so any session referencing the same id addresses the
// same value.
package keystore

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/zalando/go-keyring"
)

// ServiceName is the keychain service identifier.
const ServiceName = "pagelens"

// account derives the fixed keychain account name for a provider id.
func account(providerID string) string {
	return "provider:" + providerID
}

// KeychainStore stores provider keys in the system keychain.
type KeychainStore struct {
	serviceName string
}

// NewKeychainStore creates a keychain-backed store.
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{serviceName: ServiceName}
}

// IsAvailable checks whether a keychain is usable on this system.
func (k *KeychainStore) IsAvailable() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux":
		// Linux requires a secret service (like gnome-keyring)
		if err := keyring.Set(k.serviceName, "__test__", "test"); err != nil {
			return false
		}
		_ = keyring.Delete(k.serviceName, "__test__")
		return true
	default:
		return false
	}
}

// Get retrieves the stored key for a provider; absent keys yield "".
func (k *KeychainStore) Get(providerID string) (string, error) {
	value, err := keyring.Get(k.serviceName, account(providerID))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read keychain: %w", err)
	}
	return value, nil
}

// Set stores a key for a provider.
func (k *KeychainStore) Set(providerID, key string) error {
	if err := keyring.Set(k.serviceName, account(providerID), key); err != nil {
		return fmt.Errorf("failed to write keychain: %w", err)
	}
	return nil
}

// Delete removes a provider's stored key. Deleting an absent key is not an error.
func (k *KeychainStore) Delete(providerID string) error {
	err := keyring.Delete(k.serviceName, account(providerID))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keychain: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory store for tests and for environments without a
// usable keychain.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]string)}
}

func (m *MemoryStore) Get(providerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[account(providerID)], nil
}

func (m *MemoryStore) Set(providerID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[account(providerID)] = key
	return nil
}

func (m *MemoryStore) Delete(providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, account(providerID))
	return nil
}

// NullStore is the storage-less fallback: all operations are no-ops and
// retrieval always yields absent.
type NullStore struct{}

func (NullStore) Get(providerID string) (string, error) { return "", nil }
func (NullStore) Set(providerID, key string) error      { return nil }
func (NullStore) Delete(providerID string) error        { return nil }

// Store is the provider key storage contract.
type Store interface {
	Get(providerID string) (string, error)
	Set(providerID, key string) error
	Delete(providerID string) error
}

// Open returns the keychain store when the system has one, else the no-op
// fallback.
func Open() Store {
	k := NewKeychainStore()
	if k.IsAvailable() {
		return k
	}
	return NullStore{}
}
