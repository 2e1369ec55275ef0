// Package credential stores per-provider API keys and the currently
// selected provider/model.
//
// A secret is scoped to exactly one provider: the gateway looks a key up
// by provider id and never sends it anywhere else. Secrets are never
// logged. Two implementations exist: an in-process Memory store and a
// flock-guarded File store for client-local persistence.
package credential

import (
	"errors"
	"sync"
)

// ErrNoSecret indicates no credential is stored for the provider.
var ErrNoSecret = errors.New("no credential stored for provider")

// Store is the capability handed to the gateway and interpreter. The core
// never assumes a specific persistence mechanism.
type Store interface {
	// Secret returns the key stored for a provider.
	Secret(providerID string) (string, bool)
	// SetSecret stores (or overwrites) a provider's key.
	SetSecret(providerID, secret string) error
	// RemoveSecret deletes a provider's key. Removing an absent key is a no-op.
	RemoveSecret(providerID string) error
	// Selection returns the currently selected provider and model ids.
	Selection() (providerID, modelID string)
	// SetSelection records the current provider and model.
	SetSelection(providerID, modelID string) error
}

// Memory is a process-local Store. Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	secrets  map[string]string
	provider string
	model    string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{secrets: make(map[string]string)}
}

// NewMemoryFromEnv creates a store pre-populated from a providerID->secret
// map, skipping empty values. Used at startup to seed env-configured keys.
func NewMemoryFromEnv(keys map[string]string) *Memory {
	m := NewMemory()
	for id, secret := range keys {
		if secret != "" {
			m.secrets[id] = secret
		}
	}
	return m
}

func (m *Memory) Secret(providerID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.secrets[providerID]
	return s, ok
}

func (m *Memory) SetSecret(providerID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[providerID] = secret
	return nil
}

func (m *Memory) RemoveSecret(providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, providerID)
	return nil
}

func (m *Memory) Selection() (string, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.provider, m.model
}

func (m *Memory) SetSelection(providerID, modelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = providerID
	m.model = modelID
	return nil
}
