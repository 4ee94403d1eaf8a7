// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package store

import (
	"context"
	"sync"
)

func init() {
	RegisterBackend("memory", func(Config) (StateStore, error) {
		return NewMemoryStore(), nil
	})
}

// MemoryStore keeps provider state in process memory. State is lost on
// restart.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]ProviderState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]ProviderState)}
}

func (m *MemoryStore) Load(_ context.Context, providerID string) (ProviderState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.states[providerID]
	if !ok {
		return ProviderState{}, ErrNotFound
	}
	return st, nil
}

func (m *MemoryStore) Apply(_ context.Context, providerID string, d Delta) (ProviderState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.states[providerID].apply(d)
	m.states[providerID] = st
	return st, nil
}

func (m *MemoryStore) Close() error { return nil }
