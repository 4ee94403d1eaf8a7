// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package store

import (
	"sync"

	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
)

// Factory creates a StateStore from configuration.
type Factory func(cfg Config) (StateStore, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named backend. Backend packages
// call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// resolveBackend returns the effective backend name, defaulting to "memory".
func resolveBackend(cfg Config) string {
	if cfg.Backend == "" {
		return "memory"
	}
	return cfg.Backend
}

// New creates the StateStore selected by cfg.Backend.
func New(cfg Config) (StateStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	f, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, darcyerr.Errorf(darcyerr.CodeStoreBackendUnsupported, "unsupported state backend: %q", backend)
	}

	return f(cfg)
}
