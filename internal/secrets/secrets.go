// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

// Package secrets keeps provider API keys out of the config file by storing
// them in the OS keyring and resolving keyring://service/key references.
package secrets

// Store is a service/key secret store.
type Store interface {
	Store(service, key, value string) error

	// Retrieve returns an error coded CodeSecretNotFound when the key does
	// not exist.
	Retrieve(service, key string) (string, error)

	// Delete returns an error coded CodeSecretNotFound when the key does
	// not exist.
	Delete(service, key string) error

	// List returns the key names stored under service.
	List(service string) ([]string, error)
}
