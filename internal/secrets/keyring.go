// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/zalando/go-keyring"
)

// keysIndexSuffix names the entry holding the JSON list of keys stored for a
// service. go-keyring cannot enumerate keys on its own.
const keysIndexSuffix = "::keys-index"

// KeyringStore implements Store on the OS keyring (Keychain, secret-service
// or Credential Manager) via zalando/go-keyring.
type KeyringStore struct{}

var _ Store = (*KeyringStore)(nil)

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkInput("store", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return darcyerr.Wrapf(err, darcyerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return s.updateIndex(service, func(keys []string) []string {
		if slices.Contains(keys, key) {
			return keys
		}
		return append(keys, key)
	})
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkInput("retrieve", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", darcyerr.Errorf(darcyerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", darcyerr.Wrapf(err, darcyerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkInput("delete", service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return darcyerr.Errorf(darcyerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return darcyerr.Wrapf(err, darcyerr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}
	return s.updateIndex(service, func(keys []string) []string {
		return slices.DeleteFunc(keys, func(k string) bool { return k == key })
	})
}

func (s *KeyringStore) List(service string) ([]string, error) {
	return s.loadIndex(service)
}

func checkInput(op, service, key string) error {
	if service == "" {
		return darcyerr.Errorf(darcyerr.CodeSecretInvalidInput, "secret %s: service must not be empty", op)
	}
	if key == "" {
		return darcyerr.Errorf(darcyerr.CodeSecretInvalidInput, "secret %s: key must not be empty", op)
	}
	return nil
}

func (s *KeyringStore) loadIndex(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+keysIndexSuffix)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, darcyerr.Wrapf(err, darcyerr.CodeSecretListFailure, "loading key index for service %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, darcyerr.Wrapf(err, darcyerr.CodeSecretListFailure, "decoding key index for service %s", service)
	}
	return keys, nil
}

// updateIndex rewrites the key index with fn applied. An empty index is
// removed.
func (s *KeyringStore) updateIndex(service string, fn func([]string) []string) error {
	keys, err := s.loadIndex(service)
	if err != nil {
		return err
	}
	keys = fn(keys)
	indexKey := service + keysIndexSuffix

	if len(keys) == 0 {
		if delErr := keyring.Delete(service, indexKey); delErr != nil && !errors.Is(delErr, keyring.ErrNotFound) {
			slog.Debug("failed to clean up empty key index", "service", service, "error", delErr)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return darcyerr.Wrapf(err, darcyerr.CodeSecretListFailure, "encoding key index for service %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return darcyerr.Wrapf(err, darcyerr.CodeSecretListFailure, "saving key index for service %s", service)
	}
	return nil
}
