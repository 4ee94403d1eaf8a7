// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package secrets

import (
	"strings"

	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/spf13/viper"
)

const keyringScheme = "keyring://"

// DefaultService is the keyring service `darcy secret` stores keys under.
const DefaultService = "darcy"

// IsKeyringURI reports whether value uses the keyring:// URI scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI extracts service and key from a keyring://service/key URI.
// Returns an error if the URI is malformed.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", darcyerr.Errorf(darcyerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	path := strings.TrimPrefix(uri, keyringScheme)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", darcyerr.Errorf(darcyerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}

	return parts[0], parts[1], nil
}

// ResolveKeyringURI resolves a single keyring:// URI to its secret value.
// Returns the original value unchanged if it is not a keyring URI.
func ResolveKeyringURI(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", darcyerr.Wrapf(err, darcyerr.CodeSecretResolveFailure,
			"resolving keyring URI %q", value)
	}

	return secret, nil
}

// ResolveViperSecrets replaces every keyring:// value in v with the secret
// it names. Values that cannot be resolved are left in place and reported
// together in the returned error, so one missing secret does not hide the
// others.
func ResolveViperSecrets(v *viper.Viper, store Store) error {
	var errs []error
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}

		resolved, err := ResolveKeyringURI(store, val)
		if err != nil {
			errs = append(errs, darcyerr.Wrapf(err, darcyerr.CodeSecretResolveFailure, "config key %s", key))
			continue
		}

		v.Set(key, resolved)
	}
	if len(errs) > 0 {
		return darcyerr.Join(errs...)
	}
	return nil
}
