// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package secrets_test

import (
	"testing"

	"github.com/darcy-ai/darcy/internal/secrets"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKeyringURI(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"valid URI", "keyring://darcy/anthropic-api-key", true},
		{"valid URI with dashes", "keyring://my-svc/my-key", true},
		{"env var reference", "${ANTHROPIC_API_KEY}", false},
		{"literal value", "sk-abc123", false},
		{"empty string", "", false},
		{"just scheme", "keyring://", true},
		{"other scheme", "vault://secret/key", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := secrets.IsKeyringURI(tt.value)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeyringURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"valid", "keyring://darcy/api-key", "darcy", "api-key", false},
		{"dashes", "keyring://my-service/my-key-name", "my-service", "my-key-name", false},
		{"slashes in key", "keyring://darcy/path/to/key", "darcy", "path/to/key", false},
		{"not a keyring URI", "vault://secret/key", "", "", true},
		{"missing key", "keyring://darcy/", "", "", true},
		{"missing service", "keyring:///key", "", "", true},
		{"missing both", "keyring://", "", "", true},
		{"no path", "keyring://darcy", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, key, err := secrets.ParseKeyringURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, darcyerr.HasCode(err, darcyerr.CodeSecretInvalidInput))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantService, svc)
				assert.Equal(t, tt.wantKey, key)
			}
		})
	}
}

func TestResolveKeyringURI(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("darcy", "test-key", "resolved-secret"))

	t.Run("resolves keyring URI", func(t *testing.T) {
		val, err := secrets.ResolveKeyringURI(ks, "keyring://darcy/test-key")
		require.NoError(t, err)
		assert.Equal(t, "resolved-secret", val)
	})

	t.Run("passes through non-keyring values", func(t *testing.T) {
		val, err := secrets.ResolveKeyringURI(ks, "literal-value")
		require.NoError(t, err)
		assert.Equal(t, "literal-value", val)
	})

	t.Run("passes through env var references", func(t *testing.T) {
		val, err := secrets.ResolveKeyringURI(ks, "${ENV_VAR}")
		require.NoError(t, err)
		assert.Equal(t, "${ENV_VAR}", val)
	})

	t.Run("error on missing secret", func(t *testing.T) {
		_, err := secrets.ResolveKeyringURI(ks, "keyring://darcy/nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolving keyring URI")
	})

	t.Run("error on malformed URI", func(t *testing.T) {
		_, err := secrets.ResolveKeyringURI(ks, "keyring://bad")
		require.Error(t, err)
	})
}

func TestResolveViperSecrets_ProviderKeys(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store(secrets.DefaultService, "groq", "gsk-live"))
	require.NoError(t, ks.Store(secrets.DefaultService, "anthropic", "sk-ant-live"))

	v := viper.New()
	v.Set("providers.groq.api_key", "keyring://darcy/groq")
	v.Set("providers.anthropic.api_key", "keyring://darcy/anthropic")
	v.Set("providers.ollama.endpoint", "http://localhost:11434")
	v.Set("state.redis.addr", "cache:6379")

	require.NoError(t, secrets.ResolveViperSecrets(v, ks))

	assert.Equal(t, "gsk-live", v.GetString("providers.groq.api_key"))
	assert.Equal(t, "sk-ant-live", v.GetString("providers.anthropic.api_key"))
	assert.Equal(t, "http://localhost:11434", v.GetString("providers.ollama.endpoint"))
	assert.Equal(t, "cache:6379", v.GetString("state.redis.addr"))
}

func TestResolveViperSecrets_MissingProviderKeyStaysUnresolved(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store(secrets.DefaultService, "together", "tk-live"))

	v := viper.New()
	v.Set("providers.together.api_key", "keyring://darcy/together")
	v.Set("providers.openai.api_key", "keyring://darcy/openai-missing")
	v.Set("providers.google.api_key", "keyring://darcy/google-missing")

	err := secrets.ResolveViperSecrets(v, ks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "providers.openai.api_key")
	assert.Contains(t, err.Error(), "providers.google.api_key")

	// The resolved key is usable; the missing ones keep their reference so the
	// gateway can recognise them and leave those providers disabled.
	assert.Equal(t, "tk-live", v.GetString("providers.together.api_key"))
	assert.True(t, secrets.IsKeyringURI(v.GetString("providers.openai.api_key")))
	assert.True(t, secrets.IsKeyringURI(v.GetString("providers.google.api_key")))
}
