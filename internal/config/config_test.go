// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/darcy-ai/darcy/internal/config"
	"github.com/darcy-ai/darcy/internal/routing"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearProviderEnv keeps vendor variables from the developer's shell out of
// the tests.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GROQ_API_KEY", "TOGETHER_API_KEY", "HUGGINGFACE_API_KEY", "HF_TOKEN",
		"DEEPSEEK_API_KEY", "OPENROUTER_API_KEY", "PERPLEXITY_API_KEY",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"OLLAMA_URL", "FRONTEND_URL",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "darcy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3000", cfg.Server.Listen)
	assert.Equal(t, 10, cfg.Server.RateLimit.RequestsPerMinute)
	assert.Equal(t, 5*time.Minute, cfg.Health.Interval)
	assert.Equal(t, 5*time.Second, cfg.Health.ProbeTimeout)
	assert.Equal(t, routing.DefaultWeights(), cfg.Routing.Weights)
	assert.Equal(t, "memory", cfg.State.Backend)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Provider("ollama").Enabled)
	assert.Empty(t, cfg.Provider("groq").APIKey)
}

func TestLoad_FromFile(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
server:
  listen: "0.0.0.0:9999"
health:
  interval: 30s
routing:
  weights:
    speed_boost: 2.0
providers:
  groq:
    api_key: "gsk-test"
    timeout: 12s
  ollama:
    enabled: false
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Health.Interval)
	assert.InDelta(t, 2.0, cfg.Routing.Weights.SpeedBoost, 1e-9)
	assert.InDelta(t, 1.5, cfg.Routing.Weights.PrivacyBoost, 1e-9, "unset weights keep defaults")
	assert.Equal(t, "gsk-test", cfg.Provider("groq").APIKey)
	assert.Equal(t, 12*time.Second, cfg.Provider("groq").Timeout)
	assert.False(t, cfg.Provider("ollama").Enabled)
}

func TestLoad_EnvOverride(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("DARCY_SERVER_LISTEN", "10.0.0.1:8080")
	t.Setenv("DARCY_STATE_BACKEND", "redis")
	t.Setenv("DARCY_STATE_REDIS_ADDR", "redis:6379")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8080", cfg.Server.Listen)
	assert.Equal(t, "redis", cfg.State.Backend)
	assert.Equal(t, "redis:6379", cfg.State.Redis.Addr)
}

func TestLoad_RedisSettingsFromEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("DARCY_STATE_BACKEND", "redis")
	t.Setenv("DARCY_STATE_REDIS_ADDR", "cache:6380")
	t.Setenv("DARCY_STATE_REDIS_PASSWORD", "s3cret")
	t.Setenv("DARCY_STATE_REDIS_DB", "2")
	t.Setenv("DARCY_STATE_REDIS_KEY_PREFIX", "edu:")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.RedisConfig{Addr: "cache:6380", Password: "s3cret", DB: 2, KeyPrefix: "edu:"}, cfg.State.Redis)
}

func TestLoad_ProviderKeysFromEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GROQ_API_KEY", "vendor-groq")
	t.Setenv("DARCY_PROVIDERS_OPENAI_API_KEY", "darcy-openai")
	t.Setenv("OPENAI_API_KEY", "vendor-openai")
	t.Setenv("GEMINI_API_KEY", "vendor-gemini")
	t.Setenv("OLLAMA_URL", "http://gpu-box:11434")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "vendor-groq", cfg.Provider("groq").APIKey)
	assert.Equal(t, "darcy-openai", cfg.Provider("openai").APIKey, "DARCY_ variable wins over the vendor one")
	assert.Equal(t, "vendor-gemini", cfg.Provider("google").APIKey)
	assert.Equal(t, "http://gpu-box:11434", cfg.Provider("ollama").Endpoint)
}

func TestLoad_ValidationCalledAtLoadTime(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
state:
  backend: "etcd"
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state.backend")
	assert.True(t, darcyerr.HasCode(err, darcyerr.CodeConfigValidateInvalidValue))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, darcyerr.HasCode(err, darcyerr.CodeConfigLoadReadFailure))
}

func validConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Listen:    "127.0.0.1:3000",
			RateLimit: config.RateLimitConfig{RequestsPerMinute: 10, Burst: 10},
		},
		Health:  config.HealthConfig{Interval: 5 * time.Minute, ProbeTimeout: 5 * time.Second},
		Routing: config.RoutingConfig{Weights: routing.DefaultWeights()},
		Providers: map[string]config.ProviderConfig{
			"ollama": {Enabled: true},
		},
		State: config.StateConfig{Backend: "memory"},
		Log:   config.LogConfig{Format: "text"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.Empty(t, validConfig().Validate())
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"empty listen", func(c *config.Config) { c.Server.Listen = "" }, "server.listen must not be empty"},
		{"listen without port", func(c *config.Config) { c.Server.Listen = "localhost" }, "valid host:port"},
		{"listen port not a number", func(c *config.Config) { c.Server.Listen = "localhost:http" }, "must be a number"},
		{"listen port out of range", func(c *config.Config) { c.Server.Listen = ":70000" }, "between 1 and 65535"},
		{"negative rate", func(c *config.Config) { c.Server.RateLimit.RequestsPerMinute = -1 }, "requests_per_minute"},
		{"rate without burst", func(c *config.Config) { c.Server.RateLimit.Burst = 0 }, "rate_limit.burst"},
		{"interval too short", func(c *config.Config) { c.Health.Interval = 100 * time.Millisecond }, "health.interval"},
		{"zero probe timeout", func(c *config.Config) { c.Health.ProbeTimeout = 0 }, "health.probe_timeout"},
		{"negative weight", func(c *config.Config) { c.Routing.Weights.Triggers = -0.1 }, "routing.weights.triggers"},
		{"shrinking boost", func(c *config.Config) { c.Routing.Weights.PrivacyBoost = 0.5 }, "routing.weights.privacy_boost"},
		{"unknown provider", func(c *config.Config) { c.Providers["cohere"] = config.ProviderConfig{} }, "providers.cohere"},
		{"negative provider timeout", func(c *config.Config) {
			c.Providers["groq"] = config.ProviderConfig{Timeout: -time.Second}
		}, "providers.groq.timeout"},
		{"unknown state backend", func(c *config.Config) { c.State.Backend = "sqlite" }, "state.backend"},
		{"redis without addr", func(c *config.Config) { c.State.Backend = "redis" }, "state.redis.addr"},
		{"unknown log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.NotEmpty(t, errs)
			joined := make([]string, 0, len(errs))
			for _, err := range errs {
				joined = append(joined, err.Error())
			}
			assert.Contains(t, strings.Join(joined, "\n"), tt.wantErr)
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Listen = ""
	cfg.State.Backend = "nope"
	cfg.Log.Format = "nope"

	assert.Len(t, cfg.Validate(), 3)
}

type mapSecrets map[string]string

func (m mapSecrets) Store(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m mapSecrets) Delete(service, key string) error      { delete(m, service+"/"+key); return nil }
func (m mapSecrets) List(string) ([]string, error)         { return nil, nil }

func (m mapSecrets) Retrieve(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", darcyerr.New(darcyerr.CodeSecretNotFound, "not found")
	}
	return v, nil
}

func TestLoad_ResolvesKeyringReferences(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
providers:
  groq:
    api_key: "keyring://darcy/groq"
  openai:
    api_key: "keyring://darcy/missing"
`)

	cfg, err := config.Load(path, config.WithSecretStore(mapSecrets{"darcy/groq": "gsk-from-keyring"}))
	require.NoError(t, err)
	assert.Equal(t, "gsk-from-keyring", cfg.Provider("groq").APIKey)
	assert.Equal(t, "keyring://darcy/missing", cfg.Provider("openai").APIKey, "unresolved reference is kept")
}
