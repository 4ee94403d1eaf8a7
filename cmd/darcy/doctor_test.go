// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"net/http"
	"os"
	"runtime"
	"testing"

	"github.com/darcy-ai/darcy/internal/config"
	"github.com/darcy-ai/darcy/internal/server"
	"github.com/darcy-ai/darcy/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctor_RunsAllChecks(t *testing.T) {
	isolateEnv(t, newMockSecretStore())
	path := writeConfig(t, "providers:\n  ollama:\n    enabled: true\n")

	out, err := execute(t, "doctor", "--config", path, "--address", closedAddr(t))
	require.NoError(t, err)

	for _, name := range []string{"Binary:", "Platform:", "Config:", "Providers:", "Gateway:"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "loaded from "+path)
	assert.Contains(t, out, "not running")
}

func TestDoctor_GatewayRunning(t *testing.T) {
	isolateEnv(t, newMockSecretStore())
	path := writeConfig(t, "log:\n  format: text\n")
	addr := testSetupGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, server.HealthBody{Status: health.StatusOK, ProvidersHealthy: 1, ProvidersTotal: 2})
	}))

	out, err := execute(t, "doctor", "--config", path, "--address", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "ok at "+addr+", 1/2 providers healthy")
}

func TestDoctor_InvalidConfig(t *testing.T) {
	isolateEnv(t, newMockSecretStore())
	path := writeConfig(t, "state:\n  backend: etcd\n")

	out, err := execute(t, "doctor", "--config", path, "--address", closedAddr(t))
	require.NoError(t, err)
	assert.Contains(t, out, "invalid:")
	assert.Contains(t, out, "skipped (config not loaded)")
}

func TestCheckProviders(t *testing.T) {
	cfg := &config.Config{Providers: map[string]config.ProviderConfig{
		"ollama":    {Enabled: true},
		"groq":      {Enabled: true, APIKey: "gsk-123"},
		"openai":    {Enabled: true},
		"anthropic": {Enabled: true, APIKey: "keyring://darcy/anthropic"},
		"together":  {Enabled: false, APIKey: "tk"},
	}}

	got := checkProviders(cfg)
	assert.Contains(t, got, "2 ready (ollama, groq)")
	assert.Contains(t, got, "2 without api key (openai, anthropic)")
	assert.NotContains(t, got, "together")
}

func TestDoctor_FlagsReadableConfig(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mode bits are not used on windows")
	}
	isolateEnv(t, newMockSecretStore())
	path := writeConfig(t, "log:\n  format: text\n")
	require.NoError(t, os.Chmod(path, 0o644))

	out, err := execute(t, "doctor", "--config", path, "--address", closedAddr(t))
	require.NoError(t, err)
	assert.Contains(t, out, "readable by other users")
}
