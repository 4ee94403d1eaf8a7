// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/darcy-ai/darcy/internal/secrets"
	"github.com/stretchr/testify/require"
)

// vendorKeyEnv lists every environment variable that can hand a provider
// an API key.
var vendorKeyEnv = []string{
	"GROQ_API_KEY", "TOGETHER_API_KEY", "HUGGINGFACE_API_KEY", "HF_TOKEN",
	"DEEPSEEK_API_KEY", "OPENROUTER_API_KEY", "PERPLEXITY_API_KEY",
	"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
}

// isolateEnv points HOME at a temp dir, clears provider keys from the
// environment and swaps the keyring for store.
func isolateEnv(t *testing.T, store secrets.Store) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range vendorKeyEnv {
		t.Setenv(name, "")
	}

	old := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return store }
	t.Cleanup(func() { secretStoreFactory = old })
}

// writeConfig writes body to a darcy.yaml in a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "darcy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// testSetupGateway starts a mock gateway, overrides defaultHTTPClient,
// and returns the server address (host:port).
func testSetupGateway(t *testing.T, handler http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	old := defaultHTTPClient
	defaultHTTPClient = srv.Client()
	t.Cleanup(func() {
		defaultHTTPClient = old
		srv.Close()
	})
	return srv.URL[len("http://"):]
}

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
