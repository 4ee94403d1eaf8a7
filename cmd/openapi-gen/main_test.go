// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSpec(t *testing.T) {
	doc, err := generateSpec()
	require.NoError(t, err)

	var parsed struct {
		OpenAPI string         `json:"openapi"`
		Paths   map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(doc, &parsed))

	assert.Contains(t, parsed.OpenAPI, "3.1")
	for _, p := range []string{
		"/api/chat", "/api/index", "/api/v1/crew/execute",
		"/api/health", "/api/providers", "/api/providers/probe", "/api/crews",
	} {
		assert.Contains(t, parsed.Paths, p)
	}
	assert.NotContains(t, parsed.Paths, "/metrics")
}
