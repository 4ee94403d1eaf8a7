// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package google

import (
	"github.com/darcy-ai/darcy/internal/provider"
	"google.golang.org/genai"
)

// ConvertMessages exposes convertMessages for white-box testing.
var ConvertMessages = func(msgs []provider.Message) ([]*genai.Content, error) {
	return convertMessages(msgs)
}

// BuildConfig exposes buildConfig for white-box testing.
var BuildConfig = func(req provider.CompletionRequest) *genai.GenerateContentConfig {
	return buildConfig(req)
}
