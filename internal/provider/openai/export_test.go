// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package openai

import (
	"github.com/darcy-ai/darcy/internal/provider"
	openaisdk "github.com/openai/openai-go"
)

// BuildParams exposes buildParams for white-box testing.
var BuildParams = func(req provider.CompletionRequest) (openaisdk.ChatCompletionNewParams, error) {
	return buildParams(req)
}
