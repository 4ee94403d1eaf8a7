// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package provider

import (
	"context"
	"slices"
	"time"
)

// Kind distinguishes a runtime on the local network from a hosted API.
type Kind string

const (
	KindLocal  Kind = "local"
	KindHosted Kind = "hosted"
)

// Provider is the uniform capability every LLM backend implements. The
// fallback executor is agnostic to the transport behind it.
type Provider interface {
	Name() string
	Kind() Kind
	// Complete performs a single non-streaming chat completion.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	// Probe issues the cheapest request that proves the endpoint is reachable.
	Probe(ctx context.Context) error
	Close() error
}

// CompletionRequest is a minimal chat completion request.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Options      Options
}

// Options contains model configuration.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Message represents a conversation message.
type Message struct {
	Role    MessageRole
	Content string
}

// MessageRole defines the role of a message sender.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Completion is the result of a successful call.
type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Descriptor is the static description of a provider. It is fixed once the
// provider is registered.
type Descriptor struct {
	ID           string        `json:"id"`
	DisplayName  string        `json:"display_name"`
	EndpointURL  string        `json:"endpoint_url"`
	BasePriority int           `json:"base_priority"`
	Kind         Kind          `json:"kind"`
	Model        string        `json:"model"`
	Timeout      time.Duration `json:"-"`
	HealthPath   string        `json:"-"`

	SpecializationTags []string `json:"specialization"`
	TriggerTags        []string `json:"triggers"`
	StrengthTags       []string `json:"strengths"`
	WeaknessTags       []string `json:"weaknesses"`

	// CrewModels maps a crew ID to a model better suited to that crew.
	CrewModels map[string]string `json:"crew_models,omitempty"`
}

// ModelFor returns the model to use for crew, falling back to Model.
func (d Descriptor) ModelFor(crew string) string {
	if m, ok := d.CrewModels[crew]; ok && m != "" {
		return m
	}
	return d.Model
}

// HasSpecialization reports whether tag is one of the specialization tags.
func (d Descriptor) HasSpecialization(tag string) bool {
	return slices.Contains(d.SpecializationTags, tag)
}

// HasStrength reports whether tag is one of the strength tags.
func (d Descriptor) HasStrength(tag string) bool {
	return slices.Contains(d.StrengthTags, tag)
}
