// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

// Package ollama talks to a local Ollama runtime over its native HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/darcy-ai/darcy/internal/provider"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
)

const (
	defaultBaseURL    = "http://localhost:11434"
	defaultHealthPath = "/api/tags"
	maxErrorBody   = 512
)

// Config holds Ollama provider configuration.
type Config struct {
	BaseURL    string
	// HealthPath is appended to BaseURL for health checks. Defaults to /api/tags.
	HealthPath string
	HTTPClient *http.Client
}

// Provider implements provider.Provider for Ollama's /api/generate.
type Provider struct {
	config Config
}

var _ provider.Provider = (*Provider)(nil)

// New creates an Ollama provider. No credentials are needed.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HealthPath == "" {
		cfg.HealthPath = defaultHealthPath
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Provider{config: cfg}
}

func (p *Provider) Name() string        { return provider.IDOllama }
func (p *Provider) Kind() provider.Kind { return provider.KindLocal }

type generateOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete posts a non-streaming generate request.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.Completion, error) {
	body, err := buildRequest(req)
	if err != nil {
		return provider.Completion{}, err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return provider.Completion{}, darcyerr.Wrap(err, darcyerr.CodeProviderRequestInvalid, "ollama: encoding request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return provider.Completion{}, darcyerr.Wrap(err, darcyerr.CodeProviderRequestInvalid, "ollama: building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.config.HTTPClient.Do(httpReq)
	if err != nil {
		code := darcyerr.CodeProviderUpstreamFailure
		if ctx.Err() != nil {
			code = darcyerr.CodeProviderCallTimeout
		}
		return provider.Completion{}, darcyerr.Wrap(err, code, "ollama: generate request failed",
			darcyerr.FieldProvider(provider.IDOllama))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return provider.Completion{}, darcyerr.Errorf(darcyerr.CodeProviderUpstreamFailure,
			"ollama: generate returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return provider.Completion{}, darcyerr.Wrap(err, darcyerr.CodeProviderResponseInvalid, "ollama: decoding response",
			darcyerr.FieldProvider(provider.IDOllama))
	}
	if strings.TrimSpace(out.Response) == "" {
		return provider.Completion{}, darcyerr.New(darcyerr.CodeProviderResponseInvalid, "ollama: empty response",
			darcyerr.FieldProvider(provider.IDOllama))
	}

	model := out.Model
	if model == "" {
		model = req.Model
	}
	return provider.Completion{
		Text:  out.Response,
		Model: model,
		Usage: provider.Usage{InputTokens: out.PromptEvalCount, OutputTokens: out.EvalCount},
	}, nil
}

// Probe requests the health path, which by default lists the locally
// installed models.
func (p *Provider) Probe(ctx context.Context) error {
	return provider.ProbeURL(ctx, p.config.HTTPClient, p.config.BaseURL+p.config.HealthPath, nil)
}

func (p *Provider) Close() error { return nil }

// buildRequest flattens the conversation into a single prompt. The last
// user message is the prompt; earlier turns are prefixed as transcript.
func buildRequest(req provider.CompletionRequest) (generateRequest, error) {
	if req.Model == "" {
		return generateRequest{}, darcyerr.New(darcyerr.CodeProviderRequestInvalid, "ollama: model is required")
	}

	system := []string{}
	if req.SystemPrompt != "" {
		system = append(system, req.SystemPrompt)
	}

	var turns []string
	for _, m := range req.Messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			system = append(system, m.Content)
		case provider.MessageRoleUser:
			turns = append(turns, m.Content)
		case provider.MessageRoleAssistant:
			turns = append(turns, "Assistente: "+m.Content)
		default:
			return generateRequest{}, darcyerr.Errorf(darcyerr.CodeProviderRequestInvalid, "ollama: unsupported message role %q", m.Role)
		}
	}
	if len(turns) == 0 {
		return generateRequest{}, darcyerr.New(darcyerr.CodeProviderRequestInvalid, "ollama: at least one message is required")
	}

	return generateRequest{
		Model:  req.Model,
		Prompt: strings.Join(turns, "\n\n"),
		System: strings.Join(system, "\n\n"),
		Options: generateOptions{
			Temperature: req.Options.Temperature,
			NumPredict:  req.Options.MaxTokens,
		},
	}, nil
}
