// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package anthropic

import (
	"context"
	"net/http"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/darcy-ai/darcy/internal/provider"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultMaxTokens = 1024
	apiVersion       = "2023-06-01"
)

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	HTTPClient *http.Client
}

// Provider implements provider.Provider using the Anthropic Messages API.
type Provider struct {
	client anthropicsdk.Client
	config Config
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new Anthropic provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, darcyerr.New(darcyerr.CodeProviderRequestInvalid,
			"anthropic: missing api_key in config", darcyerr.FieldProvider(provider.IDAnthropic))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	client := anthropicsdk.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL+"/"),
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithMaxRetries(0),
	)
	return &Provider{client: client, config: cfg}, nil
}

func (p *Provider) Name() string        { return provider.IDAnthropic }
func (p *Provider) Kind() provider.Kind { return provider.KindHosted }

// Complete sends a single Messages request and joins the text blocks of
// the reply.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.Completion, error) {
	params, err := buildParams(req)
	if err != nil {
		return provider.Completion{}, err
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		code := darcyerr.CodeProviderUpstreamFailure
		if ctx.Err() != nil {
			code = darcyerr.CodeProviderCallTimeout
		}
		return provider.Completion{}, darcyerr.Wrap(err, code, "anthropic: messages request failed",
			darcyerr.FieldProvider(provider.IDAnthropic))
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return provider.Completion{}, darcyerr.New(darcyerr.CodeProviderResponseInvalid,
			"anthropic: response has no text", darcyerr.FieldProvider(provider.IDAnthropic))
	}

	return provider.Completion{
		Text:  sb.String(),
		Model: string(msg.Model),
		Usage: provider.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

// Probe lists models with the configured key.
func (p *Provider) Probe(ctx context.Context) error {
	return provider.ProbeURL(ctx, p.config.HTTPClient, p.config.BaseURL+"/v1/models", map[string]string{
		"x-api-key":         p.config.APIKey,
		"anthropic-version": apiVersion,
	})
}

func (p *Provider) Close() error { return nil }

// buildParams converts a provider.CompletionRequest into Anthropic SDK
// MessageNewParams. System messages are folded into the system prompt.
func buildParams(req provider.CompletionRequest) (anthropicsdk.MessageNewParams, error) {
	if req.Model == "" {
		return anthropicsdk.MessageNewParams{}, darcyerr.New(darcyerr.CodeProviderRequestInvalid, "anthropic: model is required")
	}

	system := []string{}
	if req.SystemPrompt != "" {
		system = append(system, req.SystemPrompt)
	}

	var msgs []anthropicsdk.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case provider.MessageRoleUser:
			msgs = append(msgs, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content)))
		case provider.MessageRoleAssistant:
			msgs = append(msgs, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(m.Content)))
		case provider.MessageRoleSystem:
			system = append(system, m.Content)
		default:
			return anthropicsdk.MessageNewParams{}, darcyerr.Errorf(darcyerr.CodeProviderRequestInvalid,
				"anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(msgs) == 0 {
		return anthropicsdk.MessageNewParams{}, darcyerr.New(darcyerr.CodeProviderRequestInvalid, "anthropic: at least one message is required")
	}

	maxTokens := int64(req.Options.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
	if len(system) > 0 {
		params.System = []anthropicsdk.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}
	if req.Options.Temperature > 0 {
		params.Temperature = anthropicsdk.Float(float64(req.Options.Temperature))
	}
	return params, nil
}
