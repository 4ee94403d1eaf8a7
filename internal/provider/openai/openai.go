// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

// Package openai adapts the OpenAI Chat Completions API, and every hosted or
// local endpoint that speaks the same protocol (Groq, Together, OpenRouter,
// Perplexity, DeepSeek, Hugging Face router, vLLM), to provider.Provider.
package openai

import (
	"context"
	"net/http"
	"strings"

	"github.com/darcy-ai/darcy/internal/provider"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

const defaultBaseURL = "https://api.openai.com/v1"

// localAPIKey is sent to local OpenAI-compatible servers, which ignore it.
const localAPIKey = "local"

// Config holds provider configuration.
type Config struct {
	ID         string // provider ID reported by Name; defaults to "openai"
	APIKey     string
	BaseURL    string
	Kind       provider.Kind
	Headers    map[string]string // extra headers, e.g. OpenRouter attribution
	HTTPClient *http.Client
}

// Provider implements provider.Provider over an OpenAI-compatible endpoint.
type Provider struct {
	client openaisdk.Client
	config Config
}

var _ provider.Provider = (*Provider)(nil)

// New creates a provider. Hosted endpoints require an API key.
func New(cfg Config) (*Provider, error) {
	if cfg.ID == "" {
		cfg.ID = provider.IDOpenAI
	}
	if cfg.Kind == "" {
		cfg.Kind = provider.KindHosted
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	if cfg.APIKey == "" {
		if cfg.Kind != provider.KindLocal {
			return nil, darcyerr.New(darcyerr.CodeProviderRequestInvalid,
				cfg.ID+": missing api_key in config", darcyerr.FieldProvider(cfg.ID))
		}
		cfg.APIKey = localAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL + "/"),
		option.WithHTTPClient(cfg.HTTPClient),
		// The fallback executor moves to the next provider instead of retrying.
		option.WithMaxRetries(0),
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &Provider{client: openaisdk.NewClient(opts...), config: cfg}, nil
}

func (p *Provider) Name() string        { return p.config.ID }
func (p *Provider) Kind() provider.Kind { return p.config.Kind }

// Complete sends a non-streaming chat completion and returns the first
// choice.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.Completion, error) {
	params, err := buildParams(req)
	if err != nil {
		return provider.Completion{}, err
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return provider.Completion{}, callError(ctx, p.config.ID, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return provider.Completion{}, darcyerr.New(darcyerr.CodeProviderResponseInvalid,
			p.config.ID+": response has no content", darcyerr.FieldProvider(p.config.ID))
	}

	return provider.Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: provider.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// Probe lists models, which every OpenAI-compatible server exposes.
func (p *Provider) Probe(ctx context.Context) error {
	headers := provider.BearerHeaders(p.config.APIKey)
	for k, v := range p.config.Headers {
		if headers == nil {
			headers = map[string]string{}
		}
		headers[k] = v
	}
	return provider.ProbeURL(ctx, p.config.HTTPClient, p.config.BaseURL+"/models", headers)
}

func (p *Provider) Close() error { return nil }

// buildParams converts a provider.CompletionRequest into SDK params.
func buildParams(req provider.CompletionRequest) (openaisdk.ChatCompletionNewParams, error) {
	if req.Model == "" {
		return openaisdk.ChatCompletionNewParams{}, darcyerr.New(darcyerr.CodeProviderRequestInvalid, "openai: model is required")
	}

	msgs, err := convertMessages(req.Messages, req.SystemPrompt)
	if err != nil {
		return openaisdk.ChatCompletionNewParams{}, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.Options.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.Options.MaxTokens))
	}
	if req.Options.Temperature > 0 {
		params.Temperature = param.NewOpt(float64(req.Options.Temperature))
	}
	return params, nil
}

// convertMessages prepends the system prompt as a system message.
func convertMessages(msgs []provider.Message, systemPrompt string) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	result := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if systemPrompt != "" {
		result = append(result, openaisdk.SystemMessage(systemPrompt))
	}

	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			result = append(result, openaisdk.UserMessage(msg.Content))
		case provider.MessageRoleAssistant:
			result = append(result, openaisdk.AssistantMessage(msg.Content))
		case provider.MessageRoleSystem:
			result = append(result, openaisdk.SystemMessage(msg.Content))
		default:
			return nil, darcyerr.Errorf(darcyerr.CodeProviderRequestInvalid, "openai: unsupported message role %q", msg.Role)
		}
	}
	return result, nil
}

func callError(ctx context.Context, id string, err error) error {
	code := darcyerr.CodeProviderUpstreamFailure
	if ctx.Err() != nil {
		code = darcyerr.CodeProviderCallTimeout
	}
	return darcyerr.Wrap(err, code, id+": chat completion failed", darcyerr.FieldProvider(id))
}
