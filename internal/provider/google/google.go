// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package google

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/darcy-ai/darcy/internal/provider"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds Google provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Provider implements provider.Provider using the Google Gemini API.
type Provider struct {
	client *genai.Client
	config Config
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new Google provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, darcyerr.New(darcyerr.CodeProviderRequestInvalid, "google: missing api_key in config",
			darcyerr.FieldProvider(provider.IDGoogle))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL + "/"},
	})
	if err != nil {
		return nil, darcyerr.Wrapf(err, darcyerr.CodeProviderUpstreamFailure, "google: creating client")
	}

	return &Provider{client: client, config: cfg}, nil
}

func (p *Provider) Name() string        { return provider.IDGoogle }
func (p *Provider) Kind() provider.Kind { return provider.KindHosted }

// Complete runs a single GenerateContent call and concatenates the text
// parts of every candidate.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.Completion, error) {
	if req.Model == "" {
		return provider.Completion{}, darcyerr.New(darcyerr.CodeProviderRequestInvalid, "google: model is required")
	}
	contents, err := convertMessages(req.Messages)
	if err != nil {
		return provider.Completion{}, err
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, buildConfig(req))
	if err != nil {
		code := darcyerr.CodeProviderUpstreamFailure
		if ctx.Err() != nil {
			code = darcyerr.CodeProviderCallTimeout
		}
		return provider.Completion{}, darcyerr.Wrap(err, code, "google: generate content failed",
			darcyerr.FieldProvider(provider.IDGoogle))
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return provider.Completion{}, darcyerr.New(darcyerr.CodeProviderResponseInvalid,
			"google: response has no text", darcyerr.FieldProvider(provider.IDGoogle))
	}

	out := provider.Completion{Text: sb.String(), Model: req.Model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.Usage = provider.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// Probe lists models with the configured key.
func (p *Provider) Probe(ctx context.Context) error {
	return provider.ProbeURL(ctx, p.config.HTTPClient, p.config.BaseURL+"/v1beta/models", map[string]string{
		"x-goog-api-key": p.config.APIKey,
	})
}

func (p *Provider) Close() error { return nil }

// buildConfig converts request options and the system prompt into a
// genai.GenerateContentConfig.
func buildConfig(req provider.CompletionRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if req.Options.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Options.Temperature)
	}
	if req.Options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Options.MaxTokens)
	}

	system := []string{}
	if req.SystemPrompt != "" {
		system = append(system, req.SystemPrompt)
	}
	for _, m := range req.Messages {
		if m.Role == provider.MessageRoleSystem {
			system = append(system, m.Content)
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}
	return cfg
}

// convertMessages maps user and assistant turns to genai contents. System
// messages are carried by SystemInstruction instead.
func convertMessages(msgs []provider.Message) ([]*genai.Content, error) {
	var result []*genai.Content
	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			result = append(result, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: msg.Content}}})
		case provider.MessageRoleAssistant:
			result = append(result, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: msg.Content}}})
		case provider.MessageRoleSystem:
			continue
		default:
			return nil, darcyerr.Errorf(darcyerr.CodeProviderRequestInvalid, "google: unsupported message role %q", msg.Role)
		}
	}
	if len(result) == 0 {
		return nil, darcyerr.New(darcyerr.CodeProviderRequestInvalid, "google: at least one message is required")
	}
	return result, nil
}
