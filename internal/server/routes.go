// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package server

import (
	"cmp"
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/darcy-ai/darcy/internal/crew"
	"github.com/darcy-ai/darcy/internal/provider"
	"github.com/darcy-ai/darcy/internal/routing"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/darcy-ai/darcy/pkg/health"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
)

const serviceName = "Darcy AI Backend"

// chatPaths are the routes that answer a chat turn. The extra paths keep
// older frontends working.
var chatPaths = []struct {
	id   string
	path string
}{
	{"chat", "/api/chat"},
	{"chat-index", "/api/index"},
	{"crew-execute", "/api/v1/crew/execute"},
}

func (s *Server) registerRoutes() {
	for _, p := range chatPaths {
		huma.Register(s.api, huma.Operation{
			OperationID: p.id,
			Method:      http.MethodPost,
			Path:        p.path,
			Summary:     "Answer a chat message",
			Tags:        []string{"chat"},
		}, s.chatHandler(p.path))
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, s.handleHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-providers",
		Method:      http.MethodGet,
		Path:        "/api/providers",
		Summary:     "List providers with runtime state",
		Tags:        []string{"providers"},
	}, s.handleListProviders)

	huma.Register(s.api, huma.Operation{
		OperationID: "probe-providers",
		Method:      http.MethodPost,
		Path:        "/api/providers/probe",
		Summary:     "Probe every provider now",
		Tags:        []string{"providers"},
	}, s.handleProbeProviders)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-crews",
		Method:      http.MethodGet,
		Path:        "/api/crews",
		Summary:     "List crews",
		Tags:        []string{"crews"},
	}, s.handleListCrews)
}

// --- Request/Response types for huma ---

// Hints are client-side routing preferences.
type Hints struct {
	PreferOffline bool `json:"prefer_offline,omitempty" doc:"Prefer providers that keep data local"`
	RealTime      bool `json:"real_time,omitempty" doc:"Prefer the fastest provider"`
}

// ChatBody is the chat request body. Message is checked by the handler so
// a blank message gets the same 400 as a missing one.
type ChatBody struct {
	_        struct{} `json:"-" additionalProperties:"true"`
	Message  string   `json:"message,omitempty" doc:"User message"`
	Crew     string   `json:"crew,omitempty" doc:"Crew ID; unknown IDs fall back to the default crew"`
	Provider string   `json:"provider,omitempty" doc:"Provider to try first"`
	Hints    *Hints   `json:"hints,omitempty"`
}

type chatInput struct {
	Body ChatBody
}

// ChatMetadata describes how a reply was produced.
type ChatMetadata struct {
	Provider   string            `json:"provider" doc:"Provider that answered, or fallback"`
	Model      string            `json:"model"`
	Crew       string            `json:"crew"`
	CrewName   string            `json:"crew_name"`
	Agents     []string          `json:"agents"`
	DemandType string            `json:"demand_type"`
	Degraded   bool              `json:"degraded"`
	Attempts   []routing.Attempt `json:"attempts"`
	RequestID  string            `json:"request_id"`
	Timestamp  time.Time         `json:"timestamp"`
}

// ChatResponse is the chat response body.
type ChatResponse struct {
	Response string       `json:"response"`
	Metadata ChatMetadata `json:"metadata"`
}

type chatOutput struct {
	Body ChatResponse
}

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status           health.Status `json:"status" example:"ok" doc:"Service status"`
	Service          string        `json:"service"`
	Version          string        `json:"version"`
	ProvidersHealthy int           `json:"providers_healthy"`
	ProvidersTotal   int           `json:"providers_total"`
	Timestamp        time.Time     `json:"timestamp"`
}

type healthOutput struct {
	Body HealthBody
}

// ProviderView is one provider as reported by the providers endpoints.
type ProviderView struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Kind            provider.Kind  `json:"kind"`
	Endpoint        string         `json:"endpoint"`
	Model           string         `json:"model"`
	BasePriority    int            `json:"base_priority"`
	Specializations []string       `json:"specializations"`
	Strengths       []string       `json:"strengths"`
	Weaknesses      []string       `json:"weaknesses"`
	Metrics         health.Metrics `json:"metrics"`
}

// ProvidersBody lists providers sorted by current priority.
type ProvidersBody struct {
	Providers []ProviderView `json:"providers"`
	Total     int            `json:"total"`
	Healthy   int            `json:"healthy"`
	Timestamp time.Time      `json:"timestamp"`
}

type providersOutput struct {
	Body ProvidersBody
}

// CrewsBody is the static crew catalog.
type CrewsBody struct {
	Crews       []crew.Crew `json:"crews"`
	Total       int         `json:"total"`
	DefaultCrew string      `json:"default_crew"`
}

type crewsOutput struct {
	Body CrewsBody
}

// --- Handlers ---

func (s *Server) chatHandler(path string) func(context.Context, *chatInput) (*chatOutput, error) {
	return func(ctx context.Context, input *chatInput) (*chatOutput, error) {
		return s.handleChat(ctx, path, input)
	}
}

func (s *Server) handleChat(ctx context.Context, path string, input *chatInput) (*chatOutput, error) {
	if strings.TrimSpace(input.Body.Message) == "" {
		return nil, huma.Error400BadRequest("message is required")
	}
	if err := s.checkChatLimit(ctx, path); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	req := routing.ChatRequest{
		Message:  input.Body.Message,
		Crew:     input.Body.Crew,
		Provider: input.Body.Provider,
	}
	if h := input.Body.Hints; h != nil {
		req.Hints = routing.Hints{PreferOffline: h.PreferOffline, RealTime: h.RealTime}
	}

	out, err := s.services.Chat.Chat(ctx, req)
	if err != nil {
		if darcyerr.IsInvalidInput(err) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		slog.ErrorContext(ctx, "chat failed", "request_id", requestID, "error", err)
		return nil, huma.Error500InternalServerError("internal server error")
	}

	slog.InfoContext(ctx, "chat answered",
		"request_id", requestID,
		"crew", out.Crew.ID,
		"provider", out.Provider,
		"degraded", out.Degraded,
		"attempts", len(out.Attempts))

	attempts := out.Attempts
	if attempts == nil {
		attempts = []routing.Attempt{}
	}
	return &chatOutput{Body: ChatResponse{
		Response: out.Text,
		Metadata: ChatMetadata{
			Provider:   out.Provider,
			Model:      out.Model,
			Crew:       out.Crew.ID,
			CrewName:   out.Crew.Name,
			Agents:     out.Crew.Agents,
			DemandType: string(out.Demand.Type),
			Degraded:   out.Degraded,
			Attempts:   attempts,
			RequestID:  requestID,
			Timestamp:  s.services.Now().UTC(),
		},
	}}, nil
}

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*healthOutput, error) {
	snaps := s.services.Providers.Snapshots()
	return &healthOutput{Body: HealthBody{
		Status:           health.StatusOK,
		Service:          serviceName,
		Version:          s.services.Version,
		ProvidersHealthy: countHealthy(snaps),
		ProvidersTotal:   len(snaps),
		Timestamp:        s.services.Now().UTC(),
	}}, nil
}

func (s *Server) handleListProviders(_ context.Context, _ *struct{}) (*providersOutput, error) {
	return &providersOutput{Body: s.providersBody()}, nil
}

func (s *Server) handleProbeProviders(ctx context.Context, _ *struct{}) (*providersOutput, error) {
	results := s.services.Prober.RunAllProbes(ctx)
	slog.InfoContext(ctx, "manual probe cycle", "providers", len(results))
	return &providersOutput{Body: s.providersBody()}, nil
}

func (s *Server) handleListCrews(_ context.Context, _ *struct{}) (*crewsOutput, error) {
	crews := s.services.Crews.List()
	return &crewsOutput{Body: CrewsBody{
		Crews:       crews,
		Total:       len(crews),
		DefaultCrew: s.services.Crews.DefaultID(),
	}}, nil
}

func (s *Server) providersBody() ProvidersBody {
	snaps := s.services.Providers.Snapshots()
	views := make([]ProviderView, 0, len(snaps))
	for _, snap := range snaps {
		d := snap.Descriptor
		views = append(views, ProviderView{
			ID:              d.ID,
			Name:            d.DisplayName,
			Kind:            d.Kind,
			Endpoint:        d.EndpointURL,
			Model:           d.Model,
			BasePriority:    d.BasePriority,
			Specializations: nonNil(d.SpecializationTags),
			Strengths:       nonNil(d.StrengthTags),
			Weaknesses:      nonNil(d.WeaknessTags),
			Metrics:         snap.Metrics(s.services.Priority.DynamicPriority(snap)),
		})
	}
	// Snapshots arrive in base-priority order, so ties keep it.
	slices.SortStableFunc(views, func(a, b ProviderView) int {
		return cmp.Compare(a.Metrics.CurrentPriority, b.Metrics.CurrentPriority)
	})

	return ProvidersBody{
		Providers: views,
		Total:     len(views),
		Healthy:   countHealthy(snaps),
		Timestamp: s.services.Now().UTC(),
	}
}

func countHealthy(snaps []provider.Snapshot) int {
	n := 0
	for _, snap := range snaps {
		if snap.State.Healthy {
			n++
		}
	}
	return n
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
