// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package server

import (
	"context"
	"time"

	"github.com/darcy-ai/darcy/internal/crew"
	"github.com/darcy-ai/darcy/internal/metrics"
	"github.com/darcy-ai/darcy/internal/provider"
	"github.com/darcy-ai/darcy/internal/routing"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
)

// ChatService answers one chat turn. *routing.Router implements it.
type ChatService interface {
	Chat(ctx context.Context, req routing.ChatRequest) (routing.Outcome, error)
}

// ProviderService exposes registered providers. *provider.Registry
// implements it.
type ProviderService interface {
	Snapshots() []provider.Snapshot
}

// Prober runs an immediate health cycle. *provider.HealthChecker
// implements it.
type Prober interface {
	RunAllProbes(ctx context.Context) map[string]bool
}

// Prioritizer derives the reported priority from a snapshot.
// *routing.Scorer implements it.
type Prioritizer interface {
	DynamicPriority(snap provider.Snapshot) int
}

// Services holds dependencies injected into route handlers. Each field
// except Crews, Metrics and Now is an interface so tests can substitute
// fakes.
type Services struct {
	Chat      ChatService
	Providers ProviderService
	Prober    Prober
	Priority  Prioritizer
	Crews     *crew.Catalog

	// Metrics is optional; when set, HTTP requests are counted and
	// /metrics is served.
	Metrics *metrics.Collector

	Version string
	Now     func() time.Time
}

func (s *Services) validate() error {
	if s == nil {
		return darcyerr.New(darcyerr.CodeServerConfigInvalid, "services are required")
	}
	missing := func(name string) error {
		return darcyerr.New(darcyerr.CodeServerConfigInvalid, "service "+name+" is required")
	}
	switch {
	case s.Chat == nil:
		return missing("chat")
	case s.Providers == nil:
		return missing("providers")
	case s.Prober == nil:
		return missing("prober")
	case s.Priority == nil:
		return missing("priority")
	case s.Crews == nil:
		return missing("crews")
	}
	if s.Version == "" {
		s.Version = "dev"
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return nil
}
