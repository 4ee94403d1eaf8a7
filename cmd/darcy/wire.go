// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/darcy-ai/darcy/internal/canned"
	"github.com/darcy-ai/darcy/internal/config"
	"github.com/darcy-ai/darcy/internal/crew"
	"github.com/darcy-ai/darcy/internal/metrics"
	"github.com/darcy-ai/darcy/internal/provider"
	anthropicprov "github.com/darcy-ai/darcy/internal/provider/anthropic"
	googleprov "github.com/darcy-ai/darcy/internal/provider/google"
	ollamaprov "github.com/darcy-ai/darcy/internal/provider/ollama"
	openaiprov "github.com/darcy-ai/darcy/internal/provider/openai"
	"github.com/darcy-ai/darcy/internal/routing"
	"github.com/darcy-ai/darcy/internal/secrets"
	"github.com/darcy-ai/darcy/internal/server"
	"github.com/darcy-ai/darcy/internal/store"
	_ "github.com/darcy-ai/darcy/internal/store/redis" // register redis backend
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
)

// Gateway holds all wired subsystems and manages their lifecycle.
type Gateway struct {
	Server    *server.Server
	Registry  *provider.Registry
	Checker   *provider.HealthChecker
	Scheduler *provider.Scheduler
	Router    *routing.Router
	Metrics   *metrics.Collector
}

// WireGateway creates all subsystems and wires them together. Counters
// saved in the state store are restored before the first request.
func WireGateway(ctx context.Context, cfg *config.Config, version string) (*Gateway, error) {
	states, err := store.New(store.Config{
		Backend: cfg.State.Backend,
		Redis: store.RedisConfig{
			Addr:      cfg.State.Redis.Addr,
			Password:  cfg.State.Redis.Password,
			DB:        cfg.State.Redis.DB,
			KeyPrefix: cfg.State.Redis.KeyPrefix,
		},
	})
	if err != nil {
		return nil, darcyerr.Wrap(err, darcyerr.CodeCLISetupFailure, "creating state store")
	}

	reg := provider.NewRegistry(provider.WithStateStore(states))
	gw, err := wireOnRegistry(ctx, cfg, reg, version)
	if err != nil {
		_ = reg.Close()
		return nil, err
	}
	return gw, nil
}

func wireOnRegistry(ctx context.Context, cfg *config.Config, reg *provider.Registry, version string) (*Gateway, error) {
	n := registerProviders(cfg, reg, http.DefaultClient)
	if n == 0 {
		slog.Warn("no providers enabled; every answer will use the basic fallback mode")
	}
	if err := reg.Hydrate(ctx); err != nil {
		slog.Warn("restoring provider counters failed", "error", err)
	}

	collector := metrics.New()
	checker, err := provider.NewHealthChecker(reg, cfg.Health.ProbeTimeout, provider.WithProbeObserver(collector))
	if err != nil {
		return nil, darcyerr.Wrap(err, darcyerr.CodeCLISetupFailure, "creating health checker")
	}
	sched, err := provider.NewScheduler(checker, cfg.Health.Interval)
	if err != nil {
		return nil, darcyerr.Wrap(err, darcyerr.CodeCLISetupFailure, "creating probe scheduler")
	}

	crews, err := crew.Builtin()
	if err != nil {
		return nil, darcyerr.Wrap(err, darcyerr.CodeCLISetupFailure, "loading crews")
	}
	gen, err := canned.New(crews)
	if err != nil {
		return nil, darcyerr.Wrap(err, darcyerr.CodeCLISetupFailure, "loading canned templates")
	}

	scorer := routing.NewScorer(cfg.Routing.Weights)
	exec, err := routing.NewExecutor(reg, gen, routing.WithAttemptObserver(collector))
	if err != nil {
		return nil, darcyerr.Wrap(err, darcyerr.CodeCLISetupFailure, "creating executor")
	}
	router, err := routing.NewRouter(reg, crews, scorer, exec)
	if err != nil {
		return nil, darcyerr.Wrap(err, darcyerr.CodeCLISetupFailure, "creating router")
	}

	srv, err := server.New(server.Config{
		ListenAddr:   cfg.Server.Listen,
		CORSOrigins:  cfg.Server.CORSOrigins,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		RateLimit: server.RateLimitConfig{
			RequestsPerMinute: cfg.Server.RateLimit.RequestsPerMinute,
			Burst:             cfg.Server.RateLimit.Burst,
		},
	}, &server.Services{
		Chat:      router,
		Providers: reg,
		Prober:    checker,
		Priority:  scorer,
		Crews:     crews,
		Metrics:   collector,
		Version:   version,
	})
	if err != nil {
		return nil, darcyerr.Wrap(err, darcyerr.CodeCLISetupFailure, "creating server")
	}

	return &Gateway{
		Server:    srv,
		Registry:  reg,
		Checker:   checker,
		Scheduler: sched,
		Router:    router,
		Metrics:   collector,
	}, nil
}

// Start probes every provider, schedules periodic probes and serves HTTP
// until ctx is cancelled.
func (gw *Gateway) Start(ctx context.Context) error {
	if err := gw.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer gw.Scheduler.Stop()
	return gw.Server.Start(ctx)
}

// Close releases all resources held by the gateway.
func (gw *Gateway) Close() error {
	return errors.Join(gw.Server.Close(), gw.Registry.Close())
}

// providerFactory builds an adapter for a resolved descriptor.
type providerFactory func(desc provider.Descriptor, apiKey string, client *http.Client) (provider.Provider, error)

// providerFactories maps provider IDs to constructors. IDs not listed
// speak the OpenAI protocol. Declared as a variable so tests can inject
// failing factories.
var providerFactories = map[string]providerFactory{
	provider.IDOllama: func(d provider.Descriptor, _ string, c *http.Client) (provider.Provider, error) {
		return ollamaprov.New(ollamaprov.Config{BaseURL: d.EndpointURL, HealthPath: d.HealthPath, HTTPClient: c}), nil
	},
	provider.IDAnthropic: func(d provider.Descriptor, key string, c *http.Client) (provider.Provider, error) {
		return anthropicprov.New(anthropicprov.Config{APIKey: key, BaseURL: d.EndpointURL, HTTPClient: c})
	},
	provider.IDGoogle: func(d provider.Descriptor, key string, c *http.Client) (provider.Provider, error) {
		return googleprov.New(googleprov.Config{APIKey: key, BaseURL: d.EndpointURL, HTTPClient: c})
	},
}

func openAICompatible(d provider.Descriptor, key string, c *http.Client) (provider.Provider, error) {
	cfg := openaiprov.Config{ID: d.ID, APIKey: key, BaseURL: d.EndpointURL, Kind: d.Kind, HTTPClient: c}
	if d.ID == provider.IDOpenRouter {
		cfg.Headers = map[string]string{"HTTP-Referer": "https://darcy.ai", "X-Title": "Darcy AI"}
	}
	return openaiprov.New(cfg)
}

// registerProviders registers every enabled built-in provider in priority
// order and returns how many were registered. Disabled providers, hosted
// providers without a key and adapter failures are logged and skipped.
func registerProviders(cfg *config.Config, reg *provider.Registry, client *http.Client) int {
	n := 0
	for _, desc := range provider.Builtins() {
		pc := cfg.Provider(desc.ID)
		if !pc.Enabled {
			slog.Debug("provider disabled in config", "provider", desc.ID)
			continue
		}
		desc = applyOverrides(desc, pc)

		key := pc.APIKey
		if secrets.IsKeyringURI(key) {
			slog.Warn("provider disabled: api key is an unresolved keyring reference", "provider", desc.ID)
			continue
		}
		if desc.Kind == provider.KindHosted && key == "" {
			slog.Info("provider disabled: no api key", "provider", desc.ID)
			continue
		}

		factory, ok := providerFactories[desc.ID]
		if !ok {
			factory = openAICompatible
		}
		p, err := factory(desc, key, client)
		if err != nil {
			slog.Warn("failed to create provider", "provider", desc.ID, "error", err)
			continue
		}
		if err := reg.Register(desc, p); err != nil {
			slog.Warn("failed to register provider", "provider", desc.ID, "error", err)
			continue
		}
		slog.Info("registered provider", "provider", desc.ID, "model", desc.Model, "endpoint", desc.EndpointURL)
		n++
	}
	return n
}

func applyOverrides(desc provider.Descriptor, pc config.ProviderConfig) provider.Descriptor {
	if pc.Endpoint != "" {
		desc.EndpointURL = pc.Endpoint
	}
	if pc.Model != "" {
		desc.Model = pc.Model
	}
	if pc.Timeout > 0 {
		desc.Timeout = pc.Timeout
	}
	if pc.Priority > 0 {
		desc.BasePriority = pc.Priority
	}
	return desc
}
