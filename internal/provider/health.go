// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package provider

import (
	"context"
	"log/slog"
	"sync"
	"time"

	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultProbeTimeout bounds a single reachability probe.
	DefaultProbeTimeout = 5 * time.Second
	// DefaultProbeInterval is the period between full probe cycles.
	DefaultProbeInterval = 5 * time.Minute
)

// ProbeObserver receives the outcome of every probe.
type ProbeObserver interface {
	ObserveProbe(providerID string, healthy bool, elapsed time.Duration)
}

// HealthChecker probes providers and writes Healthy into the registry.
// There is no retry or backoff: a provider marked unhealthy stays so until
// the next cycle.
type HealthChecker struct {
	registry *Registry
	timeout  time.Duration
	observer ProbeObserver
	logger   *slog.Logger
}

// HealthCheckerOption configures a HealthChecker.
type HealthCheckerOption func(*HealthChecker)

// WithProbeObserver registers an observer for probe outcomes.
func WithProbeObserver(o ProbeObserver) HealthCheckerOption {
	return func(h *HealthChecker) { h.observer = o }
}

// WithHealthLogger sets the logger used for probe results.
func WithHealthLogger(l *slog.Logger) HealthCheckerOption {
	return func(h *HealthChecker) { h.logger = l }
}

// NewHealthChecker creates a HealthChecker. Returns an error if timeout is
// zero or negative.
func NewHealthChecker(registry *Registry, timeout time.Duration, opts ...HealthCheckerOption) (*HealthChecker, error) {
	if registry == nil {
		return nil, darcyerr.New(darcyerr.CodeConfigValidateInvalidValue, "health checker requires a registry")
	}
	if timeout <= 0 {
		return nil, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
			"probe timeout must be positive, got %s", timeout)
	}

	h := &HealthChecker{
		registry: registry,
		timeout:  timeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Probe checks one provider and records the result. Any error, timeout or
// unknown ID yields false; nothing is propagated. When ctx itself is done the
// result is not recorded.
func (h *HealthChecker) Probe(ctx context.Context, id string) bool {
	p, err := h.registry.Get(id)
	if err != nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err = p.Probe(probeCtx)
	elapsed := time.Since(start)
	healthy := err == nil

	// A cancelled caller says nothing about the provider; keep the last result.
	if ctx.Err() != nil {
		h.logger.Debug("provider health check abandoned", "provider", id, "error", ctx.Err())
		return false
	}

	if healthy {
		h.logger.Debug("provider probe ok", "provider", id, "elapsed", elapsed)
	} else {
		h.logger.Info("provider probe failed", "provider", id, "elapsed", elapsed, "error", err)
	}

	_ = h.registry.SetHealth(ctx, id, healthy)
	if h.observer != nil {
		h.observer.ObserveProbe(id, healthy, elapsed)
	}
	return healthy
}

// RunAllProbes probes every registered provider concurrently and waits for
// all of them. One slow or failing probe never blocks the others.
func (h *HealthChecker) RunAllProbes(ctx context.Context) map[string]bool {
	ids := h.registry.IDs()

	var (
		mu      sync.Mutex
		results = make(map[string]bool, len(ids))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			ok := h.Probe(gctx, id)
			mu.Lock()
			results[id] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	healthy := 0
	for _, ok := range results {
		if ok {
			healthy++
		}
	}
	h.logger.Info("provider probe cycle complete", "providers", len(ids), "healthy", healthy)
	return results
}

// Scheduler runs RunAllProbes on a fixed interval.
type Scheduler struct {
	checker  *HealthChecker
	interval time.Duration
	cron     *cron.Cron

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewScheduler creates a Scheduler. Returns an error if interval is shorter
// than one second.
func NewScheduler(checker *HealthChecker, interval time.Duration) (*Scheduler, error) {
	if interval < time.Second {
		return nil, darcyerr.Errorf(darcyerr.CodeConfigValidateInvalidValue,
			"probe interval must be at least 1s, got %s", interval)
	}
	return &Scheduler{
		checker:  checker,
		interval: interval,
		cron:     cron.New(),
	}, nil
}

// Start runs a probe cycle immediately, then schedules one every interval.
// Cycles are bound to ctx; Stop cancels any cycle still in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.checker.RunAllProbes(ctx)

	spec := "@every " + s.interval.String()
	if _, err := s.cron.AddFunc(spec, func() { s.checker.RunAllProbes(ctx) }); err != nil {
		cancel()
		return darcyerr.Wrapf(err, darcyerr.CodeConfigValidateInvalidValue, "scheduling probes %q", spec)
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}
