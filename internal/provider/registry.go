// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package provider

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/darcy-ai/darcy/internal/store"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/darcy-ai/darcy/pkg/health"
)

const persistTimeout = 2 * time.Second

// RuntimeState is the mutable per-provider state written by the health
// checker and by every call attempt. Healthy is advisory: a call can still
// fail after the provider was ranked.
type RuntimeState struct {
	Healthy          bool
	LastResponseTime time.Duration
	ErrorCount       int64
	UsageCount       int64
	SuccessCount     int64
	LastUsedAt       time.Time
	LastProbeAt      time.Time
}

// SuccessRate returns SuccessCount/UsageCount, or ok=false before any call.
func (s RuntimeState) SuccessRate() (rate float64, ok bool) {
	if s.UsageCount == 0 {
		return 0, false
	}
	return float64(s.SuccessCount) / float64(s.UsageCount), true
}

// Snapshot is a consistent copy of a provider's descriptor and state.
type Snapshot struct {
	Descriptor Descriptor
	State      RuntimeState
}

// Metrics converts the snapshot into its wire representation. priority is
// the dynamic priority computed by the caller.
func (s Snapshot) Metrics(priority int) health.Metrics {
	m := health.Metrics{
		Healthy:         s.State.Healthy,
		LastResponseMs:  s.State.LastResponseTime.Milliseconds(),
		UsageCount:      s.State.UsageCount,
		SuccessCount:    s.State.SuccessCount,
		ErrorCount:      s.State.ErrorCount,
		CurrentPriority: priority,
	}
	if rate, ok := s.State.SuccessRate(); ok {
		m.SuccessRate = math.Round(rate*1000) / 1000
	}
	if !s.State.LastProbeAt.IsZero() {
		t := s.State.LastProbeAt
		m.LastProbeAt = &t
	}
	if !s.State.LastUsedAt.IsZero() {
		t := s.State.LastUsedAt
		m.LastUsedAt = &t
	}
	return m
}

type entry struct {
	desc     Descriptor
	provider Provider
	state    RuntimeState
}

// Registry owns the registered providers and their runtime state. It is
// injected into the health checker, the scorer's callers and the executor.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // by BasePriority, then ID

	states  store.StateStore
	logger  *slog.Logger
	nowFunc func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStateStore mirrors every runtime state change into s.
func WithStateStore(s store.StateStore) RegistryOption {
	return func(r *Registry) { r.states = s }
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithClock overrides the time source (for testing).
func WithClock(fn func() time.Time) RegistryOption {
	return func(r *Registry) { r.nowFunc = fn }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		logger:  slog.Default(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a provider under desc.ID. The provider starts unhealthy
// until its first probe.
func (r *Registry) Register(desc Descriptor, p Provider) error {
	if desc.ID == "" {
		return darcyerr.New(darcyerr.CodeProviderRequestInvalid, "descriptor id must not be empty")
	}
	if p == nil {
		return darcyerr.New(darcyerr.CodeProviderRequestInvalid, "provider must not be nil", darcyerr.FieldProvider(desc.ID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[desc.ID]; ok {
		return darcyerr.New(darcyerr.CodeProviderDuplicate, "provider already registered: "+desc.ID, darcyerr.FieldProvider(desc.ID))
	}
	r.entries[desc.ID] = &entry{desc: desc.clone(), provider: p}
	r.order = append(r.order, desc.ID)
	slices.SortStableFunc(r.order, func(a, b string) int {
		da, db := r.entries[a].desc, r.entries[b].desc
		if c := cmp.Compare(da.BasePriority, db.BasePriority); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return nil
}

// Get retrieves a provider by ID.
func (r *Registry) Get(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, notFound(id)
	}
	return e.provider, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// IDs returns the registered IDs in registry order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Snapshot returns a copy of one provider's descriptor and state.
func (r *Registry) Snapshot(id string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return Snapshot{}, notFound(id)
	}
	return Snapshot{Descriptor: e.desc.clone(), State: e.state}, nil
}

// Snapshots returns copies of every provider in registry order.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		out = append(out, Snapshot{Descriptor: e.desc.clone(), State: e.state})
	}
	return out
}

// SetHealth records a probe result.
func (r *Registry) SetHealth(ctx context.Context, id string, healthy bool) error {
	st, err := r.update(id, func(s *RuntimeState, now time.Time) {
		s.Healthy = healthy
		s.LastProbeAt = now
	})
	if err != nil {
		return err
	}
	r.persist(ctx, id, store.Delta{Healthy: healthy, ProbedAt: st.LastProbeAt})
	return nil
}

// RecordAttempt records the outcome of one call attempt. Failures include
// timeouts.
func (r *Registry) RecordAttempt(ctx context.Context, id string, success bool, elapsed time.Duration) error {
	st, err := r.update(id, func(s *RuntimeState, now time.Time) {
		s.UsageCount++
		if success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
		s.LastResponseTime = elapsed
		s.LastUsedAt = now
	})
	if err != nil {
		return err
	}

	d := store.Delta{Usage: 1, LastResponseMs: elapsed.Milliseconds(), LastUsedAt: st.LastUsedAt}
	if success {
		d.Success = 1
	} else {
		d.Errors = 1
	}
	r.persist(ctx, id, d)
	return nil
}

// Hydrate restores counters saved by a previous process or a sibling
// instance. Health is not restored; it is re-established by probing.
func (r *Registry) Hydrate(ctx context.Context) error {
	if r.states == nil {
		return nil
	}

	var errs []error
	for _, id := range r.IDs() {
		saved, err := r.states.Load(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}

		r.mu.Lock()
		if e, ok := r.entries[id]; ok {
			e.state.UsageCount = saved.UsageCount
			e.state.SuccessCount = saved.SuccessCount
			e.state.ErrorCount = saved.ErrorCount
			e.state.LastResponseTime = time.Duration(saved.LastResponseMs) * time.Millisecond
			e.state.LastUsedAt = saved.LastUsedAt
		}
		r.mu.Unlock()
	}

	if len(errs) > 0 {
		return darcyerr.Join(errs...)
	}
	return nil
}

// Close shuts down all registered providers and the state store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, id := range r.order {
		if err := r.entries[id].provider.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.states != nil {
		if err := r.states.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return darcyerr.Join(errs...)
	}
	return nil
}

func (r *Registry) update(id string, fn func(*RuntimeState, time.Time)) (RuntimeState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return RuntimeState{}, notFound(id)
	}
	fn(&e.state, r.nowFunc())
	return e.state, nil
}

// persist applies d to the state store and adopts the shared counter totals,
// which include attempts recorded by sibling instances. Failures are logged,
// never returned: the store is optional.
func (r *Registry) persist(ctx context.Context, id string, d store.Delta) {
	if r.states == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	shared, err := r.states.Apply(ctx, id, d)
	if err != nil {
		r.logger.Warn("persisting provider state failed", "provider", id, "error", err)
		return
	}
	if d.Usage == 0 {
		return
	}

	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		e.state.UsageCount = shared.UsageCount
		e.state.SuccessCount = shared.SuccessCount
		e.state.ErrorCount = shared.ErrorCount
	}
	r.mu.Unlock()
}

func notFound(id string) error {
	return darcyerr.New(darcyerr.CodeProviderNotFound, "provider not found: "+id, darcyerr.FieldProvider(id))
}
