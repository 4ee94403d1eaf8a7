// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package routing_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/darcy-ai/darcy/internal/canned"
	"github.com/darcy-ai/darcy/internal/crew"
	"github.com/darcy-ai/darcy/internal/provider"
	"github.com/stretchr/testify/require"
)

// scriptedProvider answers with a fixed reply, fails, or blocks until its
// context ends.
type scriptedProvider struct {
	name  string
	reply string
	err   error
	hang  bool

	calls   atomic.Int32
	mu      sync.Mutex
	lastReq provider.CompletionRequest
}

func (s *scriptedProvider) Name() string        { return s.name }
func (s *scriptedProvider) Kind() provider.Kind { return provider.KindHosted }
func (s *scriptedProvider) Probe(context.Context) error {
	return nil
}
func (s *scriptedProvider) Close() error { return nil }

func (s *scriptedProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.Completion, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.lastReq = req
	s.mu.Unlock()

	if s.hang {
		<-ctx.Done()
		return provider.Completion{}, ctx.Err()
	}
	if s.err != nil {
		return provider.Completion{}, s.err
	}
	return provider.Completion{Text: s.reply, Model: req.Model}, nil
}

func (s *scriptedProvider) request() provider.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq
}

func answering(name, reply string) *scriptedProvider {
	return &scriptedProvider{name: name, reply: reply}
}

func failing(name string) *scriptedProvider {
	return &scriptedProvider{name: name, err: errors.New("upstream exploded")}
}

func hanging(name string) *scriptedProvider {
	return &scriptedProvider{name: name, hang: true}
}

// recordingObserver counts attempts and fallbacks.
type recordingObserver struct {
	mu        sync.Mutex
	attempts  map[string][]bool
	fallbacks []string
}

func (o *recordingObserver) ObserveAttempt(id string, success bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempts == nil {
		o.attempts = make(map[string][]bool)
	}
	o.attempts[id] = append(o.attempts[id], success)
}

func (o *recordingObserver) ObserveFallback(crewID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks = append(o.fallbacks, crewID)
}

func catalog(t *testing.T) *crew.Catalog {
	t.Helper()
	cat, err := crew.Builtin()
	require.NoError(t, err)
	return cat
}

func generator(t *testing.T) *canned.Generator {
	t.Helper()
	g, err := canned.New(catalog(t))
	require.NoError(t, err)
	return g
}

func builtin(t *testing.T, id string) provider.Descriptor {
	t.Helper()
	d, ok := provider.Builtin(id)
	require.True(t, ok, id)
	return d
}

// register adds p under desc and marks it healthy when healthy is set.
func register(t *testing.T, reg *provider.Registry, desc provider.Descriptor, p provider.Provider, healthy bool) {
	t.Helper()
	require.NoError(t, reg.Register(desc, p))
	if healthy {
		require.NoError(t, reg.SetHealth(context.Background(), desc.ID, true))
	}
}

func testDescriptor(id string, priority int, timeout time.Duration) provider.Descriptor {
	return provider.Descriptor{
		ID:           id,
		DisplayName:  id,
		BasePriority: priority,
		Kind:         provider.KindHosted,
		Model:        id + "-model",
		Timeout:      timeout,
	}
}
