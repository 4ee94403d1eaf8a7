// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package provider_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/darcy-ai/darcy/internal/provider"
)

// fakeProvider is a configurable provider.Provider for registry and health
// tests.
type fakeProvider struct {
	name     string
	kind     provider.Kind
	probeErr error
	delay    time.Duration
	probes   atomic.Int32
	closed   atomic.Bool
}

func newFakeProvider(name string, healthy bool) *fakeProvider {
	f := &fakeProvider{name: name, kind: provider.KindHosted}
	if !healthy {
		f.probeErr = errors.New("connection refused")
	}
	return f
}

func (f *fakeProvider) Name() string        { return f.name }
func (f *fakeProvider) Kind() provider.Kind { return f.kind }

func (f *fakeProvider) Complete(_ context.Context, _ provider.CompletionRequest) (provider.Completion, error) {
	return provider.Completion{Text: "ok from " + f.name}, nil
}

func (f *fakeProvider) Probe(ctx context.Context) error {
	f.probes.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.probeErr
}

func (f *fakeProvider) Close() error {
	f.closed.Store(true)
	return nil
}

func descriptor(id string, priority int) provider.Descriptor {
	return provider.Descriptor{
		ID:           id,
		DisplayName:  id,
		BasePriority: priority,
		Kind:         provider.KindHosted,
		Timeout:      time.Second,
	}
}
