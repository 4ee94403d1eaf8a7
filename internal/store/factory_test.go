// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/darcy-ai/darcy/internal/store"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToMemory(t *testing.T) {
	s, err := store.New(store.Config{})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, ok := s.(*store.MemoryStore)
	assert.True(t, ok, "empty backend should resolve to the memory store")
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := store.New(store.Config{Backend: "etcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
	assert.True(t, darcyerr.HasCode(err, darcyerr.CodeStoreBackendUnsupported))
}

func TestRegisterBackend_Custom(t *testing.T) {
	want := store.NewMemoryStore()
	store.RegisterBackend("custom-test", func(store.Config) (store.StateStore, error) {
		return want, nil
	})

	got, err := store.New(store.Config{Backend: "custom-test"})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestMemoryStore_ApplyAccumulates(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	_, err := s.Load(ctx, "groq")
	assert.ErrorIs(t, err, store.ErrNotFound)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err = s.Apply(ctx, "groq", store.Delta{Usage: 1, Success: 1, LastResponseMs: 300, LastUsedAt: now})
	require.NoError(t, err)
	_, err = s.Apply(ctx, "groq", store.Delta{Healthy: true, ProbedAt: now.Add(time.Second)})
	require.NoError(t, err)
	got, err := s.Apply(ctx, "groq", store.Delta{Usage: 1, Errors: 1, LastResponseMs: 420, LastUsedAt: now.Add(2 * time.Second)})
	require.NoError(t, err)

	want := store.ProviderState{
		Healthy:        true,
		LastResponseMs: 420,
		UsageCount:     2,
		SuccessCount:   1,
		ErrorCount:     1,
		LastUsedAt:     now.Add(2 * time.Second),
		LastProbeAt:    now.Add(time.Second),
	}
	assert.Equal(t, want, got)

	out, err := s.Load(ctx, "groq")
	require.NoError(t, err)
	assert.Equal(t, want, out)
}
