// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

// Package store persists provider runtime counters so that several gateway
// instances can share routing history. The in-memory backend is the default.
package store

import (
	"context"
	"time"
)

// ProviderState is the persisted form of a provider's runtime state.
type ProviderState struct {
	Healthy        bool      `json:"healthy"`
	LastResponseMs int64     `json:"last_response_ms"`
	UsageCount     int64     `json:"usage_count"`
	SuccessCount   int64     `json:"success_count"`
	ErrorCount     int64     `json:"error_count"`
	LastUsedAt     time.Time `json:"last_used_at"`
	LastProbeAt    time.Time `json:"last_probe_at"`
}

// Delta is one change to a provider's shared state. Counter fields are
// added to the stored totals, so concurrent writers never overwrite each
// other. LastResponseMs is written only when LastUsedAt is set, and Healthy
// only when ProbedAt is set.
type Delta struct {
	Usage          int64
	Success        int64
	Errors         int64
	LastResponseMs int64
	LastUsedAt     time.Time
	Healthy        bool
	ProbedAt       time.Time
}

// StateStore loads and updates provider state keyed by provider ID.
// Load returns an error satisfying errors.Is(err, ErrNotFound) when no state
// has been recorded for the ID. Apply returns the merged state after the
// delta, including changes made by other instances.
type StateStore interface {
	Load(ctx context.Context, providerID string) (ProviderState, error)
	Apply(ctx context.Context, providerID string, d Delta) (ProviderState, error)
	Close() error
}

func (st ProviderState) apply(d Delta) ProviderState {
	st.UsageCount += d.Usage
	st.SuccessCount += d.Success
	st.ErrorCount += d.Errors
	if !d.LastUsedAt.IsZero() {
		st.LastUsedAt = d.LastUsedAt
		st.LastResponseMs = d.LastResponseMs
	}
	if !d.ProbedAt.IsZero() {
		st.Healthy = d.Healthy
		st.LastProbeAt = d.ProbedAt
	}
	return st
}
