// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package health

import "time"

// Metrics exposes the current health state of a provider for monitoring
// and operator visibility. All fields are point-in-time snapshots safe
// to serialize to JSON.
type Metrics struct {
	Healthy         bool       `json:"healthy"`
	LastProbeAt     *time.Time `json:"last_probe_at,omitempty"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	LastResponseMs  int64      `json:"last_response_ms"`
	UsageCount      int64      `json:"usage_count"`
	SuccessCount    int64      `json:"success_count"`
	ErrorCount      int64      `json:"error_count"`
	SuccessRate     float64    `json:"success_rate"`
	CurrentPriority int        `json:"current_priority"`
}

// Status is the coarse service status reported by the health endpoint.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)
