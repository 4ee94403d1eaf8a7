// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package routing

import (
	"context"
	"log/slog"
	"time"

	"github.com/darcy-ai/darcy/internal/canned"
	"github.com/darcy-ai/darcy/internal/crew"
	"github.com/darcy-ai/darcy/internal/provider"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
)

// DefaultAttemptTimeout bounds an attempt whose descriptor has no timeout.
const DefaultAttemptTimeout = 20 * time.Second

// AttemptStatus is the terminal state of one provider call.
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptSuccess AttemptStatus = "success"
	AttemptFailed  AttemptStatus = "failed"
)

// Attempt records one provider call made while executing a request.
type Attempt struct {
	Provider  string        `json:"provider"`
	Model     string        `json:"model,omitempty"`
	Status    AttemptStatus `json:"status"`
	ElapsedMs int64         `json:"elapsed_ms"`
	Error     string        `json:"error,omitempty"`
}

// Request is what the executor sends to each candidate.
type Request struct {
	Query string
	Crew  crew.Crew
}

// Result is the outcome of Execute. It always carries text.
type Result struct {
	Text     string
	Provider string
	Model    string
	Degraded bool
	Usage    provider.Usage
	Attempts []Attempt

	// Cause is set when the result is degraded after at least one attempt.
	Cause error
}

// Generator produces canned text when no provider answers.
type Generator interface {
	Generate(query, crewID string) string
}

// AttemptObserver is notified of every attempt and every degraded result.
type AttemptObserver interface {
	ObserveAttempt(providerID string, success bool, elapsed time.Duration)
	ObserveFallback(crewID string)
}

// Executor walks a ranked candidate list until one provider answers.
type Executor struct {
	registry *provider.Registry
	fallback Generator
	observer AttemptObserver
	logger   *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithAttemptObserver registers o for attempt and fallback notifications.
func WithAttemptObserver(o AttemptObserver) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// WithExecutorLogger sets the logger for attempt logs.
func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an Executor.
func NewExecutor(reg *provider.Registry, fallback Generator, opts ...ExecutorOption) (*Executor, error) {
	if reg == nil {
		return nil, darcyerr.New(darcyerr.CodeRoutingRequestInvalid, "executor: registry must not be nil")
	}
	if fallback == nil {
		return nil, darcyerr.New(darcyerr.CodeRoutingRequestInvalid, "executor: fallback generator must not be nil")
	}
	e := &Executor{registry: reg, fallback: fallback, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute attempts candidates in order. A failed attempt moves on to the
// next candidate and is never retried. When every candidate fails, or
// there are none, the canned generator answers and Result.Degraded is set.
func (e *Executor) Execute(ctx context.Context, candidates []Candidate, req Request) Result {
	res := Result{Attempts: make([]Attempt, 0, len(candidates))}
	var lastErr error

	for _, c := range candidates {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		attempt, completion, err := e.attempt(ctx, c, req)
		res.Attempts = append(res.Attempts, attempt)
		if err != nil {
			lastErr = err
			continue
		}

		res.Text = completion.Text
		res.Provider = c.ID
		res.Model = attempt.Model
		if completion.Model != "" {
			res.Model = completion.Model
		}
		res.Usage = completion.Usage
		return res
	}

	res.Text = e.fallback.Generate(req.Query, req.Crew.ID)
	res.Provider = canned.ProviderName
	res.Model = canned.ProviderName
	res.Degraded = true
	if lastErr != nil {
		res.Cause = darcyerr.Wrap(lastErr, darcyerr.CodeRoutingNoCandidates, "all providers failed",
			darcyerr.FieldCrew(req.Crew.ID))
	}

	e.logger.Warn("serving canned response",
		"crew", req.Crew.ID,
		"attempts", len(res.Attempts),
		"error", lastErr,
	)
	if e.observer != nil {
		e.observer.ObserveFallback(req.Crew.ID)
	}
	return res
}

func (e *Executor) attempt(ctx context.Context, c Candidate, req Request) (Attempt, provider.Completion, error) {
	a := Attempt{Provider: c.ID, Model: c.Descriptor.ModelFor(req.Crew.ID), Status: AttemptPending}

	p, err := e.registry.Get(c.ID)
	if err != nil {
		a.Status = AttemptFailed
		a.Error = err.Error()
		return a, provider.Completion{}, err
	}

	timeout := c.Descriptor.Timeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	completion, err := p.Complete(callCtx, provider.CompletionRequest{
		Model:        a.Model,
		SystemPrompt: req.Crew.SystemPrompt,
		Messages:     []provider.Message{{Role: provider.MessageRoleUser, Content: req.Query}},
		Options: provider.Options{
			Temperature: req.Crew.Temperature,
			MaxTokens:   req.Crew.MaxTokens,
		},
	})
	elapsed := time.Since(start)
	a.ElapsedMs = elapsed.Milliseconds()

	if err == nil && callCtx.Err() != nil {
		err = darcyerr.Wrap(callCtx.Err(), darcyerr.CodeProviderCallTimeout, "provider call exceeded timeout",
			darcyerr.FieldProvider(c.ID))
	}
	success := err == nil
	if success {
		a.Status = AttemptSuccess
	} else {
		a.Status = AttemptFailed
		a.Error = err.Error()
	}

	if recErr := e.registry.RecordAttempt(ctx, c.ID, success, elapsed); recErr != nil {
		e.logger.Warn("recording attempt failed", "provider", c.ID, "error", recErr)
	}
	if e.observer != nil {
		e.observer.ObserveAttempt(c.ID, success, elapsed)
	}

	if success {
		e.logger.Info("provider attempt succeeded", "provider", c.ID, "model", a.Model, "elapsed_ms", a.ElapsedMs)
	} else {
		e.logger.Warn("provider attempt failed", "provider", c.ID, "model", a.Model, "elapsed_ms", a.ElapsedMs, "error", err)
	}
	return a, completion, err
}
