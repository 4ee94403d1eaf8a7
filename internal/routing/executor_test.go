// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package routing_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/darcy-ai/darcy/internal/canned"
	"github.com/darcy-ai/darcy/internal/provider"
	"github.com/darcy-ai/darcy/internal/routing"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidatesFor(t *testing.T, reg *provider.Registry) []routing.Candidate {
	t.Helper()
	return newScorer().ScoreCandidates(reg.Snapshots(), routing.Demand{})
}

func teachingRequest(t *testing.T, query string) routing.Request {
	t.Helper()
	return routing.Request{Query: query, Crew: catalog(t).Resolve("teaching")}
}

func TestNewExecutor_Validation(t *testing.T) {
	_, err := routing.NewExecutor(nil, generator(t))
	assert.True(t, darcyerr.IsInvalidInput(err))

	_, err = routing.NewExecutor(provider.NewRegistry(), nil)
	assert.True(t, darcyerr.IsInvalidInput(err))
}

func TestExecute_FirstSuccessWins(t *testing.T) {
	reg := provider.NewRegistry()
	first, second := answering("a", "resposta A"), answering("b", "resposta B")
	register(t, reg, testDescriptor("a", 1, time.Second), first, true)
	register(t, reg, testDescriptor("b", 2, time.Second), second, true)

	obs := &recordingObserver{}
	exec, err := routing.NewExecutor(reg, generator(t), routing.WithAttemptObserver(obs))
	require.NoError(t, err)

	res := exec.Execute(context.Background(), candidatesFor(t, reg), teachingRequest(t, "oi"))
	assert.Equal(t, "resposta A", res.Text)
	assert.Equal(t, "a", res.Provider)
	assert.Equal(t, "a-model", res.Model)
	assert.False(t, res.Degraded)
	assert.NoError(t, res.Cause)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, routing.AttemptSuccess, res.Attempts[0].Status)
	assert.Equal(t, int32(0), second.calls.Load())

	snap, err := reg.Snapshot("a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.State.UsageCount)
	assert.Equal(t, int64(1), snap.State.SuccessCount)
	assert.Equal(t, map[string][]bool{"a": {true}}, obs.attempts)
	assert.Empty(t, obs.fallbacks)
}

func TestExecute_PassesCrewFraming(t *testing.T) {
	reg := provider.NewRegistry()
	p := answering("a", "ok")
	desc := testDescriptor("a", 1, time.Second)
	desc.CrewModels = map[string]string{"teaching": "teaching-model"}
	register(t, reg, desc, p, true)

	exec, err := routing.NewExecutor(reg, generator(t))
	require.NoError(t, err)

	req := teachingRequest(t, "explique frações")
	res := exec.Execute(context.Background(), candidatesFor(t, reg), req)
	assert.Equal(t, "teaching-model", res.Model)

	got := p.request()
	assert.Equal(t, "teaching-model", got.Model)
	assert.Equal(t, req.Crew.SystemPrompt, got.SystemPrompt)
	assert.Equal(t, req.Crew.MaxTokens, got.Options.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "explique frações", got.Messages[0].Content)
}

func TestExecute_FailureMovesToNextWithoutRetry(t *testing.T) {
	reg := provider.NewRegistry()
	bad, good := failing("a"), answering("b", "resposta B")
	register(t, reg, testDescriptor("a", 1, time.Second), bad, true)
	register(t, reg, testDescriptor("b", 2, time.Second), good, true)

	exec, err := routing.NewExecutor(reg, generator(t))
	require.NoError(t, err)

	res := exec.Execute(context.Background(), candidatesFor(t, reg), teachingRequest(t, "oi"))
	assert.Equal(t, "b", res.Provider)
	assert.Equal(t, int32(1), bad.calls.Load())
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, routing.AttemptFailed, res.Attempts[0].Status)
	assert.Contains(t, res.Attempts[0].Error, "upstream exploded")
	assert.Equal(t, routing.AttemptSuccess, res.Attempts[1].Status)

	snap, err := reg.Snapshot("a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.State.ErrorCount)
	assert.Equal(t, int64(1), snap.State.UsageCount)
}

func TestExecute_TimeoutCountsAsFailure(t *testing.T) {
	reg := provider.NewRegistry()
	slow, fast := hanging("slow"), answering("fast", "rápido!")
	register(t, reg, testDescriptor("slow", 1, 50*time.Millisecond), slow, true)
	register(t, reg, testDescriptor("fast", 2, time.Second), fast, true)

	exec, err := routing.NewExecutor(reg, generator(t))
	require.NoError(t, err)

	start := time.Now()
	res := exec.Execute(context.Background(), candidatesFor(t, reg), teachingRequest(t, "oi"))
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, "fast", res.Provider)
	assert.Equal(t, int32(1), fast.calls.Load())

	snap, err := reg.Snapshot("slow")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.State.ErrorCount)
	assert.Equal(t, int64(0), snap.State.SuccessCount)
	assert.GreaterOrEqual(t, snap.State.LastResponseTime, 50*time.Millisecond)
}

func TestExecute_NoCandidatesServesCannedText(t *testing.T) {
	reg := provider.NewRegistry()
	p := answering("a", "never")
	register(t, reg, testDescriptor("a", 1, time.Second), p, false)

	obs := &recordingObserver{}
	exec, err := routing.NewExecutor(reg, generator(t), routing.WithAttemptObserver(obs))
	require.NoError(t, err)

	candidates := candidatesFor(t, reg)
	require.Empty(t, candidates)

	res := exec.Execute(context.Background(), candidates, teachingRequest(t, "explique fotossíntese"))
	assert.True(t, res.Degraded)
	assert.Equal(t, canned.ProviderName, res.Provider)
	assert.Equal(t, canned.ProviderName, res.Model)
	assert.True(t, strings.Contains(res.Text, "Como seu professor"))
	assert.Empty(t, res.Attempts)
	assert.NoError(t, res.Cause)
	assert.Equal(t, int32(0), p.calls.Load())
	assert.Equal(t, []string{"teaching"}, obs.fallbacks)
}

func TestExecute_AllFailServesCannedText(t *testing.T) {
	reg := provider.NewRegistry()
	register(t, reg, testDescriptor("a", 1, time.Second), failing("a"), true)
	register(t, reg, testDescriptor("b", 2, time.Second), failing("b"), true)

	exec, err := routing.NewExecutor(reg, generator(t))
	require.NoError(t, err)

	res := exec.Execute(context.Background(), candidatesFor(t, reg), teachingRequest(t, "oi"))
	assert.True(t, res.Degraded)
	assert.Equal(t, "fallback", res.Provider)
	assert.Len(t, res.Attempts, 2)
	require.Error(t, res.Cause)
	assert.True(t, darcyerr.HasCode(res.Cause, darcyerr.CodeRoutingNoCandidates))
}

func TestExecute_CanceledContextStopsAttempts(t *testing.T) {
	reg := provider.NewRegistry()
	p := answering("a", "never")
	register(t, reg, testDescriptor("a", 1, time.Second), p, true)

	exec, err := routing.NewExecutor(reg, generator(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := exec.Execute(ctx, candidatesFor(t, reg), teachingRequest(t, "oi"))
	assert.True(t, res.Degraded)
	assert.Equal(t, int32(0), p.calls.Load())
	assert.Error(t, res.Cause)
}

func TestExecute_UnregisteredCandidateFails(t *testing.T) {
	reg := provider.NewRegistry()
	exec, err := routing.NewExecutor(reg, generator(t))
	require.NoError(t, err)

	res := exec.Execute(context.Background(),
		[]routing.Candidate{{ID: "ghost", Descriptor: testDescriptor("ghost", 1, time.Second)}},
		teachingRequest(t, "oi"))
	assert.True(t, res.Degraded)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, routing.AttemptFailed, res.Attempts[0].Status)
}
