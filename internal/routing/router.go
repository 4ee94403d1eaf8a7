// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package routing

import (
	"context"
	"slices"
	"strings"

	"github.com/darcy-ai/darcy/internal/crew"
	"github.com/darcy-ai/darcy/internal/provider"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
)

// ChatRequest is a single chat turn as received from a client.
type ChatRequest struct {
	Message  string
	Crew     string
	Provider string
	Hints    Hints
}

// Outcome is everything a chat turn produced.
type Outcome struct {
	Result
	Crew       crew.Crew
	Demand     Demand
	Candidates []Candidate
}

// Router combines demand analysis, scoring and fallback execution.
type Router struct {
	registry *provider.Registry
	crews    *crew.Catalog
	analyzer *Analyzer
	scorer   *Scorer
	executor *Executor
}

// NewRouter wires a Router from its components.
func NewRouter(reg *provider.Registry, crews *crew.Catalog, scorer *Scorer, exec *Executor) (*Router, error) {
	if reg == nil || crews == nil || scorer == nil || exec == nil {
		return nil, darcyerr.New(darcyerr.CodeRoutingRequestInvalid, "router: registry, crews, scorer and executor are required")
	}
	return &Router{
		registry: reg,
		crews:    crews,
		analyzer: NewAnalyzer(crews),
		scorer:   scorer,
		executor: exec,
	}, nil
}

// Rank analyzes the request and returns the scored candidate list without
// calling any provider.
func (r *Router) Rank(req ChatRequest) (crew.Crew, Demand, []Candidate) {
	c := r.crews.Resolve(req.Crew)
	demand := r.analyzer.Analyze(req.Message, c.ID, req.Hints)
	candidates := r.scorer.ScoreCandidates(r.registry.Snapshots(), demand)
	return c, demand, r.preferProvider(candidates, req.Provider)
}

// Chat answers one chat turn. The only error is a blank message; provider
// failures degrade to canned text.
func (r *Router) Chat(ctx context.Context, req ChatRequest) (Outcome, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Outcome{}, darcyerr.New(darcyerr.CodeRoutingRequestInvalid, "message must not be empty")
	}

	c, demand, candidates := r.Rank(req)
	res := r.executor.Execute(ctx, candidates, Request{Query: req.Message, Crew: c})
	return Outcome{Result: res, Crew: c, Demand: demand, Candidates: candidates}, nil
}

// preferProvider moves id to the front of candidates. A registered provider
// that was not ranked (unhealthy) is still put first.
func (r *Router) preferProvider(candidates []Candidate, id string) []Candidate {
	if id == "" {
		return candidates
	}
	if i := slices.IndexFunc(candidates, func(c Candidate) bool { return c.ID == id }); i >= 0 {
		preferred := candidates[i]
		rest := slices.Delete(slices.Clone(candidates), i, i+1)
		return append([]Candidate{preferred}, rest...)
	}

	snap, err := r.registry.Snapshot(id)
	if err != nil {
		return candidates
	}
	return append([]Candidate{{ID: id, Descriptor: snap.Descriptor}}, candidates...)
}
