// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

// Package routing ranks registered providers for a query and executes the
// ranked list with ordered fallback.
package routing

import (
	"slices"
	"strings"

	"github.com/darcy-ai/darcy/internal/crew"
)

// DemandType labels the dominant need detected in a query.
type DemandType string

const (
	DemandGeneral   DemandType = "general"
	DemandTechnical DemandType = "technical"
	DemandPrivacy   DemandType = "privacy"
	DemandSpeed     DemandType = "speed"
)

// Hints carries caller context that can force a demand category.
type Hints struct {
	PreferOffline bool `json:"prefer_offline,omitempty"`
	RealTime      bool `json:"real_time,omitempty"`
}

// Demand is the per-request analysis consumed by the scorer.
type Demand struct {
	Type       DemandType   `json:"type"`
	Matched    []DemandType `json:"matched,omitempty"`
	Categories []string     `json:"categories"`
	Triggers   []string     `json:"triggers"`
	Priorities []string     `json:"priorities"`
	Confidence float64      `json:"confidence"`
}

// Is reports whether the query matched kind, independently of which kind
// won the Type label.
func (d Demand) Is(kind DemandType) bool {
	return slices.Contains(d.Matched, kind)
}

type demandRule struct {
	kind       DemandType
	keywords   []string
	forced     func(Hints) bool
	categories []string
	triggers   []string
	priorities []string
	confidence float64
}

// Rules are evaluated in order; the last match sets Demand.Type.
var demandRules = []demandRule{
	{
		kind: DemandTechnical,
		keywords: []string{
			"código", "programação", "algoritmo", "função", "variável",
			"matemática", "equação", "fórmula", "derivada", "integral",
			"python", "javascript", "html", "css", "sql", "api",
		},
		categories: []string{"coding", "mathematics", "technical"},
		triggers:   []string{"code_question", "math_problem", "technical_explanation"},
		priorities: []string{"code_quality", "math_accuracy", "technical_depth"},
		confidence: 0.8,
	},
	{
		kind: DemandPrivacy,
		keywords: []string{
			"dados pessoais", "privacidade", "confidencial", "pessoal",
			"senhas", "informações privadas",
		},
		forced:     func(h Hints) bool { return h.PreferOffline },
		categories: []string{"privacy", "sensitive"},
		triggers:   []string{"privacy_concern", "offline_usage"},
		priorities: []string{"privacy", "offline", "unlimited"},
		confidence: 0.9,
	},
	{
		kind:       DemandSpeed,
		keywords:   []string{"rápido", "urgente", "agora", "imediato", "tempo real"},
		forced:     func(h Hints) bool { return h.RealTime },
		categories: []string{"speed", "quick"},
		triggers:   []string{"speed_priority", "quick_answer", "real_time_chat"},
		priorities: []string{"very_fast", "responsive"},
		confidence: 0.6,
	},
}

const crewConfidence = 0.5

// Analyzer classifies queries. It holds no mutable state.
type Analyzer struct {
	crews *crew.Catalog
}

// NewAnalyzer creates an Analyzer that merges demand defaults from crews.
func NewAnalyzer(crews *crew.Catalog) *Analyzer {
	return &Analyzer{crews: crews}
}

// Analyze derives the demand profile of query for crewID. Unknown crews use
// the catalog default; an empty query yields only the crew defaults.
func (a *Analyzer) Analyze(query, crewID string, hints Hints) Demand {
	d := Demand{Type: DemandGeneral}
	lower := strings.ToLower(query)

	for _, rule := range demandRules {
		if !rule.matches(lower, hints) {
			continue
		}
		d.Type = rule.kind
		d.Matched = append(d.Matched, rule.kind)
		d.Categories = appendUnique(d.Categories, rule.categories...)
		d.Triggers = appendUnique(d.Triggers, rule.triggers...)
		d.Priorities = appendUnique(d.Priorities, rule.priorities...)
		d.Confidence += rule.confidence
	}

	if a.crews != nil {
		c := a.crews.Resolve(crewID)
		d.Categories = appendUnique(d.Categories, c.Demand.Categories...)
		d.Priorities = appendUnique(d.Priorities, c.Demand.Priorities...)
		d.Confidence += crewConfidence
	}
	return d
}

func (r demandRule) matches(lowerQuery string, hints Hints) bool {
	if r.forced != nil && r.forced(hints) {
		return true
	}
	if lowerQuery == "" {
		return false
	}
	return slices.ContainsFunc(r.keywords, func(kw string) bool {
		return strings.Contains(lowerQuery, kw)
	})
}

func appendUnique(dst []string, tags ...string) []string {
	for _, t := range tags {
		if !slices.Contains(dst, t) {
			dst = append(dst, t)
		}
	}
	return dst
}
