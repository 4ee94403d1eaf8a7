// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package routing

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/darcy-ai/darcy/internal/provider"
)

const (
	speedReference = 3 * time.Second
	speedScaleMs   = 5000.0
	errorCeiling   = 10.0
	loadThreshold  = 100
	loadPenalty    = 0.7
	recencyWindow  = 24 * time.Hour

	neutralSuccessRate = 0.5
	neutralRecency     = 0.5
	availabilityFloor  = 0.8
)

// Weights parameterises the scoring strategy. Each group of three weights
// is expected to sum to 1; boosts are multiplicative.
type Weights struct {
	Relevance    float64 `mapstructure:"relevance" json:"relevance"`
	Performance  float64 `mapstructure:"performance" json:"performance"`
	Availability float64 `mapstructure:"availability" json:"availability"`

	Specialization float64 `mapstructure:"specialization" json:"specialization"`
	Triggers       float64 `mapstructure:"triggers" json:"triggers"`
	Strengths      float64 `mapstructure:"strengths" json:"strengths"`

	SuccessRate float64 `mapstructure:"success_rate" json:"success_rate"`
	Speed       float64 `mapstructure:"speed" json:"speed"`
	Reliability float64 `mapstructure:"reliability" json:"reliability"`

	TechnicalBoost float64 `mapstructure:"technical_boost" json:"technical_boost"`
	PrivacyBoost   float64 `mapstructure:"privacy_boost" json:"privacy_boost"`
	SpeedBoost     float64 `mapstructure:"speed_boost" json:"speed_boost"`
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		Relevance:    0.4,
		Performance:  0.3,
		Availability: 0.3,

		Specialization: 0.3,
		Triggers:       0.4,
		Strengths:      0.3,

		SuccessRate: 0.4,
		Speed:       0.3,
		Reliability: 0.3,

		TechnicalBoost: 1.3,
		PrivacyBoost:   1.5,
		SpeedBoost:     1.2,
	}
}

// Candidate is one healthy provider scored for a request.
type Candidate struct {
	ID           string       `json:"id"`
	Relevance    float64      `json:"relevance"`
	Performance  float64      `json:"performance"`
	Availability float64      `json:"availability"`
	Composite    float64      `json:"composite"`
	Score        float64      `json:"score"`
	Boosts       []DemandType `json:"boosts,omitempty"`

	Descriptor provider.Descriptor `json:"-"`
}

// Scorer ranks provider snapshots against a demand.
type Scorer struct {
	weights Weights
	nowFunc func() time.Time
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithScorerClock overrides the time source used for recency (for testing).
func WithScorerClock(fn func() time.Time) ScorerOption {
	return func(s *Scorer) { s.nowFunc = fn }
}

// NewScorer creates a Scorer with w.
func NewScorer(w Weights, opts ...ScorerOption) *Scorer {
	s := &Scorer{weights: w, nowFunc: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the weights in use.
func (s *Scorer) Weights() Weights { return s.weights }

// ScoreCandidates scores every healthy snapshot and returns them best
// first. Ties keep the input order. No healthy snapshot yields an empty
// slice.
func (s *Scorer) ScoreCandidates(snapshots []provider.Snapshot, demand Demand) []Candidate {
	now := s.nowFunc()
	out := make([]Candidate, 0, len(snapshots))

	for _, snap := range snapshots {
		if !snap.State.Healthy {
			continue
		}
		c := Candidate{
			ID:           snap.Descriptor.ID,
			Descriptor:   snap.Descriptor,
			Relevance:    s.relevance(snap.Descriptor, demand),
			Performance:  s.performance(snap.State),
			Availability: availability(snap.State, now),
		}
		c.Composite = s.weights.Relevance*c.Relevance +
			s.weights.Performance*c.Performance +
			s.weights.Availability*c.Availability
		c.Score = c.Composite
		s.applyBoosts(&c, demand)
		out = append(out, c)
	}

	slices.SortStableFunc(out, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

// Performance exposes the performance sub-score of a runtime state.
func (s *Scorer) Performance(st provider.RuntimeState) float64 { return s.performance(st) }

// Availability exposes the availability sub-score of a runtime state.
func (s *Scorer) Availability(st provider.RuntimeState) float64 {
	return availability(st, s.nowFunc())
}

// DynamicPriority shifts the base priority by round(2·(performance +
// availability − 1)). It is reported, not used for ranking, and never
// below 1. Unhealthy providers count as unavailable.
func (s *Scorer) DynamicPriority(snap provider.Snapshot) int {
	perf := s.performance(snap.State)
	avail := availability(snap.State, s.nowFunc())
	if !snap.State.Healthy {
		avail = 0
	}
	adjust := int(math.Floor((perf+avail-1)*2 + 0.5))
	return max(1, snap.Descriptor.BasePriority+adjust)
}

func (s *Scorer) relevance(d provider.Descriptor, demand Demand) float64 {
	score := s.weights.Specialization*overlap(d.SpecializationTags, demand.Categories) +
		s.weights.Triggers*overlap(d.TriggerTags, demand.Triggers) +
		s.weights.Strengths*overlap(d.StrengthTags, demand.Priorities)
	return clamp01(score)
}

func (s *Scorer) performance(st provider.RuntimeState) float64 {
	success, ok := st.SuccessRate()
	if !ok {
		success = neutralSuccessRate
	}

	speed := 1.0
	if st.LastResponseTime >= speedReference {
		speed = math.Max(0.1, speedScaleMs/float64(st.LastResponseTime.Milliseconds()))
	}

	reliability := math.Max(0, 1-float64(st.ErrorCount)/errorCeiling)

	return s.weights.SuccessRate*success + s.weights.Speed*speed + s.weights.Reliability*reliability
}

func availability(st provider.RuntimeState, now time.Time) float64 {
	recency := neutralRecency
	if !st.LastUsedAt.IsZero() {
		recency = math.Max(0, 1-float64(now.Sub(st.LastUsedAt))/float64(recencyWindow))
	}
	load := 1.0
	if st.UsageCount > loadThreshold {
		load = loadPenalty
	}
	return math.Min(1, availabilityFloor+0.1*recency+0.1*load)
}

func (s *Scorer) applyBoosts(c *Candidate, demand Demand) {
	d := c.Descriptor
	if demand.Is(DemandTechnical) && d.HasSpecialization("coding") {
		c.Score *= s.weights.TechnicalBoost
		c.Boosts = append(c.Boosts, DemandTechnical)
	}
	if demand.Is(DemandPrivacy) && d.HasStrength("privacy") {
		c.Score *= s.weights.PrivacyBoost
		c.Boosts = append(c.Boosts, DemandPrivacy)
	}
	if demand.Is(DemandSpeed) && (d.HasStrength("very_fast") || d.HasSpecialization("speed")) {
		c.Score *= s.weights.SpeedBoost
		c.Boosts = append(c.Boosts, DemandSpeed)
	}
}

// overlap returns the fraction of tags found in wanted, 0 for no tags.
func overlap(tags, wanted []string) float64 {
	if len(tags) == 0 {
		return 0
	}
	n := 0
	for _, t := range tags {
		if slices.Contains(wanted, t) {
			n++
		}
	}
	return float64(n) / float64(len(tags))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
