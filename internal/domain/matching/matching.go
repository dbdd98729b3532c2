// Package matching ranks freelancer candidates against a module by fit
// score: skill-vector cosine similarity multiplied by clamped
// reliability and availability factors.
package matching

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/airolance/marketcore/internal/domain/model"
	"github.com/airolance/marketcore/internal/domain/similarity"
)

// Default clamp bounds for the score multipliers.
const (
	defaultReliabilityMin  = 0.5
	defaultReliabilityMax  = 1.5
	defaultAvailabilityMin = 0.3
	defaultAvailabilityMax = 1.2
)

// Result captures how one candidate scored against a module.
type Result struct {
	CandidateID            string
	Similarity             float64 // [0, 1]; 0 when either vector has zero magnitude
	ReliabilityMultiplier  float64
	AvailabilityMultiplier float64
	Score                  float64 // similarity * reliability * availability
}

// AssignFunc persists the chosen assignment. Injected so the engine
// stays free of storage concerns.
type AssignFunc func(ctx context.Context, moduleID, candidateID string) error

// Engine scores and ranks candidates. Safe for concurrent use; it
// never mutates candidate records and performs no I/O of its own.
type Engine struct {
	reliabilityMin  float64
	reliabilityMax  float64
	availabilityMin float64
	availabilityMax float64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithReliabilityBounds overrides the reliability clamp range.
func WithReliabilityBounds(minBound, maxBound float64) Option {
	return func(e *Engine) {
		if maxBound > minBound {
			e.reliabilityMin = minBound
			e.reliabilityMax = maxBound
		}
	}
}

// WithAvailabilityBounds overrides the availability clamp range.
func WithAvailabilityBounds(minBound, maxBound float64) Option {
	return func(e *Engine) {
		if maxBound > minBound {
			e.availabilityMin = minBound
			e.availabilityMax = maxBound
		}
	}
}

// NewEngine creates a matching engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		reliabilityMin:  defaultReliabilityMin,
		reliabilityMax:  defaultReliabilityMax,
		availabilityMin: defaultAvailabilityMin,
		availabilityMax: defaultAvailabilityMax,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Score computes the composite fit of a single candidate for a module.
func (e *Engine) Score(module model.Module, candidate model.Candidate) Result {
	sim := similarity.Cosine(candidate.Skills, module.RequiredSkills)
	reliability := clamp(candidate.ReliabilityScore, e.reliabilityMin, e.reliabilityMax)
	availability := clamp(candidate.AvailabilityScore, e.availabilityMin, e.availabilityMax)

	return Result{
		CandidateID:            candidate.ID,
		Similarity:             sim,
		ReliabilityMultiplier:  reliability,
		AvailabilityMultiplier: availability,
		Score:                  sim * reliability * availability,
	}
}

// Rank filters candidates to those whose specialty tags contain the
// module key verbatim, scores the survivors, and sorts them descending
// by composite score. The sort is stable: equal scores keep their
// original input order, which callers rely on for reproducible plans.
func (e *Engine) Rank(module model.Module, candidates []model.Candidate) []Result {
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if !c.HasSpecialty(module.Key) {
			continue
		}
		results = append(results, e.Score(module, c))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// TopCandidate returns the best-ranked candidate id, or ok=false when
// no candidate survives the specialty filter.
func (e *Engine) TopCandidate(module model.Module, candidates []model.Candidate) (string, bool) {
	ranked := e.Rank(module, candidates)
	if len(ranked) == 0 {
		return "", false
	}
	return ranked[0].CandidateID, true
}

// AutoAssign ranks candidates and hands the top result to the injected
// assign callback. A callback failure propagates to the caller but
// does not invalidate the already-computed ranking: the winning Result
// is returned alongside the error so callers can retry persistence
// without re-ranking.
func (e *Engine) AutoAssign(ctx context.Context, module model.Module, candidates []model.Candidate, assign AssignFunc) (Result, bool, error) {
	ranked := e.Rank(module, candidates)
	if len(ranked) == 0 {
		return Result{}, false, nil
	}

	top := ranked[0]
	if err := assign(ctx, module.ID, top.CandidateID); err != nil {
		return top, true, fmt.Errorf("assign module %s to %s: %w", module.ID, top.CandidateID, err)
	}
	return top, true, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
