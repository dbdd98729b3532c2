// Package planner produces primary+backup assignment plans for modules,
// combining candidate ranking with the current shift window.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/airolance/marketcore/internal/domain/matching"
	"github.com/airolance/marketcore/internal/domain/model"
	"github.com/airolance/marketcore/internal/domain/shift"
)

// Plan is the assignment decision for one module. Primary and Backup
// are empty when no eligible candidate exists; absence is data here,
// never an error.
type Plan struct {
	ModuleID   string
	Primary    string // rank-1 candidate id, "" when none
	Backup     string // rank-2 candidate id, "" when none
	ShiftKey   string
	ShiftStart time.Time
	ShiftEnd   time.Time
	Reason     string // audit trail, "auto:<shiftKey>"
}

// ApplyFunc persists a computed plan. Injected by the orchestrator.
type ApplyFunc func(ctx context.Context, plan Plan) error

// Planner combines the matching engine and shift scheduler.
type Planner struct {
	matcher *matching.Engine
	sched   *shift.Scheduler
}

// New creates a planner from its two collaborating engines.
func New(matcher *matching.Engine, sched *shift.Scheduler) *Planner {
	return &Planner{matcher: matcher, sched: sched}
}

// Plan resolves the current shift range, ranks the candidates, and
// takes rank-1 as primary and rank-2 as backup. It never fails for
// "no eligible candidate": that is encoded as an empty Primary and the
// caller decides whether that is fatal.
func (p *Planner) Plan(module model.Module, candidates []model.Candidate, now time.Time) Plan {
	rng := p.sched.ResolveRange(now)
	ranked := p.matcher.Rank(module, candidates)

	plan := Plan{
		ModuleID:   module.ID,
		ShiftKey:   rng.Key,
		ShiftStart: rng.Start,
		ShiftEnd:   rng.End,
		Reason:     "auto:" + rng.Key,
	}
	if len(ranked) > 0 {
		plan.Primary = ranked[0].CandidateID
	}
	if len(ranked) > 1 {
		plan.Backup = ranked[1].CandidateID
	}
	return plan
}

// PlanAll plans every module best-effort and applies each plan through
// the injected callback. A failed apply for one module never aborts
// planning for its siblings; failures come back keyed by module id.
func (p *Planner) PlanAll(ctx context.Context, modules []model.Module, candidates []model.Candidate, now time.Time, apply ApplyFunc) ([]Plan, map[string]error) {
	plans := make([]Plan, 0, len(modules))
	failures := make(map[string]error)

	for _, m := range modules {
		plan := p.Plan(m, candidates, now)
		plans = append(plans, plan)

		if apply == nil {
			continue
		}
		if err := apply(ctx, plan); err != nil {
			failures[m.ID] = fmt.Errorf("apply plan for module %s: %w", m.ID, err)
		}
	}

	return plans, failures
}
