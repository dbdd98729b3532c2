// Package risk scores delivery risk from snapshot staleness, progress
// lag and deadline deviation, and drives remediation through injected
// side-effect hooks.
package risk

import (
	"context"
	"fmt"
	"time"
)

// Trigger codes, in evaluation order.
const (
	TriggerSnapshotDelay     = "snapshot_delay"
	TriggerProgressLag       = "progress_lag"
	TriggerDeadlineDeviation = "deadline_deviation"
)

// Default trigger weights. The three can sum to 1.1 before the score
// is capped at 1.0; capping happens after summing, never per trigger.
const (
	defaultStalenessWeight = 0.4
	defaultProgressWeight  = 0.3
	defaultDeadlineWeight  = 0.4
	maxScore               = 1.0
)

// Input is the per-module risk signal set. Zero times mean absent: a
// zero LastSnapshotAt means no snapshot was ever taken, a zero DueAt
// means no deadline was agreed.
type Input struct {
	ModuleID                string
	ProjectID               string
	FreelancerID            string // "" when no freelancer is attached
	LastSnapshotAt          time.Time
	MaxSnapshotDelayMinutes int
	Progress                float64
	ExpectedProgress        float64
	DueAt                   time.Time
}

// Evaluation is a fresh risk verdict. Triggers keep evaluation order:
// staleness, progress, deadline.
type Evaluation struct {
	Score    float64 // [0, 1]
	Triggers []string
}

// Hooks are the injected remediation side effects. Log receives every
// evaluation unconditionally for the audit trail; Reassign and
// PenalizeReliability fire only past the threshold.
type Hooks struct {
	Log                 func(ctx context.Context, in Input, eval Evaluation) error
	Reassign            func(ctx context.Context, moduleID string) error
	PenalizeReliability func(ctx context.Context, freelancerID string) error
}

// Engine evaluates risk. Safe for concurrent use.
type Engine struct {
	stalenessWeight float64
	progressWeight  float64
	deadlineWeight  float64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights overrides the three trigger weights. Non-positive values
// leave the corresponding default in place.
func WithWeights(staleness, progress, deadline float64) Option {
	return func(e *Engine) {
		if staleness > 0 {
			e.stalenessWeight = staleness
		}
		if progress > 0 {
			e.progressWeight = progress
		}
		if deadline > 0 {
			e.deadlineWeight = deadline
		}
	}
}

// NewEngine creates a risk engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		stalenessWeight: defaultStalenessWeight,
		progressWeight:  defaultProgressWeight,
		deadlineWeight:  defaultDeadlineWeight,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores the three triggers in fixed order and caps the sum
// at 1.0. Each trigger contributes its full weight or nothing.
func (e *Engine) Evaluate(in Input, now time.Time) Evaluation {
	var eval Evaluation

	if in.LastSnapshotAt.IsZero() || minutesSince(in.LastSnapshotAt, now) > in.MaxSnapshotDelayMinutes {
		eval.Triggers = append(eval.Triggers, TriggerSnapshotDelay)
		eval.Score += e.stalenessWeight
	}

	if in.Progress < in.ExpectedProgress {
		eval.Triggers = append(eval.Triggers, TriggerProgressLag)
		eval.Score += e.progressWeight
	}

	if !in.DueAt.IsZero() && in.DueAt.Before(now) {
		eval.Triggers = append(eval.Triggers, TriggerDeadlineDeviation)
		eval.Score += e.deadlineWeight
	}

	if eval.Score > maxScore {
		eval.Score = maxScore
	}
	return eval
}

// Remediate applies the remediation policy to an evaluation. The log
// hook always runs; reassignment and the reliability penalty run only
// when the score strictly exceeds threshold, and the penalty only when
// a freelancer is attached. A failed log hook aborts before any
// remediation side effect runs.
func (e *Engine) Remediate(ctx context.Context, in Input, eval Evaluation, threshold float64, hooks Hooks) error {
	if hooks.Log != nil {
		if err := hooks.Log(ctx, in, eval); err != nil {
			return fmt.Errorf("log risk evaluation for module %s: %w", in.ModuleID, err)
		}
	}

	if eval.Score <= threshold {
		return nil
	}

	if hooks.Reassign != nil {
		if err := hooks.Reassign(ctx, in.ModuleID); err != nil {
			return fmt.Errorf("reassign module %s: %w", in.ModuleID, err)
		}
	}
	if in.FreelancerID != "" && hooks.PenalizeReliability != nil {
		if err := hooks.PenalizeReliability(ctx, in.FreelancerID); err != nil {
			return fmt.Errorf("penalize reliability of %s: %w", in.FreelancerID, err)
		}
	}
	return nil
}

// minutesSince floors to whole minutes and never goes negative.
func minutesSince(t, now time.Time) int {
	m := int(now.Sub(t).Minutes())
	if m < 0 {
		return 0
	}
	return m
}
