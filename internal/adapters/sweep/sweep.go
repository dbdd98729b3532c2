// Package sweep runs the cron job that periodically re-evaluates risk
// for every module under watch and fires remediation where it is due.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/airolance/marketcore/internal/domain/risk"
	"github.com/airolance/marketcore/pkg/logger"
	"github.com/airolance/marketcore/pkg/metrics"
)

// Default sweep configuration constants.
const (
	defaultSpec      = "@every 5m"
	defaultThreshold = 0.7
)

// Lister supplies the current risk signal set for every module the
// sweep should look at.
type Lister func(ctx context.Context) ([]risk.Input, error)

// Sweeper wraps robfig/cron around the risk engine.
type Sweeper struct {
	cron      *cron.Cron
	engine    *risk.Engine
	list      Lister
	hooks     risk.Hooks
	threshold float64
	spec      string
	clock     func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Sweeper.
type Option func(*Sweeper)

// WithSpec overrides the cron spec, e.g. "@every 30s".
func WithSpec(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.spec = spec
		}
	}
}

// WithThreshold overrides the remediation threshold.
func WithThreshold(threshold float64) Option {
	return func(s *Sweeper) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// WithClock overrides the time source for evaluation.
func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New creates a Sweeper with configuration options.
func New(engine *risk.Engine, list Lister, hooks risk.Hooks, opts ...Option) *Sweeper {
	s := &Sweeper{
		cron:      cron.New(),
		engine:    engine,
		list:      list,
		hooks:     hooks,
		threshold: defaultThreshold,
		spec:      defaultSpec,
		clock:     time.Now,
		logger:    logger.Named("risk-sweep"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the job and starts the scheduler. One sweep runs
// immediately so fresh deployments do not wait a full interval for
// their first verdicts.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("register sweep %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info(ctx, "risk sweep started", logger.String("spec", s.spec))

	go s.run(ctx)
	return nil
}

// Stop halts the scheduler. A sweep already in flight finishes.
func (s *Sweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info(context.Background(), "risk sweep stopped")
}

// run evaluates every listed module. A module that fails to remediate
// never blocks the rest of the sweep.
func (s *Sweeper) run(ctx context.Context) {
	inputs, err := s.list(ctx)
	if err != nil {
		s.logger.Error(ctx, "listing modules for sweep failed", logger.Error(err))
		return
	}
	if len(inputs) == 0 {
		return
	}

	now := s.clock()
	var fired int
	for _, in := range inputs {
		eval := s.engine.Evaluate(in, now)
		metrics.RecordRiskEvaluation()
		for _, trigger := range eval.Triggers {
			metrics.RecordRiskTrigger(trigger)
		}

		if err := s.engine.Remediate(ctx, in, eval, s.threshold, s.hooks); err != nil {
			s.logger.Error(ctx, "remediation failed",
				logger.String("moduleID", in.ModuleID),
				logger.Float64("score", eval.Score),
				logger.Error(err),
			)
			continue
		}
		if eval.Score > s.threshold {
			metrics.RecordRemediationFired()
			fired++
		}
	}

	s.logger.Debug(ctx, "sweep complete",
		logger.Int("modules", len(inputs)),
		logger.Int("remediated", fired),
	)
}
