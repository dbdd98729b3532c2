// Package service provides the core orchestration service: project
// intake through module planning, assignment, settlement and the
// periodic risk sweep.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/airolance/marketcore/internal/adapters/ledger"
	"github.com/airolance/marketcore/internal/adapters/pipeline"
	"github.com/airolance/marketcore/internal/adapters/sweep"
	"github.com/airolance/marketcore/internal/domain/dedupe"
	"github.com/airolance/marketcore/internal/domain/intake"
	"github.com/airolance/marketcore/internal/domain/matching"
	"github.com/airolance/marketcore/internal/domain/model"
	"github.com/airolance/marketcore/internal/domain/planner"
	"github.com/airolance/marketcore/internal/domain/pricing"
	"github.com/airolance/marketcore/internal/domain/risk"
	"github.com/airolance/marketcore/internal/domain/shift"
	"github.com/airolance/marketcore/internal/domain/snapshot"
	"github.com/airolance/marketcore/pkg/logger"
	"github.com/airolance/marketcore/pkg/metrics"
)

// Pricing fee schedule. Urgency, resource load and integration terms
// are flat currency additions on top of complexity-scaled base.
const (
	urgencyFeeHigh     = 15000
	urgencyFeeStandard = 6000
	resourceLoadFee    = 5000
	perIntegrationFee  = 3500
)

// Project is the outcome of one intake: normalized requirements, a
// price quote, and the per-module assignment plans.
type Project struct {
	ID         string
	Structured intake.Structured
	Pricing    pricing.Breakdown
	Plans      []planner.Plan

	// PlanErrors holds per-module apply failures; planning is
	// best-effort and a failed module never blocks its siblings.
	PlanErrors map[string]error
}

// Service implements the orchestration surface of the engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *ledger.MemLedger
	deduper dedupe.Deduper
	queue   *pipeline.InMemoryQueue
	pool    *pipeline.Pool
	sweeper *sweep.Sweeper

	matcher *matching.Engine
	sched   *shift.Scheduler
	plans   *planner.Planner
	pricer  *pricing.Engine
	risks   *risk.Engine
	snaps   *snapshot.Versioner

	// Registries
	modules    map[string]model.Module
	progress   map[string]float64 // latest reported completion per module
	candidates []model.Candidate

	activeProjects int

	// Configuration
	workerCount             int
	queueSize               int
	dedupeSize              int
	timezone                string
	riskThreshold           float64
	sweepSpec               string
	surgeCap                float64
	baseRate                float64
	capacityThreshold       int
	maxSnapshotDelayMinutes int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of settlement workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithTimezone sets the shift-anchoring timezone.
func WithTimezone(tz string) Option {
	return func(s *Service) {
		if tz != "" {
			s.timezone = tz
		}
	}
}

// WithRiskThreshold sets the score above which remediation fires.
func WithRiskThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.riskThreshold = threshold
		}
	}
}

// WithRiskWeights tunes the three risk trigger weights.
func WithRiskWeights(staleness, progress, deadline float64) Option {
	return func(s *Service) {
		s.risks = risk.NewEngine(risk.WithWeights(staleness, progress, deadline))
	}
}

// WithSweepSpec sets the cron spec of the risk sweep.
func WithSweepSpec(spec string) Option {
	return func(s *Service) {
		if spec != "" {
			s.sweepSpec = spec
		}
	}
}

// WithSurgeCap bounds surge pricing as a fraction of base.
func WithSurgeCap(fraction float64) Option {
	return func(s *Service) {
		if fraction > 0 {
			s.surgeCap = fraction
		}
	}
}

// WithBaseRate sets the complexity-to-currency conversion rate.
func WithBaseRate(rate float64) Option {
	return func(s *Service) {
		if rate > 0 {
			s.baseRate = rate
		}
	}
}

// WithCapacityThreshold sets the active-project count beyond which
// surge pricing starts.
func WithCapacityThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.capacityThreshold = threshold
		}
	}
}

// WithMaxSnapshotDelay sets how stale a snapshot may get, in minutes,
// before the risk sweep flags the module.
func WithMaxSnapshotDelay(minutes int) Option {
	return func(s *Service) {
		if minutes > 0 {
			s.maxSnapshotDelayMinutes = minutes
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:             runtime.NumCPU() * 4,
		queueSize:               10_000,
		dedupeSize:              100_000,
		timezone:                shift.DefaultTimezone,
		riskThreshold:           0.7,
		sweepSpec:               "@every 5m",
		surgeCap:                0.5,
		baseRate:                1200,
		capacityThreshold:       1000,
		maxSnapshotDelayMinutes: 240,
		modules:                 make(map[string]model.Module),
		progress:                make(map[string]float64),
		risks:                   risk.NewEngine(),
		snaps:                   snapshot.NewVersioner(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting orchestration service...")

	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", s.timezone, err)
	}
	s.sched, err = shift.NewScheduler(shift.WithLocation(loc))
	if err != nil {
		return fmt.Errorf("init shift scheduler: %w", err)
	}

	s.store = ledger.NewMemLedger()
	s.deduper = dedupe.New(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = pipeline.NewInMemoryQueue(pipeline.WithCapacity(s.queueSize))
	s.matcher = matching.NewEngine()
	s.plans = planner.New(s.matcher, s.sched)
	s.pricer = pricing.NewEngine(pricing.WithSurgeCap(s.surgeCap))

	s.pool = pipeline.NewPool(s.workerCount, s.queue, s.store, s.moduleWeight)
	s.pool.Start(ctx)

	s.sweeper = sweep.New(s.risks, s.listRiskInputs, risk.Hooks{
		Log:                 s.store.LogRisk,
		Reassign:            s.store.Reassign,
		PenalizeReliability: s.store.PenalizeReliability,
	},
		sweep.WithSpec(s.sweepSpec),
		sweep.WithThreshold(s.riskThreshold),
	)
	if err := s.sweeper.Start(ctx); err != nil {
		_ = s.pool.Shutdown(ctx)
		return fmt.Errorf("start risk sweep: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "orchestration service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("timezone", s.timezone),
	)

	return nil
}

// Stop gracefully shuts down the service. Queued submissions drain
// before the workers exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	// Drop the lock before draining: in-flight settlements resolve
	// module weights through it.
	sweeper, pool := s.sweeper, s.pool
	s.started = false
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping orchestration service...")

	if sweeper != nil {
		sweeper.Stop()
	}
	if pool != nil {
		_ = pool.Shutdown(ctx)
	}

	s.logger.Info(ctx, "orchestration service stopped")
}

// RegisterCandidates replaces the freelancer roster used for matching.
func (s *Service) RegisterCandidates(_ context.Context, candidates []model.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append([]model.Candidate(nil), candidates...)
}

// CreateProject runs an intake end to end: validation, structuring,
// pricing, module planning and auto-assignment. Modules that cannot be
// assigned stay in the plan with empty candidate slots.
func (s *Service) CreateProject(ctx context.Context, projectID string, in intake.Intake) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return Project{}, ErrNotStarted
	}

	if missing := intake.Validate(in); len(missing) > 0 {
		return Project{}, fmt.Errorf("%w: missing %s", ErrInvalidIntake, strings.Join(missing, ", "))
	}

	structured := intake.Structure(in)
	quote := s.quoteLocked(structured)
	modules := intake.PlanModules(projectID, structured)

	start := time.Now()
	plans, planErrs := s.plans.PlanAll(ctx, modules, s.candidates, time.Now(), s.store.ApplyPlan)
	metrics.RecordPlanLatency(float64(time.Since(start).Milliseconds()))

	for i := range modules {
		s.modules[modules[i].ID] = modules[i]
	}
	for _, p := range plans {
		if p.Primary == "" {
			metrics.RecordPlanUnassigned()
			continue
		}
		metrics.RecordPlanComputed()
	}
	s.activeProjects++

	s.logger.Info(ctx, "project planned",
		logger.String("projectID", projectID),
		logger.Int("modules", len(plans)),
		logger.Int("applyFailures", len(planErrs)),
		logger.Float64("total", quote.Total),
	)

	return Project{
		ID:         projectID,
		Structured: structured,
		Pricing:    quote,
		Plans:      plans,
		PlanErrors: planErrs,
	}, nil
}

// Quote prices a structured requirement set against current demand.
func (s *Service) Quote(_ context.Context, structured intake.Structured) pricing.Breakdown {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quoteLocked(structured)
}

func (s *Service) quoteLocked(structured intake.Structured) pricing.Breakdown {
	urgencyFee := float64(urgencyFeeStandard)
	if structured.Urgency == "high" {
		urgencyFee = urgencyFeeHigh
	}

	return s.pricer.Quote(pricing.Input{
		ComplexityScore:    structured.ComplexityScore,
		BaseRate:           s.baseRate,
		UrgencyMultiplier:  urgencyFee,
		ResourceLoadFactor: resourceLoadFee,
		IntegrationWeight:  float64(len(structured.Integrations)) * perIntegrationFee,
		ActiveProjects:     s.activeProjects,
		CapacityThreshold:  s.capacityThreshold,
	})
}

// RankCandidates scores the roster against a registered module,
// best first.
func (s *Service) RankCandidates(_ context.Context, moduleID string) ([]matching.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	module, ok := s.modules[moduleID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}

	results := s.matcher.Rank(module, s.candidates)
	metrics.RecordCandidatesRanked(len(results))
	return results, nil
}

// SubmitWork accepts one freelancer submission for asynchronous
// settlement. A submission id that was already accepted is rejected
// without touching the queue.
func (s *Service) SubmitWork(ctx context.Context, sub model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	if _, ok := s.modules[sub.ModuleID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, sub.ModuleID)
	}

	if s.deduper.SeenAndRecord(ctx, sub.SubmissionID) {
		metrics.RecordDuplicateSubmission()
		return fmt.Errorf("%w: %s", ErrDuplicateSubmission, sub.SubmissionID)
	}

	if !s.queue.Enqueue(ctx, sub) {
		// Leave room for a retry of the same id.
		s.deduper.Unrecord(ctx, sub.SubmissionID)
		return fmt.Errorf("%w: submission %s", ErrQueueFull, sub.SubmissionID)
	}

	s.progress[sub.ModuleID] = sub.Log.CompletionPercentage
	metrics.UpdateQueueDepth(s.queue.Len(ctx))
	return nil
}

// HandoffSummary produces the context brief for the next freelancer on
// a module. summarize may be nil, in which case a plain deterministic
// summary of the latest snapshot is produced.
func (s *Service) HandoffSummary(ctx context.Context, moduleID string, summarize func(ctx context.Context, rec snapshot.Record) (string, error)) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return "", ErrNotStarted
	}
	if summarize == nil {
		summarize = plainSummary
	}
	return s.snaps.HandoffSummary(ctx, moduleID, s.store.LatestSnapshot, summarize)
}

func plainSummary(_ context.Context, rec snapshot.Record) (string, error) {
	return fmt.Sprintf("Version %d by %s: %s", rec.VersionNo, rec.FreelancerID, rec.WorkSummary), nil
}

// Assignment returns the current assignment decision for a module.
func (s *Service) Assignment(ctx context.Context, moduleID string) (ledger.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ledger.Assignment{}, false
	}
	return s.store.Assignment(ctx, moduleID)
}

// Payouts returns the settled payouts of a freelancer, oldest first.
func (s *Service) Payouts(ctx context.Context, freelancerID string) []ledger.PayoutEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	return s.store.Payouts(ctx, freelancerID)
}

// WalletBalance returns the freelancer's current balance.
func (s *Service) WalletBalance(ctx context.Context, freelancerID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0
	}
	return s.store.WalletBalance(ctx, freelancerID)
}

// RiskLog returns the risk audit trail for a module.
func (s *Service) RiskLog(ctx context.Context, moduleID string) []ledger.RiskEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	return s.store.RiskLog(ctx, moduleID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["modules"] = len(s.modules)
		stats["candidates"] = len(s.candidates)
		stats["activeProjects"] = s.activeProjects

		metrics.UpdateQueueDepth(queueLen)
	}

	return stats
}

// moduleWeight resolves a module's share of project value for the
// settlement workers.
func (s *Service) moduleWeight(_ context.Context, moduleID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	module, ok := s.modules[moduleID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}
	return module.Weight, nil
}

// listRiskInputs assembles the current risk signal set for every
// registered module. Called by the sweep on each tick.
func (s *Service) listRiskInputs(ctx context.Context) ([]risk.Input, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inputs := make([]risk.Input, 0, len(s.modules))
	for id, module := range s.modules {
		in := risk.Input{
			ModuleID:                id,
			ProjectID:               module.ProjectID,
			MaxSnapshotDelayMinutes: s.maxSnapshotDelayMinutes,
			Progress:                s.progress[id],
			ExpectedProgress:        module.ExpectedProgress,
			DueAt:                   module.DueAt,
		}
		if a, ok := s.store.Assignment(ctx, id); ok {
			in.FreelancerID = a.Primary
		}
		if rec, ok, err := s.store.LatestSnapshot(ctx, id); err == nil && ok {
			in.LastSnapshotAt = rec.CreatedAt
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
