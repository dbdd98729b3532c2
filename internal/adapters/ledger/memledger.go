package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airolance/marketcore/internal/domain/planner"
	"github.com/airolance/marketcore/internal/domain/risk"
	"github.com/airolance/marketcore/internal/domain/snapshot"
	"github.com/airolance/marketcore/pkg/metrics"
)

// Default reliability bookkeeping.
const (
	defaultReliability     = 1.0
	defaultReliabilityStep = 0.05
	minReliability         = 0.5
)

// MemLedger implements Store in memory. It is the reference
// collaborator for tests and single-process deployments; a durable
// implementation would put the same uniqueness guarantee on a
// database constraint.
type MemLedger struct {
	mu sync.RWMutex

	assignments map[string]Assignment
	snapshots   map[string][]snapshot.Record // moduleID -> records, version order
	versions    map[string]map[int]struct{}  // moduleID -> taken version numbers
	statuses    map[string]string
	riskLog     map[string][]RiskEntry
	reliability map[string]float64
	wallets     map[string]float64
	payouts     map[string][]PayoutEntry

	reliabilityStep float64
	now             func() time.Time
}

// Option applies a configuration option to the MemLedger.
type Option func(*MemLedger)

// WithReliabilityStep sets the deduction applied per reliability
// penalty.
func WithReliabilityStep(step float64) Option {
	return func(l *MemLedger) {
		if step > 0 {
			l.reliabilityStep = step
		}
	}
}

// WithClock overrides the timestamp source. Tests use this to pin
// CreatedAt values.
func WithClock(now func() time.Time) Option {
	return func(l *MemLedger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger(opts ...Option) *MemLedger {
	l := &MemLedger{
		assignments:     make(map[string]Assignment),
		snapshots:       make(map[string][]snapshot.Record),
		versions:        make(map[string]map[int]struct{}),
		statuses:        make(map[string]string),
		riskLog:         make(map[string][]RiskEntry),
		reliability:     make(map[string]float64),
		wallets:         make(map[string]float64),
		payouts:         make(map[string][]PayoutEntry),
		reliabilityStep: defaultReliabilityStep,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ApplyPlan stores an assignment plan as the module's current
// assignment. Plans without a primary are stored too: they keep the
// audit trail of planning attempts that found nobody.
func (l *MemLedger) ApplyPlan(_ context.Context, plan planner.Plan) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.assignments[plan.ModuleID] = Assignment{
		ModuleID:   plan.ModuleID,
		Primary:    plan.Primary,
		Backup:     plan.Backup,
		Reason:     plan.Reason,
		ShiftStart: plan.ShiftStart,
		ShiftEnd:   plan.ShiftEnd,
		AppliedAt:  l.now(),
	}
	return nil
}

// Assignment returns the current assignment for a module.
func (l *MemLedger) Assignment(_ context.Context, moduleID string) (Assignment, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.assignments[moduleID]
	return a, ok
}

// Reassign promotes the backup to primary, clearing the backup slot.
// The concrete replacement search belongs to the orchestrator; the
// ledger only records the handover.
func (l *MemLedger) Reassign(_ context.Context, moduleID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.assignments[moduleID]
	if !ok {
		return fmt.Errorf("reassign %s: %w", moduleID, ErrNoAssignment)
	}
	a.Primary, a.Backup = a.Backup, ""
	a.Reason = "risk:reassigned"
	a.AppliedAt = l.now()
	l.assignments[moduleID] = a
	return nil
}

// LatestVersion returns the highest snapshot version for a module,
// 0 when the module has no history.
func (l *MemLedger) LatestVersion(_ context.Context, moduleID string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	recs := l.snapshots[moduleID]
	if len(recs) == 0 {
		return 0, nil
	}
	return recs[len(recs)-1].VersionNo, nil
}

// PersistSnapshot stores a candidate record, assigning id and
// timestamp. The (moduleID, versionNo) pair is enforced unique under
// the ledger lock: a loser of the version race gets
// ErrVersionConflict and must re-read the latest version and retry.
func (l *MemLedger) PersistSnapshot(_ context.Context, candidate snapshot.Record) (snapshot.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	taken, ok := l.versions[candidate.ModuleID]
	if !ok {
		taken = make(map[int]struct{})
		l.versions[candidate.ModuleID] = taken
	}
	if _, exists := taken[candidate.VersionNo]; exists {
		metrics.RecordVersionConflict()
		return snapshot.Record{}, fmt.Errorf("module %s version %d: %w",
			candidate.ModuleID, candidate.VersionNo, ErrVersionConflict)
	}

	candidate.ID = uuid.NewString()
	candidate.CreatedAt = l.now()
	taken[candidate.VersionNo] = struct{}{}
	l.snapshots[candidate.ModuleID] = append(l.snapshots[candidate.ModuleID], candidate)
	metrics.RecordSnapshotCreated()
	return candidate, nil
}

// LatestSnapshot returns the most recent snapshot for a module.
func (l *MemLedger) LatestSnapshot(_ context.Context, moduleID string) (snapshot.Record, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	recs := l.snapshots[moduleID]
	if len(recs) == 0 {
		return snapshot.Record{}, false, nil
	}
	return recs[len(recs)-1], true, nil
}

// UpdateModuleStatus moves a module to a new workflow status.
func (l *MemLedger) UpdateModuleStatus(_ context.Context, moduleID, status string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses[moduleID] = status
	return nil
}

// ModuleStatus reads a module's workflow status.
func (l *MemLedger) ModuleStatus(_ context.Context, moduleID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.statuses[moduleID]
	return s, ok
}

// LogRisk appends an evaluation to the module's audit log.
func (l *MemLedger) LogRisk(_ context.Context, in risk.Input, eval risk.Evaluation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	triggers := make([]string, len(eval.Triggers))
	copy(triggers, eval.Triggers)
	l.riskLog[in.ModuleID] = append(l.riskLog[in.ModuleID], RiskEntry{
		ModuleID: in.ModuleID,
		Score:    eval.Score,
		Triggers: triggers,
		LoggedAt: l.now(),
	})
	return nil
}

// RiskLog returns the audit log for a module, oldest first.
func (l *MemLedger) RiskLog(_ context.Context, moduleID string) []RiskEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]RiskEntry, len(l.riskLog[moduleID]))
	copy(entries, l.riskLog[moduleID])
	return entries
}

// PenalizeReliability deducts one step from the freelancer's
// reliability score, floored at the minimum.
func (l *MemLedger) PenalizeReliability(_ context.Context, freelancerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.reliability[freelancerID]
	if !ok {
		current = defaultReliability
	}
	current -= l.reliabilityStep
	if current < minReliability {
		current = minReliability
	}
	l.reliability[freelancerID] = current
	return nil
}

// Reliability returns the tracked reliability score, defaulting to 1.0
// for freelancers with no penalty history.
func (l *MemLedger) Reliability(_ context.Context, freelancerID string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if v, ok := l.reliability[freelancerID]; ok {
		return v
	}
	return defaultReliability
}

// WalletBalance reads the current balance, 0 for unknown freelancers.
func (l *MemLedger) WalletBalance(_ context.Context, freelancerID string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.wallets[freelancerID]
}

// UpdateWallet writes the new absolute balance.
func (l *MemLedger) UpdateWallet(_ context.Context, freelancerID string, newBalance float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wallets[freelancerID] = newBalance
	return nil
}

// RecordPayout appends a settled payout, assigning its id and
// timestamp when absent.
func (l *MemLedger) RecordPayout(_ context.Context, entry PayoutEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SettledAt.IsZero() {
		entry.SettledAt = l.now()
	}
	l.payouts[entry.FreelancerID] = append(l.payouts[entry.FreelancerID], entry)
	metrics.RecordPayoutSettled(entry.PayoutAmount)
	return nil
}

// Payouts returns a freelancer's settlement history, oldest first.
func (l *MemLedger) Payouts(_ context.Context, freelancerID string) []PayoutEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]PayoutEntry, len(l.payouts[freelancerID]))
	copy(entries, l.payouts[freelancerID])
	return entries
}
