// Package ledger provides the in-process persistence boundary behind
// the engines' injected callbacks: assignments, snapshot history with
// version uniqueness, module statuses, wallets and the risk audit log.
package ledger

import (
	"context"
	"time"

	"github.com/airolance/marketcore/internal/domain/planner"
	"github.com/airolance/marketcore/internal/domain/risk"
	"github.com/airolance/marketcore/internal/domain/snapshot"
)

// Assignment is a persisted (module, freelancer) pairing with its
// audit reason.
type Assignment struct {
	ModuleID   string
	Primary    string
	Backup     string
	Reason     string
	ShiftStart time.Time
	ShiftEnd   time.Time
	AppliedAt  time.Time
}

// RiskEntry is one audit-log row.
type RiskEntry struct {
	ModuleID string
	Score    float64
	Triggers []string
	LoggedAt time.Time
}

// PayoutEntry is one settled payout row.
type PayoutEntry struct {
	ID           string
	ModuleID     string
	FreelancerID string
	GrossAmount  float64
	PayoutAmount float64
	SettledAt    time.Time
}

// Store is the collaborator surface the engines are wired against.
// Implementations must make the snapshot write path safe under
// concurrent submissions for the same module: PersistSnapshot rejects
// duplicate (moduleID, versionNo) pairs with ErrVersionConflict.
type Store interface {
	// Assignments.
	ApplyPlan(ctx context.Context, plan planner.Plan) error
	Assignment(ctx context.Context, moduleID string) (Assignment, bool)
	Reassign(ctx context.Context, moduleID string) error

	// Snapshots.
	LatestVersion(ctx context.Context, moduleID string) (int, error)
	PersistSnapshot(ctx context.Context, candidate snapshot.Record) (snapshot.Record, error)
	LatestSnapshot(ctx context.Context, moduleID string) (snapshot.Record, bool, error)
	UpdateModuleStatus(ctx context.Context, moduleID, status string) error
	ModuleStatus(ctx context.Context, moduleID string) (string, bool)

	// Risk and reliability.
	LogRisk(ctx context.Context, in risk.Input, eval risk.Evaluation) error
	RiskLog(ctx context.Context, moduleID string) []RiskEntry
	PenalizeReliability(ctx context.Context, freelancerID string) error
	Reliability(ctx context.Context, freelancerID string) float64

	// Wallets and payouts.
	WalletBalance(ctx context.Context, freelancerID string) float64
	UpdateWallet(ctx context.Context, freelancerID string, newBalance float64) error
	RecordPayout(ctx context.Context, entry PayoutEntry) error
	Payouts(ctx context.Context, freelancerID string) []PayoutEntry
}
