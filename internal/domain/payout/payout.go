// Package payout settles contribution-based payment for task logs.
// The arithmetic is pure; persistence and wallet mutation are injected.
package payout

import (
	"context"
	"fmt"
	"math"

	"github.com/airolance/marketcore/internal/domain/model"
)

// Rounding conventions carried from the settlement ledger: gross keeps
// four decimals for audit, payable amounts two.
const (
	grossPrecision  = 1e4
	payoutPrecision = 1e2
)

// Context carries the module- and freelancer-level factors that scale
// a single task log into money.
type Context struct {
	ModuleWeight          float64 // module share of project value, [0, 1]
	ReliabilityMultiplier float64
}

// Result is one settlement. Created once per task log, never mutated.
type Result struct {
	GrossAmount  float64 // pre-penalty, pre-reliability
	PayoutAmount float64 // floored at zero
}

// PersistFunc stores a settlement result.
type PersistFunc func(ctx context.Context, log model.TaskLog, result Result) error

// UpdateWalletFunc writes the freelancer's new absolute balance. The
// caller computes current balance + payout before invoking; the ledger
// receives the final number, not a delta.
type UpdateWalletFunc func(ctx context.Context, freelancerID string, newBalance float64) error

// Engine computes and settles payouts. Safe for concurrent use.
type Engine struct{}

// NewEngine creates a payout engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute derives the settlement amounts for one task log:
//
//	gross  = moduleWeight * completion
//	payout = max(0, gross * quality * reliability - penalties)
//
// The floor guarantees a payout is never negative even when penalties
// exceed the pre-penalty product.
func (e *Engine) Compute(log model.TaskLog, pctx Context) Result {
	gross := pctx.ModuleWeight * log.CompletionPercentage
	payable := gross*log.AIQualityScore*pctx.ReliabilityMultiplier - log.Penalties

	return Result{
		GrossAmount:  math.Round(gross*grossPrecision) / grossPrecision,
		PayoutAmount: math.Round(math.Max(0, payable)*payoutPrecision) / payoutPrecision,
	}
}

// Settle computes the payout, persists it, then pushes the new wallet
// balance, in that order. walletBalance is the freelancer's balance as
// read by the caller before settlement.
func (e *Engine) Settle(ctx context.Context, log model.TaskLog, pctx Context, walletBalance float64, persist PersistFunc, updateWallet UpdateWalletFunc) (Result, error) {
	result := e.Compute(log, pctx)

	if err := persist(ctx, log, result); err != nil {
		return Result{}, fmt.Errorf("persist payout for module %s: %w", log.ModuleID, err)
	}
	if err := updateWallet(ctx, log.FreelancerID, walletBalance+result.PayoutAmount); err != nil {
		return Result{}, fmt.Errorf("update wallet of %s: %w", log.FreelancerID, err)
	}
	return result, nil
}
