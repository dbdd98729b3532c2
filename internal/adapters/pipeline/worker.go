package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/airolance/marketcore/internal/adapters/ledger"
	"github.com/airolance/marketcore/internal/domain/model"
	"github.com/airolance/marketcore/internal/domain/payout"
	"github.com/airolance/marketcore/internal/domain/snapshot"
	"github.com/airolance/marketcore/pkg/logger"
	"github.com/airolance/marketcore/pkg/metrics"
)

// Worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Store is the slice of the ledger the settlement path needs.
type Store interface {
	LatestVersion(ctx context.Context, moduleID string) (int, error)
	PersistSnapshot(ctx context.Context, candidate snapshot.Record) (snapshot.Record, error)
	UpdateModuleStatus(ctx context.Context, moduleID, status string) error
	Reliability(ctx context.Context, freelancerID string) float64
	WalletBalance(ctx context.Context, freelancerID string) float64
	UpdateWallet(ctx context.Context, freelancerID string, newBalance float64) error
	RecordPayout(ctx context.Context, entry ledger.PayoutEntry) error
}

// ModuleWeightFunc resolves a module's share of project value for
// payout computation.
type ModuleWeightFunc func(ctx context.Context, moduleID string) (float64, error)

// Worker drains the submission queue: each submission becomes a
// versioned snapshot and a settled payout.
type Worker struct {
	queue     Queue
	store     Store
	versioner *snapshot.Versioner
	payouts   *payout.Engine
	weightOf  ModuleWeightFunc
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// WorkerOption applies a configuration option to a Worker.
type WorkerOption func(*Worker)

// WithWorkerName names the worker for log attribution.
func WithWorkerName(name string) WorkerOption {
	return func(w *Worker) {
		if name != "" {
			w.name = name
			w.logger = logger.Named(name)
		}
	}
}

// NewWorker creates a settlement worker.
func NewWorker(queue Queue, store Store, weightOf ModuleWeightFunc, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:     queue,
		store:     store,
		versioner: snapshot.NewVersioner(),
		payouts:   payout.NewEngine(),
		weightOf:  weightOf,
		name:      "settlement-worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Named("settlement-worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the queue until ctx is canceled, shutdown is requested,
// or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	submissions := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case sub, ok := <-submissions:
			if !ok {
				return
			}
			if err := w.process(ctx, sub); err != nil {
				metrics.RecordSettlementError()
				w.logger.Error(ctx, "settlement failed",
					logger.String("submissionID", sub.SubmissionID),
					logger.String("moduleID", sub.ModuleID),
					logger.Error(err),
				)
			}
			metrics.UpdateQueueDepth(w.queue.Len(ctx))
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight submission.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown timed out: %w", ctx.Err())
	}
}

// process versions the snapshot and settles payment for one
// submission. Losing the version race to a concurrent submitter is
// expected under load; the snapshot is retried on a fresh read of the
// latest version.
func (w *Worker) process(ctx context.Context, sub Submission) error {
	start := time.Now()
	defer func() {
		metrics.RecordSettlementLatency(float64(time.Since(start).Milliseconds()))
	}()

	deps := snapshot.Deps{
		LatestVersion: w.store.LatestVersion,
		Persist:       w.store.PersistSnapshot,
		UpdateStatus:  w.store.UpdateModuleStatus,
	}
	in := snapshot.Input{
		ModuleID:     sub.ModuleID,
		FreelancerID: sub.FreelancerID,
		WorkSummary:  sub.WorkSummary,
		Progress:     sub.Progress,
		FileRefs:     sub.FileRefs,
	}

	var rec snapshot.Record
	var err error
	for {
		rec, err = w.versioner.Create(ctx, in, deps)
		if err == nil {
			break
		}
		// A version conflict means a concurrent worker advanced the
		// module, so retrying always makes progress.
		if !errors.Is(err, ledger.ErrVersionConflict) {
			return fmt.Errorf("snapshot submission %s: %w", sub.SubmissionID, err)
		}
	}

	weight, err := w.weightOf(ctx, sub.ModuleID)
	if err != nil {
		return fmt.Errorf("resolve weight of module %s: %w", sub.ModuleID, err)
	}

	pctx := payout.Context{
		ModuleWeight:          weight,
		ReliabilityMultiplier: w.store.Reliability(ctx, sub.FreelancerID),
	}
	balance := w.store.WalletBalance(ctx, sub.FreelancerID)

	persist := func(ctx context.Context, log model.TaskLog, result payout.Result) error {
		return w.store.RecordPayout(ctx, ledger.PayoutEntry{
			ModuleID:     log.ModuleID,
			FreelancerID: log.FreelancerID,
			GrossAmount:  result.GrossAmount,
			PayoutAmount: result.PayoutAmount,
		})
	}

	result, err := w.payouts.Settle(ctx, sub.Log, pctx, balance, persist, w.store.UpdateWallet)
	if err != nil {
		return fmt.Errorf("settle submission %s: %w", sub.SubmissionID, err)
	}

	w.logger.Debug(ctx, "submission settled",
		logger.String("submissionID", sub.SubmissionID),
		logger.Int("version", rec.VersionNo),
		logger.Float64("payout", result.PayoutAmount),
	)
	return nil
}

// Pool runs a fixed set of settlement workers over one queue.
type Pool struct {
	workers []*Worker
	queue   Queue

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a settlement pool. A workerCount below 1 falls back
// to a CPU-derived default.
func NewPool(workerCount int, queue Queue, store Store, weightOf ModuleWeightFunc) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:  make([]*Worker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		logger:   logger.Named("settlement-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(queue, store, weightOf,
			WithWorkerName("settlement-worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue so no submission is accepted mid-drain,
// then waits for every worker to finish its in-flight settlement.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerCount(0)
	return nil
}
