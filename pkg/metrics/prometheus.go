// Package metrics provides Prometheus metrics for the marketcore
// assignment and risk orchestration engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the marketcore service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Planning and matching
	plansComputed    prometheus.Counter
	plansUnassigned  prometheus.Counter
	candidatesRanked prometheus.Counter
	planLatency      prometheus.Histogram

	// Risk
	riskEvaluations   prometheus.Counter
	riskTriggers      *prometheus.CounterVec
	remediationsFired prometheus.Counter

	// Snapshots
	snapshotsCreated prometheus.Counter
	versionConflicts prometheus.Counter

	// Settlement
	payoutsSettled   prometheus.Counter
	payoutAmount     prometheus.Histogram
	duplicateDropped prometheus.Counter

	// Pipeline health
	queueDepth        prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueRejects      prometheus.Counter
	workerCount       prometheus.Gauge
	settlementLatency prometheus.Histogram
	settlementErrors  prometheus.Counter

	// Process health
	systemMemoryBytes prometheus.Gauge
	systemGoroutines  prometheus.Gauge
	systemGCPause     prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "marketcore",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// Registry exposes the custom registry for the HTTP handler.
func Registry() *prometheus.Registry {
	return customRegistry
}

func (m *Manager) initializeMetrics() {
	factory := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		})
		m.registry.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		})
		m.registry.MustRegister(g)
		return g
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		h := prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		})
		m.registry.MustRegister(h)
		return h
	}

	m.plansComputed = factory("plans_computed_total", "Assignment plans computed")
	m.plansUnassigned = factory("plans_unassigned_total", "Plans computed without an eligible candidate")
	m.candidatesRanked = factory("candidates_ranked_total", "Candidates scored during ranking")
	m.planLatency = histogram("plan_latency_ms", "Assignment planning latency in milliseconds", m.histogramBuckets)

	m.riskEvaluations = factory("risk_evaluations_total", "Risk evaluations performed")
	m.riskTriggers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "risk_triggers_total",
		Help:      "Risk triggers fired by trigger code",
	}, []string{"trigger"})
	m.registry.MustRegister(m.riskTriggers)
	m.remediationsFired = factory("remediations_fired_total", "Remediations past the risk threshold")

	m.snapshotsCreated = factory("snapshots_created_total", "Work snapshots persisted")
	m.versionConflicts = factory("snapshot_version_conflicts_total", "Snapshot writes that lost the version race")

	m.payoutsSettled = factory("payouts_settled_total", "Payouts settled")
	m.payoutAmount = histogram("payout_amount", "Settled payout amounts", m.histogramBuckets)
	m.duplicateDropped = factory("duplicate_submissions_total", "Submissions dropped as duplicates")

	m.queueDepth = gauge("queue_depth", "Submissions waiting in the settlement queue")
	m.queueCapacity = gauge("queue_capacity", "Configured settlement queue capacity")
	m.queueRejects = factory("queue_rejects_total", "Submissions rejected by a full queue")
	m.workerCount = gauge("worker_count", "Settlement workers running")
	m.settlementLatency = histogram("settlement_latency_ms", "End-to-end settlement latency in milliseconds", m.histogramBuckets)
	m.settlementErrors = factory("settlement_errors_total", "Settlement attempts that failed")

	m.systemMemoryBytes = gauge("system_memory_bytes", "Allocated heap bytes")
	m.systemGoroutines = gauge("system_goroutines", "Running goroutines")
	m.systemGCPause = histogram("system_gc_pause_ms", "Average GC pause in milliseconds", m.histogramBuckets)
}

// Package-level record helpers against the global manager.

// RecordPlanComputed counts one computed assignment plan.
func RecordPlanComputed() { globalManager.plansComputed.Inc() }

// RecordPlanUnassigned counts a plan that found no eligible candidate.
func RecordPlanUnassigned() { globalManager.plansUnassigned.Inc() }

// RecordCandidatesRanked counts candidates scored in one ranking pass.
func RecordCandidatesRanked(n int) { globalManager.candidatesRanked.Add(float64(n)) }

// RecordPlanLatency observes planning latency in milliseconds.
func RecordPlanLatency(ms float64) { globalManager.planLatency.Observe(ms) }

// RecordRiskEvaluation counts one risk evaluation.
func RecordRiskEvaluation() { globalManager.riskEvaluations.Inc() }

// RecordRiskTrigger counts one fired trigger by code.
func RecordRiskTrigger(trigger string) { globalManager.riskTriggers.WithLabelValues(trigger).Inc() }

// RecordRemediationFired counts one remediation past the threshold.
func RecordRemediationFired() { globalManager.remediationsFired.Inc() }

// RecordSnapshotCreated counts one persisted snapshot.
func RecordSnapshotCreated() { globalManager.snapshotsCreated.Inc() }

// RecordVersionConflict counts one lost snapshot version race.
func RecordVersionConflict() { globalManager.versionConflicts.Inc() }

// RecordPayoutSettled counts one settled payout and observes its amount.
func RecordPayoutSettled(amount float64) {
	globalManager.payoutsSettled.Inc()
	globalManager.payoutAmount.Observe(amount)
}

// RecordDuplicateSubmission counts one dropped duplicate submission.
func RecordDuplicateSubmission() { globalManager.duplicateDropped.Inc() }

// UpdateQueueDepth sets the current settlement queue depth.
func UpdateQueueDepth(n int) { globalManager.queueDepth.Set(float64(n)) }

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }

// RecordQueueReject counts one submission rejected by a full queue.
func RecordQueueReject() { globalManager.queueRejects.Inc() }

// UpdateWorkerCount sets the number of running settlement workers.
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }

// RecordSettlementLatency observes end-to-end settlement latency.
func RecordSettlementLatency(ms float64) { globalManager.settlementLatency.Observe(ms) }

// RecordSettlementError counts one failed settlement attempt.
func RecordSettlementError() { globalManager.settlementErrors.Inc() }

// UpdateSystemMemoryUsage sets the allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryBytes.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the running goroutine count.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutines.Set(float64(n)) }

// RecordSystemGCPauseTime observes average GC pause in milliseconds.
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPause.Observe(ms) }
