// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"

	"github.com/airolance/marketcore/internal/domain/shift"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the metrics listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SubmissionQueueSize bounds the in-memory settlement queue.
	SubmissionQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of settlement workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the submission deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// Timezone anchors shift windows, e.g. "Asia/Kolkata".
	Timezone string `koanf:"timezone"`

	// RiskThreshold is the score above which remediation fires.
	RiskThreshold float64 `koanf:"risk_threshold"`

	// SweepSpec is the cron spec of the periodic risk sweep.
	SweepSpec string `koanf:"sweep_spec"`

	// StalenessWeight, ProgressWeight and DeadlineWeight tune the
	// risk trigger contributions.
	StalenessWeight float64 `koanf:"staleness_weight"`
	ProgressWeight  float64 `koanf:"progress_weight"`
	DeadlineWeight  float64 `koanf:"deadline_weight"`

	// SurgeCap bounds surge pricing as a fraction of base.
	SurgeCap float64 `koanf:"surge_cap"`

	// CapacityThreshold is the active-project count beyond which
	// surge pricing starts.
	CapacityThreshold int `koanf:"capacity_threshold"`

	// BaseRate converts complexity points into currency.
	BaseRate float64 `koanf:"base_rate"`

	// MaxSnapshotDelayMinutes is how stale a module's latest
	// snapshot may get before the risk sweep flags it.
	MaxSnapshotDelayMinutes int `koanf:"max_snapshot_delay_minutes"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		SubmissionQueueSize:     10_000,
		WorkerCount:             runtime.NumCPU() * 4,
		DedupeSize:              100_000,
		Timezone:                shift.DefaultTimezone,
		RiskThreshold:           0.7,
		SweepSpec:               "@every 5m",
		StalenessWeight:         0.4,
		ProgressWeight:          0.3,
		DeadlineWeight:          0.4,
		SurgeCap:                0.5,
		CapacityThreshold:       1000,
		BaseRate:                1200,
		MaxSnapshotDelayMinutes: 240,
	}
}
