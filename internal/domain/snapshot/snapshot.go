// Package snapshot versions work submissions per module. Version
// assignment is read-then-write: the engine computes latest+1 and the
// persistence boundary must enforce uniqueness of (moduleID, versionNo)
// because the engine itself performs no locking.
package snapshot

import (
	"context"
	"fmt"
	"time"
)

// StatusHandoff is set on the module after every successful snapshot.
const StatusHandoff = "handoff"

// NoPriorWorkSummary is returned by HandoffSummary when a module has
// no snapshot history yet.
const NoPriorWorkSummary = "No prior work exists for this module."

// Input is a candidate snapshot before versioning.
type Input struct {
	ModuleID     string
	FreelancerID string
	WorkSummary  string
	Progress     map[string]any
	FileRefs     []string
}

// Record is a durably persisted snapshot. ID and CreatedAt are
// assigned by the persistence boundary, never by the engine.
type Record struct {
	ID           string
	ModuleID     string
	FreelancerID string
	VersionNo    int
	WorkSummary  string
	Progress     map[string]any
	FileRefs     []string
	CreatedAt    time.Time
}

// Deps are the injected persistence collaborators.
type Deps struct {
	// LatestVersion returns the highest version persisted for the
	// module, 0 when none exists.
	LatestVersion func(ctx context.Context, moduleID string) (int, error)

	// Persist stores the candidate record and returns the durable
	// form with id and timestamp attached. It must reject duplicate
	// (moduleID, versionNo) pairs.
	Persist func(ctx context.Context, candidate Record) (Record, error)

	// UpdateStatus moves the module into a new workflow status.
	UpdateStatus func(ctx context.Context, moduleID, status string) error
}

// Versioner creates monotonically versioned snapshots.
type Versioner struct{}

// NewVersioner creates a snapshot versioner.
func NewVersioner() *Versioner {
	return &Versioner{}
}

// Create reads the latest version, persists latest+1, then moves the
// module to "handoff" unconditionally on success. A persist failure
// aborts the operation: a Record returned without having been durably
// persisted would be an inconsistency, so the error is returned and no
// status update happens. Concurrent calls for the same module can race
// to the same version; the persistence boundary surfaces that as an
// error (see ledger.ErrVersionConflict) for the caller to retry.
func (v *Versioner) Create(ctx context.Context, in Input, deps Deps) (Record, error) {
	latest, err := deps.LatestVersion(ctx, in.ModuleID)
	if err != nil {
		return Record{}, fmt.Errorf("read latest version for module %s: %w", in.ModuleID, err)
	}

	candidate := Record{
		ModuleID:     in.ModuleID,
		FreelancerID: in.FreelancerID,
		VersionNo:    latest + 1,
		WorkSummary:  in.WorkSummary,
		Progress:     in.Progress,
		FileRefs:     in.FileRefs,
	}

	persisted, err := deps.Persist(ctx, candidate)
	if err != nil {
		return Record{}, fmt.Errorf("persist snapshot v%d for module %s: %w", candidate.VersionNo, in.ModuleID, err)
	}

	if err := deps.UpdateStatus(ctx, in.ModuleID, StatusHandoff); err != nil {
		return Record{}, fmt.Errorf("update status for module %s: %w", in.ModuleID, err)
	}

	return persisted, nil
}

// HandoffSummary builds a human-readable summary of the latest work on
// a module via an injected summarizer, falling back to a fixed message
// when no snapshot exists.
func (v *Versioner) HandoffSummary(
	ctx context.Context,
	moduleID string,
	fetchLatest func(ctx context.Context, moduleID string) (Record, bool, error),
	summarize func(ctx context.Context, rec Record) (string, error),
) (string, error) {
	rec, ok, err := fetchLatest(ctx, moduleID)
	if err != nil {
		return "", fmt.Errorf("fetch latest snapshot for module %s: %w", moduleID, err)
	}
	if !ok {
		return NoPriorWorkSummary, nil
	}

	summary, err := summarize(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("summarize snapshot v%d for module %s: %w", rec.VersionNo, moduleID, err)
	}
	return summary, nil
}
