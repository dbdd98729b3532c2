package ledger

import "errors"

// Sentinel kinds for ledger errors. Callers branch with errors.Is.
var (
	// ErrVersionConflict signals that a snapshot lost the race for its
	// version number. The submitter should re-read and retry.
	ErrVersionConflict = errors.New("snapshot version conflict")

	// ErrNoAssignment signals a reassignment request for a module that
	// has no current assignment.
	ErrNoAssignment = errors.New("module has no assignment")
)
