// Package model contains domain records passed between layers.
package model

import "time"

// Candidate is the freelancer facet consumed by the matching engine.
// Reliability and availability arrive unclamped from upstream profile
// aggregation; the engine clamps them into their nominal ranges.
type Candidate struct {
	ID                string             // freelancer identifier
	SpecialtyTags     []string           // capability tags, e.g. "frontend"
	Skills            map[string]float64 // sparse skill vector
	ReliabilityScore  float64            // nominal [0.5, 1.5], unclamped at source
	AvailabilityScore float64            // nominal [0.3, 1.2], unclamped at source
}

// HasSpecialty reports whether the candidate carries the tag verbatim.
func (c Candidate) HasSpecialty(tag string) bool {
	for _, t := range c.SpecialtyTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Module is a weighted, independently assignable unit of project work.
type Module struct {
	ID               string
	ProjectID        string
	Key              string             // capability filter and pricing bucket, e.g. "backend"
	RequiredSkills   map[string]float64 // sparse requirement vector
	Weight           float64            // share of total project value, [0, 1]
	ExpectedProgress float64            // expected progress rate at evaluation time
	DueAt            time.Time          // zero when no deadline was agreed
}

// TaskLog is one freelancer work submission entry. Immutable once created.
type TaskLog struct {
	ModuleID             string
	FreelancerID         string
	MinutesSpent         int
	CompletionPercentage float64 // [0, 1]
	AIQualityScore       float64 // [0, 1] nominal
	Penalties            float64 // currency units, >= 0
}

// Submission is the payload flowing through the settlement pipeline:
// a work snapshot plus the task log that settles payment for it.
type Submission struct {
	SubmissionID string // unique id for idempotency
	ModuleID     string
	FreelancerID string
	WorkSummary  string
	Progress     map[string]any // structured progress payload
	FileRefs     []string
	Log          TaskLog
}
