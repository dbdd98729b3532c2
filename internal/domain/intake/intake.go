// Package intake validates client project intakes, derives structured
// requirements from them, and expands a project into its standard
// weighted work modules.
package intake

import (
	"github.com/google/uuid"

	"github.com/airolance/marketcore/internal/domain/model"
)

// Complexity scoring bounds and per-item contributions.
const (
	complexityFloor       = 10
	complexityCeil        = 100
	featureComplexity     = 6
	integrationComplexity = 8
)

// Scope buckets by feature count.
const (
	ScopeSmall  = "small"
	ScopeMedium = "medium"
	ScopeLarge  = "large"
)

// Intake is the raw client request as captured by the (out of scope)
// intake form.
type Intake struct {
	ProductType  string // web_app, mobile_app, website, platform
	Industry     string
	Urgency      string // low, medium, high
	LaunchDate   string
	Features     []string
	Integrations []string
	Notes        string
	BrandRefs    []string
}

// Structured is the normalized requirement set fed into pricing and
// module planning.
type Structured struct {
	ProductType     string
	Industry        string
	Urgency         string
	LaunchDate      string
	Features        []string
	Integrations    []string
	Scope           string
	ComplexityScore float64
}

// Validate returns the names of required fields missing from the
// intake, empty when it is complete.
func Validate(in Intake) []string {
	var missing []string
	if in.ProductType == "" {
		missing = append(missing, "productType")
	}
	if in.Urgency == "" {
		missing = append(missing, "urgency")
	}
	if len(in.Features) == 0 {
		missing = append(missing, "features")
	}
	if in.Integrations == nil {
		missing = append(missing, "integrations")
	}
	if in.Notes == "" {
		missing = append(missing, "notes")
	}
	return missing
}

// Structure derives the normalized requirements. Complexity is
// 10 + 6 per feature + 8 per integration, clamped to [10, 100].
func Structure(in Intake) Structured {
	complexity := float64(complexityFloor + len(in.Features)*featureComplexity + len(in.Integrations)*integrationComplexity)
	if complexity > complexityCeil {
		complexity = complexityCeil
	}

	scope := ScopeSmall
	switch {
	case len(in.Features) >= 10:
		scope = ScopeLarge
	case len(in.Features) >= 5:
		scope = ScopeMedium
	}

	industry := in.Industry
	if industry == "" {
		industry = "general"
	}

	return Structured{
		ProductType:     in.ProductType,
		Industry:        industry,
		Urgency:         in.Urgency,
		LaunchDate:      in.LaunchDate,
		Features:        in.Features,
		Integrations:    in.Integrations,
		Scope:           scope,
		ComplexityScore: complexity,
	}
}

// PlanModules expands a project into the standard four weighted
// modules. Weights sum to 1 and feed matching, assignment and payout.
func PlanModules(projectID string, structured Structured) []model.Module {
	return []model.Module{
		{
			ID:             uuid.NewString(),
			ProjectID:      projectID,
			Key:            "frontend",
			Weight:         0.25,
			RequiredSkills: map[string]float64{"react": 0.9, "ui": 0.8},
		},
		{
			ID:             uuid.NewString(),
			ProjectID:      projectID,
			Key:            "backend",
			Weight:         0.35,
			RequiredSkills: map[string]float64{"node": 0.9, "postgres": 0.8, "rls": 0.8},
		},
		{
			ID:             uuid.NewString(),
			ProjectID:      projectID,
			Key:            "integrations",
			Weight:         0.25,
			RequiredSkills: map[string]float64{"integrations": 0.8, "webhooks": 0.6},
		},
		{
			ID:             uuid.NewString(),
			ProjectID:      projectID,
			Key:            "deployment",
			Weight:         0.15,
			RequiredSkills: map[string]float64{"devops": 0.7, "deployment": 0.9},
		},
	}
}
