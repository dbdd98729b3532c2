// Package pricing computes dynamic price quotes from demand and
// complexity signals. Pure and deterministic; all monetary values share
// the currency unit of the base rate.
package pricing

import "math"

// defaultSurgeCap bounds surge at 50% of base regardless of how far
// over capacity the system is.
const defaultSurgeCap = 0.5

// Input carries the pricing signals. Urgency, resource load and
// integration cost arrive pre-computed from structured requirements;
// the engine treats them as opaque additive terms.
type Input struct {
	ComplexityScore    float64
	BaseRate           float64
	UrgencyMultiplier  float64
	ResourceLoadFactor float64
	IntegrationWeight  float64
	ActiveProjects     int
	CapacityThreshold  int
}

// Breakdown itemizes a quote. Total is the sum of the five terms.
type Breakdown struct {
	Base         float64
	Urgency      float64
	ResourceLoad float64
	Integration  float64
	Surge        float64
	Total        float64
}

// Engine computes quotes. Safe for concurrent use.
type Engine struct {
	surgeCap float64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSurgeCap overrides the surge cap expressed as a fraction of base.
func WithSurgeCap(fraction float64) Option {
	return func(e *Engine) {
		if fraction > 0 {
			e.surgeCap = fraction
		}
	}
}

// NewEngine creates a pricing engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{surgeCap: defaultSurgeCap}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Quote computes the price breakdown for one module of work.
//
// Surge only applies when active projects exceed the capacity
// threshold: surge = base * min(cap, (active-threshold)/threshold).
func (e *Engine) Quote(in Input) Breakdown {
	base := in.ComplexityScore * in.BaseRate

	var surge float64
	if in.CapacityThreshold > 0 && in.ActiveProjects > in.CapacityThreshold {
		overCapacityRatio := float64(in.ActiveProjects-in.CapacityThreshold) / float64(in.CapacityThreshold)
		surge = base * math.Min(e.surgeCap, overCapacityRatio)
	}

	b := Breakdown{
		Base:         base,
		Urgency:      in.UrgencyMultiplier,
		ResourceLoad: in.ResourceLoadFactor,
		Integration:  in.IntegrationWeight,
		Surge:        surge,
	}
	b.Total = b.Base + b.Urgency + b.ResourceLoad + b.Integration + b.Surge
	return b
}
