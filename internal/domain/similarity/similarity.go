// Package similarity computes cosine similarity between sparse feature
// vectors keyed by skill or requirement tag.
package similarity

import "math"

// Vector maps a skill/requirement tag to a non-negative weight. Keys
// present on one side and absent on the other are treated as weight 0.
type Vector = map[string]float64

// Cosine returns the cosine similarity of a and b over the union of
// their keys. It returns exactly 0 when either vector has zero
// magnitude, so callers never have to guard division by zero.
func Cosine(a, b Vector) float64 {
	var dot, magA, magB float64

	for key, l := range a {
		r := b[key]
		dot += l * r
		magA += l * l
	}
	for _, r := range b {
		magB += r * r
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
