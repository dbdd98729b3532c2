// Package penalty maps contract-breach triggers to deduction amounts.
package penalty

import "math"

// Breach triggers recognized by the schedule.
const (
	TriggerShiftMissed = "shift_missed"
	TriggerInactivity  = "inactivity"
	TriggerQualityFail = "quality_fail"
)

// Schedule entries: fraction of the base amount, hard-capped per
// trigger.
var schedule = map[string]struct {
	fraction float64
	cap      float64
}{
	TriggerShiftMissed: {fraction: 0.25, cap: 5000},
	TriggerInactivity:  {fraction: 0.10, cap: 2500},
	TriggerQualityFail: {fraction: 0.20, cap: 4000},
}

// Amount returns the deduction for a breach trigger against a base
// amount. Unknown triggers cost nothing.
func Amount(trigger string, baseAmount float64) float64 {
	entry, ok := schedule[trigger]
	if !ok {
		return 0
	}
	return math.Min(baseAmount*entry.fraction, entry.cap)
}
