// Package shift buckets wall-clock time into three recurring coverage
// windows anchored to a single configured timezone.
//
// Windows are never persisted; only the resolved absolute [start, end)
// instant pair is handed to callers.
package shift

import (
	"fmt"
	"time"
)

// DefaultTimezone anchors the nationwide shift grid.
const DefaultTimezone = "Asia/Kolkata"

// Window is one recurring coverage bucket, expressed as local
// hour-of-day boundaries. Shift B wraps midnight (end < start).
type Window struct {
	Key       string
	Label     string
	StartHour int
	EndHour   int
}

// The three fixed nationwide windows.
var windows = []Window{
	{Key: "A", Label: "Shift A (09:00-18:00)", StartHour: 9, EndHour: 18},
	{Key: "B", Label: "Shift B (18:00-02:00)", StartHour: 18, EndHour: 2},
	{Key: "C", Label: "Shift C (02:00-09:00)", StartHour: 2, EndHour: 9},
}

// Range is a window resolved into concrete absolute instants.
type Range struct {
	Key   string
	Label string
	Start time.Time
	End   time.Time
}

// Scheduler resolves the current shift window for a point in time.
// Safe for concurrent use; it holds only the anchor location.
type Scheduler struct {
	loc *time.Location
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLocation overrides the anchor timezone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewScheduler creates a scheduler anchored to the named timezone,
// defaulting to Asia/Kolkata when no option overrides it.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("load anchor timezone: %w", err)
	}

	s := &Scheduler{loc: loc}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Current returns the window covering now. Membership is half-open on
// local hour-of-day; B is chosen whenever the local hour is >=18 or <2.
func (s *Scheduler) Current(now time.Time) Window {
	h := now.In(s.loc).Hour()

	switch {
	case h >= 9 && h < 18:
		return windows[0]
	case h >= 18 || h < 2:
		return windows[1]
	default:
		return windows[2]
	}
}

// ResolveRange resolves the current window into absolute instants.
//
// For the wrap-around window the anchoring is asymmetric: taken late in
// the evening (local hour >= start hour) the end lands on the next
// calendar day; taken past midnight (local hour < end hour) the start
// lands on the previous calendar day. Either way a lookup from inside
// the window yields one consistent [start, end) pair, never an
// inverted range.
func (s *Scheduler) ResolveRange(now time.Time) Range {
	w := s.Current(now)
	local := now.In(s.loc)

	start := time.Date(local.Year(), local.Month(), local.Day(), w.StartHour, 0, 0, 0, s.loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), w.EndHour, 0, 0, 0, s.loc)

	if w.EndHour <= w.StartHour {
		if local.Hour() >= w.StartHour {
			end = end.AddDate(0, 0, 1)
		} else {
			start = start.AddDate(0, 0, -1)
		}
	}

	return Range{Key: w.Key, Label: w.Label, Start: start, End: end}
}
