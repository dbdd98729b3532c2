package sweep_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/airolance/marketcore/internal/adapters/sweep"
	"github.com/airolance/marketcore/internal/domain/risk"
	logging "github.com/airolance/marketcore/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// spyHooks records every hook invocation for assertions.
type spyHooks struct {
	mu          sync.Mutex
	logged      []string
	reassigned  []string
	penalized   []string
	reassignErr error
}

func (s *spyHooks) hooks() risk.Hooks {
	return risk.Hooks{
		Log: func(ctx context.Context, in risk.Input, eval risk.Evaluation) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.logged = append(s.logged, in.ModuleID)
			return nil
		},
		Reassign: func(ctx context.Context, moduleID string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.reassignErr != nil {
				return s.reassignErr
			}
			s.reassigned = append(s.reassigned, moduleID)
			return nil
		},
		PenalizeReliability: func(ctx context.Context, freelancerID string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.penalized = append(s.penalized, freelancerID)
			return nil
		},
	}
}

func (s *spyHooks) snapshot() (logged, reassigned, penalized []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logged...),
		append([]string(nil), s.reassigned...),
		append([]string(nil), s.penalized...)
}

func staticLister(inputs ...risk.Input) sweep.Lister {
	return func(ctx context.Context) ([]risk.Input, error) {
		return inputs, nil
	}
}

func TestSweeper(t *testing.T) {
	convey.Convey("Given a risk sweeper over watched modules", t, func() {
		_ = logging.Init()

		now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		engine := risk.NewEngine()

		atRisk := risk.Input{
			ModuleID:                "mod-risky",
			ProjectID:               "proj-1",
			FreelancerID:            "freelancer-1",
			LastSnapshotAt:          now.Add(-2 * time.Hour),
			MaxSnapshotDelayMinutes: 30,
			Progress:                0.1,
			ExpectedProgress:        0.5,
			DueAt:                   now.Add(-time.Hour),
		}
		healthy := risk.Input{
			ModuleID:                "mod-healthy",
			ProjectID:               "proj-1",
			FreelancerID:            "freelancer-2",
			LastSnapshotAt:          now.Add(-5 * time.Minute),
			MaxSnapshotDelayMinutes: 30,
			Progress:                0.6,
			ExpectedProgress:        0.5,
			DueAt:                   now.Add(24 * time.Hour),
		}

		convey.Convey("When the sweep covers one risky and one healthy module", func() {
			spy := &spyHooks{}
			s := sweep.New(engine, staticLister(atRisk, healthy), spy.hooks(),
				sweep.WithSpec("@every 1h"),
				sweep.WithClock(func() time.Time { return now }),
			)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			convey.So(s.Start(ctx), convey.ShouldBeNil)
			time.Sleep(50 * time.Millisecond)
			s.Stop()

			logged, reassigned, penalized := spy.snapshot()

			convey.Convey("Then every module is logged for audit", func() {
				convey.So(logged, convey.ShouldResemble, []string{"mod-risky", "mod-healthy"})
			})

			convey.Convey("And only the risky module is remediated", func() {
				convey.So(reassigned, convey.ShouldResemble, []string{"mod-risky"})
				convey.So(penalized, convey.ShouldResemble, []string{"freelancer-1"})
			})
		})

		convey.Convey("When a module's remediation fails", func() {
			spy := &spyHooks{reassignErr: errors.New("no backup on file")}
			s := sweep.New(engine, staticLister(atRisk, healthy), spy.hooks(),
				sweep.WithSpec("@every 1h"),
				sweep.WithClock(func() time.Time { return now }),
			)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			convey.So(s.Start(ctx), convey.ShouldBeNil)
			time.Sleep(50 * time.Millisecond)
			s.Stop()

			logged, _, penalized := spy.snapshot()

			convey.Convey("Then the failure does not block the rest of the sweep", func() {
				convey.So(logged, convey.ShouldResemble, []string{"mod-risky", "mod-healthy"})
				convey.So(penalized, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the cron spec is invalid", func() {
			s := sweep.New(engine, staticLister(), risk.Hooks{}, sweep.WithSpec("not a spec"))

			convey.Convey("Then Start reports the error", func() {
				convey.So(s.Start(context.Background()), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When listing fails", func() {
			spy := &spyHooks{}
			s := sweep.New(engine,
				func(ctx context.Context) ([]risk.Input, error) {
					return nil, errors.New("ledger unavailable")
				},
				spy.hooks(),
				sweep.WithSpec("@every 1h"),
			)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			convey.So(s.Start(ctx), convey.ShouldBeNil)
			time.Sleep(50 * time.Millisecond)
			s.Stop()

			logged, _, _ := spy.snapshot()

			convey.Convey("Then no hook fires", func() {
				convey.So(logged, convey.ShouldBeEmpty)
			})
		})
	})
}
