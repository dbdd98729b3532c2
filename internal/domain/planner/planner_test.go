package planner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/airolance/marketcore/internal/domain/matching"
	"github.com/airolance/marketcore/internal/domain/model"
	"github.com/airolance/marketcore/internal/domain/planner"
	"github.com/airolance/marketcore/internal/domain/shift"
	. "github.com/smartystreets/goconvey/convey"
)

func newPlanner(t *testing.T) *planner.Planner {
	t.Helper()
	sched, err := shift.NewScheduler()
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	return planner.New(matching.NewEngine(), sched)
}

func istNoon(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load IST: %v", err)
	}
	return time.Date(2025, time.June, 2, 12, 0, 0, 0, loc)
}

func frontendCandidates() []model.Candidate {
	return []model.Candidate{
		{
			ID:                "runner-up",
			SpecialtyTags:     []string{"frontend"},
			Skills:            map[string]float64{"react": 0.5},
			ReliabilityScore:  1.0,
			AvailabilityScore: 1.0,
		},
		{
			ID:                "favorite",
			SpecialtyTags:     []string{"frontend"},
			Skills:            map[string]float64{"react": 0.9, "ui": 0.8},
			ReliabilityScore:  1.3,
			AvailabilityScore: 1.1,
		},
	}
}

func TestPlanner_Plan(t *testing.T) {
	Convey("Given a planner over the default engines", t, func() {
		p := newPlanner(t)
		module := model.Module{
			ID:             "mod-frontend",
			Key:            "frontend",
			RequiredSkills: map[string]float64{"react": 0.9, "ui": 0.8},
		}

		Convey("When two candidates are eligible", func() {
			plan := p.Plan(module, frontendCandidates(), istNoon(t))

			Convey("Then primary is rank-1 and backup rank-2", func() {
				So(plan.Primary, ShouldEqual, "favorite")
				So(plan.Backup, ShouldEqual, "runner-up")
				So(plan.Primary, ShouldNotEqual, plan.Backup)
			})

			Convey("And the reason code carries the shift key", func() {
				So(plan.ShiftKey, ShouldEqual, "A")
				So(plan.Reason, ShouldEqual, "auto:A")
			})

			Convey("And the shift window is a concrete half-open range", func() {
				So(plan.ShiftEnd.After(plan.ShiftStart), ShouldBeTrue)
				So(plan.ShiftEnd.Sub(plan.ShiftStart), ShouldEqual, 9*time.Hour)
			})
		})

		Convey("When only one candidate is eligible", func() {
			plan := p.Plan(module, frontendCandidates()[:1], istNoon(t))

			Convey("Then backup stays empty", func() {
				So(plan.Primary, ShouldEqual, "runner-up")
				So(plan.Backup, ShouldBeEmpty)
			})
		})

		Convey("When no candidate is eligible", func() {
			plan := p.Plan(module, nil, istNoon(t))

			Convey("Then the plan still resolves with empty assignees", func() {
				So(plan.Primary, ShouldBeEmpty)
				So(plan.Backup, ShouldBeEmpty)
				So(plan.Reason, ShouldEqual, "auto:A")
			})
		})
	})
}

func TestPlanner_PlanAll(t *testing.T) {
	Convey("Given a planner and sibling modules", t, func() {
		p := newPlanner(t)
		modules := []model.Module{
			{ID: "m1", Key: "frontend", RequiredSkills: map[string]float64{"react": 0.9}},
			{ID: "m2", Key: "backend", RequiredSkills: map[string]float64{"node": 0.9}},
			{ID: "m3", Key: "frontend", RequiredSkills: map[string]float64{"ui": 0.8}},
		}

		Convey("When applying m2's plan fails", func() {
			boom := errors.New("constraint violation")
			apply := func(_ context.Context, plan planner.Plan) error {
				if plan.ModuleID == "m2" {
					return boom
				}
				return nil
			}

			plans, failures := p.PlanAll(context.Background(), modules, frontendCandidates(), istNoon(t), apply)

			Convey("Then sibling modules are still planned", func() {
				So(plans, ShouldHaveLength, 3)
				So(failures, ShouldHaveLength, 1)
				So(errors.Is(failures["m2"], boom), ShouldBeTrue)
			})
		})

		Convey("When no apply callback is supplied", func() {
			plans, failures := p.PlanAll(context.Background(), modules, frontendCandidates(), istNoon(t), nil)

			Convey("Then planning is purely computational", func() {
				So(plans, ShouldHaveLength, 3)
				So(failures, ShouldBeEmpty)
			})
		})
	})
}
