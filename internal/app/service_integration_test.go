package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/airolance/marketcore/internal/app"
	"github.com/airolance/marketcore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with full integration", t, func() {
		svc := service.New(
			service.WithWorkerCount(4),
			service.WithQueueSize(1_000),
			service.WithSweepSpec("@every 1h"),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		svc.RegisterCandidates(ctx, roster())

		Convey("When a project flows from intake to settlement", func() {
			project, err := svc.CreateProject(ctx, "proj-e2e", validIntake())
			So(err, ShouldBeNil)
			So(project.Plans, ShouldHaveLength, 4)

			moduleID := project.Plans[0].ModuleID
			freelancerID := project.Plans[0].Primary
			So(freelancerID, ShouldNotBeEmpty)

			sub := model.Submission{
				SubmissionID: "sub-e2e-1",
				ModuleID:     moduleID,
				FreelancerID: freelancerID,
				WorkSummary:  "responsive shell and auth screens",
				Progress:     map[string]any{"done": []string{"shell", "auth"}},
				Log: model.TaskLog{
					ModuleID:             moduleID,
					FreelancerID:         freelancerID,
					MinutesSpent:         300,
					CompletionPercentage: 0.5,
					AIQualityScore:       0.9,
				},
			}
			So(svc.SubmitWork(ctx, sub), ShouldBeNil)

			settled := waitFor(5*time.Second, func() bool {
				return len(svc.Payouts(ctx, freelancerID)) == 1
			})

			Convey("Then the submission settles into a payout", func() {
				So(settled, ShouldBeTrue)

				payouts := svc.Payouts(ctx, freelancerID)
				So(payouts, ShouldHaveLength, 1)
				So(payouts[0].GrossAmount, ShouldBeGreaterThan, 0)
				So(svc.WalletBalance(ctx, freelancerID), ShouldEqual, payouts[0].PayoutAmount)
			})

			Convey("And the handoff summary reflects the snapshot", func() {
				So(settled, ShouldBeTrue)

				summary, err := svc.HandoffSummary(ctx, moduleID, nil)
				So(err, ShouldBeNil)
				So(summary, ShouldContainSubstring, "responsive shell and auth screens")
				So(summary, ShouldContainSubstring, "Version 1")
			})

			Convey("And a second submission produces version two", func() {
				So(settled, ShouldBeTrue)

				second := sub
				second.SubmissionID = "sub-e2e-2"
				second.WorkSummary = "client dashboard wired to live data"
				second.Log.CompletionPercentage = 0.8
				So(svc.SubmitWork(ctx, second), ShouldBeNil)

				So(waitFor(5*time.Second, func() bool {
					return len(svc.Payouts(ctx, freelancerID)) == 2
				}), ShouldBeTrue)

				summary, err := svc.HandoffSummary(ctx, moduleID, nil)
				So(err, ShouldBeNil)
				So(summary, ShouldContainSubstring, "Version 2")
			})
		})

		Convey("When many submissions land concurrently", func() {
			project, err := svc.CreateProject(ctx, "proj-burst", validIntake())
			So(err, ShouldBeNil)

			moduleID := project.Plans[1].ModuleID
			freelancerID := project.Plans[1].Primary
			So(freelancerID, ShouldNotBeEmpty)

			const burst = 20
			var wg sync.WaitGroup
			accepted := make(chan string, burst)
			for i := 0; i < burst; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					sub := model.Submission{
						SubmissionID: fmt.Sprintf("burst-%d", i),
						ModuleID:     moduleID,
						FreelancerID: freelancerID,
						WorkSummary:  fmt.Sprintf("increment %d", i),
						Log: model.TaskLog{
							ModuleID:             moduleID,
							FreelancerID:         freelancerID,
							CompletionPercentage: 0.05,
							AIQualityScore:       0.8,
						},
					}
					if err := svc.SubmitWork(ctx, sub); err == nil {
						accepted <- sub.SubmissionID
					}
				}(i)
			}
			wg.Wait()
			close(accepted)

			var acceptedCount int
			for range accepted {
				acceptedCount++
			}

			Convey("Then every accepted submission settles exactly once", func() {
				So(acceptedCount, ShouldEqual, burst)
				So(waitFor(10*time.Second, func() bool {
					return len(svc.Payouts(ctx, freelancerID)) == burst
				}), ShouldBeTrue)

				summary, err := svc.HandoffSummary(ctx, moduleID, nil)
				So(err, ShouldBeNil)
				So(summary, ShouldContainSubstring, fmt.Sprintf("Version %d", burst))
			})
		})

		Convey("When the service lifecycle repeats", func() {
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)

			fresh := service.New(service.WithSweepSpec("@every 1h"))
			So(fresh.Start(ctx), ShouldBeNil)
			fresh.Stop()
			So(fresh.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestServiceRiskSweepIntegration(t *testing.T) {
	Convey("Given a service whose sweep runs continuously", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithSweepSpec("@every 100ms"),
			service.WithMaxSnapshotDelay(1),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		svc.RegisterCandidates(ctx, roster())

		Convey("When a planned module never receives a snapshot", func() {
			project, err := svc.CreateProject(ctx, "proj-risky", validIntake())
			So(err, ShouldBeNil)

			moduleID := project.Plans[0].ModuleID

			Convey("Then the sweep logs risk verdicts for it", func() {
				So(waitFor(5*time.Second, func() bool {
					return len(svc.RiskLog(ctx, moduleID)) > 0
				}), ShouldBeTrue)
			})
		})
	})
}
