package penalty_test

import (
	"testing"

	"github.com/airolance/marketcore/internal/domain/penalty"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAmount(t *testing.T) {
	Convey("Given the penalty schedule", t, func() {
		Convey("When a shift is missed on a small engagement", func() {
			So(penalty.Amount(penalty.TriggerShiftMissed, 1000), ShouldEqual, 250)
		})

		Convey("When a shift is missed on a large engagement", func() {
			Convey("Then the per-trigger cap holds", func() {
				So(penalty.Amount(penalty.TriggerShiftMissed, 100000), ShouldEqual, 5000)
			})
		})

		Convey("When a freelancer goes inactive", func() {
			So(penalty.Amount(penalty.TriggerInactivity, 1000), ShouldEqual, 100)
			So(penalty.Amount(penalty.TriggerInactivity, 100000), ShouldEqual, 2500)
		})

		Convey("When quality review fails", func() {
			So(penalty.Amount(penalty.TriggerQualityFail, 1000), ShouldEqual, 200)
			So(penalty.Amount(penalty.TriggerQualityFail, 100000), ShouldEqual, 4000)
		})

		Convey("When the trigger is unknown", func() {
			So(penalty.Amount("paperwork_late", 1000), ShouldEqual, 0)
		})

		Convey("When the base amount is zero", func() {
			So(penalty.Amount(penalty.TriggerShiftMissed, 0), ShouldEqual, 0)
		})
	})
}
