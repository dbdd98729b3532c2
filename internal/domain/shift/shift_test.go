package shift_test

import (
	"testing"
	"time"

	"github.com/airolance/marketcore/internal/domain/shift"
	. "github.com/smartystreets/goconvey/convey"
)

// ist builds an instant at the given local IST wall-clock time.
func ist(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load IST: %v", err)
	}
	return time.Date(2025, time.March, 10, hour, minute, 0, 0, loc)
}

func TestScheduler_Current(t *testing.T) {
	Convey("Given a scheduler anchored to IST", t, func() {
		sched, err := shift.NewScheduler()
		So(err, ShouldBeNil)

		cases := []struct {
			hour int
			want string
		}{
			{9, "A"}, {12, "A"}, {17, "A"},
			{18, "B"}, {23, "B"}, {0, "B"}, {1, "B"},
			{2, "C"}, {5, "C"}, {8, "C"},
		}

		for _, tc := range cases {
			Convey(timeLabel(tc.hour)+" falls in shift "+tc.want, func() {
				So(sched.Current(ist(t, tc.hour, 0)).Key, ShouldEqual, tc.want)
			})
		}

		Convey("When called with a non-IST instant", func() {
			utc := time.Date(2025, time.March, 10, 13, 0, 0, 0, time.UTC) // 18:30 IST

			Convey("Then bucketing happens on the anchor-local hour", func() {
				So(sched.Current(utc).Key, ShouldEqual, "B")
			})
		})
	})
}

func TestScheduler_ResolveRange(t *testing.T) {
	Convey("Given a scheduler anchored to IST", t, func() {
		sched, err := shift.NewScheduler()
		So(err, ShouldBeNil)

		Convey("When resolving inside a daytime shift", func() {
			r := sched.ResolveRange(ist(t, 11, 30))

			Convey("Then the range spans 09:00 to 18:00 the same day", func() {
				So(r.Key, ShouldEqual, "A")
				So(r.Start.Hour(), ShouldEqual, 9)
				So(r.End.Hour(), ShouldEqual, 18)
				So(r.End.Sub(r.Start), ShouldEqual, 9*time.Hour)
			})
		})

		Convey("When resolving the overnight shift before midnight (23:00 IST)", func() {
			r := sched.ResolveRange(ist(t, 23, 0))

			Convey("Then the end is anchored to the next calendar day", func() {
				So(r.Key, ShouldEqual, "B")
				So(r.Start.Day(), ShouldEqual, 10)
				So(r.End.Day(), ShouldEqual, 11)
				So(r.End.Sub(r.Start), ShouldEqual, 8*time.Hour)
			})
		})

		Convey("When resolving the overnight shift after midnight (01:00 IST)", func() {
			r := sched.ResolveRange(ist(t, 1, 0))

			Convey("Then the start is anchored to the previous calendar day", func() {
				So(r.Key, ShouldEqual, "B")
				So(r.Start.Day(), ShouldEqual, 9)
				So(r.End.Day(), ShouldEqual, 10)
				So(r.End.Sub(r.Start), ShouldEqual, 8*time.Hour)
			})
		})

		Convey("When resolving both sides of midnight for the same logical shift", func() {
			before := sched.ResolveRange(ist(t, 23, 0))
			after := sched.ResolveRange(ist(t, 1, 0).AddDate(0, 0, 1))

			Convey("Then both lookups land on the same [start, end) pair", func() {
				So(before.Start.Equal(after.Start), ShouldBeTrue)
				So(before.End.Equal(after.End), ShouldBeTrue)
			})
		})

		Convey("When resolving the early-morning shift", func() {
			r := sched.ResolveRange(ist(t, 3, 15))

			Convey("Then the range stays within one calendar day", func() {
				So(r.Key, ShouldEqual, "C")
				So(r.Start.Day(), ShouldEqual, r.End.Day())
				So(r.End.Sub(r.Start), ShouldEqual, 7*time.Hour)
			})
		})
	})
}

func TestScheduler_WithLocation(t *testing.T) {
	Convey("Given a scheduler re-anchored to UTC", t, func() {
		sched, err := shift.NewScheduler(shift.WithLocation(time.UTC))
		So(err, ShouldBeNil)

		Convey("When the instant is 19:00 UTC", func() {
			now := time.Date(2025, time.March, 10, 19, 0, 0, 0, time.UTC)

			Convey("Then bucketing follows the configured anchor, not IST", func() {
				So(sched.Current(now).Key, ShouldEqual, "B")
				r := sched.ResolveRange(now)
				So(r.Start.Hour(), ShouldEqual, 18)
				So(r.End.Sub(r.Start), ShouldEqual, 8*time.Hour)
			})
		})
	})
}

func timeLabel(hour int) string {
	return time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format("15:04")
}
