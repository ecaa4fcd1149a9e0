package causal

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/matchpulse/matchpulse/internal/domain/model"
)

func TestDebtTracker(t *testing.T) {
	Convey("Given an empty debt tracker", t, func() {
		tracker := NewDebtTracker()
		now := time.Now()

		Convey("When a positive impact is added", func() {
			added := tracker.Add("kill", model.EventKill, model.PhaseEarly, 0.3, now)

			Convey("Then nothing accrues", func() {
				So(added, ShouldEqual, 0)
				So(tracker.Total(), ShouldEqual, 0)
			})
		})

		Convey("When a negative impact lands in each phase", func() {
			early := tracker.Add("objective_lost", model.EventObjective, model.PhaseEarly, -0.15, now)
			mid := tracker.Add("objective_lost", model.EventObjective, model.PhaseMid, -0.15, now)
			late := tracker.Add("objective_lost", model.EventObjective, model.PhaseLate, -0.15, now)

			Convey("Then early mistakes cost more than late ones", func() {
				So(early, ShouldAlmostEqual, 19.5, 1e-9)
				So(mid, ShouldAlmostEqual, 15.0, 1e-9)
				So(late, ShouldAlmostEqual, 12.0, 1e-9)
			})

			Convey("Then the breakdown routes to the tactical bucket", func() {
				snap := tracker.Snapshot()
				So(snap.Breakdown.Tactical, ShouldAlmostEqual, early+mid+late, 1e-9)
				So(snap.Breakdown.Individual, ShouldEqual, 0)
			})
		})

		Convey("When a single huge impact arrives", func() {
			added := tracker.Add("died_early", model.EventKill, model.PhaseEarly, -0.9, now)

			Convey("Then the per-item cap bounds it", func() {
				So(added, ShouldEqual, 20.0)
			})
		})

		Convey("When many mistakes accumulate", func() {
			for i := 0; i < 30; i++ {
				tracker.Add("died_early", model.EventKill, model.PhaseEarly, -0.9, now)
			}

			Convey("Then the total is capped at 100 and never negative", func() {
				So(tracker.Total(), ShouldBeLessThanOrEqualTo, 100.0)
				So(tracker.Total(), ShouldBeGreaterThanOrEqualTo, 0.0)
			})
		})

		Convey("When categories differ by event type", func() {
			tracker.Add("died_early", model.EventKill, model.PhaseMid, -0.1, now)
			tracker.Add("economy_wasted", model.EventEconomy, model.PhaseMid, -0.1, now)
			tracker.Add("utility_wasted", model.EventUtility, model.PhaseMid, -0.1, now)

			snap := tracker.Snapshot()

			Convey("Then each bucket fills independently", func() {
				So(snap.Breakdown.Individual, ShouldAlmostEqual, 10.0, 1e-9)
				So(snap.Breakdown.Economic, ShouldAlmostEqual, 10.0, 1e-9)
				So(snap.Breakdown.Team, ShouldAlmostEqual, 10.0, 1e-9)
			})

			Convey("Then each item carries a recommendation", func() {
				for _, item := range snap.Items {
					So(item.Recommendation, ShouldNotBeEmpty)
				}
			})
		})

		Convey("When the tracker resets", func() {
			tracker.Add("died_early", model.EventKill, model.PhaseEarly, -0.5, now)
			tracker.Reset()

			Convey("Then everything is cleared", func() {
				So(tracker.Total(), ShouldEqual, 0)
				So(tracker.Snapshot().Items, ShouldBeEmpty)
			})
		})
	})
}
