package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/matchpulse/matchpulse/internal/adapters/repository"
	"github.com/matchpulse/matchpulse/internal/domain/model"
)

func feature(actor string, i int) model.TemporalFeature {
	return model.TemporalFeature{
		Timestamp:   time.Now(),
		EventType:   model.EventKill,
		ActorID:     actor,
		ActionLabel: fmt.Sprintf("action-%d", i),
		Phase:       model.PhaseEarly,
		Outcome:     model.OutcomeNegative,
		ImpactScore: -0.2,
	}
}

func TestRingStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a feature store with a small capacity", t, func() {
		store := repository.NewRingStore(repository.WithCapacity(5))

		Convey("When storing fewer features than the cap", func() {
			for i := 0; i < 3; i++ {
				store.Store(ctx, feature("p1", i))
			}

			Convey("Then size reflects the writes", func() {
				So(store.Size(ctx), ShouldEqual, 3)
			})

			Convey("Then recent features come back in insertion order", func() {
				got := store.RecentFeatures(ctx, 3)
				So(got, ShouldHaveLength, 3)
				So(got[0].ActionLabel, ShouldEqual, "action-0")
				So(got[2].ActionLabel, ShouldEqual, "action-2")
			})

			Convey("Then reading twice without writes is idempotent", func() {
				first := store.RecentFeatures(ctx, 3)
				second := store.RecentFeatures(ctx, 3)
				So(second, ShouldResemble, first)
			})
		})

		Convey("When storing past the cap", func() {
			for i := 0; i < 8; i++ {
				store.Store(ctx, feature("p1", i))
			}

			Convey("Then the oldest entries are evicted first", func() {
				So(store.Size(ctx), ShouldEqual, 5)
				got := store.RecentFeatures(ctx, 5)
				So(got[0].ActionLabel, ShouldEqual, "action-3")
				So(got[4].ActionLabel, ShouldEqual, "action-7")
			})

			Convey("Then asking for more than retained returns what exists", func() {
				got := store.RecentFeatures(ctx, 100)
				So(got, ShouldHaveLength, 5)
			})
		})

		Convey("When clearing the store", func() {
			store.Store(ctx, feature("p1", 0))
			store.Clear(ctx)

			Convey("Then it is empty", func() {
				So(store.Size(ctx), ShouldEqual, 0)
				So(store.RecentFeatures(ctx, 10), ShouldBeEmpty)
			})
		})

		Convey("When asking for zero or negative counts", func() {
			store.Store(ctx, feature("p1", 0))

			Convey("Then nothing comes back", func() {
				So(store.RecentFeatures(ctx, 0), ShouldBeEmpty)
				So(store.RecentFeatures(ctx, -1), ShouldBeEmpty)
			})
		})
	})
}
