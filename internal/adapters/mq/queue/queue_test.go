package queue_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/matchpulse/matchpulse/internal/adapters/mq/queue"
	"github.com/matchpulse/matchpulse/internal/domain/model"
	"github.com/matchpulse/matchpulse/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testEvent(id string) queue.Event {
	return model.Event{
		ID:             id,
		Type:           model.EventKill,
		Timestamp:      time.Now(),
		TimestampValid: true,
		Payload:        model.KillPayload{Attacker: "home_a", Victim: "away_b", Weapon: "rifle"},
	}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a small bounded queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(3), queue.WithBufferSize(3))

		Convey("When events fit within capacity", func() {
			So(q.Enqueue(ctx, testEvent("a")), ShouldBeTrue)
			So(q.Enqueue(ctx, testEvent("b")), ShouldBeTrue)

			Convey("Then the length reflects them", func() {
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the queue is full", func() {
			for i := 0; i < 3; i++ {
				So(q.Enqueue(ctx, testEvent(strconv.Itoa(i))), ShouldBeTrue)
			}

			Convey("Then further enqueues shed load without blocking", func() {
				So(q.Enqueue(ctx, testEvent("overflow")), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 3)
			})
		})

		Convey("When events are dequeued", func() {
			So(q.Enqueue(ctx, testEvent("first")), ShouldBeTrue)
			So(q.Enqueue(ctx, testEvent("second")), ShouldBeTrue)

			out := q.Dequeue(ctx)

			Convey("Then they arrive in order", func() {
				first := <-out
				second := <-out
				So(first.ID, ShouldEqual, "first")
				So(second.ID, ShouldEqual, "second")
			})
		})

		Convey("When the queue closes", func() {
			So(q.Enqueue(ctx, testEvent("last")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then it reports closed and rejects new events", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, testEvent("late")), ShouldBeFalse)
			})

			Convey("Then buffered events drain before the channel closes", func() {
				out := q.Dequeue(ctx)
				ev, ok := <-out
				So(ok, ShouldBeTrue)
				So(ev.ID, ShouldEqual, "last")

				_, ok = <-out
				So(ok, ShouldBeFalse)
			})

			Convey("Then closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When a consumer goes away before reading", func() {
			consumerCtx, cancel := context.WithCancel(ctx)
			_ = q.Dequeue(consumerCtx)

			So(q.Enqueue(ctx, testEvent("a")), ShouldBeTrue)
			So(q.Enqueue(ctx, testEvent("b")), ShouldBeTrue)
			cancel()

			Convey("Then nothing is pulled off ahead of delivery", func() {
				So(q.Len(ctx), ShouldEqual, 2)

				out := q.Dequeue(ctx)
				first := <-out
				second := <-out
				So(first.ID, ShouldEqual, "a")
				So(second.ID, ShouldEqual, "b")
			})

			Convey("Then closing still drains out and ends delivery", func() {
				So(q.Close(), ShouldBeNil)

				out := q.Dequeue(ctx)
				deadline := time.After(time.Second)
				received := 0
				for {
					select {
					case _, ok := <-out:
						if !ok {
							So(received, ShouldEqual, 2)
							return
						}
						received++
					case <-deadline:
						So("dequeue channel never closed", ShouldBeEmpty)
						return
					}
				}
			})
		})
	})
}
