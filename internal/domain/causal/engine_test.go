package causal_test

import (
	"context"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/matchpulse/matchpulse/internal/adapters/repository"
	"github.com/matchpulse/matchpulse/internal/domain/causal"
	"github.com/matchpulse/matchpulse/internal/domain/model"
	"github.com/matchpulse/matchpulse/internal/domain/types"
	"github.com/matchpulse/matchpulse/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func roundStartEvent(ts time.Time, round int) model.Event {
	return model.Event{
		Type:           model.EventRoundStart,
		Timestamp:      ts,
		TimestampValid: true,
		Payload:        model.RoundPayload{Round: round},
		RoundNumber:    round,
	}
}

func killEvent(ts time.Time, attacker, victim string) model.Event {
	return model.Event{
		Type:           model.EventKill,
		Timestamp:      ts,
		TimestampValid: true,
		Payload:        model.KillPayload{Attacker: attacker, Victim: victim, Weapon: "rifle"},
	}
}

func objectiveEvent(ts time.Time, action string) model.Event {
	return model.Event{
		Type:           model.EventObjective,
		Timestamp:      ts,
		TimestampValid: true,
		Payload:        model.ObjectivePayload{Location: "site-a", Action: action},
	}
}

func TestEngineInsightScenario(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine watching a match feed", t, func() {
		store := repository.NewRingStore()
		engine := causal.NewEngine(store)

		Convey("When player X dies six times early in their rounds", func() {
			base := time.Now()
			for i := 0; i < 6; i++ {
				start := base.Add(time.Duration(i) * time.Second)
				engine.ProcessEvent(ctx, roundStartEvent(start, i+1))
				engine.ProcessEvent(ctx, killEvent(start.Add(500*time.Millisecond), "home_a", "X"))
			}

			Convey("Then the impact history holds all six samples", func() {
				So(engine.ImpactSamples("X", model.EventKill), ShouldHaveLength, 6)
			})

			Convey("Then a high-priority insight mentioning X is emitted", func() {
				insights := engine.Insights(0)
				So(insights, ShouldNotBeEmpty)

				var found *types.ValidatedInsight
				for i := range insights {
					if strings.Contains(insights[i].MicroAction, "X") && insights[i].SampleSize == 6 {
						found = &insights[i]
						break
					}
				}
				So(found, ShouldNotBeNil)
				So(found.Priority, ShouldEqual, types.PriorityHigh)
				So(found.PValue, ShouldBeLessThan, 0.05)

				Convey("And the insight round-trips its sample size", func() {
					So(found.SampleSize, ShouldEqual, len(engine.ImpactSamples("X", model.EventKill)))
				})

				Convey("And the confidence interval brackets the mean", func() {
					ci := found.ConfidenceInterval
					So(ci.Lower, ShouldBeLessThanOrEqualTo, ci.Mean)
					So(ci.Mean, ShouldBeLessThanOrEqualTo, ci.Upper)
				})
			})

			Convey("Then the causal graph links early deaths to round loss risk", func() {
				paths := engine.StrongestPaths(3)
				So(paths, ShouldNotBeEmpty)
				So(paths[0].Macro, ShouldEqual, "round loss risk")
			})
		})

		Convey("When the significance bar is raised beyond reach", func() {
			strict := causal.NewEngine(repository.NewRingStore(),
				causal.WithSignificanceLevel(1e-9))

			base := time.Now()
			for i := 0; i < 6; i++ {
				start := base.Add(time.Duration(i) * time.Second)
				strict.ProcessEvent(ctx, roundStartEvent(start, i+1))
				strict.ProcessEvent(ctx, killEvent(start.Add(500*time.Millisecond), "home_a", "X"))
			}

			Convey("Then the same evidence emits no insights", func() {
				So(strict.ImpactSamples("X", model.EventKill), ShouldHaveLength, 6)
				So(strict.Insights(0), ShouldBeEmpty)
			})
		})

		Convey("When fewer than five samples exist", func() {
			base := time.Now()
			for i := 0; i < 3; i++ {
				start := base.Add(time.Duration(i) * time.Second)
				engine.ProcessEvent(ctx, roundStartEvent(start, i+1))
				engine.ProcessEvent(ctx, killEvent(start.Add(500*time.Millisecond), "home_a", "Y"))
			}

			Convey("Then no insight is emitted for Y", func() {
				for _, ins := range engine.Insights(0) {
					So(strings.Contains(ins.MicroAction, "Y"), ShouldBeFalse)
				}
			})
		})
	})
}

func TestEngineStrategyDebt(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine at round start", t, func() {
		store := repository.NewRingStore()
		engine := causal.NewEngine(store)

		now := time.Now()
		engine.ProcessEvent(ctx, roundStartEvent(now.Add(-2*time.Second), 1))

		Convey("When an objective is lost in the early phase", func() {
			engine.ProcessEvent(ctx, objectiveEvent(now.Add(-1*time.Second), "lost"))

			Convey("Then debt grows by exactly 15 times the early multiplier", func() {
				debt := engine.Debt()
				So(debt.Total, ShouldAlmostEqual, 15*1.3, 1e-9)
				So(debt.Breakdown.Tactical, ShouldAlmostEqual, 15*1.3, 1e-9)
				So(debt.Items, ShouldHaveLength, 1)
			})

			Convey("Then the win probability is nudged down but stays clamped", func() {
				p := engine.Probability()
				So(p, ShouldBeLessThan, 0.5)
				So(p, ShouldBeGreaterThanOrEqualTo, 0.05)
			})
		})

		Convey("When an objective is lost in the late phase", func() {
			lateEngine := causal.NewEngine(repository.NewRingStore(),
				causal.WithMaxEventAge(10*time.Minute))
			start := now.Add(-3 * time.Minute)
			lateEngine.ProcessEvent(ctx, roundStartEvent(start, 1))
			lateEngine.ProcessEvent(ctx, objectiveEvent(start.Add(2*time.Minute), "lost"))

			Convey("Then the late multiplier discounts the debt", func() {
				So(lateEngine.Debt().Total, ShouldAlmostEqual, 15*0.8, 1e-9)
			})
		})

		Convey("When mistakes pile up far past the cap", func() {
			base := time.Now()
			for i := 0; i < 50; i++ {
				start := base.Add(time.Duration(i) * time.Second)
				engine.ProcessEvent(ctx, roundStartEvent(start, i+2))
				engine.ProcessEvent(ctx, objectiveEvent(start.Add(time.Second), "lost"))
			}

			Convey("Then the total stays within [0, 100]", func() {
				debt := engine.Debt()
				So(debt.Total, ShouldBeGreaterThanOrEqualTo, 0)
				So(debt.Total, ShouldBeLessThanOrEqualTo, 100)
			})

			Convey("Then the probability stays within [0.05, 0.95]", func() {
				So(engine.Probability(), ShouldBeGreaterThanOrEqualTo, 0.05)
				So(engine.Probability(), ShouldBeLessThanOrEqualTo, 0.95)
			})
		})
	})
}

func TestEngineGates(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with default gates", t, func() {
		store := repository.NewRingStore()
		engine := causal.NewEngine(store)

		Convey("When an event arrives 30 seconds late", func() {
			stale := killEvent(time.Now().Add(-30*time.Second), "home_a", "X")
			engine.ProcessEvent(ctx, stale)

			Convey("Then it is dropped and never stored", func() {
				So(store.Size(ctx), ShouldEqual, 0)
				So(engine.ImpactSamples("X", model.EventKill), ShouldBeEmpty)
			})
		})

		Convey("When a kill event is missing most required fields", func() {
			dirty := model.Event{
				Type:           model.EventKill,
				Timestamp:      time.Now(),
				TimestampValid: true,
				Payload:        model.KillPayload{Attacker: "home_a"},
			}
			engine.ProcessEvent(ctx, dirty)

			Convey("Then the quality gate drops it", func() {
				So(store.Size(ctx), ShouldEqual, 0)
			})
		})

		Convey("When a healthy event arrives", func() {
			engine.ProcessEvent(ctx, killEvent(time.Now(), "home_a", "X"))

			Convey("Then features for both sides of the duel are stored", func() {
				So(store.Size(ctx), ShouldEqual, 2)
			})
		})
	})
}

func TestEnginePhaseMachine(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with a relaxed staleness gate", t, func() {
		engine := causal.NewEngine(repository.NewRingStore(),
			causal.WithMaxEventAge(10*time.Minute))

		start := time.Now().Add(-5 * time.Minute)
		engine.ProcessEvent(ctx, roundStartEvent(start, 1))

		Convey("Then a fresh round begins early", func() {
			So(engine.Phase(), ShouldEqual, model.PhaseEarly)
			So(engine.Round(), ShouldEqual, 1)
		})

		Convey("When 45 seconds elapse", func() {
			engine.ProcessEvent(ctx, killEvent(start.Add(45*time.Second), "home_a", "X"))

			Convey("Then the phase is mid", func() {
				So(engine.Phase(), ShouldEqual, model.PhaseMid)
			})
		})

		Convey("When 2 minutes elapse", func() {
			engine.ProcessEvent(ctx, killEvent(start.Add(2*time.Minute), "home_a", "X"))

			Convey("Then the phase is late", func() {
				So(engine.Phase(), ShouldEqual, model.PhaseLate)
			})
		})

		Convey("When a new round starts", func() {
			engine.ProcessEvent(ctx, killEvent(start.Add(2*time.Minute), "home_a", "X"))
			engine.ProcessEvent(ctx, roundStartEvent(start.Add(3*time.Minute), 2))

			Convey("Then the phase re-enters early", func() {
				So(engine.Phase(), ShouldEqual, model.PhaseEarly)
				So(engine.Round(), ShouldEqual, 2)
			})
		})
	})
}

func TestEngineReset(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with accumulated state", t, func() {
		store := repository.NewRingStore()
		engine := causal.NewEngine(store)

		now := time.Now()
		engine.ProcessEvent(ctx, roundStartEvent(now.Add(-2*time.Second), 1))
		engine.ProcessEvent(ctx, objectiveEvent(now.Add(-1*time.Second), "lost"))
		engine.ProcessEvent(ctx, killEvent(now, "home_a", "X"))

		Convey("When the session resets", func() {
			engine.Reset(ctx)

			Convey("Then all state is cleared", func() {
				So(engine.Debt().Total, ShouldEqual, 0)
				So(engine.Probability(), ShouldEqual, 0.5)
				So(engine.Round(), ShouldEqual, 0)
				So(engine.Insights(0), ShouldBeEmpty)
				So(engine.GraphNodes(), ShouldBeEmpty)
				So(store.Size(ctx), ShouldEqual, 0)
			})
		})
	})
}

func TestEngineInsightSink(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with a registered insight sink", t, func() {
		var received []types.ValidatedInsight
		engine := causal.NewEngine(repository.NewRingStore(),
			causal.WithInsightSink(func(ins types.ValidatedInsight) {
				received = append(received, ins)
			}),
		)

		Convey("When enough evidence accumulates", func() {
			base := time.Now()
			for i := 0; i < 6; i++ {
				start := base.Add(time.Duration(i) * time.Second)
				engine.ProcessEvent(ctx, roundStartEvent(start, i+1))
				engine.ProcessEvent(ctx, killEvent(start.Add(500*time.Millisecond), "home_a", "X"))
			}

			Convey("Then the sink observes the emitted insights", func() {
				So(received, ShouldNotBeEmpty)
			})
		})

		Convey("When the sink panics", func() {
			panicky := causal.NewEngine(repository.NewRingStore(),
				causal.WithInsightSink(func(types.ValidatedInsight) {
					panic("subscriber bug")
				}),
			)

			base := time.Now()
			run := func() {
				for i := 0; i < 6; i++ {
					start := base.Add(time.Duration(i) * time.Second)
					panicky.ProcessEvent(ctx, roundStartEvent(start, i+1))
					panicky.ProcessEvent(ctx, killEvent(start.Add(500*time.Millisecond), "home_a", "X"))
				}
			}

			Convey("Then processing continues regardless", func() {
				So(run, ShouldNotPanic)
				So(panicky.ImpactSamples("X", model.EventKill), ShouldHaveLength, 6)
			})
		})
	})
}
