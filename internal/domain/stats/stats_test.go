package stats_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/matchpulse/matchpulse/internal/domain/stats"
)

func TestConfidenceInterval(t *testing.T) {
	Convey("Given a sample of measurements", t, func() {
		samples := []float64{2.1, 2.4, 1.9, 2.2, 2.0, 2.3, 2.5, 1.8}

		Convey("When computing a 95% confidence interval", func() {
			ci, err := stats.ConfidenceInterval(samples, 0.95)

			Convey("Then the mean sits inside the interval", func() {
				So(err, ShouldBeNil)
				So(ci.Lower, ShouldBeLessThanOrEqualTo, ci.Mean)
				So(ci.Mean, ShouldBeLessThanOrEqualTo, ci.Upper)
			})
		})

		Convey("When increasing the confidence level", func() {
			ci95, err95 := stats.ConfidenceInterval(samples, 0.95)
			ci99, err99 := stats.ConfidenceInterval(samples, 0.99)

			Convey("Then the interval widens", func() {
				So(err95, ShouldBeNil)
				So(err99, ShouldBeNil)
				So(ci99.Upper-ci99.Lower, ShouldBeGreaterThan, ci95.Upper-ci95.Lower)
			})
		})

		Convey("When fewer than two samples are given", func() {
			_, err := stats.ConfidenceInterval([]float64{1.0}, 0.95)

			Convey("Then it fails with ErrInsufficientSample", func() {
				So(errors.Is(err, stats.ErrInsufficientSample), ShouldBeTrue)
			})
		})
	})
}

func TestRankSumTest(t *testing.T) {
	Convey("Given two clearly separated groups", t, func() {
		groupA := []float64{10, 11, 12, 13, 14, 15}
		groupB := []float64{1, 2, 3, 4, 5, 6}

		Convey("When running the rank-sum test", func() {
			result := stats.RankSumTest(groupA, groupB)

			Convey("Then the difference is significant with a large effect", func() {
				So(result.PValue, ShouldBeLessThan, 0.05)
				So(result.Significant, ShouldBeTrue)
				So(result.EffectSize, ShouldBeGreaterThan, 0.9)
			})
		})
	})

	Convey("Given identical groups", t, func() {
		group := []float64{5, 5, 5, 5, 5}

		Convey("When running the rank-sum test", func() {
			result := stats.RankSumTest(group, group)

			Convey("Then no significance is claimed", func() {
				So(result.Significant, ShouldBeFalse)
			})
		})
	})

	Convey("Given groups below the minimum size", t, func() {
		Convey("When running the rank-sum test", func() {
			result := stats.RankSumTest([]float64{1, 2}, []float64{3, 4, 5})

			Convey("Then the non-significant default comes back", func() {
				So(result.Significant, ShouldBeFalse)
				So(result.PValue, ShouldEqual, 1.0)
				So(result.EffectSize, ShouldEqual, 0)
			})
		})
	})
}

func TestChiSquareTest(t *testing.T) {
	Convey("Given observed and expected frequency arrays", t, func() {
		Convey("When the arrays match the expectation closely", func() {
			result, err := stats.ChiSquareTest(
				[]float64{25, 24, 26, 25},
				[]float64{25, 25, 25, 25},
			)

			Convey("Then the deviation is not significant", func() {
				So(err, ShouldBeNil)
				So(result.Significant, ShouldBeFalse)
			})
		})

		Convey("When the observed counts deviate heavily", func() {
			result, err := stats.ChiSquareTest(
				[]float64{80, 5, 10, 5},
				[]float64{25, 25, 25, 25},
			)

			Convey("Then the deviation is significant", func() {
				So(err, ShouldBeNil)
				So(result.Significant, ShouldBeTrue)
				So(result.PValue, ShouldBeLessThan, 0.05)
			})
		})

		Convey("When the arrays differ in length", func() {
			_, err := stats.ChiSquareTest([]float64{1, 2}, []float64{1, 2, 3})

			Convey("Then it fails with ErrShapeMismatch", func() {
				So(errors.Is(err, stats.ErrShapeMismatch), ShouldBeTrue)
			})
		})
	})
}

func TestCorrelationTest(t *testing.T) {
	Convey("Given paired samples", t, func() {
		Convey("When x and y grow together", func() {
			x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
			y := []float64{2.1, 4.2, 5.9, 8.1, 9.8, 12.2, 13.9, 16.1, 18.0, 20.2, 21.9, 24.1}
			result, err := stats.CorrelationTest(x, y)

			Convey("Then a strong positive correlation is reported", func() {
				So(err, ShouldBeNil)
				So(result.EffectSize, ShouldBeGreaterThan, 0.99)
				So(result.Significant, ShouldBeTrue)
			})
		})

		Convey("When fewer than ten pairs are given", func() {
			result, err := stats.CorrelationTest([]float64{1, 2, 3}, []float64{4, 5, 6})

			Convey("Then the non-significant default comes back", func() {
				So(err, ShouldBeNil)
				So(result.Significant, ShouldBeFalse)
			})
		})

		Convey("When the lengths differ", func() {
			_, err := stats.CorrelationTest([]float64{1, 2}, []float64{1})

			Convey("Then it fails with ErrShapeMismatch", func() {
				So(errors.Is(err, stats.ErrShapeMismatch), ShouldBeTrue)
			})
		})
	})
}

func TestCUSUMDetection(t *testing.T) {
	Convey("Given a series with a step shift in the mean", t, func() {
		rng := rand.New(rand.NewSource(7))
		series := make([]float64, 0, 100)
		for i := 0; i < 50; i++ {
			series = append(series, rng.NormFloat64())
		}
		for i := 0; i < 50; i++ {
			series = append(series, 10+rng.NormFloat64())
		}

		Convey("When running CUSUM against a zero target", func() {
			points := stats.CUSUMDetection(series, 0, 4)

			Convey("Then an upward change point lands in the second segment", func() {
				So(len(points), ShouldBeGreaterThan, 0)
				found := false
				for _, p := range points {
					if p.Direction == stats.ShiftUp && p.Index >= 50 {
						found = true
						break
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})

	Convey("Given a flat series", t, func() {
		series := []float64{1, 1, 1, 1, 1, 1}

		Convey("When running CUSUM", func() {
			points := stats.CUSUMDetection(series, 1, 4)

			Convey("Then no change points are reported", func() {
				So(points, ShouldBeEmpty)
			})
		})
	})
}

func TestIsOutlier(t *testing.T) {
	Convey("Given a dataset with a tight spread", t, func() {
		dataset := []float64{10, 10.1, 9.9, 10.05, 9.95, 10.02, 9.98}

		Convey("Then a far value is an outlier", func() {
			So(stats.IsOutlier(15, dataset), ShouldBeTrue)
		})

		Convey("Then a near value is not", func() {
			So(stats.IsOutlier(10.03, dataset), ShouldBeFalse)
		})
	})

	Convey("Given fewer than three points", t, func() {
		Convey("Then nothing is flagged", func() {
			So(stats.IsOutlier(100, []float64{1, 2}), ShouldBeFalse)
		})
	})
}

func TestIsDataFresh(t *testing.T) {
	Convey("Given a freshness gate of 10 seconds", t, func() {
		now := time.Now()

		Convey("Then a recent timestamp is fresh", func() {
			So(stats.IsDataFresh(now.Add(-2*time.Second), now, 10*time.Second), ShouldBeTrue)
		})

		Convey("Then an old timestamp is not", func() {
			So(stats.IsDataFresh(now.Add(-30*time.Second), now, 10*time.Second), ShouldBeFalse)
		})

		Convey("Then a zero timestamp is never fresh", func() {
			So(stats.IsDataFresh(time.Time{}, now, 10*time.Second), ShouldBeFalse)
		})
	})
}
