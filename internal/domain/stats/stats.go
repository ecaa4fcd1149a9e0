// Package stats provides the hypothesis-testing and interval-estimation
// utilities that gate every insight the pipeline emits. All functions are
// pure; callers keep whatever state they need.
//
// Anything that can be read as "not enough evidence" degrades to a
// non-significant default instead of failing, so callers can branch
// uniformly. Contract errors (mismatched shapes) fail immediately.
package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/matchpulse/matchpulse/internal/domain/types"
)

// Decision thresholds, fixed across the system.
const (
	// DefaultAlpha is the significance level: reject the null when p < alpha.
	DefaultAlpha = 0.05
	// DefaultConfidenceLevel for interval estimation.
	DefaultConfidenceLevel = 0.95

	minGroupSize       = 3
	minCorrelationSize = 10
	outlierSigma       = 3.0
	cusumSlackSigma    = 0.5
)

// TestResult is the uniform outcome of a hypothesis test.
type TestResult struct {
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
	EffectSize  float64 `json:"effect_size"`
}

// notSignificant is the safe default returned when a test lacks evidence.
func notSignificant() TestResult {
	return TestResult{PValue: 1.0, Significant: false, EffectSize: 0}
}

// Significant applies the system-wide decision rule.
func Significant(pValue float64) bool {
	return pValue < DefaultAlpha
}

// ConfidenceInterval computes a Student's t interval around the sample mean.
// Fails with ErrInsufficientSample when fewer than 2 samples are given.
func ConfidenceInterval(samples []float64, level float64) (types.ConfidenceInterval, error) {
	n := len(samples)
	if n < 2 {
		return types.ConfidenceInterval{}, fmt.Errorf("confidence interval needs >=2 samples, got %d: %w", n, ErrInsufficientSample)
	}
	if level <= 0 || level >= 1 {
		level = DefaultConfidenceLevel
	}

	mean := stat.Mean(samples, nil)
	sd := stat.StdDev(samples, nil)

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	critical := t.Quantile(1 - (1-level)/2)
	margin := critical * sd / math.Sqrt(float64(n))

	return types.ConfidenceInterval{
		Lower: mean - margin,
		Upper: mean + margin,
		Mean:  mean,
	}, nil
}

// RankSumTest runs a two-sided Mann-Whitney U test with a normal
// approximation. Groups smaller than 3 yield the non-significant default
// rather than an error. EffectSize is the rank-biserial correlation.
func RankSumTest(groupA, groupB []float64) TestResult {
	n1, n2 := len(groupA), len(groupB)
	if n1 < minGroupSize || n2 < minGroupSize {
		return notSignificant()
	}

	ranks := averageRanks(groupA, groupB)
	var r1 float64
	for i := 0; i < n1; i++ {
		r1 += ranks[i]
	}

	u1 := r1 - float64(n1*(n1+1))/2
	u2 := float64(n1*n2) - u1
	u := math.Min(u1, u2)

	mu := float64(n1*n2) / 2
	sigma := math.Sqrt(float64(n1*n2*(n1+n2+1)) / 12)
	if sigma == 0 {
		return notSignificant()
	}

	// Continuity-corrected z for the two-sided alternative.
	z := (u - mu + 0.5) / sigma
	normal := distuv.Normal{Mu: 0, Sigma: 1}
	p := 2 * normal.CDF(-math.Abs(z))
	if p > 1 {
		p = 1
	}

	effect := 1 - 2*u/float64(n1*n2)

	return TestResult{
		PValue:      p,
		Significant: Significant(p),
		EffectSize:  effect,
	}
}

// averageRanks ranks the pooled samples, assigning tied values their
// average rank. The first len(groupA) entries belong to groupA.
func averageRanks(groupA, groupB []float64) []float64 {
	n := len(groupA) + len(groupB)
	pooled := make([]float64, 0, n)
	pooled = append(pooled, groupA...)
	pooled = append(pooled, groupB...)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return pooled[idx[a]] < pooled[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && pooled[idx[j+1]] == pooled[idx[i]] {
			j++
		}
		avg := float64(i+j+2) / 2 // ranks are 1-based
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// ChiSquareTest compares observed against expected frequencies. Fails with
// ErrShapeMismatch when the arrays differ in length or are empty.
func ChiSquareTest(observed, expected []float64) (TestResult, error) {
	if len(observed) != len(expected) || len(observed) == 0 {
		return TestResult{}, fmt.Errorf("chi-square observed/expected lengths %d/%d: %w",
			len(observed), len(expected), ErrShapeMismatch)
	}

	var chi2 float64
	for i := range observed {
		if expected[i] <= 0 {
			continue
		}
		diff := observed[i] - expected[i]
		chi2 += diff * diff / expected[i]
	}

	df := float64(len(observed) - 1)
	if df < 1 {
		return notSignificant(), nil
	}

	dist := distuv.ChiSquared{K: df}
	p := 1 - dist.CDF(chi2)

	// Cramer's V as the effect size.
	total := 0.0
	for _, o := range observed {
		total += o
	}
	effect := 0.0
	if total > 0 && df > 0 {
		effect = math.Sqrt(chi2 / (total * df))
	}

	return TestResult{
		PValue:      p,
		Significant: Significant(p),
		EffectSize:  effect,
	}, nil
}

// CorrelationTest computes Pearson's r with a t-based p-value. Fewer than
// 10 paired samples yield the non-significant default; mismatched lengths
// are a contract error.
func CorrelationTest(x, y []float64) (TestResult, error) {
	if len(x) != len(y) {
		return TestResult{}, fmt.Errorf("correlation input lengths %d/%d: %w", len(x), len(y), ErrShapeMismatch)
	}
	n := len(x)
	if n < minCorrelationSize {
		return notSignificant(), nil
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return notSignificant(), nil
	}
	// Guard the degenerate perfectly-correlated case.
	if math.Abs(r) >= 1 {
		return TestResult{PValue: 0, Significant: true, EffectSize: r}, nil
	}

	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	p := 2 * dist.CDF(-math.Abs(t))

	return TestResult{
		PValue:      p,
		Significant: Significant(p),
		EffectSize:  r,
	}, nil
}

// ChangeDirection reports which side of the target a CUSUM shift crossed.
type ChangeDirection string

const (
	ShiftUp   ChangeDirection = "up"
	ShiftDown ChangeDirection = "down"
)

// ChangePoint marks a detected mean shift in a series.
type ChangePoint struct {
	Index     int             `json:"index"`
	Direction ChangeDirection `json:"direction"`
}

// CUSUMDetection runs a two-sided cumulative-sum control chart over series
// against target. Slack is 0.5 sigma; the decision threshold is
// thresholdSigma * sigma, with sigma estimated from the series itself.
// The accumulators reset after each detection so repeated shifts are
// reported separately.
func CUSUMDetection(series []float64, target, thresholdSigma float64) []ChangePoint {
	if len(series) < 2 {
		return nil
	}

	sigma := stat.StdDev(series, nil)
	if sigma == 0 || math.IsNaN(sigma) {
		return nil
	}

	slack := cusumSlackSigma * sigma
	threshold := thresholdSigma * sigma

	var points []ChangePoint
	var hi, lo float64
	for i, x := range series {
		hi = math.Max(0, hi+x-target-slack)
		lo = math.Max(0, lo+target-x-slack)

		if hi > threshold {
			points = append(points, ChangePoint{Index: i, Direction: ShiftUp})
			hi, lo = 0, 0
			continue
		}
		if lo > threshold {
			points = append(points, ChangePoint{Index: i, Direction: ShiftDown})
			hi, lo = 0, 0
		}
	}
	return points
}

// IsOutlier applies the 3-sigma rule against dataset. Fewer than 3 points
// is not enough evidence, so nothing is an outlier.
func IsOutlier(value float64, dataset []float64) bool {
	if len(dataset) < minGroupSize {
		return false
	}
	mean := stat.Mean(dataset, nil)
	sd := stat.StdDev(dataset, nil)
	if sd == 0 {
		return value != mean
	}
	return math.Abs(value-mean) > outlierSigma*sd
}

// IsDataFresh reports whether a timestamp is within maxAge of now.
func IsDataFresh(timestamp, now time.Time, maxAge time.Duration) bool {
	if timestamp.IsZero() {
		return false
	}
	return now.Sub(timestamp) <= maxAge
}
