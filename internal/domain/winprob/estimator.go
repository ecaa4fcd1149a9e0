// Package winprob estimates the home side's win probability from the
// current game state using a weighted-factor model with a sigmoid link.
package winprob

import (
	"math"
	"sync"
	"time"

	"github.com/matchpulse/matchpulse/internal/domain/model"
	"github.com/matchpulse/matchpulse/internal/domain/types"
	"github.com/matchpulse/matchpulse/pkg/metrics"
)

// Factor weights. They sum to 1 in absolute value; strategy debt pulls the
// estimate down, everything else describes the current board.
const (
	weightScore        = 0.25
	weightEconomy      = 0.20
	weightManAdvantage = 0.30
	weightObjectives   = 0.15
	weightDebt         = -0.10
)

// Default estimator configuration constants.
const (
	defaultScoreScale   = 4.0
	defaultEconomyScale = 4000.0
	defaultManAdvScale  = 5.0
	defaultHistorySize  = 100

	sigmoidSteepness = 4.0

	// MinProbability and MaxProbability clamp every estimate; the model
	// never claims certainty.
	MinProbability = 0.05
	MaxProbability = 0.95

	minConfidence    = 0.3
	confVarianceGain = 10.0

	trendDeadBand = 0.02

	debtScale = 100.0
)

// Factor names as reported in FactorContribution entries.
const (
	FactorScore        = "score"
	FactorEconomy      = "economy"
	FactorManAdvantage = "man_advantage"
	FactorObjectives   = "objectives"
	FactorDebt         = "strategy_debt"
)

// historyEntry is one retained estimate.
type historyEntry struct {
	probability float64
	timestamp   time.Time
}

// Estimator computes win probabilities and keeps a bounded history of its
// own estimates for trend queries. Safe for concurrent use.
type Estimator struct {
	mu sync.RWMutex

	scoreScale   float64
	economyScale float64
	manAdvScale  float64
	historySize  int

	mcSamples int
	mcNoise   float64
	mcSeed    int64

	history []historyEntry
	prev    float64
	hasPrev bool
}

// NewEstimator creates an estimator with configuration options.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		scoreScale:   defaultScoreScale,
		economyScale: defaultEconomyScale,
		manAdvScale:  defaultManAdvScale,
		historySize:  defaultHistorySize,
		mcSamples:    defaultMonteCarloSamples,
		mcNoise:      defaultNoiseScale,
		mcSeed:       defaultSeed,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// normalize maps the raw game state onto factor values in [-1, 1]
// (strategy debt lands in [0, 1]).
func (e *Estimator) normalize(state model.GameState) []types.FactorContribution {
	scoreDiff := float64(state.Score.Home - state.Score.Away)

	objectives := 2*state.ObjectivesControlled - 1
	objectives = clamp(objectives, -1, 1)

	manAdv := clamp(float64(state.ManAdvantage)/e.manAdvScale, -1, 1)

	debt := clamp(state.StrategyDebt/debtScale, 0, 1)

	factors := []types.FactorContribution{
		{Name: FactorScore, Value: math.Tanh(scoreDiff / e.scoreScale), Weight: weightScore},
		{Name: FactorEconomy, Value: math.Tanh(state.EconomyDiff / e.economyScale), Weight: weightEconomy},
		{Name: FactorManAdvantage, Value: manAdv, Weight: weightManAdvantage},
		{Name: FactorObjectives, Value: objectives, Weight: weightObjectives},
		{Name: FactorDebt, Value: debt, Weight: weightDebt},
	}
	for i := range factors {
		factors[i].Contribution = factors[i].Weight * factors[i].Value
	}

	return factors
}

// combine folds factor contributions through the sigmoid link and clamps.
func combine(factors []types.FactorContribution) float64 {
	var sum float64
	for i := range factors {
		sum += factors[i].Contribution
	}
	p := 1 / (1 + math.Exp(-sigmoidSteepness*sum))
	return clamp(p, MinProbability, MaxProbability)
}

// confidence shrinks as factor contributions disagree with each other.
func confidence(factors []types.FactorContribution) float64 {
	if len(factors) == 0 {
		return minConfidence
	}

	var mean float64
	for i := range factors {
		mean += factors[i].Contribution
	}
	mean /= float64(len(factors))

	var variance float64
	for i := range factors {
		d := factors[i].Contribution - mean
		variance += d * d
	}
	variance /= float64(len(factors))

	c := 1 - confVarianceGain*variance
	return clamp(c, minConfidence, 1)
}

// Estimate computes the current win probability from the game state and
// records it in the trend history.
func (e *Estimator) Estimate(state model.GameState) types.WinProbabilityResult {
	factors := e.normalize(state)
	p := combine(factors)

	e.mu.Lock()
	defer e.mu.Unlock()

	trend := types.TrendStable
	var delta float64
	if e.hasPrev {
		delta = p - e.prev
		switch {
		case delta > trendDeadBand:
			trend = types.TrendIncreasing
		case delta < -trendDeadBand:
			trend = types.TrendDecreasing
		}
	}
	e.prev = p
	e.hasPrev = true

	now := time.Now()
	e.history = append(e.history, historyEntry{probability: p, timestamp: now})
	if len(e.history) > e.historySize {
		e.history = e.history[len(e.history)-e.historySize:]
	}

	metrics.UpdateWinProbability(p)

	return types.WinProbabilityResult{
		Probability: p,
		Confidence:  confidence(factors),
		Factors:     factors,
		Trend:       trend,
		Delta:       delta,
		Timestamp:   now,
	}
}

// MovingAverage averages the most recent n estimates. With n <= 0 the whole
// history is used.
func (e *Estimator) MovingAverage(n int) (float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.history) == 0 {
		return 0, ErrNoHistory
	}
	if n <= 0 || n > len(e.history) {
		n = len(e.history)
	}

	var sum float64
	for _, entry := range e.history[len(e.history)-n:] {
		sum += entry.probability
	}
	return sum / float64(n), nil
}

// HistorySize reports how many estimates are currently retained.
func (e *Estimator) HistorySize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.history)
}

// Reset clears the history and trend state.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
	e.prev = 0
	e.hasPrev = false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
