package winprob

// Monte Carlo defaults. Sampling happens off the per-event hot path.
const (
	defaultMonteCarloSamples = 1000
	defaultNoiseScale        = 0.1
	defaultSeed              = 1
)

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithScoreScale sets the tanh scale for the score differential.
func WithScoreScale(s float64) Option {
	return func(e *Estimator) {
		if s > 0 {
			e.scoreScale = s
		}
	}
}

// WithEconomyScale sets the tanh scale for the economy differential.
func WithEconomyScale(s float64) Option {
	return func(e *Estimator) {
		if s > 0 {
			e.economyScale = s
		}
	}
}

// WithManAdvantageScale sets the divisor normalizing the man advantage.
func WithManAdvantageScale(s float64) Option {
	return func(e *Estimator) {
		if s > 0 {
			e.manAdvScale = s
		}
	}
}

// WithHistorySize bounds the retained estimate history.
func WithHistorySize(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.historySize = n
		}
	}
}

// WithMonteCarloSamples sets the sample count for Uncertainty.
func WithMonteCarloSamples(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.mcSamples = n
		}
	}
}

// WithNoiseScale bounds the factor perturbation used by Uncertainty.
func WithNoiseScale(s float64) Option {
	return func(e *Estimator) {
		if s > 0 {
			e.mcNoise = s
		}
	}
}

// WithSeed fixes the Monte Carlo random source, for reproducible runs.
func WithSeed(seed int64) Option {
	return func(e *Estimator) {
		e.mcSeed = seed
	}
}
