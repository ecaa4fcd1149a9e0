// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; files and env vars layer on top via Load.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// FeedURL is the websocket endpoint of the live event source.
	FeedURL string `koanf:"feed_url"`

	// FeedReconnectBackoffMS is the pause between reconnect attempts.
	FeedReconnectBackoffMS int `koanf:"feed_reconnect_backoff_ms"`

	// FeedHeartbeatMS is the max feed silence before a forced reconnect.
	FeedHeartbeatMS int `koanf:"feed_heartbeat_ms"`

	// FeedPollIntervalMS is the cadence of the degraded-mode poll loop.
	FeedPollIntervalMS int `koanf:"feed_poll_interval_ms"`

	// FeedDegradedAfter is the consecutive dial failures before polling.
	FeedDegradedAfter int `koanf:"feed_degraded_after"`

	// FeedLatencyWarnMS is the receive latency that logs a delayed frame.
	FeedLatencyWarnMS int `koanf:"feed_latency_warn_ms"`

	// QueueSize bounds the in-memory event queue.
	QueueSize int `koanf:"queue_size"`

	// FeatureStoreCapacity bounds the temporal feature ring.
	FeatureStoreCapacity int `koanf:"feature_store_capacity"`

	// MaxEventAgeMS drops events older than this at the analysis gate.
	MaxEventAgeMS int `koanf:"max_event_age_ms"`

	// MinQuality is the completeness score below which events are dropped.
	MinQuality float64 `koanf:"min_quality"`

	// MinSampleSize gates insight emission.
	MinSampleSize int `koanf:"min_sample_size"`

	// ConfidenceLevel sets the width of reported confidence intervals.
	ConfidenceLevel float64 `koanf:"confidence_level"`

	// SignificanceLevel is the p-value threshold for emitting insights.
	SignificanceLevel float64 `koanf:"significance_level"`

	// MaxProcessingLatencyMS marks event handling as degraded beyond this
	// and flags slow worker processing.
	MaxProcessingLatencyMS int `koanf:"max_processing_latency_ms"`

	// ImpactWindow bounds per-actor impact history.
	ImpactWindow int `koanf:"impact_window"`

	// InsightCap bounds the retained insight log.
	InsightCap int `koanf:"insight_cap"`

	// NudgeFactor scales the per-debt win-probability adjustment.
	NudgeFactor float64 `koanf:"nudge_factor"`

	// HomePrefix marks actor IDs belonging to the tracked side.
	HomePrefix string `koanf:"home_prefix"`

	// PatternMinOccurrences and PatternMinConfidence gate pattern findings.
	PatternMinOccurrences int     `koanf:"pattern_min_occurrences"`
	PatternMinConfidence  float64 `koanf:"pattern_min_confidence"`

	// PatternSequenceWindow sets the sliding-window size for sequences.
	PatternSequenceWindow int `koanf:"pattern_sequence_window"`

	// WinProbHistorySize bounds the estimate history for trend queries.
	WinProbHistorySize int `koanf:"winprob_history_size"`

	// MonteCarloSamples sets the uncertainty sampling count.
	MonteCarloSamples int `koanf:"monte_carlo_samples"`

	// MetricsNamespace prefixes exported metric names.
	MetricsNamespace string `koanf:"metrics_namespace"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":8080",
		FeedURL:                "ws://localhost:9001/feed",
		FeedReconnectBackoffMS: 3000,
		FeedHeartbeatMS:        10_000,
		FeedPollIntervalMS:     5000,
		FeedDegradedAfter:      5,
		FeedLatencyWarnMS:      500,
		QueueSize:              10_000,
		FeatureStoreCapacity:   1000,
		MaxEventAgeMS:          10_000,
		MinQuality:             0.7,
		MinSampleSize:          5,
		ConfidenceLevel:        0.95,
		SignificanceLevel:      0.05,
		MaxProcessingLatencyMS: 500,
		ImpactWindow:           20,
		InsightCap:             200,
		NudgeFactor:            0.002,
		HomePrefix:             "home",
		PatternMinOccurrences:  3,
		PatternMinConfidence:   0.65,
		PatternSequenceWindow:  3,
		WinProbHistorySize:     100,
		MonteCarloSamples:      1000,
		MetricsNamespace:       "matchpulse",
	}
}
