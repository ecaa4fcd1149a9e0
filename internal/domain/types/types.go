// Package types contains common result shapes shared across layers.
package types

import (
	"time"

	"github.com/matchpulse/matchpulse/internal/domain/model"
)

// Priority ranks how urgently an insight should be acted on.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Trend describes the direction of the win-probability estimate.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// ConfidenceInterval is a Student's t interval around a sample mean.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Mean  float64 `json:"mean"`
}

// ValidatedInsight is a causal finding that passed the significance gate.
// Immutable once emitted.
type ValidatedInsight struct {
	ID                 string             `json:"id"`
	MicroAction        string             `json:"micro_action"`
	MacroOutcome       string             `json:"macro_outcome"`
	CausalWeight       float64            `json:"causal_weight"`
	Recommendation     string             `json:"recommendation"`
	Priority           Priority           `json:"priority"`
	PValue             float64            `json:"p_value"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	SampleSize         int                `json:"sample_size"`
	DataQuality        float64            `json:"data_quality"`
	Timestamp          time.Time          `json:"timestamp"`
}

// FactorContribution names one weighted input of the win-probability model.
type FactorContribution struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// WinProbabilityResult is the output of one win-probability computation.
type WinProbabilityResult struct {
	Probability float64              `json:"probability"` // clamped to [0.05, 0.95]
	Confidence  float64              `json:"confidence"`  // [0.3, 1]
	Factors     []FactorContribution `json:"factors"`
	Trend       Trend                `json:"trend"`
	Delta       float64              `json:"delta"`
	Timestamp   time.Time            `json:"timestamp"`
}

// StrategyDebtItem is one normalized, capped debt contribution.
type StrategyDebtItem struct {
	Source         string      `json:"source"`
	Category       string      `json:"category"` // individual, team, tactical, economic
	Phase          model.Phase `json:"phase"`
	Amount         float64     `json:"amount"`
	Recommendation string      `json:"recommendation"`
	Timestamp      time.Time   `json:"timestamp"`
}

// StrategyDebtBreakdown splits the total by category.
type StrategyDebtBreakdown struct {
	Individual float64 `json:"individual"`
	Team       float64 `json:"team"`
	Tactical   float64 `json:"tactical"`
	Economic   float64 `json:"economic"`
}

// StrategyDebt is the accumulated, capped mistake score. Total stays in
// [0, 100] after any sequence of events.
type StrategyDebt struct {
	Total     float64               `json:"total"`
	Breakdown StrategyDebtBreakdown `json:"breakdown"`
	Items     []StrategyDebtItem    `json:"items"`
}

// SyncStatus reports delivery-layer health, polled by monitoring surfaces.
type SyncStatus struct {
	IsConnected   bool            `json:"is_connected"`
	LastUpdate    time.Time       `json:"last_update"`
	LatencyMs     float64         `json:"latency_ms"`
	DataFreshness model.Freshness `json:"data_freshness"`
	QueueSize     int             `json:"queue_size"`
	ErrorCount    int64           `json:"error_count"`
}

// PerformanceMetrics summarizes recorded operation durations.
type PerformanceMetrics struct {
	Count    int     `json:"count"`
	AvgMs    float64 `json:"avg_ms"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	P95Ms    float64 `json:"p95_ms"`
	Degraded bool    `json:"degraded"`
}
