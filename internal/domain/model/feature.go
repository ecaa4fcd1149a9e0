package model

import "time"

// Phase classifies elapsed time since the most recent round start.
type Phase string

const (
	PhaseEarly Phase = "early"
	PhaseMid   Phase = "mid"
	PhaseLate  Phase = "late"
)

// Phase transition thresholds, measured from round start.
const (
	EarlyPhaseMax = 30 * time.Second
	MidPhaseMax   = 90 * time.Second
)

// PhaseFor returns the phase for a given time since round start.
func PhaseFor(sinceRoundStart time.Duration) Phase {
	switch {
	case sinceRoundStart < EarlyPhaseMax:
		return PhaseEarly
	case sinceRoundStart < MidPhaseMax:
		return PhaseMid
	default:
		return PhaseLate
	}
}

// Outcome classifies the effect of an action.
type Outcome string

const (
	OutcomePositive Outcome = "positive"
	OutcomeNegative Outcome = "negative"
	OutcomeNeutral  Outcome = "neutral"
)

// TemporalFeature is a derived observation extracted from one event.
// Never mutated after creation.
type TemporalFeature struct {
	Timestamp   time.Time
	EventType   EventType
	ActorID     string
	ActionLabel string
	Phase       Phase
	Outcome     Outcome
	ImpactScore float64
	Context     map[string]string
}

// Freshness classifies how recently data was produced relative to now.
type Freshness string

const (
	FreshnessRealTime Freshness = "real-time"
	FreshnessDelayed  Freshness = "delayed"
	FreshnessStale    Freshness = "stale"
)

// Freshness classification thresholds.
const (
	RealTimeMax = 2 * time.Second
	DelayedMax  = 10 * time.Second
)

// ClassifyFreshness buckets the age of the most recent update.
func ClassifyFreshness(lastUpdate, now time.Time) Freshness {
	age := now.Sub(lastUpdate)
	switch {
	case age < RealTimeMax:
		return FreshnessRealTime
	case age < DelayedMax:
		return FreshnessDelayed
	default:
		return FreshnessStale
	}
}

// Score holds the running match score.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// GameState is the snapshot consumed by the win-probability estimator.
type GameState struct {
	RoundNumber          int     `json:"round_number"`
	Score                Score   `json:"score"`
	EconomyDiff          float64 `json:"economy_diff"`
	ManAdvantage         int     `json:"man_advantage"`
	ObjectivesControlled float64 `json:"objectives_controlled"` // fraction in [0,1]
	Phase                Phase   `json:"phase"`
	StrategyDebt         float64 `json:"strategy_debt"`
}
