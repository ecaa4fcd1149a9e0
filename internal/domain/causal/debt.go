package causal

import (
	"fmt"
	"time"

	"github.com/matchpulse/matchpulse/internal/domain/model"
	"github.com/matchpulse/matchpulse/internal/domain/types"
)

// Debt accumulation constants.
const (
	debtTotalCap = 100.0
	// debtItemCap bounds any single source's contribution so one repeated
	// mistake cannot saturate the whole score.
	debtItemCap = 20.0
	debtScale   = 100.0

	earlyPhaseMultiplier = 1.3
	midPhaseMultiplier   = 1.0
	latePhaseMultiplier  = 0.8

	maxDebtItems = 100
)

// PhaseMultiplier biases early-game mistakes higher and late-game mistakes
// lower, reflecting their asymmetric compounding cost.
func PhaseMultiplier(phase model.Phase) float64 {
	switch phase {
	case model.PhaseEarly:
		return earlyPhaseMultiplier
	case model.PhaseLate:
		return latePhaseMultiplier
	default:
		return midPhaseMultiplier
	}
}

// debtCategory maps an event type to its debt bucket.
func debtCategory(eventType model.EventType) string {
	switch eventType {
	case model.EventKill:
		return "individual"
	case model.EventUtility:
		return "team"
	case model.EventObjective:
		return "tactical"
	case model.EventEconomy:
		return "economic"
	default:
		return "team"
	}
}

// DebtTracker accumulates strategy debt from negative-impact events.
// Total never goes negative and is capped. Reset at session boundaries.
type DebtTracker struct {
	total     float64
	breakdown types.StrategyDebtBreakdown
	items     []types.StrategyDebtItem
}

// NewDebtTracker creates an empty tracker.
func NewDebtTracker() *DebtTracker {
	return &DebtTracker{}
}

// Add converts a negative impact into debt: |impact| * 100, scaled by the
// phase multiplier, capped per source and in total. Returns the amount
// actually added. Non-negative impacts add nothing.
func (d *DebtTracker) Add(source string, eventType model.EventType, phase model.Phase, impact float64, ts time.Time) float64 {
	if impact >= 0 {
		return 0
	}

	amount := -impact * debtScale * PhaseMultiplier(phase)
	if amount > debtItemCap {
		amount = debtItemCap
	}
	if d.total+amount > debtTotalCap {
		amount = debtTotalCap - d.total
	}
	if amount <= 0 {
		return 0
	}

	category := debtCategory(eventType)
	d.total += amount
	switch category {
	case "individual":
		d.breakdown.Individual += amount
	case "team":
		d.breakdown.Team += amount
	case "tactical":
		d.breakdown.Tactical += amount
	case "economic":
		d.breakdown.Economic += amount
	}

	d.items = append(d.items, types.StrategyDebtItem{
		Source:         source,
		Category:       category,
		Phase:          phase,
		Amount:         amount,
		Recommendation: debtRecommendation(category, source),
		Timestamp:      ts,
	})
	if len(d.items) > maxDebtItems {
		d.items = d.items[len(d.items)-maxDebtItems:]
	}

	return amount
}

func debtRecommendation(category, source string) string {
	switch category {
	case "individual":
		return fmt.Sprintf("review individual play around %q and tighten positioning", source)
	case "team":
		return fmt.Sprintf("coordinate utility and trades around %q", source)
	case "tactical":
		return fmt.Sprintf("re-evaluate map control decisions behind %q", source)
	case "economic":
		return fmt.Sprintf("adjust buy discipline contributing to %q", source)
	default:
		return "review recent play"
	}
}

// Total returns the current capped debt total.
func (d *DebtTracker) Total() float64 { return d.total }

// Snapshot returns the current debt state.
func (d *DebtTracker) Snapshot() types.StrategyDebt {
	items := make([]types.StrategyDebtItem, len(d.items))
	copy(items, d.items)
	return types.StrategyDebt{
		Total:     d.total,
		Breakdown: d.breakdown,
		Items:     items,
	}
}

// Reset clears all accumulated debt.
func (d *DebtTracker) Reset() {
	d.total = 0
	d.breakdown = types.StrategyDebtBreakdown{}
	d.items = nil
}
