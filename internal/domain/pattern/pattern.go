// Package pattern implements the batch scanner that surfaces longer-horizon
// findings from the temporal feature store: recurring mistakes, success
// sequences, phase vulnerabilities, and strengths.
package pattern

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/matchpulse/matchpulse/internal/domain/model"
	"github.com/matchpulse/matchpulse/pkg/metrics"
)

// Default analyzer configuration constants.
const (
	defaultMinOccurrences = 3
	defaultMinConfidence  = 0.65
	defaultSequenceWindow = 3

	maxConfidence      = 0.95
	baseConfidence     = 0.5
	confidencePerCount = 0.1

	successChainLength = 3
	successChainWindow = 60 * time.Second

	strengthImpactMin = 0.6

	problematicAvgImpact = -0.3

	scorePerImpact   = 10.0
	scoreCap         = 100.0
	consistencyScale = 20.0
)

// Category labels one kind of finding.
type Category string

const (
	CategoryMistake       Category = "recurring_mistake"
	CategorySequence      Category = "success_sequence"
	CategoryVulnerability Category = "phase_vulnerability"
	CategoryStrength      Category = "strength"
)

// Occurrence tracks one grouped pattern while scanning. Mutated in place as
// matching features arrive.
type Occurrence struct {
	Key              string    `json:"key"`
	Count            int       `json:"count"`
	CumulativeImpact float64   `json:"cumulative_impact"`
	LastSeen         time.Time `json:"last_seen"`
}

// Finding is one surfaced pattern.
type Finding struct {
	Category    Category    `json:"category"`
	ActorID     string      `json:"actor_id,omitempty"`
	ActionLabel string      `json:"action_label,omitempty"`
	Phase       model.Phase `json:"phase,omitempty"`
	Occurrences int         `json:"occurrences"`
	Impact      float64     `json:"impact"`
	Confidence  float64     `json:"confidence"`
	Description string      `json:"description"`
}

// SequencePattern is a repeating action subsequence found by the sliding
// window detector.
type SequencePattern struct {
	Actions     []string `json:"actions"`
	Count       int      `json:"count"`
	AvgImpact   float64  `json:"avg_impact"`
	Problematic bool     `json:"problematic"`
}

// PlayerSummary combines per-player risk, strength, and consistency.
type PlayerSummary struct {
	ActorID       string  `json:"actor_id"`
	RiskScore     float64 `json:"risk_score"`
	StrengthScore float64 `json:"strength_score"`
	Consistency   float64 `json:"consistency"`
}

// Analysis groups all findings from one batch run.
type Analysis struct {
	Mistakes        []Finding `json:"mistakes"`
	Sequences       []Finding `json:"sequences"`
	Vulnerabilities []Finding `json:"vulnerabilities"`
	Strengths       []Finding `json:"strengths"`
}

// Analyzer scans feature snapshots. Stateless between runs; safe to share.
type Analyzer struct {
	minOccurrences int
	minConfidence  float64
	sequenceWindow int
}

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithMinOccurrences sets the occurrence floor for surfacing a finding.
func WithMinOccurrences(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.minOccurrences = n
		}
	}
}

// WithMinConfidence sets the confidence floor for surfacing a finding.
func WithMinConfidence(c float64) Option {
	return func(a *Analyzer) {
		if c > 0 && c <= 1 {
			a.minConfidence = c
		}
	}
}

// WithSequenceWindow sets the sliding-window size for subsequence detection.
func WithSequenceWindow(n int) Option {
	return func(a *Analyzer) {
		if n > 1 {
			a.sequenceWindow = n
		}
	}
}

// NewAnalyzer creates an analyzer with configuration options.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		minOccurrences: defaultMinOccurrences,
		minConfidence:  defaultMinConfidence,
		sequenceWindow: defaultSequenceWindow,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// countConfidence grows with occurrences and saturates below certainty.
func countConfidence(count int) float64 {
	return math.Min(maxConfidence, baseConfidence+confidencePerCount*float64(count))
}

// Analyze runs all four detectors over a snapshot of features.
func (a *Analyzer) Analyze(features []model.TemporalFeature) Analysis {
	metrics.RecordPatternScan()
	return Analysis{
		Mistakes:        a.recurringMistakes(features),
		Sequences:       a.successSequences(features),
		Vulnerabilities: a.phaseVulnerabilities(features),
		Strengths:       a.strengths(features),
	}
}

// recurringMistakes groups negative features by (actor, action label).
func (a *Analyzer) recurringMistakes(features []model.TemporalFeature) []Finding {
	groups := make(map[string]*Occurrence)
	for i := range features {
		f := &features[i]
		if f.Outcome != model.OutcomeNegative {
			continue
		}
		key := f.ActorID + "|" + f.ActionLabel
		occ, ok := groups[key]
		if !ok {
			occ = &Occurrence{Key: key}
			groups[key] = occ
		}
		occ.Count++
		occ.CumulativeImpact += f.ImpactScore
		if f.Timestamp.After(occ.LastSeen) {
			occ.LastSeen = f.Timestamp
		}
	}

	var findings []Finding
	for key, occ := range groups {
		conf := countConfidence(occ.Count)
		if occ.Count < a.minOccurrences || conf < a.minConfidence {
			continue
		}
		actor, action, _ := strings.Cut(key, "|")
		findings = append(findings, Finding{
			Category:    CategoryMistake,
			ActorID:     actor,
			ActionLabel: action,
			Occurrences: occ.Count,
			Impact:      occ.CumulativeImpact,
			Confidence:  conf,
			Description: fmt.Sprintf("%s keeps repeating %s (%d times)", actor, action, occ.Count),
		})
	}
	sortFindings(findings)
	return findings
}

// successSequences scans for chains of consecutive positive features inside
// a short time window; those chains are reinforceable behavior.
func (a *Analyzer) successSequences(features []model.TemporalFeature) []Finding {
	var findings []Finding
	for i := 0; i+successChainLength <= len(features); i++ {
		chain := features[i : i+successChainLength]

		ok := true
		var impact float64
		for j := range chain {
			if chain[j].Outcome != model.OutcomePositive {
				ok = false
				break
			}
			impact += chain[j].ImpactScore
		}
		if !ok {
			continue
		}
		if chain[successChainLength-1].Timestamp.Sub(chain[0].Timestamp) > successChainWindow {
			continue
		}

		avg := impact / successChainLength
		conf := math.Min(maxConfidence, a.minConfidence+avg/2)
		if conf < a.minConfidence {
			continue
		}

		labels := make([]string, successChainLength)
		for j := range chain {
			labels[j] = chain[j].ActionLabel
		}
		findings = append(findings, Finding{
			Category:    CategorySequence,
			ActorID:     chain[0].ActorID,
			ActionLabel: strings.Join(labels, " -> "),
			Occurrences: successChainLength,
			Impact:      impact,
			Confidence:  conf,
			Description: fmt.Sprintf("reinforceable chain: %s", strings.Join(labels, " -> ")),
		})

		// Jump past the chain so overlapping windows do not double-report.
		i += successChainLength - 1
	}
	return findings
}

// phaseVulnerabilities finds the dominant negative action type per phase.
func (a *Analyzer) phaseVulnerabilities(features []model.TemporalFeature) []Finding {
	perPhase := make(map[model.Phase]map[string]*Occurrence)
	for i := range features {
		f := &features[i]
		if f.Outcome != model.OutcomeNegative {
			continue
		}
		byAction, ok := perPhase[f.Phase]
		if !ok {
			byAction = make(map[string]*Occurrence)
			perPhase[f.Phase] = byAction
		}
		occ, ok := byAction[f.ActionLabel]
		if !ok {
			occ = &Occurrence{Key: f.ActionLabel}
			byAction[f.ActionLabel] = occ
		}
		occ.Count++
		occ.CumulativeImpact += f.ImpactScore
	}

	var findings []Finding
	for phase, byAction := range perPhase {
		var dominant *Occurrence
		for _, occ := range byAction {
			if dominant == nil || occ.Count > dominant.Count {
				dominant = occ
			}
		}
		if dominant == nil || dominant.Count < a.minOccurrences {
			continue
		}
		conf := countConfidence(dominant.Count)
		if conf < a.minConfidence {
			continue
		}
		findings = append(findings, Finding{
			Category:    CategoryVulnerability,
			ActionLabel: dominant.Key,
			Phase:       phase,
			Occurrences: dominant.Count,
			Impact:      dominant.CumulativeImpact,
			Confidence:  conf,
			Description: fmt.Sprintf("%s phase is dominated by %s (%d times)", phase, dominant.Key, dominant.Count),
		})
	}
	sortFindings(findings)
	return findings
}

// strengths groups high-impact positive features by action type.
func (a *Analyzer) strengths(features []model.TemporalFeature) []Finding {
	groups := make(map[string]*Occurrence)
	for i := range features {
		f := &features[i]
		if f.Outcome != model.OutcomePositive || f.ImpactScore <= strengthImpactMin {
			continue
		}
		occ, ok := groups[f.ActionLabel]
		if !ok {
			occ = &Occurrence{Key: f.ActionLabel}
			groups[f.ActionLabel] = occ
		}
		occ.Count++
		occ.CumulativeImpact += f.ImpactScore
	}

	var findings []Finding
	for action, occ := range groups {
		conf := countConfidence(occ.Count)
		if occ.Count < a.minOccurrences || conf < a.minConfidence {
			continue
		}
		findings = append(findings, Finding{
			Category:    CategoryStrength,
			ActionLabel: action,
			Occurrences: occ.Count,
			Impact:      occ.CumulativeImpact,
			Confidence:  conf,
			Description: fmt.Sprintf("high-impact %s shows up consistently (%d times)", action, occ.Count),
		})
	}
	sortFindings(findings)
	return findings
}

// PlayerBehavior summarizes one actor's risk, strength, and consistency.
func (a *Analyzer) PlayerBehavior(features []model.TemporalFeature, actorID string) PlayerSummary {
	var risk, strength float64
	actions := make(map[string]struct{})

	for i := range features {
		f := &features[i]
		if f.ActorID != actorID {
			continue
		}
		actions[f.ActionLabel] = struct{}{}
		switch f.Outcome {
		case model.OutcomeNegative:
			risk += -f.ImpactScore * scorePerImpact
		case model.OutcomePositive:
			strength += f.ImpactScore * scorePerImpact
		}
	}

	consistency := 1 - float64(len(actions))/consistencyScale
	if consistency < 0 {
		consistency = 0
	}

	return PlayerSummary{
		ActorID:       actorID,
		RiskScore:     math.Min(scoreCap, risk),
		StrengthScore: math.Min(scoreCap, strength),
		Consistency:   consistency,
	}
}

// DetectSequences slides a fixed window over the action stream and counts
// repeating subsequences, flagging any whose average impact is harmful.
func (a *Analyzer) DetectSequences(features []model.TemporalFeature) []SequencePattern {
	w := a.sequenceWindow
	if len(features) < w {
		return nil
	}

	type agg struct {
		count  int
		impact float64
	}
	seen := make(map[string]*agg)
	order := make([]string, 0)

	for i := 0; i+w <= len(features); i++ {
		labels := make([]string, w)
		var impact float64
		for j := 0; j < w; j++ {
			labels[j] = features[i+j].ActionLabel
			impact += features[i+j].ImpactScore
		}
		key := strings.Join(labels, "|")
		entry, ok := seen[key]
		if !ok {
			entry = &agg{}
			seen[key] = entry
			order = append(order, key)
		}
		entry.count++
		entry.impact += impact
	}

	var patterns []SequencePattern
	for _, key := range order {
		entry := seen[key]
		if entry.count < 2 {
			continue
		}
		avg := entry.impact / float64(entry.count*w)
		patterns = append(patterns, SequencePattern{
			Actions:     strings.Split(key, "|"),
			Count:       entry.count,
			AvgImpact:   avg,
			Problematic: avg < problematicAvgImpact,
		})
	}

	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Count > patterns[j].Count })
	return patterns
}

func sortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Occurrences != findings[j].Occurrences {
			return findings[i].Occurrences > findings[j].Occurrences
		}
		return findings[i].Confidence > findings[j].Confidence
	})
}
