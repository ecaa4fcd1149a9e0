// Package causal implements the per-event incremental processor at the heart
// of the pipeline: feature extraction, phase tracking, causal-graph updates,
// strategy-debt accounting, and statistically gated insight emission.
package causal

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matchpulse/matchpulse/internal/adapters/repository"
	"github.com/matchpulse/matchpulse/internal/domain/model"
	"github.com/matchpulse/matchpulse/internal/domain/stats"
	"github.com/matchpulse/matchpulse/internal/domain/types"
	"github.com/matchpulse/matchpulse/pkg/logger"
	"github.com/matchpulse/matchpulse/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultMaxEventAge       = 10 * time.Second
	defaultMinQuality        = model.MinQuality
	defaultMinSampleSize     = 5
	defaultConfidenceLevel   = stats.DefaultConfidenceLevel
	defaultSignificanceLevel = stats.DefaultAlpha
	defaultImpactWindow      = 20
	defaultActorKeyCap       = 512
	defaultInsightCap        = 200
	// defaultNudgeFactor converts newly added debt into a win-probability
	// decay: probability = clamp(prior - k * debtAdded).
	defaultNudgeFactor = 0.002

	initialWinProbability = 0.5
	probabilityFloor      = 0.05
	probabilityCeiling    = 0.95

	objectiveControlStep = 0.25
)

// Impact scores per action. Negative impacts feed strategy debt.
const (
	impactKill          = 0.3
	impactHeadshotKill  = 0.65
	impactDeath         = -0.3
	impactObjectiveWon  = 0.2
	impactObjectiveLost = -0.15
	impactEconomyEarned = 0.1
	impactEconomySaved  = 0.05
	impactEconomyWasted = -0.1
	impactUtilityUsed   = 0.05
)

// Priority blend weights and thresholds.
const (
	priorityImpactWeight = 0.5
	priorityEffectWeight = 0.3
	priorityPValueWeight = 0.2
	priorityHighMin      = 0.6
	priorityMediumMin    = 0.4
)

// InsightSink receives every validated insight as it is emitted.
type InsightSink func(types.ValidatedInsight)

// IsHomeActor decides whether an actor plays for the tracked team.
type IsHomeActor func(actorID string) bool

func defaultIsHomeActor(actorID string) bool {
	return strings.HasPrefix(actorID, "home")
}

// Engine is the stateful per-event processor. One engine per match session;
// Reset clears all cross-session state. Event processing is driven by a
// single worker; read accessors take the lock so monitoring surfaces can
// snapshot safely.
type Engine struct {
	mu sync.RWMutex

	store repository.Store
	graph *Graph
	debt  *DebtTracker

	// impactHistory holds a sliding window of impact samples per
	// (actor, event type) key. The LRU bounds actor-key cardinality.
	impactHistory *lru.Cache[string, []float64]

	// Phase state machine.
	phase      model.Phase
	roundStart time.Time
	round      int

	// Live game state snapshot consumed by the win-probability estimator.
	game model.GameState

	winProbability float64

	insights    []types.ValidatedInsight
	insightSink InsightSink

	// Counters for the stats surface.
	processed    int64
	droppedStale int64
	droppedDirty int64

	// Configuration.
	maxEventAge       time.Duration
	minQuality        float64
	minSampleSize     int
	confidenceLevel   float64
	significanceLevel float64
	impactWindow      int
	actorKeyCap       int
	insightCap        int
	nudgeFactor       float64
	isHome            IsHomeActor

	logger logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMaxEventAge sets the staleness cutoff for inbound events.
func WithMaxEventAge(age time.Duration) Option {
	return func(e *Engine) {
		if age > 0 {
			e.maxEventAge = age
		}
	}
}

// WithMinQuality sets the completeness score below which events are dropped.
func WithMinQuality(q float64) Option {
	return func(e *Engine) {
		if q > 0 && q <= 1 {
			e.minQuality = q
		}
	}
}

// WithMinSampleSize sets the minimum impact samples before insight generation.
func WithMinSampleSize(n int) Option {
	return func(e *Engine) {
		if n > 1 {
			e.minSampleSize = n
		}
	}
}

// WithConfidenceLevel sets the interval level attached to insights.
func WithConfidenceLevel(level float64) Option {
	return func(e *Engine) {
		if level > 0 && level < 1 {
			e.confidenceLevel = level
		}
	}
}

// WithSignificanceLevel sets the p-value threshold below which an impact
// history counts as evidence for an insight.
func WithSignificanceLevel(alpha float64) Option {
	return func(e *Engine) {
		if alpha > 0 && alpha < 1 {
			e.significanceLevel = alpha
		}
	}
}

// WithImpactWindow sets the sliding-window cap for per-actor impact history.
func WithImpactWindow(n int) Option {
	return func(e *Engine) {
		if n > 1 {
			e.impactWindow = n
		}
	}
}

// WithActorKeyCap bounds how many (actor, event type) keys are tracked.
func WithActorKeyCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.actorKeyCap = n
		}
	}
}

// WithInsightCap bounds the in-memory insight retention log.
func WithInsightCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.insightCap = n
		}
	}
}

// WithNudgeFactor sets the debt-to-probability decay coefficient.
func WithNudgeFactor(k float64) Option {
	return func(e *Engine) {
		if k > 0 {
			e.nudgeFactor = k
		}
	}
}

// WithInsightSink registers a callback invoked on every emitted insight.
func WithInsightSink(sink InsightSink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.insightSink = sink
		}
	}
}

// WithIsHomeActor sets the roster predicate for the tracked team.
func WithIsHomeActor(fn IsHomeActor) Option {
	return func(e *Engine) {
		if fn != nil {
			e.isHome = fn
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine reading and writing features through store.
func NewEngine(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           store,
		graph:           NewGraph(),
		debt:            NewDebtTracker(),
		phase:           model.PhaseEarly,
		winProbability:  initialWinProbability,
		maxEventAge:       defaultMaxEventAge,
		minQuality:        defaultMinQuality,
		minSampleSize:     defaultMinSampleSize,
		confidenceLevel:   defaultConfidenceLevel,
		significanceLevel: defaultSignificanceLevel,
		impactWindow:      defaultImpactWindow,
		actorKeyCap:       defaultActorKeyCap,
		insightCap:        defaultInsightCap,
		nudgeFactor:       defaultNudgeFactor,
		isHome:            defaultIsHomeActor,
		logger:            logger.Get().Named("causal-engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	cache, err := lru.New[string, []float64](e.actorKeyCap)
	if err != nil {
		// Only reachable with a non-positive cap, which options reject.
		panic(fmt.Sprintf("impact history cache: %v", err))
	}
	e.impactHistory = cache

	return e
}

// ProcessEvent runs the full per-event pipeline. A failure while processing
// one event is logged and swallowed; the stream must never halt.
func (e *Engine) ProcessEvent(ctx context.Context, ev model.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("causal-engine", "panic")
			e.logger.Error(ctx, "event processing panicked; continuing",
				logger.String("eventType", string(ev.Type)),
				logger.Any("panic", r),
			)
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()

	// Quality gate: incomplete events never reach the analytics path.
	if q := ev.Quality(); q < e.minQuality {
		e.droppedDirty++
		metrics.RecordEventDropped("quality")
		e.logger.Debug(ctx, "dropping low-quality event",
			logger.String("eventType", string(ev.Type)),
			logger.Float64("quality", q),
		)
		return
	}

	// Staleness gate.
	if !stats.IsDataFresh(ev.Timestamp, now, e.maxEventAge) {
		e.droppedStale++
		metrics.RecordEventDropped("stale")
		e.logger.Warn(ctx, "dropping stale event",
			logger.String("eventType", string(ev.Type)),
			logger.Duration("age", ev.Age(now)),
		)
		return
	}

	// Phase state machine, advanced before extraction so features carry
	// the phase the event happened in.
	e.advancePhase(ev)

	features := e.extractFeatures(ev)
	for i := range features {
		e.store.Store(ctx, features[i])
	}

	e.updateGameState(ev)

	for i := range features {
		f := &features[i]

		e.updateGraph(ev, f)

		if f.ImpactScore < 0 {
			added := e.debt.Add(f.ActionLabel, f.EventType, f.Phase, f.ImpactScore, f.Timestamp)
			if added > 0 {
				// Linear decay rule: each freshly accrued unit of debt
				// nudges the probability down, clamped away from certainty.
				e.winProbability = clampProbability(e.winProbability - e.nudgeFactor*added)
			}
		}

		samples := e.recordImpact(f.ActorID, f.EventType, f.ImpactScore)
		e.maybeEmitInsight(ctx, ev, f, samples)
	}

	e.game.StrategyDebt = e.debt.Total()
	e.game.Phase = e.phase

	e.processed++
	metrics.RecordEventProcessed()
	metrics.UpdateStrategyDebt(e.debt.Total())
	metrics.UpdateWinProbability(e.winProbability)
}

// advancePhase re-enters early on round_start and otherwise derives the
// phase from elapsed time since the round began.
func (e *Engine) advancePhase(ev model.Event) {
	if ev.Type == model.EventRoundStart {
		e.roundStart = ev.Timestamp
		e.phase = model.PhaseEarly
		if p, ok := ev.Payload.(model.RoundPayload); ok && p.Round > 0 {
			e.round = p.Round
		} else {
			e.round++
		}
		e.game.RoundNumber = e.round
		e.game.ManAdvantage = 0
		return
	}
	if e.roundStart.IsZero() {
		e.roundStart = ev.Timestamp
	}
	e.phase = model.PhaseFor(ev.Timestamp.Sub(e.roundStart))
}

// extractFeatures derives temporal features from one event. A kill yields
// two: the attacker's positive action and the victim's negative one, so both
// sides of the duel feed their own histories.
func (e *Engine) extractFeatures(ev model.Event) []model.TemporalFeature {
	base := model.TemporalFeature{
		Timestamp: ev.Timestamp,
		EventType: ev.Type,
		Phase:     e.phase,
	}

	switch p := ev.Payload.(type) {
	case model.KillPayload:
		attacker := base
		attacker.ActorID = p.Attacker
		attacker.ActionLabel = "kill"
		attacker.ImpactScore = impactKill
		if p.Headshot {
			attacker.ActionLabel = "headshot_kill"
			attacker.ImpactScore = impactHeadshotKill
		}
		attacker.Outcome = model.OutcomePositive
		attacker.Context = map[string]string{"weapon": p.Weapon, "victim": p.Victim}

		victim := base
		victim.ActorID = p.Victim
		victim.ActionLabel = "died_" + string(e.phase)
		victim.ImpactScore = impactDeath
		victim.Outcome = model.OutcomeNegative
		victim.Context = map[string]string{"weapon": p.Weapon, "attacker": p.Attacker}

		return []model.TemporalFeature{attacker, victim}

	case model.ObjectivePayload:
		f := base
		f.ActorID = p.Location
		switch p.Action {
		case "captured":
			f.ActionLabel = "objective_captured"
			f.ImpactScore = impactObjectiveWon
			f.Outcome = model.OutcomePositive
		case "lost":
			f.ActionLabel = "objective_lost"
			f.ImpactScore = impactObjectiveLost
			f.Outcome = model.OutcomeNegative
		default:
			f.ActionLabel = "objective_" + p.Action
			f.Outcome = model.OutcomeNeutral
		}
		f.Context = map[string]string{"location": p.Location}
		return []model.TemporalFeature{f}

	case model.EconomyPayload:
		f := base
		f.ActorID = p.TeamID
		if f.ActorID == "" {
			f.ActorID = "team"
		}
		switch p.Action {
		case "earned":
			f.ActionLabel = "economy_earned"
			f.ImpactScore = impactEconomyEarned
			f.Outcome = model.OutcomePositive
		case "saved":
			f.ActionLabel = "economy_saved"
			f.ImpactScore = impactEconomySaved
			f.Outcome = model.OutcomePositive
		case "wasted", "lost":
			f.ActionLabel = "economy_wasted"
			f.ImpactScore = impactEconomyWasted
			f.Outcome = model.OutcomeNegative
		default:
			f.ActionLabel = "economy_" + p.Action
			f.Outcome = model.OutcomeNeutral
		}
		f.Context = map[string]string{"amount": fmt.Sprintf("%.0f", p.Amount)}
		return []model.TemporalFeature{f}

	case model.UtilityPayload:
		f := base
		f.ActorID = p.PlayerID
		f.ActionLabel = "utility_" + p.UtilityType
		f.ImpactScore = impactUtilityUsed
		f.Outcome = model.OutcomePositive
		return []model.TemporalFeature{f}

	default:
		// Round and score transitions carry no actor-level feature.
		return nil
	}
}

// updateGameState folds event effects into the live snapshot.
func (e *Engine) updateGameState(ev model.Event) {
	switch p := ev.Payload.(type) {
	case model.ScorePayload:
		e.game.Score = model.Score{Home: p.Home, Away: p.Away}
	case model.KillPayload:
		if e.isHome(p.Victim) {
			e.game.ManAdvantage--
		} else {
			e.game.ManAdvantage++
		}
	case model.EconomyPayload:
		sign := 1.0
		if !e.isHome(p.TeamID) && p.TeamID != "" {
			sign = -1.0
		}
		switch p.Action {
		case "earned", "saved":
			e.game.EconomyDiff += sign * p.Amount
		case "spent", "wasted", "lost":
			e.game.EconomyDiff -= sign * p.Amount
		}
	case model.ObjectivePayload:
		switch p.Action {
		case "captured":
			e.game.ObjectivesControlled = math.Min(1, e.game.ObjectivesControlled+objectiveControlStep)
		case "lost":
			e.game.ObjectivesControlled = math.Max(0, e.game.ObjectivesControlled-objectiveControlStep)
		}
	}
}

// updateGraph appends a micro node for the feature and, for phase-pivotal
// actions, links it through an intermediate node to a macro outcome.
func (e *Engine) updateGraph(ev model.Event, f *model.TemporalFeature) {
	micro := e.graph.AddMicroNode(
		fmt.Sprintf("%s %s", f.ActorID, f.ActionLabel),
		f.Timestamp,
		ev.Quality(),
	)

	// Early-round kills and deaths set the tone of the round; they earn an
	// intermediate node and a weighted edge into the macro outcome.
	if ev.Type == model.EventKill && f.Phase == model.PhaseEarly {
		evidence := []string{
			"phase:early",
			fmt.Sprintf("round:%d", e.round),
			fmt.Sprintf("seq:%d", ev.SequenceNumber),
		}
		if f.Outcome == model.OutcomeNegative {
			mid := e.graph.EnsureNode(TierIntermediate, "early man deficit", f.Timestamp, 0.7)
			macro := e.graph.EnsureNode(TierMacro, "round loss risk", f.Timestamp, 0.6)
			e.graph.Link(micro.ID, mid.ID, -f.ImpactScore, evidence...)
			e.graph.Link(mid.ID, macro.ID, -f.ImpactScore, evidence...)
		} else {
			mid := e.graph.EnsureNode(TierIntermediate, "early man advantage", f.Timestamp, 0.7)
			macro := e.graph.EnsureNode(TierMacro, "round win potential", f.Timestamp, 0.6)
			e.graph.Link(micro.ID, mid.ID, f.ImpactScore, evidence...)
			e.graph.Link(mid.ID, macro.ID, f.ImpactScore, evidence...)
		}
	}

	if ev.Type == model.EventObjective && f.Outcome == model.OutcomeNegative {
		mid := e.graph.EnsureNode(TierIntermediate, "map control ceded", f.Timestamp, 0.7)
		macro := e.graph.EnsureNode(TierMacro, "round loss risk", f.Timestamp, 0.6)
		evidence := []string{fmt.Sprintf("round:%d", e.round), "phase:" + string(f.Phase)}
		e.graph.Link(micro.ID, mid.ID, -f.ImpactScore, evidence...)
		e.graph.Link(mid.ID, macro.ID, -f.ImpactScore, evidence...)
	}
}

// recordImpact appends an impact sample to the sliding window for the
// (actor, event type) key and returns the current window.
func (e *Engine) recordImpact(actorID string, eventType model.EventType, impact float64) []float64 {
	key := actorID + "|" + string(eventType)
	samples, _ := e.impactHistory.Get(key)
	samples = append(samples, impact)
	if len(samples) > e.impactWindow {
		samples = samples[len(samples)-e.impactWindow:]
	}
	e.impactHistory.Add(key, samples)
	return samples
}

// maybeEmitInsight runs the significance gate for one feature's history and
// emits a validated insight when the evidence clears it.
func (e *Engine) maybeEmitInsight(ctx context.Context, ev model.Event, f *model.TemporalFeature, samples []float64) {
	if len(samples) < e.minSampleSize {
		return
	}

	// Rank-sum against a neutral zero baseline of equal length. The
	// engine applies its own configured alpha to the raw p-value.
	baseline := make([]float64, len(samples))
	result := stats.RankSumTest(samples, baseline)
	if result.PValue >= e.significanceLevel {
		metrics.RecordInsightSuppressed()
		return
	}

	ci, err := stats.ConfidenceInterval(samples, e.confidenceLevel)
	if err != nil {
		// Unreachable with minSampleSize >= 2; treat as no insight.
		metrics.RecordInsightSuppressed()
		return
	}

	mean := ci.Mean
	blend := priorityImpactWeight*math.Abs(mean) +
		priorityEffectWeight*math.Abs(result.EffectSize) +
		priorityPValueWeight*(1-result.PValue)

	priority := types.PriorityLow
	switch {
	case blend >= priorityHighMin:
		priority = types.PriorityHigh
	case blend >= priorityMediumMin:
		priority = types.PriorityMedium
	}

	macro := "round win potential"
	recommendation := fmt.Sprintf("keep reinforcing %s by %s", f.ActionLabel, f.ActorID)
	if mean < 0 {
		macro = "round loss risk"
		recommendation = fmt.Sprintf("address recurring %s by %s", f.ActionLabel, f.ActorID)
	}

	insight := types.ValidatedInsight{
		ID:                 uuid.New().String(),
		MicroAction:        fmt.Sprintf("%s %s", f.ActorID, f.ActionLabel),
		MacroOutcome:       macro,
		CausalWeight:       math.Abs(mean) * math.Abs(result.EffectSize),
		Recommendation:     recommendation,
		Priority:           priority,
		PValue:             result.PValue,
		ConfidenceInterval: ci,
		SampleSize:         len(samples),
		DataQuality:        ev.Quality(),
		Timestamp:          ev.Timestamp,
	}

	e.insights = append(e.insights, insight)
	if len(e.insights) > e.insightCap {
		e.insights = e.insights[len(e.insights)-e.insightCap:]
	}

	metrics.RecordInsightEmitted()
	e.logger.Info(ctx, "validated insight emitted",
		logger.String("microAction", insight.MicroAction),
		logger.String("priority", string(insight.Priority)),
		logger.Float64("pValue", insight.PValue),
		logger.Int("sampleSize", insight.SampleSize),
	)

	if e.insightSink != nil {
		sink := e.insightSink
		// Sink failures must never stop the pipeline.
		func() {
			defer func() {
				if r := recover(); r != nil {
					metrics.RecordHandlerError()
					e.logger.Error(ctx, "insight sink panicked", logger.Any("panic", r))
				}
			}()
			sink(insight)
		}()
	}
}

func clampProbability(p float64) float64 {
	return math.Max(probabilityFloor, math.Min(probabilityCeiling, p))
}

// Phase returns the current phase.
func (e *Engine) Phase() model.Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

// Round returns the current round number.
func (e *Engine) Round() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round
}

// Probability returns the debt-nudged running win probability.
func (e *Engine) Probability() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.winProbability
}

// Debt returns a snapshot of the accumulated strategy debt.
func (e *Engine) Debt() types.StrategyDebt {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.debt.Snapshot()
}

// GameState returns the live snapshot for the win-probability estimator.
func (e *Engine) GameState() model.GameState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.game
}

// Insights returns up to limit of the most recent validated insights,
// newest last.
func (e *Engine) Insights(limit int) []types.ValidatedInsight {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := len(e.insights)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]types.ValidatedInsight, limit)
	copy(out, e.insights[n-limit:])
	return out
}

// ImpactSamples returns the current sliding window for an (actor, event
// type) key. Mainly a verification hook.
func (e *Engine) ImpactSamples(actorID string, eventType model.EventType) []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	samples, _ := e.impactHistory.Get(actorID + "|" + string(eventType))
	out := make([]float64, len(samples))
	copy(out, samples)
	return out
}

// GraphNodes returns a snapshot of the causal graph's nodes.
func (e *Engine) GraphNodes() []Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.Nodes()
}

// GraphEdges returns a snapshot of the causal graph's edges.
func (e *Engine) GraphEdges() []Edge {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.Edges()
}

// StrongestPaths returns the top-n ranked micro -> macro explanations.
func (e *Engine) StrongestPaths(n int) []Path {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.StrongestPaths(n)
}

// Stats returns engine counters for the monitoring surface.
func (e *Engine) Stats() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return map[string]interface{}{
		"processed":      e.processed,
		"droppedStale":   e.droppedStale,
		"droppedQuality": e.droppedDirty,
		"round":          e.round,
		"phase":          string(e.phase),
		"strategyDebt":   e.debt.Total(),
		"winProbability": e.winProbability,
		"graphNodes":     e.graph.NodeCount(),
		"graphEdges":     e.graph.EdgeCount(),
		"insights":       len(e.insights),
	}
}

// Reset clears all per-session state, including the feature store, so an
// engine can be reused across matches without leakage.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.graph.Reset()
	e.debt.Reset()
	e.impactHistory.Purge()
	e.phase = model.PhaseEarly
	e.roundStart = time.Time{}
	e.round = 0
	e.game = model.GameState{}
	e.winProbability = initialWinProbability
	e.insights = nil
	e.processed = 0
	e.droppedStale = 0
	e.droppedDirty = 0
	e.store.Clear(ctx)
}
