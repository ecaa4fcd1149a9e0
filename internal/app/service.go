// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/matchpulse/matchpulse/internal/adapters/feed"
	eventqueue "github.com/matchpulse/matchpulse/internal/adapters/mq/queue"
	workerpool "github.com/matchpulse/matchpulse/internal/adapters/mq/worker"
	"github.com/matchpulse/matchpulse/internal/adapters/repository"
	"github.com/matchpulse/matchpulse/internal/config"
	"github.com/matchpulse/matchpulse/internal/domain/causal"
	"github.com/matchpulse/matchpulse/internal/domain/model"
	"github.com/matchpulse/matchpulse/internal/domain/pattern"
	"github.com/matchpulse/matchpulse/internal/domain/types"
	"github.com/matchpulse/matchpulse/internal/domain/winprob"
	"github.com/matchpulse/matchpulse/pkg/logger"
	"github.com/matchpulse/matchpulse/pkg/metrics"
)

// Service wires the analytics pipeline: feed -> queue -> a single ordered
// worker -> engine, plus the on-demand pattern and win-probability read paths.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store      repository.Store
	engine     *causal.Engine
	estimator  *winprob.Estimator
	analyzer   *pattern.Analyzer
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool
	feedClient *feed.Client

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFeedClient injects a pre-built feed client (used by tests and by
// deployments that dial through a custom transport).
func WithFeedClient(c *feed.Client) Option {
	return func(s *Service) {
		s.feedClient = c
	}
}

// WithStore injects a pre-built feature store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service from configuration.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}

	s := &Service{
		cfg:    cfg,
		logger: logger.Get().Named("service"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewRingStore(
			repository.WithCapacity(cfg.FeatureStoreCapacity),
		)
	}

	homePrefix := cfg.HomePrefix
	s.engine = causal.NewEngine(s.store,
		causal.WithMaxEventAge(time.Duration(cfg.MaxEventAgeMS)*time.Millisecond),
		causal.WithMinQuality(cfg.MinQuality),
		causal.WithMinSampleSize(cfg.MinSampleSize),
		causal.WithConfidenceLevel(cfg.ConfidenceLevel),
		causal.WithSignificanceLevel(cfg.SignificanceLevel),
		causal.WithImpactWindow(cfg.ImpactWindow),
		causal.WithInsightCap(cfg.InsightCap),
		causal.WithNudgeFactor(cfg.NudgeFactor),
		causal.WithIsHomeActor(func(actorID string) bool {
			return strings.HasPrefix(actorID, homePrefix)
		}),
	)

	s.estimator = winprob.NewEstimator(
		winprob.WithHistorySize(cfg.WinProbHistorySize),
		winprob.WithMonteCarloSamples(cfg.MonteCarloSamples),
	)

	s.analyzer = pattern.NewAnalyzer(
		pattern.WithMinOccurrences(cfg.PatternMinOccurrences),
		pattern.WithMinConfidence(cfg.PatternMinConfidence),
		pattern.WithSequenceWindow(cfg.PatternSequenceWindow),
	)

	return s
}

// Start initializes and starts the pipeline components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting match analytics service...")

	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.cfg.QueueSize),
		eventqueue.WithBufferSize(s.cfg.QueueSize),
	)

	maxLatency := time.Duration(s.cfg.MaxProcessingLatencyMS) * time.Millisecond

	// Exactly one consumer: the engine is stateful and must see events in
	// arrival order.
	s.workerPool = workerpool.NewPool(1, s.eventQueue, s.engine,
		workerpool.WithSlowThreshold(maxLatency),
	)
	s.workerPool.Start(ctx)

	if s.feedClient == nil {
		s.feedClient = feed.NewClient(s.cfg.FeedURL,
			feed.WithReconnectBackoff(time.Duration(s.cfg.FeedReconnectBackoffMS)*time.Millisecond),
			feed.WithHeartbeatInterval(time.Duration(s.cfg.FeedHeartbeatMS)*time.Millisecond),
			feed.WithPollInterval(time.Duration(s.cfg.FeedPollIntervalMS)*time.Millisecond),
			feed.WithDegradedAfter(s.cfg.FeedDegradedAfter),
			feed.WithLatencyWarn(time.Duration(s.cfg.FeedLatencyWarnMS)*time.Millisecond),
			feed.WithDegradedThreshold(maxLatency),
		)
	}

	queue := s.eventQueue
	s.feedClient.RegisterHandler("pipeline", func(ev model.Event) {
		if !queue.Enqueue(ctx, ev) {
			metrics.RecordEventDropped("backpressure")
		}
	})

	queueProbe := func() int { return queue.Len(context.Background()) }
	feed.WithQueueLen(queueProbe)(s.feedClient)

	if err := s.feedClient.Start(ctx); err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "match analytics service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queue_size", s.cfg.QueueSize),
		logger.String("feed_url", s.cfg.FeedURL),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping match analytics service...")

	if s.feedClient != nil {
		if err := s.feedClient.Stop(ctx); err != nil {
			s.logger.Warn(ctx, "feed stop failed", logger.Error(err))
		}
	}

	// Closes the queue first so workers drain what is buffered.
	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "match analytics service stopped")
}

// Enqueue submits an event for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, e model.Event) bool {
	s.mu.RLock()
	queue := s.eventQueue
	s.mu.RUnlock()

	if queue == nil {
		return false
	}

	ok := queue.Enqueue(ctx, e)
	if ok {
		metrics.RecordEventIngested()
	} else {
		metrics.RecordEventDropped("backpressure")
	}
	return ok
}

// Insights returns the most recent validated insights.
func (s *Service) Insights(limit int) []types.ValidatedInsight {
	return s.engine.Insights(limit)
}

// WinProbability estimates the home side's win probability from the
// engine's current game state.
func (s *Service) WinProbability() types.WinProbabilityResult {
	return s.estimator.Estimate(s.engine.GameState())
}

// Uncertainty reports the Monte Carlo spread of the current estimate.
func (s *Service) Uncertainty() winprob.UncertaintyReport {
	return s.estimator.Uncertainty(s.engine.GameState())
}

// AnalyzePatterns runs the batch detectors over the stored features.
func (s *Service) AnalyzePatterns() pattern.Analysis {
	return s.analyzer.Analyze(s.store.Snapshot(context.Background()))
}

// DetectSequences runs the sliding-window detector over stored features.
func (s *Service) DetectSequences() []pattern.SequencePattern {
	return s.analyzer.DetectSequences(s.store.Snapshot(context.Background()))
}

// PlayerBehavior summarizes one actor's stored features.
func (s *Service) PlayerBehavior(actorID string) pattern.PlayerSummary {
	return s.analyzer.PlayerBehavior(s.store.Snapshot(context.Background()), actorID)
}

// Status reports delivery-layer health.
func (s *Service) Status() types.SyncStatus {
	s.mu.RLock()
	client := s.feedClient
	s.mu.RUnlock()

	if client == nil {
		return types.SyncStatus{DataFreshness: model.FreshnessStale}
	}
	return client.Status()
}

// FeedState reports the feed connection state.
func (s *Service) FeedState() string {
	s.mu.RLock()
	client := s.feedClient
	s.mu.RUnlock()

	if client == nil {
		return string(feed.StateClosed)
	}
	return string(client.State())
}

// Performance summarizes feed frame-handling latency.
func (s *Service) Performance() types.PerformanceMetrics {
	s.mu.RLock()
	client := s.feedClient
	s.mu.RUnlock()

	if client == nil {
		return types.PerformanceMetrics{}
	}
	return client.Metrics()
}

// ResetSession clears all per-match state.
func (s *Service) ResetSession(ctx context.Context) {
	s.engine.Reset(ctx)
	s.estimator.Reset()
	s.logger.Info(ctx, "session reset")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.engine.Stats()
	stats["started"] = s.started
	stats["workerCount"] = 0

	if s.started {
		ctx := context.Background()
		stats["workerCount"] = s.workerPool.Size()
		stats["queueLength"] = s.eventQueue.Len(ctx)
		stats["feedState"] = string(s.feedClient.State())
		stats["feedErrors"] = s.feedClient.ErrorCount()
	}

	return stats
}
