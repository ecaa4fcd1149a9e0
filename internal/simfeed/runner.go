package simfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/matchpulse/matchpulse/pkg/logger"
)

// Run executes the simulated feed in the configured mode.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting simulated match feed",
		logger.String("mode", cfg.Mode),
		logger.Int("rounds", cfg.Rounds),
		logger.Int64("seed", cfg.Seed),
		logger.Float64("malformed_rate", cfg.MalformedRate),
		logger.Float64("late_rate", cfg.LateRate),
	)

	script := NewGenerator(cfg).Script(ctx)
	stats.FramesGenerated = len(script)

	switch cfg.Mode {
	case "serve":
		return NewServer(cfg, script).Run(ctx)
	case "post":
		if err := checkServiceHealth(ctx, cfg); err != nil {
			return fmt.Errorf("service health check failed: %w", err)
		}
		if err := submitFrames(ctx, cfg, script, stats); err != nil {
			return fmt.Errorf("frame submission failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown mode %q (want serve or post)", cfg.Mode)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var framesPerSecond float64
	if stats.Duration > 0 {
		framesPerSecond = float64(stats.FramesSent) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("framesGenerated", stats.FramesGenerated),
		logger.Int("framesSent", stats.FramesSent),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("backpressured", stats.Backpressured),
		logger.Int("failed", stats.Failed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("framesPerSecond", framesPerSecond),
	)
}
