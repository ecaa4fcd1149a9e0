package simfeed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/matchpulse/matchpulse/pkg/logger"
)

// submitFrames posts the script to the ingest endpoint with a worker pool.
func submitFrames(ctx context.Context, cfg *Config, frames []Frame, stats *Stats) error {
	log := logger.Get().Named("simfeed")
	log.Info(ctx, "submitting frames",
		logger.Int("frames", len(frames)),
		logger.Int("workers", cfg.Workers),
		logger.String("url", cfg.BaseURL+"/events"),
	)

	client := &http.Client{Timeout: cfg.Timeout}
	url := cfg.BaseURL + "/events"

	var (
		sent          int64
		accepted      int64
		rejected      int64
		backpressured int64
		failed        int64
	)

	frameCh := make(chan []byte, cfg.Workers*2)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for body := range frameCh {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&sent, 1)
				switch submitOne(ctx, client, url, body) {
				case http.StatusAccepted:
					atomic.AddInt64(&accepted, 1)
				case http.StatusTooManyRequests:
					atomic.AddInt64(&backpressured, 1)
				case http.StatusBadRequest:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	go func() {
		defer close(frameCh)
		for _, f := range frames {
			body, err := EncodeFrame(f, cfg, rng)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case frameCh <- body:
			}
		}
	}()

	wg.Wait()

	stats.FramesSent = int(atomic.LoadInt64(&sent))
	stats.Accepted = int(atomic.LoadInt64(&accepted))
	stats.Rejected = int(atomic.LoadInt64(&rejected))
	stats.Backpressured = int(atomic.LoadInt64(&backpressured))
	stats.Failed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "submission complete",
		logger.Int("sent", stats.FramesSent),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("backpressured", stats.Backpressured),
		logger.Int("failed", stats.Failed),
	)

	return nil
}

// submitOne posts a single frame and returns the response status code, or
// zero on transport failure.
func submitOne(ctx context.Context, client *http.Client, url string, body []byte) int {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode
}

// checkServiceHealth verifies the analytics service is reachable before a
// submission run.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	client := &http.Client{Timeout: cfg.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}
