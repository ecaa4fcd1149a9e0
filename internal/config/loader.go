package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if MATCHPULSE_CONFIG is set
//  3. env (prefix MATCHPULSE_)
func Load() (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("MATCHPULSE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: MATCHPULSE_ADDR, MATCHPULSE_QUEUE_SIZE, ...
	// Map env keys like MATCHPULSE_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("MATCHPULSE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "matchpulse_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the pipeline cannot run with.
func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.FeedURL == "" {
		return fmt.Errorf("%w: feed_url must not be empty", ErrInvalidConfig)
	}
	if c.MinQuality < 0 || c.MinQuality > 1 {
		return fmt.Errorf("%w: min_quality must be in [0,1], got %v", ErrInvalidConfig, c.MinQuality)
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return fmt.Errorf("%w: confidence_level must be in (0,1), got %v", ErrInvalidConfig, c.ConfidenceLevel)
	}
	if c.SignificanceLevel <= 0 || c.SignificanceLevel >= 1 {
		return fmt.Errorf("%w: significance_level must be in (0,1), got %v", ErrInvalidConfig, c.SignificanceLevel)
	}
	if c.MaxProcessingLatencyMS <= 0 {
		return fmt.Errorf("%w: max_processing_latency_ms must be positive, got %d", ErrInvalidConfig, c.MaxProcessingLatencyMS)
	}
	if c.PatternMinConfidence <= 0 || c.PatternMinConfidence > 1 {
		return fmt.Errorf("%w: pattern_min_confidence must be in (0,1], got %v", ErrInvalidConfig, c.PatternMinConfidence)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	}
	if c.MinSampleSize < 2 {
		return fmt.Errorf("%w: min_sample_size must be at least 2, got %d", ErrInvalidConfig, c.MinSampleSize)
	}
	return nil
}
