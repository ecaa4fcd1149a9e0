package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given a default config", t, func() {
		c := New()

		Convey("Then the analysis gates carry their documented defaults", func() {
			So(c.MinQuality, ShouldEqual, 0.7)
			So(c.MaxEventAgeMS, ShouldEqual, 10_000)
			So(c.MinSampleSize, ShouldEqual, 5)
			So(c.ConfidenceLevel, ShouldEqual, 0.95)
			So(c.SignificanceLevel, ShouldEqual, 0.05)
			So(c.MaxProcessingLatencyMS, ShouldEqual, 500)
		})

		Convey("Then the delivery layer carries its documented defaults", func() {
			So(c.FeedReconnectBackoffMS, ShouldEqual, 3000)
			So(c.FeedHeartbeatMS, ShouldEqual, 10_000)
			So(c.FeedPollIntervalMS, ShouldEqual, 5000)
		})

		Convey("Then the defaults validate", func() {
			So(c.validate(), ShouldBeNil)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		t.Setenv("MATCHPULSE_CONFIG", "")

		Convey("When loading with no overrides", func() {
			cfg, err := Load()

			Convey("Then the defaults come back", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":8080")
				So(cfg.QueueSize, ShouldEqual, 10_000)
			})
		})

		Convey("When env vars override fields", func() {
			t.Setenv("MATCHPULSE_QUEUE_SIZE", "512")
			t.Setenv("MATCHPULSE_LOG_LEVEL", "debug")
			t.Setenv("MATCHPULSE_MIN_QUALITY", "0.8")
			t.Setenv("MATCHPULSE_SIGNIFICANCE_LEVEL", "0.01")
			t.Setenv("MATCHPULSE_MAX_PROCESSING_LATENCY_MS", "250")

			cfg, err := Load()

			Convey("Then the overrides win", func() {
				So(err, ShouldBeNil)
				So(cfg.QueueSize, ShouldEqual, 512)
				So(cfg.LogLevel, ShouldEqual, "debug")
				So(cfg.MinQuality, ShouldEqual, 0.8)
				So(cfg.SignificanceLevel, ShouldEqual, 0.01)
				So(cfg.MaxProcessingLatencyMS, ShouldEqual, 250)
			})
		})

		Convey("When a YAML file is provided", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			yaml := "addr: \":9999\"\ninsight_cap: 99\nhome_prefix: \"blue\"\n"
			So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)
			t.Setenv("MATCHPULSE_CONFIG", path)

			cfg, err := Load()

			Convey("Then file values layer over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9999")
				So(cfg.InsightCap, ShouldEqual, 99)
				So(cfg.HomePrefix, ShouldEqual, "blue")
			})

			Convey("And env still beats the file", func() {
				t.Setenv("MATCHPULSE_ADDR", ":7777")
				cfg, err := Load()
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7777")
			})
		})

		Convey("When the config file does not exist", func() {
			t.Setenv("MATCHPULSE_CONFIG", "/does/not/exist.yaml")

			_, err := Load()

			Convey("Then loading fails with a load error", func() {
				So(errors.Is(err, ErrLoadConfig), ShouldBeTrue)
			})
		})

		Convey("When an override is out of range", func() {
			t.Setenv("MATCHPULSE_MIN_QUALITY", "1.5")

			_, err := Load()

			Convey("Then validation rejects it", func() {
				So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given individually broken configs", t, func() {
		cases := map[string]func(*Config){
			"empty addr":              func(c *Config) { c.Addr = "" },
			"empty feed url":          func(c *Config) { c.FeedURL = "" },
			"negative quality":        func(c *Config) { c.MinQuality = -0.1 },
			"confidence at 1":         func(c *Config) { c.ConfidenceLevel = 1 },
			"significance at 1":       func(c *Config) { c.SignificanceLevel = 1 },
			"zero processing latency": func(c *Config) { c.MaxProcessingLatencyMS = 0 },
			"zero queue":              func(c *Config) { c.QueueSize = 0 },
			"sample size of one":      func(c *Config) { c.MinSampleSize = 1 },
			"zero pattern confidence": func(c *Config) { c.PatternMinConfidence = 0 },
		}

		for name, mutate := range cases {
			Convey("Then "+name+" is rejected", func() {
				c := New()
				mutate(c)
				So(errors.Is(c.validate(), ErrInvalidConfig), ShouldBeTrue)
			})
		}
	})
}
