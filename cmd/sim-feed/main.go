package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/matchpulse/matchpulse/internal/simfeed"
	"github.com/matchpulse/matchpulse/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers = 2 // multiplier for runtime.NumCPU()
	defaultSeed    = 1
)

func main() {
	var (
		mode      = flag.String("mode", "serve", `"serve" to stream over websocket, "post" to submit over HTTP`)
		addr      = flag.String("addr", simfeed.DefaultAddr, "Listen address in serve mode")
		path      = flag.String("path", simfeed.DefaultPath, "Websocket path in serve mode")
		baseURL   = flag.String("url", simfeed.DefaultBaseURL, "Base URL of the analytics service in post mode")
		rounds    = flag.Int("rounds", simfeed.DefaultRounds, "Number of rounds to script")
		interval  = flag.Duration("interval", simfeed.DefaultInterval, "Delay between frames in serve mode")
		seed      = flag.Int64("seed", defaultSeed, "RNG seed; identical seeds replay identical matches")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters in post mode")
		timeout   = flag.Duration("timeout", simfeed.DefaultTimeout, "HTTP request timeout in post mode")
		malformed = flag.Float64("malformed", 0, "Fraction of frames replaced with junk bytes")
		late      = flag.Float64("late", 0, "Fraction of frames backdated past the latency threshold")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simfeed.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &simfeed.Config{
		Mode:          *mode,
		Addr:          *addr,
		Path:          *path,
		BaseURL:       *baseURL,
		Rounds:        *rounds,
		Interval:      *interval,
		Seed:          *seed,
		Workers:       *workers,
		Timeout:       *timeout,
		HomePrefix:    simfeed.DefaultHomePrefix,
		AwayPrefix:    simfeed.DefaultAwayPrefix,
		MalformedRate: *malformed,
		LateRate:      *late,
		Verbose:       *verbose,
	}

	if err := simfeed.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("simulated feed failed: " + err.Error() + "\n")
		return
	}
}
