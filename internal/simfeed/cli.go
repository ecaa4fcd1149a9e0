package simfeed

import "os"

// ShowHelp prints usage information for the simulated feed tool.
func ShowHelp() {
	os.Stdout.WriteString(`MatchPulse Simulated Feed
=========================

Scripts a deterministic competitive match and either streams it over
websocket (the format the analytics service consumes live) or posts it
to the service's HTTP ingest endpoint.

Usage:
  go run cmd/sim-feed/main.go [options]

Options:
  -mode string
        "serve" to stream over websocket, "post" to submit over HTTP (default "serve")
  -addr string
        Listen address in serve mode (default ":9001")
  -path string
        Websocket path in serve mode (default "/feed")
  -url string
        Base URL of the analytics service in post mode (default "http://localhost:8080")
  -rounds int
        Number of rounds to script (default 24)
  -interval duration
        Delay between frames in serve mode (default 250ms)
  -seed int
        RNG seed; identical seeds replay identical matches (default 1)
  -workers int
        Concurrent submitters in post mode (default CPU cores * 2)
  -timeout duration
        HTTP request timeout in post mode (default 30s)
  -malformed float
        Fraction of frames replaced with junk bytes (default 0)
  -late float
        Fraction of frames backdated past the latency threshold (default 0)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Stream a match on the default port
  go run cmd/sim-feed/main.go

  # Post a 30-round match to a local service with fault injection
  go run cmd/sim-feed/main.go -mode post -rounds 30 -malformed 0.02 -late 0.05
`)
}
