package simfeed

import "time"

// Config holds configuration for the simulated match feed.
type Config struct {
	Mode          string        // "serve" streams over websocket, "post" submits over HTTP
	Addr          string        // Listen address for serve mode
	Path          string        // Websocket path for serve mode
	BaseURL       string        // Base URL of the analytics service for post mode
	Rounds        int           // Number of rounds to script
	Interval      time.Duration // Delay between frames in serve mode
	Seed          int64         // RNG seed; identical seeds replay identical matches
	Workers       int           // Concurrent submitters in post mode
	Timeout       time.Duration // HTTP request timeout in post mode
	HomePrefix    string        // Player ID prefix for the home side
	AwayPrefix    string        // Player ID prefix for the away side
	MalformedRate float64       // Fraction of frames replaced with junk bytes
	LateRate      float64       // Fraction of frames backdated past the latency threshold
	Verbose       bool          // Enable verbose logging
}

// Frame is the wire-format message consumed by the feed client. Timestamps
// are stamped at send time so replayed scripts never look stale.
type Frame struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Sequence  int64          `json:"sequence"`
	Data      map[string]any `json:"data"`
}

// AckResponse is the response body for an accepted event submission.
type AckResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// Stats holds feed run statistics.
type Stats struct {
	FramesGenerated int
	FramesSent      int
	Accepted        int
	Rejected        int
	Backpressured   int
	Failed          int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
