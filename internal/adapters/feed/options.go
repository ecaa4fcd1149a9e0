package feed

import (
	"time"

	"github.com/matchpulse/matchpulse/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithDialer swaps the connection dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithPoller sets the fallback fetcher used while degraded.
func WithPoller(p Poller) Option {
	return func(c *Client) {
		if p != nil {
			c.poller = p
		}
	}
}

// WithReconnectBackoff sets the pause between reconnect attempts.
func WithReconnectBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectBackoff = d
		}
	}
}

// WithHeartbeatInterval sets how long the feed may stay silent before the
// watchdog forces a reconnect.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.heartbeatInterval = d
		}
	}
}

// WithPollInterval sets the cadence of the degraded-mode poll loop.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithDegradedAfter sets how many consecutive dial failures demote the
// client to polling.
func WithDegradedAfter(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.degradedAfter = n
		}
	}
}

// WithLatencyWarn sets the receive latency above which frames are logged
// as delayed.
func WithLatencyWarn(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.latencyWarn = d
		}
	}
}

// WithQueueLen wires a queue length probe into Status reports.
func WithQueueLen(f func() int) Option {
	return func(c *Client) {
		if f != nil {
			c.queueLen = f
		}
	}
}

// WithMonitorCapacity bounds the performance sample ring.
func WithMonitorCapacity(n int) Option {
	return func(c *Client) {
		if n > 0 {
			threshold := c.monitor.threshold
			c.monitor = NewMonitor(n)
			c.monitor.threshold = threshold
		}
	}
}

// WithDegradedThreshold sets the trailing-average handling latency above
// which the feed reports itself degraded.
func WithDegradedThreshold(d time.Duration) Option {
	return func(c *Client) {
		c.monitor.SetDegradedThreshold(d)
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
