// Package feed maintains the live connection to the match event source:
// websocket first, timed polling as fallback, with heartbeat-driven
// reconnects and per-handler fault isolation.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/matchpulse/matchpulse/internal/domain/model"
	"github.com/matchpulse/matchpulse/internal/domain/types"
	"github.com/matchpulse/matchpulse/pkg/logger"
	"github.com/matchpulse/matchpulse/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultReconnectBackoff  = 3 * time.Second
	defaultHeartbeatInterval = 10 * time.Second
	defaultPollInterval      = 5 * time.Second
	defaultDegradedAfter     = 5
	defaultLatencyWarn       = 500 * time.Millisecond

	// latencyLogRate bounds how often delayed-frame warnings are written.
	latencyLogRate = rate.Limit(1)
)

// State is the connection lifecycle state.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateDegraded     State = "degraded"
	StateClosed       State = "closed"
)

// Conn is the subset of a websocket connection the client reads from.
type Conn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

// Dialer establishes feed connections. Swappable for tests.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Handler consumes decoded events. A panicking handler is isolated; it
// never takes down the read loop or its sibling handlers.
type Handler func(model.Event)

// Poller fetches a batch of events while the socket is unreachable.
type Poller func(ctx context.Context) ([]model.Event, error)

// wsDialer is the production dialer.
type wsDialer struct{}

func (wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

// wireMessage is the frame format produced by the event source.
type wireMessage struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Sequence  int64          `json:"sequence"`
	Data      map[string]any `json:"data"`
}

// Client keeps one supervised connection to the event source and fans
// decoded events out to registered handlers.
type Client struct {
	url    string
	dialer Dialer
	poller Poller

	reconnectBackoff  time.Duration
	heartbeatInterval time.Duration
	pollInterval      time.Duration
	degradedAfter     int
	latencyWarn       time.Duration

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	stateMu sync.RWMutex
	state   State

	lastMessage atomic.Int64 // unix nanos
	errorCount  atomic.Int64

	monitor    *Monitor
	logLimiter *rate.Limiter
	queueLen   func() int

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	logger logger.Logger
}

// NewClient creates a feed client with configuration options.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:               url,
		dialer:            wsDialer{},
		reconnectBackoff:  defaultReconnectBackoff,
		heartbeatInterval: defaultHeartbeatInterval,
		pollInterval:      defaultPollInterval,
		degradedAfter:     defaultDegradedAfter,
		latencyWarn:       defaultLatencyWarn,
		handlers:          make(map[string]Handler),
		state:             StateConnecting,
		monitor:           NewMonitor(defaultMonitorCapacity),
		logLimiter:        rate.NewLimiter(latencyLogRate, 1),
		logger:            logger.Get().Named("feed"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RegisterHandler adds a named handler for decoded events.
func (c *Client) RegisterHandler(name string, h Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[name] = h
}

// UnregisterHandler removes a named handler.
func (c *Client) UnregisterHandler(name string) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	delete(c.handlers, name)
}

// Start launches the supervised connection loop. The loop owns reconnects;
// it only exits when ctx is canceled or Stop is called.
func (c *Client) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.cancel != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.supervise(runCtx)

	return nil
}

// Stop cancels the connection loop and waits for it to exit.
func (c *Client) Stop(ctx context.Context) error {
	c.runMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.runMu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("feed stop timed out: %w", ctx.Err())
	}
}

// supervise is the retry loop: dial, read until failure, back off, repeat.
// Repeated dial failures demote the client to degraded polling until the
// socket is reachable again.
func (c *Client) supervise(ctx context.Context) {
	defer close(c.done)
	defer c.setState(StateClosed)

	first := true
	for {
		if ctx.Err() != nil {
			return
		}

		if first {
			c.setState(StateConnecting)
		} else {
			c.setState(StateReconnecting)
		}

		conn := c.connect(ctx)
		if conn == nil {
			return
		}
		first = false

		c.setState(StateConnected)
		c.touch()
		c.logger.Info(ctx, "feed connected", logger.String("url", c.url))

		err := c.readLoop(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		metrics.RecordFeedReconnect()
		c.logger.Warn(ctx, "feed connection lost", logger.Error(err))

		if !sleepCtx(ctx, c.reconnectBackoff) {
			return
		}
	}
}

// connect dials until it succeeds, degrading to the poll loop after too
// many consecutive failures. Returns nil only when ctx is done.
func (c *Client) connect(ctx context.Context) Conn {
	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := c.dialer.Dial(ctx, c.url)
		if err == nil {
			return conn
		}

		failures++
		c.errorCount.Add(1)
		metrics.RecordErrorByComponent("feed", "dial_error")
		c.logger.Warn(ctx, "feed dial failed",
			logger.Error(err),
			logger.Int("consecutive_failures", failures),
		)

		if failures >= c.degradedAfter {
			c.setState(StateDegraded)
			c.logger.Error(ctx, "feed degraded, falling back to polling",
				logger.Int("failures", failures))
			return c.pollUntilReachable(ctx)
		}

		if !sleepCtx(ctx, c.reconnectBackoff) {
			return nil
		}
	}
}

// pollUntilReachable serves events through the poller while probing the
// socket. Returns the first successful connection, or nil when ctx is done.
func (c *Client) pollUntilReachable(ctx context.Context) Conn {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			metrics.RecordFeedPoll()

			if c.poller != nil {
				events, err := c.poller(ctx)
				if err != nil {
					c.errorCount.Add(1)
					metrics.RecordErrorByComponent("feed", "poll_error")
					c.logger.Warn(ctx, "poll fallback failed", logger.Error(err))
				} else {
					for _, ev := range events {
						c.dispatch(ctx, ev)
					}
					if len(events) > 0 {
						c.touch()
					}
				}
			}

			if conn, err := c.dialer.Dial(ctx, c.url); err == nil {
				return conn
			}
		}
	}
}

// readLoop reads frames until the connection fails. A watchdog closes the
// connection when no frame arrives within the heartbeat interval, forcing
// the supervisor to reconnect.
func (c *Client) readLoop(ctx context.Context, conn Conn) error {
	watchdogCtx, stopWatchdog := context.WithCancel(ctx)
	defer stopWatchdog()

	go func() {
		ticker := time.NewTicker(c.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-watchdogCtx.Done():
				// Unblocks a pending ReadMessage during shutdown.
				_ = conn.Close()
				return
			case <-ticker.C:
				if time.Since(c.lastMessageTime()) > c.heartbeatInterval {
					c.logger.Warn(watchdogCtx, "feed heartbeat stale, forcing reconnect",
						logger.Duration("since_last_message", time.Since(c.lastMessageTime())))
					_ = conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		c.touch()
		c.handleFrame(ctx, data)
	}
}

// handleFrame decodes one frame and fans it out. Bad frames count as errors
// but never stop the loop; late frames warn but are still delivered.
func (c *Client) handleFrame(ctx context.Context, data []byte) {
	start := time.Now()

	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.errorCount.Add(1)
		metrics.RecordErrorByComponent("feed", "decode_error")
		c.logger.Warn(ctx, "undecodable frame", logger.Error(err))
		return
	}

	ev, err := model.DecodeEvent(msg.Type, msg.Timestamp, msg.Data, msg.Sequence)
	if err != nil {
		c.errorCount.Add(1)
		metrics.RecordErrorByComponent("feed", "decode_error")
		c.logger.Warn(ctx, "unknown event frame", logger.Error(err))
		return
	}

	ev.ID = msg.ID
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	if ev.TimestampValid {
		receiveLatency := time.Since(ev.Timestamp)
		metrics.RecordFeedReceiveLatency(toMs(receiveLatency))
		if receiveLatency > c.latencyWarn && c.logLimiter.Allow() {
			c.logger.Warn(ctx, "delayed event received",
				logger.String("event_id", ev.ID),
				logger.Duration("latency", receiveLatency),
			)
		}
	}

	c.dispatch(ctx, ev)
	c.monitor.Record(time.Since(start))
}

// dispatch invokes every registered handler with panic isolation.
func (c *Client) dispatch(ctx context.Context, ev model.Event) {
	c.handlersMu.RLock()
	snapshot := make(map[string]Handler, len(c.handlers))
	for name, h := range c.handlers {
		snapshot[name] = h
	}
	c.handlersMu.RUnlock()

	for name, h := range snapshot {
		c.invoke(ctx, name, h, ev)
	}
	metrics.RecordEventIngested()
}

func (c *Client) invoke(ctx context.Context, name string, h Handler, ev model.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.errorCount.Add(1)
			metrics.RecordHandlerError()
			c.logger.Error(ctx, "event handler panicked",
				logger.String("handler", name),
				logger.Any("panic", r),
			)
		}
	}()
	h(ev)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// ErrorCount returns the total number of errors observed since creation.
func (c *Client) ErrorCount() int64 {
	return c.errorCount.Load()
}

// Metrics summarizes frame-handling performance.
func (c *Client) Metrics() types.PerformanceMetrics {
	return c.monitor.Metrics()
}

// Monitor exposes the frame-handling latency monitor.
func (c *Client) Monitor() *Monitor {
	return c.monitor
}

// Status reports delivery-layer health for monitoring surfaces.
func (c *Client) Status() types.SyncStatus {
	last := c.lastMessageTime()
	perf := c.monitor.Metrics()

	queued := 0
	if c.queueLen != nil {
		queued = c.queueLen()
	}

	return types.SyncStatus{
		IsConnected:   c.State() == StateConnected,
		LastUpdate:    last,
		LatencyMs:     perf.AvgMs,
		DataFreshness: model.ClassifyFreshness(last, time.Now()),
		QueueSize:     queued,
		ErrorCount:    c.errorCount.Load(),
	}
}

func (c *Client) setState(s State) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = s
}

func (c *Client) touch() {
	c.lastMessage.Store(time.Now().UnixNano())
}

func (c *Client) lastMessageTime() time.Time {
	return time.Unix(0, c.lastMessage.Load())
}

// sleepCtx sleeps for d unless ctx finishes first; reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
