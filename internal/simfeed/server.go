package simfeed

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matchpulse/matchpulse/pkg/logger"
)

// HTTP server timeout constants for serve mode.
const (
	serveReadTimeout     = 10 * time.Second
	serveWriteTimeout    = 10 * time.Second
	serveShutdownTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server streams a scripted match to every websocket subscriber. Each
// connection replays the script from the start at the configured interval,
// looping when it runs out.
type Server struct {
	cfg    *Config
	script []Frame
	logger logger.Logger
}

// NewServer creates a feed server for the given script.
func NewServer(cfg *Config, script []Frame) *Server {
	return &Server{
		cfg:    cfg,
		script: script,
		logger: logger.Get().Named("simfeed"),
	}
}

// Handler returns the websocket endpoint handler.
func (s *Server) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer func() { _ = conn.Close() }()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Consume (and discard) client frames so a close is noticed.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		s.logger.Info(ctx, "subscriber connected", logger.String("remote", r.RemoteAddr))
		s.stream(ctx, conn)
		s.logger.Info(ctx, "subscriber disconnected", logger.String("remote", r.RemoteAddr))
	}
}

// stream replays the script to one connection until it drops.
func (s *Server) stream(ctx context.Context, conn *websocket.Conn) {
	// Per-connection RNG so fault injection does not need locking.
	rng := rand.New(rand.NewSource(s.cfg.Seed))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(s.script) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		data, err := EncodeFrame(s.script[i], s.cfg, rng)
		if err != nil {
			s.logger.Warn(ctx, "frame encode failed", logger.Error(err))
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// Run serves the websocket endpoint until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.Handler())

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      mux,
		ReadTimeout:  serveReadTimeout,
		WriteTimeout: serveWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "serving simulated feed",
			logger.String("addr", s.cfg.Addr),
			logger.String("path", s.cfg.Path),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// EncodeFrame stamps a frame with the current time and applies the
// configured fault injection: late frames are backdated past the consumer's
// latency threshold, malformed frames come out as junk bytes.
func EncodeFrame(f Frame, cfg *Config, rng *rand.Rand) ([]byte, error) {
	if cfg.MalformedRate > 0 && rng.Float64() < cfg.MalformedRate {
		return []byte("{not json"), nil
	}

	ts := time.Now()
	if cfg.LateRate > 0 && rng.Float64() < cfg.LateRate {
		ts = ts.Add(-lateBackdate)
	}
	// Nano precision keeps sub-second backdating visible to the consumer.
	f.Timestamp = ts.UTC().Format(time.RFC3339Nano)

	return json.Marshal(f)
}
