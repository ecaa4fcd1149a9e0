// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/matchpulse/matchpulse/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EventDependencies
	InsightSource
	ProbabilityProvider
	PatternProvider
	StatusProvider
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	insightsHandler *InsightsHandler
	winProbHandler  *WinProbHandler
	patternsHandler *PatternsHandler
	statusHandler   *StatusHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxInsightLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		eventsHandler:   NewEventsHandler(deps),
		insightsHandler: NewInsightsHandler(deps, maxInsightLimit),
		winProbHandler:  NewWinProbHandler(deps),
		patternsHandler: NewPatternsHandler(deps),
		statusHandler:   NewStatusHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/insights", MetricsMiddleware(s.insightsHandler.HandleGetInsights, "insights"))
	mux.HandleFunc("/winprob", MetricsMiddleware(s.winProbHandler.HandleGetWinProb, "winprob"))
	mux.HandleFunc("/patterns", MetricsMiddleware(s.patternsHandler.HandleGetPatterns, "patterns"))
}

// eventRequest mirrors the wire schema for POST /events.
type eventRequest struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Sequence  int64          `json:"sequence"`
	Data      map[string]any `json:"data"`
}

// decode converts the request into a typed event. Field-level omissions are
// left to the quality gate; only an unknown type fails here.
func (e eventRequest) decode() (model.Event, error) {
	return model.DecodeEvent(e.Type, e.Timestamp, e.Data, e.Sequence)
}

type ackResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
