// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"

	"github.com/matchpulse/matchpulse/internal/domain/types"
)

// Default insight query limits.
const defaultInsightLimit = 20

// InsightSource defines the interface for validated insight queries.
type InsightSource interface {
	Insights(limit int) []types.ValidatedInsight
}

// InsightsHandler handles insight queries.
type InsightsHandler struct {
	source   InsightSource
	maxLimit int
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(source InsightSource, maxLimit int) *InsightsHandler {
	if maxLimit <= 0 {
		maxLimit = defaultInsightLimit
	}
	return &InsightsHandler{source: source, maxLimit: maxLimit}
}

// HandleGetInsights handles GET /insights?limit=N requests.
func (h *InsightsHandler) HandleGetInsights(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_insights"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	n := defaultInsightLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = parsed
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	insights := h.source.Insights(n)
	if insights == nil {
		insights = []types.ValidatedInsight{}
	}
	writeJSON(w, http.StatusOK, insights)
}
