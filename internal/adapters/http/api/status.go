// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/matchpulse/matchpulse/internal/domain/types"
)

// StatusProvider defines the interface for delivery-layer health queries.
type StatusProvider interface {
	Status() types.SyncStatus
	FeedState() string
	Performance() types.PerformanceMetrics
}

// StatusHandler handles delivery-layer status queries.
type StatusHandler struct {
	provider StatusProvider
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(provider StatusProvider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

// statusResponse combines sync health with processing performance.
type statusResponse struct {
	Sync        types.SyncStatus         `json:"sync"`
	FeedState   string                   `json:"feed_state"`
	Performance types.PerformanceMetrics `json:"performance"`
}

// HandleStatus handles GET /status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Sync:        h.provider.Status(),
		FeedState:   h.provider.FeedState(),
		Performance: h.provider.Performance(),
	})
}
