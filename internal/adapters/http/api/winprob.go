// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/matchpulse/matchpulse/internal/domain/types"
	"github.com/matchpulse/matchpulse/internal/domain/winprob"
)

// ProbabilityProvider defines the interface for win-probability queries.
type ProbabilityProvider interface {
	WinProbability() types.WinProbabilityResult
	Uncertainty() winprob.UncertaintyReport
}

// WinProbHandler handles win-probability queries.
type WinProbHandler struct {
	provider ProbabilityProvider
}

// NewWinProbHandler creates a new win-probability handler.
func NewWinProbHandler(provider ProbabilityProvider) *WinProbHandler {
	return &WinProbHandler{provider: provider}
}

// winProbResponse optionally carries the Monte Carlo spread.
type winProbResponse struct {
	types.WinProbabilityResult
	Uncertainty *winprob.UncertaintyReport `json:"uncertainty,omitempty"`
}

// HandleGetWinProb handles GET /winprob requests. Passing ?uncertainty=1
// adds the Monte Carlo spread, which is costlier to compute.
func (h *WinProbHandler) HandleGetWinProb(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	resp := winProbResponse{WinProbabilityResult: h.provider.WinProbability()}
	if r.URL.Query().Get("uncertainty") == "1" {
		report := h.provider.Uncertainty()
		resp.Uncertainty = &report
	}
	writeJSON(w, http.StatusOK, resp)
}
