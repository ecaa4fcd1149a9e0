// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/matchpulse/matchpulse/internal/domain/pattern"
)

// PatternProvider defines the interface for pattern analysis queries.
type PatternProvider interface {
	AnalyzePatterns() pattern.Analysis
	DetectSequences() []pattern.SequencePattern
}

// PatternsHandler handles pattern analysis queries.
type PatternsHandler struct {
	provider PatternProvider
}

// NewPatternsHandler creates a new patterns handler.
func NewPatternsHandler(provider PatternProvider) *PatternsHandler {
	return &PatternsHandler{provider: provider}
}

// patternsResponse bundles findings and raw sequence detections.
type patternsResponse struct {
	pattern.Analysis
	DetectedSequences []pattern.SequencePattern `json:"detected_sequences"`
}

// HandleGetPatterns handles GET /patterns requests.
func (h *PatternsHandler) HandleGetPatterns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	resp := patternsResponse{
		Analysis:          h.provider.AnalyzePatterns(),
		DetectedSequences: h.provider.DetectSequences(),
	}
	if resp.DetectedSequences == nil {
		resp.DetectedSequences = []pattern.SequencePattern{}
	}
	writeJSON(w, http.StatusOK, resp)
}
