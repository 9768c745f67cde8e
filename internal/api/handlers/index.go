package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/index"
)

// IndexHandler computes series summaries and impact estimates
type IndexHandler struct{}

// NewIndexHandler creates a new index handler
func NewIndexHandler() *IndexHandler {
	return &IndexHandler{}
}

// SummaryResponse is the body of POST /api/index/summary
type SummaryResponse struct {
	Summary  contracts.IndexSummary `json:"summary"`
	Filtered int                    `json:"filtered"` // dropped by the cloud filter
}

// Summary summarises a posted series
// POST /api/index/summary?max_cloud=20
func (h *IndexHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var s contracts.IndexTimeSeries
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	maxCloud, ok := cloudParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "max_cloud must be a number between 0 and 100")
		return
	}

	before := s.Len()
	if maxCloud > 0 {
		s = index.FilterCloudCover(s, maxCloud)
	}

	sum, err := index.Summarize(s)
	switch {
	case errors.Is(err, index.ErrEmptySeries), errors.Is(err, contracts.ErrNotChronological):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "Failed to summarise series")
		return
	}

	respondJSON(w, http.StatusOK, SummaryResponse{Summary: sum, Filtered: before - s.Len()})
}

// ImpactRequest is the body of POST /api/impact
type ImpactRequest struct {
	Treatment contracts.IndexTimeSeries `json:"treatment"`
	Control   contracts.IndexTimeSeries `json:"control"`
}

// Impact compares treatment against control
// POST /api/impact
func (h *IndexHandler) Impact(w http.ResponseWriter, r *http.Request) {
	var req ImpactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	for _, s := range []contracts.IndexTimeSeries{req.Treatment, req.Control} {
		if err := s.Validate(); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	respondJSON(w, http.StatusOK, index.EstimateImpact(req.Treatment, req.Control))
}

// cloudParam reads max_cloud; 0 disables filtering
func cloudParam(r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("max_cloud")
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}
