package handlers

import (
	"net/http"

	"github.com/shadowvote/votegate/internal/roll"
)

// StatsHandler reports roll statistics for the kiosk status bar.
type StatsHandler struct {
	store roll.Store
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(store roll.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

// StatsResponse represents the stats endpoint payload
type StatsResponse struct {
	EnrolledVoters int `json:"enrolled_voters"`
}

// Get returns roll statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count enrolled voters")
		return
	}

	respondJSON(w, http.StatusOK, StatsResponse{EnrolledVoters: count})
}
