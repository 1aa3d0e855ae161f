package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider reports the engine's lifecycle and static data sizes.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves a snapshot of the engine state.
type StatsHandler struct {
	provider StatsProvider
	now      func() time.Time
}

// NewStatsHandler creates a stats handler over provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, now: time.Now}
}

// HandleStats handles GET /stats requests. The provider's keys are returned
// as-is with a generatedAt timestamp added.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snapshot := make(map[string]interface{})
	if h.provider != nil {
		maps.Copy(snapshot, h.provider.GetStats())
	}
	snapshot["generatedAt"] = h.now().UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, snapshot)
}
