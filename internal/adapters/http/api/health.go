package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/scenecalc/pkg/metrics"
)

// HealthHandler exposes the metrics registry. A scrape that succeeds doubles
// as the liveness check.
type HealthHandler struct {
	exposition http.Handler
}

// NewHealthHandler binds the handler to the registry current at call time.
// metrics.Init must run before the server is built for a custom namespace to show.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		exposition: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		}),
	}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	h.exposition.ServeHTTP(w, r)
}
