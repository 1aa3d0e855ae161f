// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/scenecalc/internal/app"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	TagDependencies
	CalculationDependencies
	MarketDependencies
}

// Server wires HTTP routes for the calculation API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	tagsHandler        *TagsHandler
	calculationHandler *CalculationHandler
	marketHandler      *MarketHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		tagsHandler:        NewTagsHandler(deps),
		calculationHandler: NewCalculationHandler(deps),
		marketHandler:      NewMarketHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/tags", MetricsMiddleware(s.tagsHandler.HandleListTags, "tags"))
	mux.HandleFunc("/tags/", MetricsMiddleware(s.tagsHandler.HandleGetTag, "tag"))

	mux.HandleFunc("/modifiers", MetricsMiddleware(s.calculationHandler.HandleModifier, "modifiers"))
	mux.HandleFunc("/affinities", MetricsMiddleware(s.calculationHandler.HandleAffinities, "affinities"))
	mux.HandleFunc("/demand", MetricsMiddleware(s.calculationHandler.HandleDemand, "demand"))
	mux.HandleFunc("/stamina", MetricsMiddleware(s.calculationHandler.HandleStamina, "stamina"))
	mux.HandleFunc("/availability", MetricsMiddleware(s.calculationHandler.HandleAvailability, "availability"))
	mux.HandleFunc("/fatigue", MetricsMiddleware(s.calculationHandler.HandleFatigue, "fatigue"))
	mux.HandleFunc("/shoot-outcome", MetricsMiddleware(s.calculationHandler.HandleShootOutcome, "shoot_outcome"))
	mux.HandleFunc("/bloc-cost", MetricsMiddleware(s.calculationHandler.HandleBlocCost, "bloc_cost"))

	mux.HandleFunc("/market/groups", MetricsMiddleware(s.marketHandler.HandleListGroups, "market_groups"))
	mux.HandleFunc("/market/groups/", MetricsMiddleware(s.marketHandler.HandleGetGroup, "market_group"))
	mux.HandleFunc("/market/saturation", MetricsMiddleware(s.marketHandler.HandleSaturation, "market_saturation"))
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

// respondError translates service and API errors into a status and code.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrUnknownRole):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrNotFound), errors.Is(err, service.ErrUnknownTag), errors.Is(err, service.ErrUnknownGroup):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrNotReady), errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// validator is implemented by request bodies.
type validator interface {
	validate() error
}

// decodeRequest decodes the JSON body of r into req and validates it.
func decodeRequest(op string, r *http.Request, req validator) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := req.validate(); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
