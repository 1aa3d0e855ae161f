package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/scenecalc/internal/domain/model"
)

// MarketDependencies defines the viewer market queries.
type MarketDependencies interface {
	ViewerGroup(name string) (model.ViewerGroup, error)
	ViewerGroupNames() ([]string, error)
	RecoverSaturation(ctx context.Context, current map[string]float64) (map[string]float64, error)
}

// MarketHandler handles viewer market requests.
type MarketHandler struct {
	deps MarketDependencies
}

// NewMarketHandler creates a new market handler.
func NewMarketHandler(deps MarketDependencies) *MarketHandler {
	return &MarketHandler{deps: deps}
}

type groupsResponse struct {
	Groups []string `json:"groups"`
}

// HandleListGroups handles GET /market/groups requests.
func (h *MarketHandler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	names, err := h.deps.ViewerGroupNames()
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsResponse{Groups: names})
}

// HandleGetGroup handles GET /market/groups/{name} requests.
func (h *MarketHandler) HandleGetGroup(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_group"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/market/groups/")
	if name == "" || strings.Contains(name, "/") {
		respondError(w, NewKind(op, ErrBadRequest))
		return
	}
	g, err := h.deps.ViewerGroup(name)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type saturationRequest struct {
	Saturation map[string]float64 `json:"saturation"`
}

func (s saturationRequest) validate() error {
	for name, v := range s.Saturation {
		if v < 0 {
			return errors.New("saturation of " + name + " must not be negative")
		}
	}
	return nil
}

// HandleSaturation handles POST /market/saturation requests. The response
// carries the saturation after one week of recovery.
func (h *MarketHandler) HandleSaturation(w http.ResponseWriter, r *http.Request) {
	const op = "api.saturation"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req saturationRequest
	if err := decodeRequest(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	next, err := h.deps.RecoverSaturation(r.Context(), req.Saturation)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saturationRequest{Saturation: next})
}
