package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/scenecalc/internal/domain/availability"
	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/internal/domain/shootresults"
)

// CalculationDependencies defines the calculators exposed over HTTP.
type CalculationDependencies interface {
	FinalModifier(baseKey string, seg model.ActionSegment, role string) (float64, error)
	StaminaCost(scene model.Scene, vpID int) (float64, error)
	RecalculateAffinities(ctx context.Context, talents []model.Talent) (map[int]map[string]float64, error)
	TalentDemand(t model.Talent, scene model.Scene, vpID int) (int, error)
	CheckAvailability(
		ctx context.Context,
		t model.Talent,
		scene model.Scene,
		vpID int,
		bloc *model.ShootingBloc,
		bookings availability.Bookings,
	) (availability.Result, error)
	EstimateFatigue(t model.Talent, scene model.Scene, vpID int) (int, error)
	ShootOutcome(t model.Talent, scene model.Scene, vpID, week, year int) (shootresults.Outcome, error)
	ShootingBlocCost(numScenes int, settings map[string]string, policies []string) (int, error)
}

// CalculationHandler handles calculation requests.
type CalculationHandler struct {
	deps CalculationDependencies
}

// NewCalculationHandler creates a new calculation handler.
func NewCalculationHandler(deps CalculationDependencies) *CalculationHandler {
	return &CalculationHandler{deps: deps}
}

type modifierRequest struct {
	BaseKey string              `json:"base_key"`
	Role    string              `json:"role"`
	Segment model.ActionSegment `json:"segment"`
}

func (m modifierRequest) validate() error {
	switch {
	case strings.TrimSpace(m.BaseKey) == "":
		return errors.New("missing base_key")
	case strings.TrimSpace(m.Role) == "":
		return errors.New("missing role")
	case strings.TrimSpace(m.Segment.TagName) == "":
		return errors.New("missing segment.tag_name")
	}
	return nil
}

type modifierResponse struct {
	Value float64 `json:"value"`
}

// HandleModifier handles POST /modifiers requests.
func (h *CalculationHandler) HandleModifier(w http.ResponseWriter, r *http.Request) {
	const op = "api.modifier"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req modifierRequest
	if err := decodeRequest(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	v, err := h.deps.FinalModifier(req.BaseKey, req.Segment, req.Role)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modifierResponse{Value: v})
}

type affinitiesRequest struct {
	Talents []model.Talent `json:"talents"`
}

func (a affinitiesRequest) validate() error {
	if len(a.Talents) == 0 {
		return errors.New("missing talents")
	}
	return nil
}

type affinitiesResponse struct {
	Changed map[int]map[string]float64 `json:"changed"`
}

// HandleAffinities handles POST /affinities requests.
func (h *CalculationHandler) HandleAffinities(w http.ResponseWriter, r *http.Request) {
	const op = "api.affinities"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req affinitiesRequest
	if err := decodeRequest(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	changed, err := h.deps.RecalculateAffinities(r.Context(), req.Talents)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, affinitiesResponse{Changed: changed})
}

// castRequest identifies a talent playing a virtual performer of a scene.
type castRequest struct {
	Talent model.Talent `json:"talent"`
	Scene  model.Scene  `json:"scene"`
	VPID   int          `json:"vp_id"`
}

func (c castRequest) validate() error {
	for _, vp := range c.Scene.VirtualPerformers {
		if vp.ID == c.VPID {
			return nil
		}
	}
	return errors.New("vp_id is not a virtual performer of the scene")
}

type demandResponse struct {
	Demand int `json:"demand"`
}

// HandleDemand handles POST /demand requests.
func (h *CalculationHandler) HandleDemand(w http.ResponseWriter, r *http.Request) {
	const op = "api.demand"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req castRequest
	if err := decodeRequest(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	fee, err := h.deps.TalentDemand(req.Talent, req.Scene, req.VPID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, demandResponse{Demand: fee})
}

type staminaRequest struct {
	Scene model.Scene `json:"scene"`
	VPID  int         `json:"vp_id"`
}

func (s staminaRequest) validate() error {
	return castRequest{Scene: s.Scene, VPID: s.VPID}.validate()
}

type staminaResponse struct {
	StaminaCost float64 `json:"stamina_cost"`
}

// HandleStamina handles POST /stamina requests.
func (h *CalculationHandler) HandleStamina(w http.ResponseWriter, r *http.Request) {
	const op = "api.stamina"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req staminaRequest
	if err := decodeRequest(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	cost, err := h.deps.StaminaCost(req.Scene, req.VPID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, staminaResponse{StaminaCost: cost})
}

type availabilityRequest struct {
	castRequest
	Bloc     *model.ShootingBloc   `json:"bloc,omitempty"`
	Bookings availability.Bookings `json:"bookings"`
}

// HandleAvailability handles POST /availability requests.
func (h *CalculationHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	const op = "api.availability"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req availabilityRequest
	if err := decodeRequest(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.deps.CheckAvailability(r.Context(), req.Talent, req.Scene, req.VPID, req.Bloc, req.Bookings)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type fatigueResponse struct {
	FatigueGain int `json:"fatigue_gain"`
}

// HandleFatigue handles POST /fatigue requests.
func (h *CalculationHandler) HandleFatigue(w http.ResponseWriter, r *http.Request) {
	const op = "api.fatigue"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req castRequest
	if err := decodeRequest(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	gain, err := h.deps.EstimateFatigue(req.Talent, req.Scene, req.VPID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fatigueResponse{FatigueGain: gain})
}

type shootOutcomeRequest struct {
	castRequest
	Week int `json:"week"`
	Year int `json:"year"`
}

func (s shootOutcomeRequest) validate() error {
	if s.Week < 1 || s.Week > shootresults.WeeksPerYear {
		return errors.New("week must be between 1 and 52")
	}
	return s.castRequest.validate()
}

// HandleShootOutcome handles POST /shoot-outcome requests.
func (h *CalculationHandler) HandleShootOutcome(w http.ResponseWriter, r *http.Request) {
	const op = "api.shoot_outcome"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req shootOutcomeRequest
	if err := decodeRequest(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	out, err := h.deps.ShootOutcome(req.Talent, req.Scene, req.VPID, req.Week, req.Year)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type blocCostRequest struct {
	NumScenes          int               `json:"num_scenes"`
	ProductionSettings map[string]string `json:"production_settings"`
	OnSetPolicies      []string          `json:"on_set_policies"`
}

func (b blocCostRequest) validate() error {
	if b.NumScenes < 0 {
		return errors.New("num_scenes must not be negative")
	}
	return nil
}

type blocCostResponse struct {
	Cost int `json:"cost"`
}

// HandleBlocCost handles POST /bloc-cost requests.
func (h *CalculationHandler) HandleBlocCost(w http.ResponseWriter, r *http.Request) {
	const op = "api.bloc_cost"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req blocCostRequest
	if err := decodeRequest(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	cost, err := h.deps.ShootingBlocCost(req.NumScenes, req.ProductionSettings, req.OnSetPolicies)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blocCostResponse{Cost: cost})
}
