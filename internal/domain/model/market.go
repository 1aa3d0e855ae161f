package model

import "maps"

// ViewerGroup is a static market segment. Groups may inherit from a parent;
// unset scalar fields are nil so inheritance can tell "absent" from zero.
type ViewerGroup struct {
	Name               string   `json:"name" yaml:"name"`
	InheritsFrom       string   `json:"inherits_from,omitempty" yaml:"inherits_from,omitempty"`
	MarketSharePercent *float64 `json:"market_share_percent,omitempty" yaml:"market_share_percent,omitempty"`
	SpendingPower      *float64 `json:"spending_power,omitempty" yaml:"spending_power,omitempty"`
	FocusBonus         *float64 `json:"focus_bonus,omitempty" yaml:"focus_bonus,omitempty"`

	// Preferences maps a preference kind (e.g. "scene_tags") to per-item weights.
	Preferences         map[string]map[string]float64 `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	PopularitySpillover map[string]float64            `json:"popularity_spillover,omitempty" yaml:"popularity_spillover,omitempty"`
}

// Clone deep-copies the group.
func (g ViewerGroup) Clone() ViewerGroup {
	out := g
	out.MarketSharePercent = cloneFloat(g.MarketSharePercent)
	out.SpendingPower = cloneFloat(g.SpendingPower)
	out.FocusBonus = cloneFloat(g.FocusBonus)
	if g.Preferences != nil {
		out.Preferences = make(map[string]map[string]float64, len(g.Preferences))
		for k, v := range g.Preferences {
			out.Preferences[k] = maps.Clone(v)
		}
	}
	if g.PopularitySpillover != nil {
		out.PopularitySpillover = maps.Clone(g.PopularitySpillover)
	}
	return out
}

// ProductionTier is one selectable tier of a production setting category
// such as "Camera Equipment".
type ProductionTier struct {
	TierName       string   `json:"tier_name" yaml:"tier_name"`
	CostPerScene   float64  `json:"cost_per_scene" yaml:"cost_per_scene"`
	CostMultiplier *float64 `json:"cost_multiplier,omitempty" yaml:"cost_multiplier,omitempty"`
	IsLowTier      bool     `json:"is_low_tier,omitempty" yaml:"is_low_tier,omitempty"`
}

// Multiplier returns CostMultiplier, or 1.0 when unset.
func (t ProductionTier) Multiplier() float64 {
	if t.CostMultiplier == nil {
		return 1.0
	}
	return *t.CostMultiplier
}

// OnSetPolicy is a bloc-wide policy with a flat cost.
type OnSetPolicy struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	CostPerBloc float64 `json:"cost_per_bloc" yaml:"cost_per_bloc"`
}

// ShootingBloc is the production context a scene is shot in.
type ShootingBloc struct {
	ProductionSettings map[string]string `json:"production_settings,omitempty" yaml:"production_settings,omitempty"`
	OnSetPolicies      []string          `json:"on_set_policies,omitempty" yaml:"on_set_policies,omitempty"`
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
