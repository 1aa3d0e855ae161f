// Package model contains domain records passed between the static data layer,
// the calculators and the HTTP adapter.
package model

import "maps"

// PolicyRequirements lists on-set policy ids a talent insists on or refuses.
type PolicyRequirements struct {
	Requires []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Refuses  []string `json:"refuses,omitempty" yaml:"refuses,omitempty"`
}

// Talent is a hireable performer.
type Talent struct {
	ID          int     `json:"id" yaml:"id"`
	Alias       string  `json:"alias" yaml:"alias"`
	Age         int     `json:"age" yaml:"age"`
	Gender      string  `json:"gender,omitempty" yaml:"gender,omitempty"`
	Ethnicity   string  `json:"ethnicity,omitempty" yaml:"ethnicity,omitempty"`
	Performance float64 `json:"performance" yaml:"performance"`
	Acting      float64 `json:"acting" yaml:"acting"`
	Stamina     float64 `json:"stamina" yaml:"stamina"`
	DomSkill    float64 `json:"dom_skill" yaml:"dom_skill"`
	SubSkill    float64 `json:"sub_skill" yaml:"sub_skill"`
	Experience  float64 `json:"experience" yaml:"experience"`
	Ambition    int     `json:"ambition" yaml:"ambition"`

	// Fatigue is 0..100. FatigueEndWeek and FatigueEndYear mark when the
	// current fatigue wears off.
	Fatigue        int `json:"fatigue" yaml:"fatigue"`
	FatigueEndWeek int `json:"fatigue_end_week,omitempty" yaml:"fatigue_end_week,omitempty"`
	FatigueEndYear int `json:"fatigue_end_year,omitempty" yaml:"fatigue_end_year,omitempty"`

	// Popularity maps viewer group name to the talent's popularity there.
	Popularity map[string]float64 `json:"popularity,omitempty" yaml:"popularity,omitempty"`

	// TagAffinities maps tag name to affinity score.
	TagAffinities map[string]float64 `json:"tag_affinities,omitempty" yaml:"tag_affinities,omitempty"`

	// TagPreferences maps tag name -> role -> preference multiplier (1.0 is neutral).
	TagPreferences map[string]map[string]float64 `json:"tag_preferences,omitempty" yaml:"tag_preferences,omitempty"`

	HardLimits         []string           `json:"hard_limits,omitempty" yaml:"hard_limits,omitempty"`
	MaxScenePartners   int                `json:"max_scene_partners" yaml:"max_scene_partners"`
	ConcurrencyLimits  map[string]int     `json:"concurrency_limits,omitempty" yaml:"concurrency_limits,omitempty"`
	PolicyRequirements PolicyRequirements `json:"policy_requirements" yaml:"policy_requirements"`
}

// Preference returns the talent's preference for role within tag, or 1.0.
func (t Talent) Preference(tag, role string) float64 {
	if byRole, ok := t.TagPreferences[tag]; ok {
		if v, ok := byRole[role]; ok {
			return v
		}
	}
	return 1.0
}

// TotalPopularity sums popularity across all viewer groups.
func (t Talent) TotalPopularity() float64 {
	var total float64
	for _, v := range t.Popularity {
		total += v
	}
	return total
}

// AffinitiesCopy returns a shallow copy of the affinity map. A nil map yields
// an empty, non-nil map.
func (t Talent) AffinitiesCopy() map[string]float64 {
	out := make(map[string]float64, len(t.TagAffinities))
	maps.Copy(out, t.TagAffinities)
	return out
}
