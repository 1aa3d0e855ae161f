package config

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Fields tagged `game:"optional"` may be absent from the source. Every other
// koanf-tagged field is required.
const optionalTag = "optional"

// HiringConfig holds tunables for hiring demand and availability checks.
type HiringConfig struct {
	ConcurrencyDefaultLimit          int     `koanf:"hiring_concurrency_default_limit"`
	RefusalThreshold                 float64 `koanf:"talent_refusal_threshold"`
	OrientationRefusalThreshold      float64 `koanf:"talent_orientation_refusal_threshold"`
	PickinessPopularityScalar        float64 `koanf:"pickiness_popularity_scalar"`
	PickinessAmbitionScalar          float64 `koanf:"pickiness_ambition_scalar"`
	BaseTalentDemand                 int     `koanf:"base_talent_demand"`
	DemandPerfDivisor                float64 `koanf:"hiring_demand_perf_divisor"`
	MedianAmbition                   float64 `koanf:"median_ambition_level"`
	AmbitionDemandDivisor            float64 `koanf:"ambition_to_demand_divisor"`
	PopularityDemandScalar           float64 `koanf:"popularity_to_demand_scalar"`
	MinimumTalentDemand              int     `koanf:"minimum_talent_demand"`
	MaxScenesPerWeekBase             float64 `koanf:"max_scenes_per_week_base"`
	MaxScenesPerWeekAmbitionModifier float64 `koanf:"max_scenes_per_week_ambition_modifier"`
	BurnoutPenaltyScenes             int     `koanf:"burnout_penalty_scenes"`
	FatigueRefusalThreshold          int     `koanf:"fatigue_refusal_threshold"`
}

// MarketConfig holds viewer market tunables.
type MarketConfig struct {
	SaturationRecoveryRate float64 `koanf:"market_saturation_recovery_rate"`

	// Discovery runs after a release, which this engine does not simulate.
	DiscoveryInterestThreshold float64 `koanf:"market_discovery_interest_threshold" game:"optional"`
	DiscoveriesPerScene        int     `koanf:"market_discoveries_per_scene" game:"optional"`
}

// AgeAffinityRule overrides a tag affinity for talents inside an inclusive age bracket.
type AgeAffinityRule struct {
	Tag           string  `json:"tag"`
	MinAge        int     `json:"min_age"`
	MaxAge        int     `json:"max_age"`
	AffinityScore float64 `json:"affinity_score"`
}

// Matches reports whether age lies inside the rule's bracket.
func (r AgeAffinityRule) Matches(age int) bool {
	return age >= r.MinAge && age <= r.MaxAge
}

// SceneCalculationConfig holds tunables for shoot results, scene quality,
// revenue and age-driven affinity changes.
type SceneCalculationConfig struct {
	StaminaToPoolMultiplier            float64         `koanf:"stamina_to_pool_multiplier"`
	BaseFatigueWeeks                   int             `koanf:"base_fatigue_weeks"`
	MaximumSkillLevel                  float64         `koanf:"maximum_skill_level"`
	SkillGainBaseRate                  float64         `koanf:"skill_gain_base_rate"`
	SkillGainCurveSteepness            float64         `koanf:"skill_gain_curve_steepness"`
	ExpGainBaseRate                    float64         `koanf:"experience_gain_base_rate"`
	ExpGainCurveSteepness              float64         `koanf:"experience_gain_curve_steepness"`
	DSSkillGainBaseRate                float64         `koanf:"ds_skill_gain_base_rate"`
	DSSkillGainDispositionMultiplier   float64         `koanf:"ds_skill_gain_disposition_multiplier"`
	DSSkillGainDynamicLevelMultipliers map[int]float64 `koanf:"-"`

	// Scene quality and release revenue tunables. They are decoded for
	// clients that share the file but no calculator here reads them.
	InScenePenaltyScalar               float64            `koanf:"in_scene_penalty_scalar" game:"optional"`
	FatiguePenaltyScalar               float64            `koanf:"fatigue_penalty_scalar" game:"optional"`
	SceneQualityBaseActingWeight       float64            `koanf:"scene_quality_base_acting_weight" game:"optional"`
	SceneQualityMinActingWeight        float64            `koanf:"scene_quality_min_acting_weight" game:"optional"`
	SceneQualityMaxActingWeight        float64            `koanf:"scene_quality_max_acting_weight" game:"optional"`
	ProtagonistContributionWeight      float64            `koanf:"protagonist_contribution_weight" game:"optional"`
	ChemistryPerformanceScalar         float64            `koanf:"chemistry_performance_scalar" game:"optional"`
	SceneQualityMinPerformanceModifier float64            `koanf:"scene_quality_min_performance_modifier" game:"optional"`
	SceneQualityAutoTagDefaultQuality  float64            `koanf:"scene_quality_auto_tag_default_quality" game:"optional"`
	SceneQualityDSWeights              map[int]float64    `koanf:"-"`
	BaseReleaseRevenue                 int                `koanf:"base_release_revenue" game:"optional"`
	StarPowerRevenueScalar             float64            `koanf:"star_power_revenue_scalar" game:"optional"`
	SaturationSpendRate                float64            `koanf:"saturation_spend_rate" game:"optional"`
	DefaultSentimentMultiplier         float64            `koanf:"default_sentiment_multiplier" game:"optional"`
	RevenueWeightFocusedPhysicalTag    float64            `koanf:"revenue_weight_focused_physical_tag" game:"optional"`
	RevenueWeightDefaultActionAppeal   float64            `koanf:"revenue_weight_default_action_appeal" game:"optional"`
	RevenueWeightAutoTag               float64            `koanf:"revenue_weight_auto_tag" game:"optional"`
	RevenuePenalties                   map[string]float64 `koanf:"revenue_penalties" game:"optional"`
	PopularityGainScalar               float64            `koanf:"popularity_gain_scalar" game:"optional"`

	// AgeBasedAffinityRules are applied in order; a later match wins.
	AgeBasedAffinityRules []AgeAffinityRule `koanf:"-"`

	// RoleComplements maps a role to its opposite for peer/other scaling.
	RoleComplements map[string]string `koanf:"role_complements" game:"optional"`
}

// GameConfig bundles all game tunables.
type GameConfig struct {
	Hiring HiringConfig
	Market MarketConfig
	Scene  SceneCalculationConfig
}

// DefaultRoleComplements is the opposite-role table used when the source
// provides none.
func DefaultRoleComplements() map[string]string {
	return map[string]string{"Giver": "Receiver", "Receiver": "Giver"}
}

// rawAgeRule keeps presence information so malformed rules are rejected
// instead of defaulting.
type rawAgeRule struct {
	Tag           *string  `koanf:"tag"`
	MinAge        *int     `koanf:"min_age"`
	MaxAge        *int     `koanf:"max_age"`
	AffinityScore *float64 `koanf:"affinity_score"`
}

// Keys of optional structured values decoded outside the struct tags.
const (
	keyAgeRules          = "age_based_affinity_rules"
	keyDSWeights         = "scene_quality_ds_weights"
	keyDSLevelMultiplier = "ds_skill_gain_dynamic_level_multipliers"
)

// LoadGameFile loads game tunables from a YAML file.
func LoadGameFile(ctx context.Context, path string) (*GameConfig, error) {
	return LoadGame(ctx, file.Provider(path), yaml.Parser())
}

// LoadGame loads and validates game tunables from any koanf provider. Parser
// may be nil for providers that return already-parsed maps.
func LoadGame(_ context.Context, provider koanf.Provider, parser koanf.Parser) (*GameConfig, error) {
	k := koanf.New(".")
	if err := k.Load(provider, parser); err != nil {
		return nil, fmt.Errorf("%w: game config: %v", ErrLoadConfig, err)
	}

	var gc GameConfig
	sections := []any{&gc.Hiring, &gc.Market, &gc.Scene}
	var missing []string
	for _, section := range sections {
		for _, key := range requiredKeys(section) {
			if !k.Exists(key) {
				missing = append(missing, key)
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: missing game config keys: %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	conf := koanf.UnmarshalConf{Tag: "koanf"}
	for _, section := range sections {
		if err := k.UnmarshalWithConf("", section, conf); err != nil {
			return nil, fmt.Errorf("%w: game config: %v", ErrLoadConfig, err)
		}
	}

	var err error
	if gc.Scene.SceneQualityDSWeights, err = levelMap(k, keyDSWeights); err != nil {
		return nil, err
	}
	if gc.Scene.DSSkillGainDynamicLevelMultipliers, err = levelMap(k, keyDSLevelMultiplier); err != nil {
		return nil, err
	}
	if gc.Scene.AgeBasedAffinityRules, err = ageRules(k); err != nil {
		return nil, err
	}
	if len(gc.Scene.RoleComplements) == 0 {
		gc.Scene.RoleComplements = DefaultRoleComplements()
	}

	if err := gc.Validate(); err != nil {
		return nil, err
	}
	return &gc, nil
}

// Validate checks invariants the formulas depend on.
func (g *GameConfig) Validate() error {
	if g.Hiring.DemandPerfDivisor == 0 {
		return fmt.Errorf("%w: hiring_demand_perf_divisor must not be zero", ErrInvalidConfig)
	}
	if g.Hiring.AmbitionDemandDivisor == 0 {
		return fmt.Errorf("%w: ambition_to_demand_divisor must not be zero", ErrInvalidConfig)
	}
	if g.Hiring.MinimumTalentDemand < 0 {
		return fmt.Errorf("%w: minimum_talent_demand must not be negative", ErrInvalidConfig)
	}
	for i, r := range g.Scene.AgeBasedAffinityRules {
		if r.MinAge > r.MaxAge {
			return fmt.Errorf("%w: %s[%d]: min_age %d exceeds max_age %d", ErrInvalidConfig, keyAgeRules, i, r.MinAge, r.MaxAge)
		}
	}
	for role, other := range g.Scene.RoleComplements {
		if strings.TrimSpace(role) == "" || strings.TrimSpace(other) == "" {
			return fmt.Errorf("%w: role_complements entries must be non-empty", ErrInvalidConfig)
		}
	}
	return nil
}

func ageRules(k *koanf.Koanf) ([]AgeAffinityRule, error) {
	if !k.Exists(keyAgeRules) {
		return nil, nil
	}
	var raw []rawAgeRule
	if err := k.UnmarshalWithConf(keyAgeRules, &raw, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, keyAgeRules, err)
	}
	rules := make([]AgeAffinityRule, 0, len(raw))
	for i, r := range raw {
		var missing []string
		if r.Tag == nil || strings.TrimSpace(*r.Tag) == "" {
			missing = append(missing, "tag")
		}
		if r.MinAge == nil {
			missing = append(missing, "min_age")
		}
		if r.MaxAge == nil {
			missing = append(missing, "max_age")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s[%d]: missing %s", ErrInvalidConfig, keyAgeRules, i, strings.Join(missing, ", "))
		}
		rule := AgeAffinityRule{Tag: *r.Tag, MinAge: *r.MinAge, MaxAge: *r.MaxAge}
		if r.AffinityScore != nil {
			rule.AffinityScore = *r.AffinityScore
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// levelMap decodes a map whose keys are integer levels stored as strings.
func levelMap(k *koanf.Koanf, key string) (map[int]float64, error) {
	if !k.Exists(key) {
		return map[int]float64{}, nil
	}
	var raw map[string]float64
	if err := k.Unmarshal(key, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	out := make(map[int]float64, len(raw))
	for level, v := range raw {
		n, err := strconv.Atoi(level)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: level %q is not an integer", ErrInvalidConfig, key, level)
		}
		out[n] = v
	}
	return out, nil
}

func requiredKeys(section any) []string {
	t := reflect.TypeOf(section)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" || f.Tag.Get("game") == optionalTag {
			continue
		}
		keys = append(keys, tag)
	}
	return keys
}
