// Package shootresults computes what shooting a scene does to a talent:
// stamina spent, fatigue gained, and skill and experience growth.
package shootresults

import (
	"math"
	"time"

	"github.com/okian/scenecalc/internal/config"
	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/internal/domain/performance"
	"github.com/okian/scenecalc/pkg/metrics"
)

const (
	// MaxFatigue caps both a single gain and the resulting fatigue level.
	MaxFatigue = 100
	// MaxExperience caps talent experience.
	MaxExperience = 100.0
	// WeeksPerYear is the length of the in-game calendar year.
	WeeksPerYear = 52
)

// SkillGains holds the growth of every trainable skill.
type SkillGains struct {
	Performance float64 `json:"performance"`
	Acting      float64 `json:"acting"`
	Stamina     float64 `json:"stamina"`
	DomSkill    float64 `json:"dom_skill"`
	SubSkill    float64 `json:"sub_skill"`
}

// Outcome is the effect of one shoot on one talent.
type Outcome struct {
	TalentID       int        `json:"talent_id"`
	StaminaCost    float64    `json:"stamina_cost"`
	FatigueGain    int        `json:"fatigue_gain"`
	NewFatigue     int        `json:"new_fatigue"`
	FatigueEndWeek int        `json:"fatigue_end_week,omitempty"`
	FatigueEndYear int        `json:"fatigue_end_year,omitempty"`
	SkillGains     SkillGains `json:"skill_gains"`
	ExperienceGain float64    `json:"experience_gain"`
}

// Calculator applies the scene calculation tunables.
type Calculator struct {
	cfg  config.SceneCalculationConfig
	perf *performance.Service
}

// NewCalculator creates a shoot results calculator. A nil perf uses the
// default role complement table.
func NewCalculator(cfg config.SceneCalculationConfig, perf *performance.Service) *Calculator {
	if perf == nil {
		perf = performance.NewService()
	}
	return &Calculator{cfg: cfg, perf: perf}
}

// StaminaPool is the stamina t can spend in one scene before tiring.
func (c *Calculator) StaminaPool(t model.Talent) float64 {
	return t.Stamina * c.cfg.StaminaToPoolMultiplier
}

// FatigueGain converts a stamina cost into fatigue. Cost within the pool is
// free; the overdraw ratio above it maps to percent, truncated and capped at
// MaxFatigue. An empty pool makes any cost a full gain.
func (c *Calculator) FatigueGain(t model.Talent, cost float64) int {
	pool := c.StaminaPool(t)
	if cost <= pool {
		return 0
	}
	if pool <= 0 {
		return MaxFatigue
	}
	return min(MaxFatigue, int((cost-pool)*100/pool))
}

// EstimateFatigueGain is the fatigue t would gain playing vpID in scene,
// ignoring the talent's current fatigue.
func (c *Calculator) EstimateFatigueGain(t model.Talent, scene model.Scene, vpID int, catalog *model.Catalog) int {
	return c.FatigueGain(t, c.perf.SceneStaminaCost(scene, vpID, catalog))
}

// SkillGain is the growth of a skill at level skill over runtimeMinutes.
// Gains shrink as the skill approaches 100.
func (c *Calculator) SkillGain(skill float64, runtimeMinutes int) float64 {
	return float64(runtimeMinutes) * c.cfg.SkillGainBaseRate * (1 - math.Pow(skill/100, c.cfg.SkillGainCurveSteepness))
}

// ExperienceGain is the experience t earns over runtimeMinutes, never negative.
func (c *Calculator) ExperienceGain(t model.Talent, runtimeMinutes int) float64 {
	gain := float64(runtimeMinutes) * c.cfg.ExpGainBaseRate * (1 - math.Pow(t.Experience/100, c.cfg.ExpGainCurveSteepness))
	return max(0, gain)
}

// DSSkillGain splits the dom/sub skill growth of a scene between the two
// skills. Level 1 trains sub only, level 3 dom only, and other levels both
// evenly before the disposition multiplier favours the matching side.
func (c *Calculator) DSSkillGain(scene model.Scene, disposition string) (dom, sub float64) {
	level := scene.DomSubDynamicLevel
	if level == 0 {
		return 0, 0
	}
	levelMult, ok := c.cfg.DSSkillGainDynamicLevelMultipliers[level]
	if !ok {
		levelMult = 1.0
	}
	base := float64(scene.RuntimeMinutes) * c.cfg.DSSkillGainBaseRate * levelMult

	domFocus, subFocus := 0.5, 0.5
	switch level {
	case 1:
		domFocus, subFocus = 0, 1
	case 3:
		domFocus, subFocus = 1, 0
	}
	switch disposition {
	case model.DispositionDom:
		domFocus *= c.cfg.DSSkillGainDispositionMultiplier
	case model.DispositionSub:
		subFocus *= c.cfg.DSSkillGainDispositionMultiplier
	}

	total := domFocus + subFocus
	if total <= 0 {
		return 0, 0
	}
	return base * domFocus / total, base * subFocus / total
}

// Outcome computes the effect on t of playing vpID in scene shot during
// week of year. Fatigue from an overdraw lasts BaseFatigueWeeks and may roll
// into the next year.
func (c *Calculator) Outcome(t model.Talent, scene model.Scene, vpID int, catalog *model.Catalog, week, year int) Outcome {
	start := time.Now()
	defer func() { metrics.RecordCalculation("shoot_results", time.Since(start)) }()

	cost := c.perf.SceneStaminaCost(scene, vpID, catalog)
	out := Outcome{
		TalentID:    t.ID,
		StaminaCost: cost,
		FatigueGain: c.FatigueGain(t, cost),
		NewFatigue:  t.Fatigue,
		SkillGains: SkillGains{
			Performance: c.SkillGain(t.Performance, scene.RuntimeMinutes),
			Acting:      c.SkillGain(t.Acting, scene.RuntimeMinutes),
			Stamina:     c.SkillGain(t.Stamina, scene.RuntimeMinutes),
		},
		ExperienceGain: c.ExperienceGain(t, scene.RuntimeMinutes),
	}
	if vp, ok := scene.Performer(vpID); ok {
		out.SkillGains.DomSkill, out.SkillGains.SubSkill = c.DSSkillGain(scene, vp.Disposition)
	}
	if out.FatigueGain > 0 {
		out.NewFatigue = min(MaxFatigue, t.Fatigue+out.FatigueGain)
		out.FatigueEndWeek, out.FatigueEndYear = week+c.cfg.BaseFatigueWeeks, year
		for out.FatigueEndWeek > WeeksPerYear {
			out.FatigueEndWeek -= WeeksPerYear
			out.FatigueEndYear++
		}
	}
	return out
}

// Apply returns t with o applied. Skills are capped at MaximumSkillLevel and
// experience at MaxExperience. Fatigue is only replaced when o gained some.
func (c *Calculator) Apply(t model.Talent, o Outcome) model.Talent {
	capSkill := func(v, gain float64) float64 {
		return min(c.cfg.MaximumSkillLevel, v+gain)
	}
	t.Performance = capSkill(t.Performance, o.SkillGains.Performance)
	t.Acting = capSkill(t.Acting, o.SkillGains.Acting)
	t.Stamina = capSkill(t.Stamina, o.SkillGains.Stamina)
	t.DomSkill = capSkill(t.DomSkill, o.SkillGains.DomSkill)
	t.SubSkill = capSkill(t.SubSkill, o.SkillGains.SubSkill)
	t.Experience = min(MaxExperience, t.Experience+o.ExperienceGain)
	if o.FatigueGain > 0 {
		t.Fatigue = o.NewFatigue
		t.FatigueEndWeek = o.FatigueEndWeek
		t.FatigueEndYear = o.FatigueEndYear
	}
	return t
}
