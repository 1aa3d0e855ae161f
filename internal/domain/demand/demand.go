// Package demand computes the hiring fee a talent asks for a scene role.
package demand

import (
	"time"

	"github.com/okian/scenecalc/internal/config"
	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/internal/domain/performance"
	"github.com/okian/scenecalc/pkg/metrics"
)

// Calculator computes talent demand from hiring tunables.
type Calculator struct {
	cfg  config.HiringConfig
	perf *performance.Service
}

// NewCalculator creates a demand calculator. A nil perf uses the default
// role complement table.
func NewCalculator(cfg config.HiringConfig, perf *performance.Service) *Calculator {
	if perf == nil {
		perf = performance.NewService()
	}
	return &Calculator{cfg: cfg, perf: perf}
}

// Calculate returns the demand of t for playing vpID in scene, never less
// than the configured minimum.
func (c *Calculator) Calculate(t model.Talent, scene model.Scene, vpID int, catalog *model.Catalog) int {
	start := time.Now()
	defer func() { metrics.RecordCalculation("demand", time.Since(start)) }()

	fee := float64(c.cfg.BaseTalentDemand) * c.BaseMultiplier(t) * c.RoleModifier(scene, vpID, catalog)
	// A preference above one lowers the fee, below one raises it.
	if pref := c.PreferenceMultiplier(t, scene, vpID, catalog); pref > 0 {
		fee /= pref
	}
	return max(c.cfg.MinimumTalentDemand, int(fee))
}

// BaseMultiplier combines the performance, ambition and popularity factors.
func (c *Calculator) BaseMultiplier(t model.Talent) float64 {
	perf := 1 + t.Performance/c.cfg.DemandPerfDivisor
	ambition := 1 + (float64(t.Ambition)-c.cfg.MedianAmbition)/c.cfg.AmbitionDemandDivisor
	popularity := 1 + t.TotalPopularity()*c.cfg.PopularityDemandScalar
	return perf * ambition * popularity
}

// RoleModifier returns the largest demand modifier over every slot vpID fills
// in the expanded segments of scene, and at least 1.0.
func (c *Calculator) RoleModifier(scene model.Scene, vpID int, catalog *model.Catalog) float64 {
	best := 1.0
	for _, seg := range scene.ExpandedSegments(catalog) {
		def, ok := catalog.Get(seg.TagName)
		if !ok {
			continue
		}
		for _, a := range seg.SlotAssignments {
			if a.VirtualPerformerID != vpID {
				continue
			}
			role, ok := a.Role()
			if !ok {
				continue
			}
			slot, ok := def.Slot(role)
			if !ok {
				continue
			}
			best = max(best, c.perf.FinalModifier(performance.DemandModifier, slot, seg, role))
		}
	}
	return best
}

// PreferenceMultiplier averages the talent's preference over every tag and
// role vpID plays. It is 1.0 when the performer has no roles.
func (c *Calculator) PreferenceMultiplier(t model.Talent, scene model.Scene, vpID int, catalog *model.Catalog) float64 {
	rc := scene.RoleContext(vpID, catalog)
	var sum float64
	n := 0
	for _, tag := range rc.Tags {
		for _, role := range rc.Roles[tag] {
			sum += t.Preference(tag, role)
			n++
		}
	}
	if n == 0 {
		return 1.0
	}
	return sum / float64(n)
}
