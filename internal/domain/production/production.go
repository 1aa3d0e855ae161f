// Package production prices shooting blocs from production tiers and
// on-set policies.
package production

import (
	"maps"
	"time"

	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/pkg/metrics"
)

// Camera categories priced together: equipment cost is scaled by the setup
// tier's multiplier.
const (
	CategoryCameraEquipment = "Camera Equipment"
	CategoryCameraSetup     = "Camera Setup"
)

// Calculator prices shooting blocs.
type Calculator struct {
	settings map[string][]model.ProductionTier
	policies map[string]model.OnSetPolicy
}

// NewCalculator creates a calculator over the production tiers per category
// and the policies keyed by id.
func NewCalculator(settings map[string][]model.ProductionTier, policies map[string]model.OnSetPolicy) *Calculator {
	return &Calculator{settings: maps.Clone(settings), policies: maps.Clone(policies)}
}

// Tier finds a tier by category and name.
func (c *Calculator) Tier(category, name string) (model.ProductionTier, bool) {
	for _, t := range c.settings[category] {
		if t.TierName == name {
			return t, true
		}
	}
	return model.ProductionTier{}, false
}

// PerSceneCost returns the per-scene cost of the selected tiers. Unknown
// categories or tiers cost nothing.
func (c *Calculator) PerSceneCost(settings map[string]string) float64 {
	equip := 0.0
	if t, ok := c.Tier(CategoryCameraEquipment, settings[CategoryCameraEquipment]); ok {
		equip = t.CostPerScene
	}
	multiplier := 1.0
	if t, ok := c.Tier(CategoryCameraSetup, settings[CategoryCameraSetup]); ok {
		multiplier = t.Multiplier()
	}

	total := equip * multiplier
	for category, name := range settings {
		if category == CategoryCameraEquipment || category == CategoryCameraSetup {
			continue
		}
		if t, ok := c.Tier(category, name); ok {
			total += t.CostPerScene
		}
	}
	return total
}

// PolicyCost returns the flat per-bloc cost of the given policies.
func (c *Calculator) PolicyCost(policies []string) float64 {
	var total float64
	for _, id := range policies {
		total += c.policies[id].CostPerBloc
	}
	return total
}

// ShootingBlocCost returns the total cost of a bloc of numScenes scenes,
// truncated to a whole amount.
func (c *Calculator) ShootingBlocCost(numScenes int, settings map[string]string, policies []string) int {
	start := time.Now()
	defer func() { metrics.RecordCalculation("bloc_cost", time.Since(start)) }()
	return int(c.PerSceneCost(settings)*float64(numScenes) + c.PolicyCost(policies))
}
