// Package performance computes role-scaled modifiers (demand, stamina) for a
// performer inside an action segment.
package performance

import (
	"maps"
	"time"

	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/pkg/metrics"
)

// Modifier keys understood by slot definitions.
const (
	DemandModifier  = "demand_modifier"
	StaminaModifier = "stamina_modifier"
)

// Suffixes appended to a base modifier key to find its scaling coefficients.
const (
	perOtherSuffix = "_scaling_per_other"
	perPeerSuffix  = "_scaling_per_peer"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRoleComplements sets the opposite-role table. Roles missing from the
// table have no complement.
func WithRoleComplements(complements map[string]string) Option {
	return func(s *Service) {
		if len(complements) > 0 {
			s.complements = maps.Clone(complements)
		}
	}
}

// Service computes final role modifiers. It holds no mutable state and is
// safe for concurrent use.
type Service struct {
	complements map[string]string
}

// NewService creates a service with the Giver/Receiver complement table
// unless overridden.
func NewService(opts ...Option) *Service {
	s := &Service{
		complements: map[string]string{
			model.RoleGiver:    model.RoleReceiver,
			model.RoleReceiver: model.RoleGiver,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Complement returns the opposite role of role, if one is defined.
func (s *Service) Complement(role string) (string, bool) {
	other, ok := s.complements[role]
	return other, ok
}

// FinalModifier returns the base value of baseKey on slot (default 1.0) plus
// the per-other and per-peer bonuses driven by the participant counts of seg.
// A bonus applies only when its count exceeds one and its coefficient is
// positive. The result is not clamped.
func (s *Service) FinalModifier(baseKey string, slot model.SlotDefinition, seg model.ActionSegment, role string) float64 {
	start := time.Now()
	defer func() { metrics.RecordCalculation("role_modifier", time.Since(start)) }()

	base := slot.Modifier(baseKey, 1.0)
	perOther := slot.Modifier(baseKey+perOtherSuffix, 0)
	perPeer := slot.Modifier(baseKey+perPeerSuffix, 0)

	numOthers := 0
	if other, ok := s.Complement(role); ok {
		numOthers = seg.Count(other)
	}
	numPeers := seg.Count(role)

	var bonus float64
	if numOthers > 1 && perOther > 0 {
		bonus += float64(numOthers-1) * perOther
	}
	if numPeers > 1 && perPeer > 0 {
		bonus += float64(numPeers-1) * perPeer
	}
	return base + bonus
}

// RoleContext finds the role played by vpID in seg and the matching slot of
// the segment's tag.
func (s *Service) RoleContext(seg model.ActionSegment, vpID int, catalog *model.Catalog) (string, model.SlotDefinition, bool) {
	for _, a := range seg.SlotAssignments {
		if a.VirtualPerformerID != vpID {
			continue
		}
		role, ok := a.Role()
		if !ok {
			return "", model.SlotDefinition{}, false
		}
		def, ok := catalog.Get(seg.TagName)
		if !ok {
			return "", model.SlotDefinition{}, false
		}
		slot, ok := def.Slot(role)
		if !ok {
			return "", model.SlotDefinition{}, false
		}
		return role, slot, true
	}
	return "", model.SlotDefinition{}, false
}

// RoleDemandModifier returns the demand modifier of vpID in seg, or 1.0 when
// the role context cannot be resolved.
func (s *Service) RoleDemandModifier(seg model.ActionSegment, vpID int, catalog *model.Catalog) float64 {
	return s.roleModifier(DemandModifier, seg, vpID, catalog)
}

// RoleStaminaModifier returns the stamina modifier of vpID in seg, or 1.0 when
// the role context cannot be resolved.
func (s *Service) RoleStaminaModifier(seg model.ActionSegment, vpID int, catalog *model.Catalog) float64 {
	return s.roleModifier(StaminaModifier, seg, vpID, catalog)
}

func (s *Service) roleModifier(key string, seg model.ActionSegment, vpID int, catalog *model.Catalog) float64 {
	role, slot, ok := s.RoleContext(seg, vpID, catalog)
	if !ok {
		return 1.0
	}
	return s.FinalModifier(key, slot, seg, role)
}

// SceneStaminaCost sums stamina modifiers weighted by segment runtime in
// minutes over the expanded segments of scene in which vpID takes part.
func (s *Service) SceneStaminaCost(scene model.Scene, vpID int, catalog *model.Catalog) float64 {
	var cost float64
	for _, seg := range scene.ExpandedSegments(catalog) {
		if !seg.HasPerformer(vpID) {
			continue
		}
		runtime := float64(scene.RuntimeMinutes) * seg.RuntimePercentage / 100
		cost += runtime * s.RoleStaminaModifier(seg, vpID, catalog)
	}
	return cost
}
