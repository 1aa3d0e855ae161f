// Package availability decides whether a talent accepts a scene role.
package availability

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/okian/scenecalc/internal/config"
	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/pkg/logger"
	"github.com/okian/scenecalc/pkg/metrics"
)

// Names of the checks, reported in Result.Check.
const (
	CheckSchedule    = "schedule"
	CheckFatigue     = "fatigue"
	CheckPartners    = "max_partners"
	CheckHardLimit   = "hard_limit"
	CheckConcurrency = "concurrency"
	CheckPreference  = "preference"
	CheckPolicy      = "policy"
	CheckProduction  = "production"
)

// Result is the outcome of a check. Reason and Check are empty when the
// talent is available.
type Result struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Check     string `json:"check,omitempty"`
}

func available() Result { return Result{Available: true} }

func refused(check, format string, args ...any) Result {
	return Result{Check: check, Reason: fmt.Sprintf(format, args...)}
}

// Bookings counts the scenes a talent is already booked for in the week of
// the shoot and the weeks around it.
type Bookings struct {
	Before  int `json:"before"`
	Current int `json:"current"`
	After   int `json:"after"`
}

// RandFunc returns a number in [0, 1).
type RandFunc func() float64

// Option applies a configuration option to the Checker.
type Option func(*Checker)

// WithRand sets the source used by the low-tier pickiness roll.
func WithRand(fn RandFunc) Option {
	return func(c *Checker) {
		if fn != nil {
			c.rand = fn
		}
	}
}

// WithPolicies sets the on-set policies used to name policies in reasons.
func WithPolicies(policies map[string]model.OnSetPolicy) Option {
	return func(c *Checker) {
		c.policies = policies
	}
}

// WithProductionSettings sets the production tiers per category.
func WithProductionSettings(settings map[string][]model.ProductionTier) Option {
	return func(c *Checker) {
		c.settings = settings
	}
}

// WithLogger sets the checker logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.log = l
		}
	}
}

// Checker applies the availability rules in a fixed order and stops at the
// first refusal.
type Checker struct {
	cfg      config.HiringConfig
	catalog  *model.Catalog
	policies map[string]model.OnSetPolicy
	settings map[string][]model.ProductionTier
	rand     RandFunc
	log      logger.Logger
}

// NewChecker creates a checker over catalog.
func NewChecker(cfg config.HiringConfig, catalog *model.Catalog, opts ...Option) *Checker {
	c := &Checker{
		cfg:     cfg,
		catalog: catalog,
		rand:    rand.Float64,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VPRoleContext returns the tags vpID appears in and the roles played per
// tag, with composite tags of catalog expanded.
func VPRoleContext(scene model.Scene, vpID int, catalog *model.Catalog) model.RoleContext {
	return scene.RoleContext(vpID, catalog)
}

// Check decides whether t accepts playing vpID in scene. bloc may be nil when
// the scene is not yet assigned to a shooting bloc.
func (c *Checker) Check(ctx context.Context, t model.Talent, scene model.Scene, vpID int, bloc *model.ShootingBloc, bookings Bookings, estimatedFatigue int) Result {
	start := time.Now()
	res := c.check(t, scene, vpID, bloc, bookings, estimatedFatigue)
	metrics.RecordCalculation("availability", time.Since(start))
	if !res.Available {
		metrics.RecordAvailabilityRefusal(res.Check)
		c.log.Debug(ctx, "talent refused role",
			logger.Int("talent_id", t.ID),
			logger.Int("scene_id", scene.ID),
			logger.Int("vp_id", vpID),
			logger.String("check", res.Check))
	}
	return res
}

func (c *Checker) check(t model.Talent, scene model.Scene, vpID int, bloc *model.ShootingBloc, bookings Bookings, estimatedFatigue int) Result {
	if r := c.checkSchedule(t, bookings, estimatedFatigue); !r.Available {
		return r
	}
	if r := c.checkPartners(t, scene); !r.Available {
		return r
	}
	rc := VPRoleContext(scene, vpID, c.catalog)
	if r := c.checkHardLimits(t, rc); !r.Available {
		return r
	}
	if r := c.checkConcurrency(t, scene, vpID, rc); !r.Available {
		return r
	}
	if r := c.checkPreferences(t, rc); !r.Available {
		return r
	}
	if bloc != nil {
		if r := c.checkBloc(t, *bloc); !r.Available {
			return r
		}
	}
	return available()
}

// MaxScenesPerWeek returns the weekly scene cap of t, reduced by the burnout
// penalty when the talent is also booked the week before and after.
func (c *Checker) MaxScenesPerWeek(t model.Talent, bookings Bookings) (limit int, burnout bool) {
	penalty := 0
	if bookings.Before > 0 && bookings.After > 0 {
		penalty = c.cfg.BurnoutPenaltyScenes
	}
	bonus := (float64(t.Ambition) - c.cfg.MedianAmbition) * c.cfg.MaxScenesPerWeekAmbitionModifier
	base := int(math.RoundToEven(c.cfg.MaxScenesPerWeekBase + bonus))
	return max(1, base-penalty), penalty > 0
}

func (c *Checker) checkSchedule(t model.Talent, bookings Bookings, estimatedFatigue int) Result {
	limit, burnout := c.MaxScenesPerWeek(t, bookings)
	if bookings.Current >= limit {
		r := refused(CheckSchedule, "Will not shoot more than %d scenes in one week.", limit)
		if burnout {
			r.Reason += " (Avoiding burnout)"
		}
		return r
	}
	if t.Fatigue+estimatedFatigue > c.cfg.FatigueRefusalThreshold {
		return refused(CheckFatigue, "Refuses work that would cause extreme fatigue.")
	}
	return available()
}

func (c *Checker) checkPartners(t model.Talent, scene model.Scene) Result {
	n := len(scene.VirtualPerformers)
	if n > 1 && n-1 > t.MaxScenePartners {
		return refused(CheckPartners, "Refuses scenes with more than %d partners.", t.MaxScenePartners)
	}
	return available()
}

func (c *Checker) checkHardLimits(t model.Talent, rc model.RoleContext) Result {
	for _, full := range rc.Tags {
		base := full
		if def, ok := c.catalog.Get(full); ok {
			base = def.Name
		}
		if slices.Contains(t.HardLimits, full) || (base != "" && slices.Contains(t.HardLimits, base)) {
			return refused(CheckHardLimit, "Talent has a hard limit against '%s'.", base)
		}
	}
	return available()
}

func (c *Checker) checkConcurrency(t model.Talent, scene model.Scene, vpID int, rc model.RoleContext) Result {
	for _, seg := range scene.ExpandedSegments(c.catalog) {
		if !seg.HasPerformer(vpID) {
			continue
		}
		def, ok := c.catalog.Get(seg.TagName)
		if !ok || def.Concept == "" {
			continue
		}
		if !rc.HasRole(seg.TagName, model.RoleReceiver) {
			continue
		}
		givers := 0
		for _, a := range seg.SlotAssignments {
			if strings.Contains(a.SlotID, "_"+model.RoleGiver+"_") {
				givers++
			}
		}
		limit, ok := t.ConcurrencyLimits[def.Concept]
		if !ok {
			limit = c.cfg.ConcurrencyDefaultLimit
		}
		if givers > limit {
			return refused(CheckConcurrency, "Concurrency limit for '%s' exceeded (Max: %d, Scene has: %d).", def.Concept, limit, givers)
		}
	}
	return available()
}

func (c *Checker) checkPreferences(t model.Talent, rc model.RoleContext) Result {
	for _, tag := range rc.Tags {
		for _, role := range rc.Roles[tag] {
			pref := t.Preference(tag, role)
			if pref >= c.cfg.RefusalThreshold {
				continue
			}
			if pref < c.cfg.OrientationRefusalThreshold {
				return refused(CheckPreference, "Role involves '%s', which conflicts with their sexual orientation.", tag)
			}
			return refused(CheckPreference, "Strongly dislikes performing the '%s' role in '%s'.", role, tag)
		}
	}
	return available()
}

func (c *Checker) policyName(id string) string {
	if p, ok := c.policies[id]; ok && p.Name != "" {
		return p.Name
	}
	return id
}

func (c *Checker) checkBloc(t model.Talent, bloc model.ShootingBloc) Result {
	for _, id := range t.PolicyRequirements.Requires {
		if !slices.Contains(bloc.OnSetPolicies, id) {
			return refused(CheckPolicy, "Requires the '%s' policy to be active.", c.policyName(id))
		}
	}
	for _, id := range t.PolicyRequirements.Refuses {
		if slices.Contains(bloc.OnSetPolicies, id) {
			return refused(CheckPolicy, "Refuses to work with the '%s' policy.", c.policyName(id))
		}
	}

	pickiness := t.TotalPopularity()*c.cfg.PickinessPopularityScalar + float64(t.Ambition)*c.cfg.PickinessAmbitionScalar
	categories := make([]string, 0, len(bloc.ProductionSettings))
	for category := range bloc.ProductionSettings {
		categories = append(categories, category)
	}
	slices.Sort(categories)
	for _, category := range categories {
		tierName := bloc.ProductionSettings[category]
		tier, ok := c.tier(category, tierName)
		if !ok || !tier.IsLowTier {
			continue
		}
		if c.rand()*100 < pickiness {
			return refused(CheckProduction, "Considers the '%s' %s setting beneath them.", tierName, category)
		}
	}
	return available()
}

func (c *Checker) tier(category, name string) (model.ProductionTier, bool) {
	for _, t := range c.settings[category] {
		if t.TierName == name {
			return t, true
		}
	}
	return model.ProductionTier{}, false
}
