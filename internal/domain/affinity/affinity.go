// Package affinity recalculates talent tag affinities from age-bracket rules.
package affinity

import (
	"context"
	"maps"
	"time"

	"github.com/okian/scenecalc/internal/config"
	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/pkg/logger"
	"github.com/okian/scenecalc/pkg/metrics"
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithLogger sets the logger used for roster recalculation.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.log = l
		}
	}
}

// Calculator applies age-based affinity rules to talents.
type Calculator struct {
	rules []config.AgeAffinityRule
	log   logger.Logger
}

// NewCalculator creates a calculator over the age rules of cfg. The rules are
// copied; later changes to cfg are not observed.
func NewCalculator(cfg config.SceneCalculationConfig, opts ...Option) *Calculator {
	c := &Calculator{
		rules: append([]config.AgeAffinityRule(nil), cfg.AgeBasedAffinityRules...),
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rules returns a copy of the configured rules in application order.
func (c *Calculator) Rules() []config.AgeAffinityRule {
	return append([]config.AgeAffinityRule(nil), c.rules...)
}

// Recalculate returns a new affinity map for t. Every rule whose bracket
// contains the talent's age overwrites the score for its tag, so the last
// matching rule wins. Tags not named by a matching rule are carried over.
func (c *Calculator) Recalculate(t model.Talent) map[string]float64 {
	start := time.Now()
	out := t.AffinitiesCopy()
	for _, r := range c.rules {
		if r.Matches(t.Age) {
			out[r.Tag] = r.AffinityScore
		}
	}
	metrics.RecordCalculation("affinity", time.Since(start))
	return out
}

// RecalculateRoster recalculates every talent and returns the new affinities
// of those whose map changed, keyed by talent id.
func (c *Calculator) RecalculateRoster(ctx context.Context, talents []model.Talent) map[int]map[string]float64 {
	changed := make(map[int]map[string]float64)
	for _, t := range talents {
		next := c.Recalculate(t)
		if maps.Equal(next, t.TagAffinities) {
			continue
		}
		changed[t.ID] = next
	}
	if len(changed) > 0 {
		c.log.Debug(ctx, "talent affinities changed",
			logger.Int("talents", len(talents)),
			logger.Int("changed", len(changed)))
	}
	return changed
}
