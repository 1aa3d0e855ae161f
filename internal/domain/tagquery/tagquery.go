// Package tagquery serves filtered, enriched and memoized views over the tag
// catalog for the scene planner.
package tagquery

import (
	"context"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/pkg/logger"
	"github.com/okian/scenecalc/pkg/metrics"
)

// PlannerTags is the planner view of one tag type.
type PlannerTags struct {
	Tags         []model.TagDefinition
	Categories   map[string]struct{}
	Orientations map[string]struct{}
}

// SortedCategories returns the category set in lexical order.
func (p PlannerTags) SortedCategories() []string {
	return slices.Sorted(maps.Keys(p.Categories))
}

// SortedOrientations returns the orientation set in lexical order.
func (p PlannerTags) SortedOrientations() []string {
	return slices.Sorted(maps.Keys(p.Orientations))
}

func (p PlannerTags) clone() PlannerTags {
	out := PlannerTags{
		Tags:         make([]model.TagDefinition, len(p.Tags)),
		Categories:   maps.Clone(p.Categories),
		Orientations: maps.Clone(p.Orientations),
	}
	for i, t := range p.Tags {
		out.Tags[i] = t.Clone()
	}
	return out
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// Service answers planner tag queries.
//
// Results are cached per tag type for the lifetime of the service. Changes
// made to the catalog after the first query of a type are not reflected in
// that type's result.
type Service struct {
	catalog *model.Catalog
	log     logger.Logger

	mu    sync.RWMutex
	cache map[string]PlannerTags
	fill  singleflight.Group
}

// NewService creates a service over catalog.
func NewService(catalog *model.Catalog, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		log:     logger.Nop(),
		cache:   make(map[string]PlannerTags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TagsForPlanner returns every tag of tagType in catalog order together with
// the union of their categories and their non-empty orientations. Each tag
// is a copy carrying its catalog key as FullName; Action tags also carry
// ParticipantCount. The returned value is owned by the caller.
func (s *Service) TagsForPlanner(tagType string) PlannerTags {
	if p, ok := s.cached(tagType); ok {
		metrics.RecordTagQueryCacheHit(tagType)
		return p.clone()
	}

	v, _, _ := s.fill.Do(tagType, func() (any, error) {
		if p, ok := s.cached(tagType); ok {
			return p, nil
		}
		p := s.scan(tagType)
		s.mu.Lock()
		s.cache[tagType] = p
		s.mu.Unlock()
		metrics.RecordTagQueryCacheMiss(tagType)
		s.log.Debug(context.Background(), "planner tags cached",
			logger.String("tag_type", tagType),
			logger.Int("tags", len(p.Tags)))
		return p, nil
	})
	return v.(PlannerTags).clone()
}

// TagDefinition looks up a tag by full name. It returns false for unknown
// names.
func (s *Service) TagDefinition(name string) (model.TagDefinition, bool) {
	def, ok := s.catalog.Get(name)
	if !ok {
		return model.TagDefinition{}, false
	}
	return def.Clone(), true
}

// CachedTypes returns the number of tag types currently memoized.
func (s *Service) CachedTypes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *Service) cached(tagType string) (PlannerTags, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.cache[tagType]
	return p, ok
}

func (s *Service) scan(tagType string) PlannerTags {
	p := PlannerTags{
		Tags:         []model.TagDefinition{},
		Categories:   make(map[string]struct{}),
		Orientations: make(map[string]struct{}),
	}
	s.catalog.Each(func(name string, def model.TagDefinition) bool {
		if def.Type != tagType {
			return true
		}
		for _, c := range def.Categories {
			p.Categories[c] = struct{}{}
		}
		if def.Orientation != "" {
			p.Orientations[def.Orientation] = struct{}{}
		}

		enriched := def.Clone()
		enriched.FullName = name
		if tagType == model.TagTypeAction {
			total := 0
			for _, slot := range def.Slots {
				total += slot.Participants()
			}
			enriched.ParticipantCount = &total
		}
		p.Tags = append(p.Tags, enriched)
		return true
	})
	return p
}
