// Package market resolves viewer group inheritance and market saturation.
package market

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/okian/scenecalc/internal/domain/model"
)

// Resolver holds viewer groups with their inheritance chains flattened.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	resolved map[string]model.ViewerGroup
}

// NewResolver resolves every group once. A child's scalar fields override
// its parent's; preferences merge per kind and item; popularity spillover
// merges per group.
func NewResolver(groups []model.ViewerGroup) (*Resolver, error) {
	raw := make(map[string]model.ViewerGroup, len(groups))
	for _, g := range groups {
		if _, dup := raw[g.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateGroup, g.Name)
		}
		raw[g.Name] = g
	}

	r := &Resolver{resolved: make(map[string]model.ViewerGroup, len(raw))}
	for _, g := range groups {
		if _, err := r.resolve(raw, g.Name, nil); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Resolver) resolve(raw map[string]model.ViewerGroup, name string, stack []string) (model.ViewerGroup, error) {
	if done, ok := r.resolved[name]; ok {
		return done, nil
	}
	if slices.Contains(stack, name) {
		return model.ViewerGroup{}, fmt.Errorf("%w: %s", ErrCircularInheritance, strings.Join(append(stack, name), " -> "))
	}
	g, ok := raw[name]
	if !ok {
		return model.ViewerGroup{}, fmt.Errorf("%w: %s (inherited by %s)", ErrUnknownParent, name, stack[len(stack)-1])
	}
	if g.InheritsFrom == "" {
		out := g.Clone()
		r.resolved[name] = out
		return out, nil
	}

	parent, err := r.resolve(raw, g.InheritsFrom, append(stack, name))
	if err != nil {
		return model.ViewerGroup{}, err
	}
	out := merge(parent, g)
	r.resolved[name] = out
	return out, nil
}

func merge(parent, child model.ViewerGroup) model.ViewerGroup {
	out := parent.Clone()
	out.Name = child.Name
	out.InheritsFrom = child.InheritsFrom
	if child.MarketSharePercent != nil {
		v := *child.MarketSharePercent
		out.MarketSharePercent = &v
	}
	if child.SpendingPower != nil {
		v := *child.SpendingPower
		out.SpendingPower = &v
	}
	if child.FocusBonus != nil {
		v := *child.FocusBonus
		out.FocusBonus = &v
	}
	for kind, items := range child.Preferences {
		if out.Preferences == nil {
			out.Preferences = make(map[string]map[string]float64)
		}
		if out.Preferences[kind] == nil {
			out.Preferences[kind] = make(map[string]float64, len(items))
		}
		maps.Copy(out.Preferences[kind], items)
	}
	if len(child.PopularitySpillover) > 0 {
		if out.PopularitySpillover == nil {
			out.PopularitySpillover = make(map[string]float64, len(child.PopularitySpillover))
		}
		maps.Copy(out.PopularitySpillover, child.PopularitySpillover)
	}
	return out
}

// Group returns a copy of the resolved group.
func (r *Resolver) Group(name string) (model.ViewerGroup, bool) {
	g, ok := r.resolved[name]
	if !ok {
		return model.ViewerGroup{}, false
	}
	return g.Clone(), true
}

// Groups returns copies of every resolved group keyed by name.
func (r *Resolver) Groups() map[string]model.ViewerGroup {
	out := make(map[string]model.ViewerGroup, len(r.resolved))
	for name, g := range r.resolved {
		out[name] = g.Clone()
	}
	return out
}

// Names returns the group names in lexical order.
func (r *Resolver) Names() []string {
	return slices.Sorted(maps.Keys(r.resolved))
}
