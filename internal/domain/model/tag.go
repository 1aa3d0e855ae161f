package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// Tag types known to the planner.
const (
	TagTypeAction   = "Action"
	TagTypeThematic = "Thematic"
	TagTypePhysical = "Physical"
)

// Categories is the normalized category list of a tag. Source data may carry
// either a single string or a list; both decode into a list.
type Categories []string

// UnmarshalJSON accepts a string, a list of strings or null.
func (c *Categories) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*c = Categories{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	*c = list
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence node.
func (c *Categories) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*c = nil
			return nil
		}
		*c = Categories{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		*c = list
		return nil
	default:
		return fmt.Errorf("categories: unexpected yaml node kind %d", node.Kind)
	}
}

// SlotDefinition describes one role inside a tag template. Any numeric field
// besides the count bounds is kept in Modifiers, e.g. "demand_modifier" or
// "stamina_modifier_scaling_per_peer".
type SlotDefinition struct {
	Role      string
	Gender    string
	Count     *int
	MinCount  *int
	MaxCount  *int
	Modifiers map[string]float64
}

// Modifier returns the named modifier or fallback when absent.
func (s SlotDefinition) Modifier(key string, fallback float64) float64 {
	if v, ok := s.Modifiers[key]; ok {
		return v
	}
	return fallback
}

// Participants returns Count, else MinCount, else 0.
func (s SlotDefinition) Participants() int {
	switch {
	case s.Count != nil:
		return *s.Count
	case s.MinCount != nil:
		return *s.MinCount
	default:
		return 0
	}
}

// Clone deep-copies the slot.
func (s SlotDefinition) Clone() SlotDefinition {
	out := SlotDefinition{
		Role:     s.Role,
		Gender:   s.Gender,
		Count:    cloneInt(s.Count),
		MinCount: cloneInt(s.MinCount),
		MaxCount: cloneInt(s.MaxCount),
	}
	if s.Modifiers != nil {
		out.Modifiers = maps.Clone(s.Modifiers)
	}
	return out
}

// MarshalJSON flattens the modifiers next to the fixed fields.
func (s SlotDefinition) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.flatten())
}

// UnmarshalJSON reads the flat slot layout.
func (s *SlotDefinition) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("slot: %w", err)
	}
	return s.fromMap(raw)
}

// MarshalYAML flattens the modifiers next to the fixed fields.
func (s SlotDefinition) MarshalYAML() (any, error) {
	return s.flatten(), nil
}

// UnmarshalYAML reads the flat slot layout.
func (s *SlotDefinition) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("slot: %w", err)
	}
	return s.fromMap(raw)
}

func (s SlotDefinition) flatten() map[string]any {
	out := make(map[string]any, len(s.Modifiers)+5)
	for k, v := range s.Modifiers {
		out[k] = v
	}
	out["role"] = s.Role
	if s.Gender != "" {
		out["gender"] = s.Gender
	}
	if s.Count != nil {
		out["count"] = *s.Count
	}
	if s.MinCount != nil {
		out["min_count"] = *s.MinCount
	}
	if s.MaxCount != nil {
		out["max_count"] = *s.MaxCount
	}
	return out
}

func (s *SlotDefinition) fromMap(raw map[string]any) error {
	*s = SlotDefinition{}
	for key, val := range raw {
		switch key {
		case "role":
			str, ok := val.(string)
			if !ok {
				return fmt.Errorf("slot: role must be a string, got %T", val)
			}
			s.Role = str
		case "gender":
			if val == nil {
				continue
			}
			str, ok := val.(string)
			if !ok {
				return fmt.Errorf("slot: gender must be a string, got %T", val)
			}
			s.Gender = str
		case "count", "min_count", "max_count":
			if val == nil {
				continue
			}
			n, ok := toFloat(val)
			if !ok {
				return fmt.Errorf("slot: %s must be a number, got %T", key, val)
			}
			i := int(n)
			switch key {
			case "count":
				s.Count = &i
			case "min_count":
				s.MinCount = &i
			default:
				s.MaxCount = &i
			}
		default:
			n, ok := toFloat(val)
			if !ok {
				// non-numeric extras carry no calculation meaning
				continue
			}
			if s.Modifiers == nil {
				s.Modifiers = make(map[string]float64)
			}
			s.Modifiers[key] = n
		}
	}
	return nil
}

// TagDefinition is a static descriptor keyed by its full name in the catalog.
type TagDefinition struct {
	Name        string           `json:"name" yaml:"name"`
	FullName    string           `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Type        string           `json:"type" yaml:"type"`
	Categories  Categories       `json:"categories,omitempty" yaml:"categories,omitempty"`
	Orientation string           `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	Concept     string           `json:"concept,omitempty" yaml:"concept,omitempty"`
	Slots       []SlotDefinition `json:"slots,omitempty" yaml:"slots,omitempty"`

	// ExpandsTo makes the tag a composite: segments using it are calculated
	// as the listed child tags.
	ExpandsTo []ExpansionRule `json:"expands_to,omitempty" yaml:"expands_to,omitempty"`

	// ParticipantCount is only attached to planner views of Action tags.
	ParticipantCount *int `json:"participant_count,omitempty" yaml:"participant_count,omitempty"`
}

// Clone deep-copies the definition.
func (t TagDefinition) Clone() TagDefinition {
	out := t
	out.Categories = slices.Clone(t.Categories)
	out.ParticipantCount = cloneInt(t.ParticipantCount)
	if t.Slots != nil {
		out.Slots = make([]SlotDefinition, len(t.Slots))
		for i, s := range t.Slots {
			out.Slots[i] = s.Clone()
		}
	}
	if t.ExpandsTo != nil {
		out.ExpandsTo = make([]ExpansionRule, len(t.ExpandsTo))
		for i, r := range t.ExpandsTo {
			out.ExpandsTo[i] = r.Clone()
		}
	}
	return out
}

// ExpansionRule maps a composite tag onto one child tag.
type ExpansionRule struct {
	TagName string `json:"tag_name" yaml:"tag_name"`
	// RuntimeRatio is the child's share relative to the other rules of the tag.
	RuntimeRatio float64 `json:"runtime_ratio" yaml:"runtime_ratio"`
	// RoleMap renames parent roles to child roles. Unmapped roles keep their name.
	RoleMap map[string]string `json:"role_map,omitempty" yaml:"role_map,omitempty"`
	// Parameters are child participant counts the parent does not override.
	Parameters map[string]int `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Clone deep-copies the rule.
func (r ExpansionRule) Clone() ExpansionRule {
	out := r
	if r.RoleMap != nil {
		out.RoleMap = maps.Clone(r.RoleMap)
	}
	if r.Parameters != nil {
		out.Parameters = maps.Clone(r.Parameters)
	}
	return out
}

// MapRole returns the child role for a parent role.
func (r ExpansionRule) MapRole(role string) string {
	if child, ok := r.RoleMap[role]; ok {
		return child
	}
	return role
}

// Slot returns the slot definition for role.
func (t TagDefinition) Slot(role string) (SlotDefinition, bool) {
	for _, s := range t.Slots {
		if s.Role == role {
			return s, true
		}
	}
	return SlotDefinition{}, false
}

// FullTagName builds the catalog key: "name (orientation)" or just name.
func FullTagName(name, orientation string) string {
	if orientation == "" {
		return name
	}
	return name + " (" + orientation + ")"
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
