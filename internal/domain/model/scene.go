package model

import (
	"maps"
	"slices"
	"strings"
)

// Participant roles used by the built-in role vocabulary.
const (
	RoleGiver     = "Giver"
	RoleReceiver  = "Receiver"
	RolePerformer = "Performer"
)

// SlotAssignment binds a virtual performer to a slot. SlotID has the form
// "<tag>_<role>_<index>".
type SlotAssignment struct {
	SlotID             string `json:"slot_id" yaml:"slot_id"`
	VirtualPerformerID int    `json:"virtual_performer_id" yaml:"virtual_performer_id"`
}

// Role extracts the role part of the slot id.
func (a SlotAssignment) Role() (string, bool) {
	role, _, ok := a.parts()
	return role, ok
}

// parts splits the slot id into its role and index.
func (a SlotAssignment) parts() (role, index string, ok bool) {
	last := strings.LastIndex(a.SlotID, "_")
	if last <= 0 {
		return "", "", false
	}
	head := a.SlotID[:last]
	prev := strings.LastIndex(head, "_")
	if prev < 0 {
		return "", "", false
	}
	return head[prev+1:], a.SlotID[last+1:], true
}

// ActionSegment is a timed portion of a scene assigned to one action tag.
type ActionSegment struct {
	ID                int              `json:"id" yaml:"id"`
	TagName           string           `json:"tag_name" yaml:"tag_name"`
	RuntimePercentage float64          `json:"runtime_percentage" yaml:"runtime_percentage"`
	Parameters        map[string]int   `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	SlotAssignments   []SlotAssignment `json:"slot_assignments,omitempty" yaml:"slot_assignments,omitempty"`
}

// Count returns the participant count for role, or 0.
func (s ActionSegment) Count(role string) int {
	return s.Parameters[role]
}

// HasPerformer reports whether vpID is assigned to any slot of the segment.
func (s ActionSegment) HasPerformer(vpID int) bool {
	for _, a := range s.SlotAssignments {
		if a.VirtualPerformerID == vpID {
			return true
		}
	}
	return false
}

// Performer dispositions toward the dom/sub dynamic of a scene.
const (
	DispositionDom    = "Dom"
	DispositionSub    = "Sub"
	DispositionSwitch = "Switch"
)

// VirtualPerformer is a cast placeholder in a scene plan.
type VirtualPerformer struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Gender      string `json:"gender" yaml:"gender"`
	Ethnicity   string `json:"ethnicity,omitempty" yaml:"ethnicity,omitempty"`
	Disposition string `json:"disposition,omitempty" yaml:"disposition,omitempty"`
}

// Scene is the subset of a scene plan the calculators need.
type Scene struct {
	ID                int                `json:"id" yaml:"id"`
	Title             string             `json:"title" yaml:"title"`
	RuntimeMinutes    int                `json:"total_runtime_minutes" yaml:"total_runtime_minutes"`
	VirtualPerformers []VirtualPerformer `json:"virtual_performers,omitempty" yaml:"virtual_performers,omitempty"`
	ActionSegments    []ActionSegment    `json:"action_segments,omitempty" yaml:"action_segments,omitempty"`

	// DomSubDynamicLevel is 0 for none, 1 for a sub focus, 2 for balanced
	// and 3 for a dom focus.
	DomSubDynamicLevel int `json:"dom_sub_dynamic_level" yaml:"dom_sub_dynamic_level"`
}

// Performer returns the virtual performer with id vpID.
func (s Scene) Performer(vpID int) (VirtualPerformer, bool) {
	for _, vp := range s.VirtualPerformers {
		if vp.ID == vpID {
			return vp, true
		}
	}
	return VirtualPerformer{}, false
}

// RoleContext lists the action tags a performer appears in and the roles
// played per tag, both in first-seen order.
type RoleContext struct {
	Tags  []string
	Roles map[string][]string
}

// ExpandedSegments returns the segments with every composite tag of catalog
// replaced by its children, in order. A child receives the parent's runtime
// split by runtime ratio, slot ids renamed through the role map and the
// parent's participant counts under the mapped roles. Child roles still
// without a count take the slot's count, else min_count, else 1. A composite
// whose ratios sum to zero contributes nothing. A nil catalog expands nothing.
func (s Scene) ExpandedSegments(catalog *Catalog) []ActionSegment {
	out := make([]ActionSegment, 0, len(s.ActionSegments))
	for _, seg := range s.ActionSegments {
		def, ok := catalog.Get(seg.TagName)
		if !ok || len(def.ExpandsTo) == 0 {
			out = append(out, seg)
			continue
		}
		var total float64
		for _, rule := range def.ExpandsTo {
			total += rule.RuntimeRatio
		}
		if total == 0 {
			continue
		}
		for _, rule := range def.ExpandsTo {
			out = append(out, seg.expand(rule, total, catalog))
		}
	}
	return out
}

func (s ActionSegment) expand(rule ExpansionRule, totalRatio float64, catalog *Catalog) ActionSegment {
	child, known := catalog.Get(rule.TagName)
	base := rule.TagName
	if known && child.Name != "" {
		base = child.Name
	}

	assignments := make([]SlotAssignment, 0, len(s.SlotAssignments))
	for _, a := range s.SlotAssignments {
		role, index, ok := a.parts()
		if !ok {
			continue
		}
		assignments = append(assignments, SlotAssignment{
			SlotID:             base + "_" + rule.MapRole(role) + "_" + index,
			VirtualPerformerID: a.VirtualPerformerID,
		})
	}

	params := make(map[string]int, len(rule.Parameters)+len(s.Parameters))
	maps.Copy(params, rule.Parameters)
	for role, n := range s.Parameters {
		params[rule.MapRole(role)] = n
	}
	if known {
		for _, slot := range child.Slots {
			if _, ok := params[slot.Role]; ok || slot.Role == "" {
				continue
			}
			n := 1
			if slot.Count != nil || slot.MinCount != nil {
				n = slot.Participants()
			}
			params[slot.Role] = n
		}
	}

	return ActionSegment{
		ID:                s.ID,
		TagName:           rule.TagName,
		RuntimePercentage: s.RuntimePercentage * rule.RuntimeRatio / totalRatio,
		Parameters:        params,
		SlotAssignments:   assignments,
	}
}

// RoleContext collects the tags and roles of vpID across the expanded
// segments of the scene. Slot ids that cannot be parsed count as
// RolePerformer.
func (s Scene) RoleContext(vpID int, catalog *Catalog) RoleContext {
	rc := RoleContext{Roles: make(map[string][]string)}
	for _, seg := range s.ExpandedSegments(catalog) {
		for _, a := range seg.SlotAssignments {
			if a.VirtualPerformerID != vpID {
				continue
			}
			role, ok := a.Role()
			if !ok {
				role = RolePerformer
			}
			roles, seen := rc.Roles[seg.TagName]
			if !seen {
				rc.Tags = append(rc.Tags, seg.TagName)
			}
			if !slices.Contains(roles, role) {
				rc.Roles[seg.TagName] = append(roles, role)
			}
		}
	}
	return rc
}

// HasRole reports whether role is played in tag.
func (rc RoleContext) HasRole(tag, role string) bool {
	return slices.Contains(rc.Roles[tag], role)
}
