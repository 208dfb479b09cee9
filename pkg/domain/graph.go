package domain

import "strings"

// NoneIntent is the name of the fallback intent group.
const NoneIntent = "None"

// anyInputSentinel is the legacy string value meaning "accept any input".
const anyInputSentinel = "true"

// IntentGroup is a named, ordered collection of slots. Immutable once loaded.
type IntentGroup struct {
	Name  string           `json:"name" yaml:"name"`
	Slots []SlotDefinition `json:"slots" yaml:"slots"`
}

// SlotDefinition is a single step of a dialogue.
type SlotDefinition struct {
	ID       string            `json:"id" yaml:"id"`
	Question string            `json:"question,omitempty" yaml:"question,omitempty"`
	Fallback string            `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	Requires EntityRequirement `json:"requires" yaml:"requires"`
	// JumpTo names the next intent group (substring match) or slot id.
	// Empty means the dialogue ends after this slot.
	JumpTo string `json:"jump_to,omitempty" yaml:"jump_to,omitempty"`
	// Guard is an expression; empty means always true.
	Guard   string      `json:"guard,omitempty" yaml:"guard,omitempty"`
	Actions []ActionSet `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// ActionsFor returns the action sets tagged with phase, in definition order.
func (s SlotDefinition) ActionsFor(phase Phase) []ActionSet {
	var out []ActionSet
	for _, set := range s.Actions {
		if set.Phase == phase {
			out = append(out, set)
		}
	}
	return out
}

// EntityRequirement states what a slot accepts as an answer: either a
// recognized entity of a given type, or any input at all.
type EntityRequirement struct {
	Entity   string `json:"entity,omitempty" yaml:"entity,omitempty" mapstructure:"entity"`
	AnyInput bool   `json:"any_input,omitempty" yaml:"any_input,omitempty" mapstructure:"any_input"`
}

// RequiresEntity builds a requirement for an entity type.
func RequiresEntity(name string) EntityRequirement {
	return EntityRequirement{Entity: name}
}

// AcceptsAnyInput builds a requirement that accepts the raw input.
func AcceptsAnyInput() EntityRequirement {
	return EntityRequirement{AnyInput: true}
}

// ParseEntityRequirement converts the configuration string form.
// The legacy sentinel "true" and the empty string both accept any input.
func ParseEntityRequirement(raw string) EntityRequirement {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == anyInputSentinel {
		return AcceptsAnyInput()
	}
	return RequiresEntity(raw)
}

// AcceptsAny reports whether the raw input is accepted without an entity.
func (r EntityRequirement) AcceptsAny() bool {
	return r.AnyInput || r.Entity == ""
}

// String returns the configuration form of the requirement.
func (r EntityRequirement) String() string {
	if r.AcceptsAny() {
		return anyInputSentinel
	}
	return r.Entity
}

// Graph is everything a graph source supplies on (re)initialization.
type Graph struct {
	Groups   []IntentGroup `json:"groups"`
	Training TrainingSet   `json:"training"`
}

// Group returns the group with the exact given name.
func (g *Graph) Group(name string) (*IntentGroup, bool) {
	for i := range g.Groups {
		if g.Groups[i].Name == name {
			return &g.Groups[i], true
		}
	}
	return nil, false
}

// Slot returns the first slot with the given id across all groups, and its group.
func (g *Graph) Slot(id string) (*SlotDefinition, *IntentGroup, bool) {
	for i := range g.Groups {
		group := &g.Groups[i]
		for j := range group.Slots {
			if group.Slots[j].ID == id {
				return &group.Slots[j], group, true
			}
		}
	}
	return nil, nil, false
}
