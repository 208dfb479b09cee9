package dsl

import (
	"fmt"

	"github.com/aretw0/slotflow/pkg/adapters/memory"
	"github.com/aretw0/slotflow/pkg/domain"
)

// Builder manages the graph construction. Intents keep the order in which
// they are first declared.
type Builder struct {
	intents  []*IntentBuilder
	training []domain.TrainingDocument
	entities []domain.EntityDefinition
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{}
}

// Intent returns the builder for the named intent group, creating it on first use.
func (b *Builder) Intent(name string) *IntentBuilder {
	for _, ib := range b.intents {
		if ib.name == name {
			return ib
		}
	}
	ib := &IntentBuilder{name: name, builder: b}
	b.intents = append(b.intents, ib)
	return ib
}

// Train adds example utterances for an intent.
func (b *Builder) Train(intent string, utterances ...string) *Builder {
	b.training = append(b.training, domain.TrainingDocument{Intent: intent, Utterances: utterances})
	return b
}

// Enum declares an enumerated entity; the first value is canonical.
func (b *Builder) Enum(name string, values ...string) *Builder {
	b.entities = append(b.entities, domain.EntityDefinition{Name: name, Kind: domain.EntityEnum, Values: values})
	return b
}

// Regex declares an entity recognized by a regular expression.
func (b *Builder) Regex(name, pattern string) *Builder {
	b.entities = append(b.entities, domain.EntityDefinition{Name: name, Kind: domain.EntityRegex, Pattern: pattern})
	return b
}

// Build compiles the declarations into a graph.
func (b *Builder) Build() (*domain.Graph, error) {
	graph := &domain.Graph{
		Training: domain.TrainingSet{
			Documents: append([]domain.TrainingDocument(nil), b.training...),
			Entities:  append([]domain.EntityDefinition(nil), b.entities...),
		},
	}
	for _, ib := range b.intents {
		group := domain.IntentGroup{Name: ib.name}
		seen := make(map[string]bool)
		for _, sb := range ib.slots {
			if sb.slot.ID == "" {
				return nil, fmt.Errorf("intent %s: slot without id", ib.name)
			}
			if seen[sb.slot.ID] {
				return nil, fmt.Errorf("intent %s: duplicate slot %s", ib.name, sb.slot.ID)
			}
			seen[sb.slot.ID] = true
			group.Slots = append(group.Slots, sb.build())
		}
		graph.Groups = append(graph.Groups, group)
	}
	return graph, nil
}

// Source builds the graph and wraps it in an in-memory graph source.
func (b *Builder) Source() (*memory.Source, error) {
	graph, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build memory source: %w", err)
	}
	return memory.NewSource(graph), nil
}

// IntentBuilder configures one intent group.
type IntentBuilder struct {
	name    string
	slots   []*SlotBuilder
	builder *Builder
}

// Slot appends a slot to the intent group.
func (i *IntentBuilder) Slot(id string) *SlotBuilder {
	sb := &SlotBuilder{
		slot:   domain.SlotDefinition{ID: id, Requires: domain.AcceptsAnyInput()},
		intent: i,
	}
	i.slots = append(i.slots, sb)
	return sb
}
