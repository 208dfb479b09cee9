package domain

// Classification is the classifier output for one utterance.
type Classification struct {
	Intent    string   `json:"intent"`
	Score     float64  `json:"score"`
	Entities  []Entity `json:"entities,omitempty"`
	Sentiment any      `json:"sentiment,omitempty"`
}

// Entity is a recognized entity occurrence.
type Entity struct {
	Type          string  `json:"type"`
	Confidence    float64 `json:"confidence"`
	CanonicalText string  `json:"canonical_text"`
	MatchedText   string  `json:"matched_text"`
}

// Find returns the first entity of the given type.
func (c *Classification) Find(entityType string) (Entity, bool) {
	if c == nil {
		return Entity{}, false
	}
	for _, e := range c.Entities {
		if e.Type == entityType {
			return e, true
		}
	}
	return Entity{}, false
}

// EntityMap converts the entities to the form stored in the context, keyed by type.
func (c *Classification) EntityMap() map[string]any {
	out := make(map[string]any)
	if c == nil {
		return out
	}
	for _, e := range c.Entities {
		if _, seen := out[e.Type]; seen {
			continue
		}
		out[e.Type] = map[string]any{
			"confidence":    e.Confidence,
			"canonicalText": e.CanonicalText,
			"matchedText":   e.MatchedText,
		}
	}
	return out
}

// EntityKind selects how an entity definition is matched.
type EntityKind string

const (
	EntityEnum  EntityKind = "enum"
	EntityRegex EntityKind = "regex"
)

// EntityDefinition describes a recognizable entity type.
// For enums, Values[0] is the canonical text and every value is a synonym.
type EntityDefinition struct {
	Name    string     `json:"name" yaml:"name"`
	Kind    EntityKind `json:"kind" yaml:"kind"`
	Values  []string   `json:"values,omitempty" yaml:"values,omitempty"`
	Pattern string     `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// TrainingDocument lists example utterances for one intent.
type TrainingDocument struct {
	Intent     string   `json:"intent" yaml:"intent"`
	Utterances []string `json:"utterances" yaml:"utterances"`
}

// TrainingSet is the classifier corpus shipped with a graph.
type TrainingSet struct {
	Documents []TrainingDocument `json:"documents,omitempty"`
	Entities  []EntityDefinition `json:"entities,omitempty"`
}

// IsEmpty reports whether there is nothing to train on.
func (t TrainingSet) IsEmpty() bool {
	return len(t.Documents) == 0 && len(t.Entities) == 0
}
