package loam

// GroupMetadata is the frontmatter of one intent group document.
// It uses "mapstructure" tags to match the YAML keys.
type GroupMetadata struct {
	// Name defaults to the document id without extension.
	Name string `json:"name" mapstructure:"name"`
	// Order sorts groups; ties are broken by name.
	Order      int              `json:"order" mapstructure:"order"`
	Utterances []string         `json:"utterances" mapstructure:"utterances"`
	Slots      []map[string]any `json:"slots" mapstructure:"slots"`
	// Entities may be declared in any document, typically a dedicated one.
	Entities []map[string]any `json:"entities" mapstructure:"entities"`
}
