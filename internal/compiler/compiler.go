// Package compiler turns graph documents (YAML, JSON or already-decoded maps)
// into a domain.Graph.
//
// Two slot layouts are accepted. The canonical one:
//
//	groups:
//	  - name: Booking
//	    slots:
//	      - id: city
//	        question: Which city?
//	        requires: city
//	        jump_to: date
//	        actions:
//	          - phase: post
//	            calls: [{url: "https://api/x?c={{slots.city}}", response_key: weather}]
//
// and the legacy one, where groups carry "questions" and slots use "slot",
// "entity", "jumpTo", "condition", "callApi" and "function".
package compiler

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/slotflow/pkg/domain"
)

// Format is the encoding of a graph document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension. Anything that is not
// .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// IsGraphFile reports whether path has an extension the compiler reads.
func IsGraphFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Parse decodes a raw document in the given format.
func Parse(data []byte, format Format) (*domain.Graph, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse json graph: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse yaml graph: %w", err)
		}
	}
	return Decode(raw)
}

// Decode builds a graph from an already-decoded document.
func Decode(raw map[string]any) (*domain.Graph, error) {
	var doc document
	if err := decode(normalize(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return doc.graph()
}

// Merge concatenates graphs in order. Groups with the same name are rejected.
func Merge(graphs ...*domain.Graph) (*domain.Graph, error) {
	out := &domain.Graph{}
	seen := make(map[string]bool)
	for _, g := range graphs {
		if g == nil {
			continue
		}
		for _, group := range g.Groups {
			if seen[group.Name] {
				return nil, fmt.Errorf("intent group %q defined more than once", group.Name)
			}
			seen[group.Name] = true
			out.Groups = append(out.Groups, group)
		}
		out.Training.Documents = append(out.Training.Documents, g.Training.Documents...)
		out.Training.Entities = append(out.Training.Entities, g.Training.Entities...)
	}
	return out, nil
}

func decode(input any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// normalize converts json.Number and map[any]any values into the plain Go
// types the expression evaluator understands.
func normalize(v map[string]any) map[string]any {
	out, _ := normalizeValue(v).(map[string]any)
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[k] = normalizeValue(sub)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[fmt.Sprint(k)] = normalizeValue(sub)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = normalizeValue(sub)
		}
		return out
	default:
		return v
	}
}
