package nlu

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aretw0/slotflow/pkg/domain"
)

type matcher struct {
	name      string
	canonical string
	re        *regexp.Regexp
	// group is the submatch holding the entity text.
	group int
}

// wordBoundary is a Unicode-aware replacement for \b, which only knows ASCII.
const wordBoundary = `[^\p{L}\p{N}_]`

func compileEntities(defs []domain.EntityDefinition) ([]matcher, error) {
	out := make([]matcher, 0, len(defs))
	for _, def := range defs {
		switch def.Kind {
		case domain.EntityEnum:
			if len(def.Values) == 0 {
				return nil, fmt.Errorf("enum entity %q has no values", def.Name)
			}
			alternatives := make([]string, len(def.Values))
			for i, v := range byLength(def.Values) {
				alternatives[i] = regexp.QuoteMeta(v)
			}
			pattern := `(?i)(?:^|` + wordBoundary + `)(` + strings.Join(alternatives, "|") + `)(?:$|` + wordBoundary + `)`
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("enum entity %q: %w", def.Name, err)
			}
			out = append(out, matcher{name: def.Name, canonical: def.Values[0], re: re, group: 1})
		case domain.EntityRegex:
			re, err := regexp.Compile(def.Pattern)
			if err != nil {
				return nil, fmt.Errorf("regex entity %q: %w", def.Name, err)
			}
			out = append(out, matcher{name: def.Name, re: re})
		default:
			return nil, fmt.Errorf("entity %q has unsupported kind %q", def.Name, def.Kind)
		}
	}
	return out, nil
}

// extract returns the first occurrence of every entity, ordered by position.
func (m *model) extract(text string) []domain.Entity {
	type found struct {
		pos    int
		entity domain.Entity
	}
	var hits []found
	for _, mt := range m.entities {
		loc := mt.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		start, end := loc[2*mt.group], loc[2*mt.group+1]
		if start < 0 {
			continue
		}
		matched := text[start:end]
		canonical := mt.canonical
		if canonical == "" {
			canonical = matched
		}
		hits = append(hits, found{pos: start, entity: domain.Entity{
			Type:          mt.name,
			Confidence:    1,
			CanonicalText: canonical,
			MatchedText:   matched,
		}})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]domain.Entity, len(hits))
	for i, h := range hits {
		out[i] = h.entity
	}
	return out
}

// byLength orders values longest first so "New York City" wins over "New York".
func byLength(values []string) []string {
	out := append([]string(nil), values...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}
