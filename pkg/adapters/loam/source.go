// Package loam reads a slot graph from a directory of Markdown (or JSON/YAML)
// documents through the Loam library. Each document with slots is one intent
// group; its frontmatter carries the slots, the training utterances and
// optionally entity definitions.
package loam

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/slotflow/internal/compiler"
	"github.com/aretw0/slotflow/pkg/domain"
)

// Source adapts a Loam repository to ports.GraphSource and ports.Watchable.
type Source struct {
	Repo *loam.TypedRepository[GroupMetadata]
}

// New creates a new Loam source.
func New(repo *loam.TypedRepository[GroupMetadata]) *Source {
	return &Source{Repo: repo}
}

// Open initializes a read-only, strict Loam repository at path.
func Open(path string) (*Source, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode yields json.Number for every numeric value; the compiler
	// normalizes them.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[GroupMetadata](repo)), nil
}

type entry struct {
	id   string
	meta GroupMetadata
}

// Load lists every document and compiles them into one graph.
func (s *Source) Load(ctx context.Context) (*domain.Graph, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	entries := make([]entry, 0, len(docs))
	for _, doc := range docs {
		meta := doc.Data
		if meta.Name == "" {
			meta.Name = trimExtension(doc.ID)
		}
		entries = append(entries, entry{id: doc.ID, meta: meta})
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		return cmp.Or(cmp.Compare(a.meta.Order, b.meta.Order), strings.Compare(a.meta.Name, b.meta.Name))
	})

	var groups, intents, entities []any
	seen := make(map[string]string)
	for _, e := range entries {
		if len(e.meta.Slots) > 0 {
			if other, ok := seen[e.meta.Name]; ok {
				return nil, fmt.Errorf("collision detected: group '%s' is defined in both '%s' and '%s'", e.meta.Name, other, e.id)
			}
			seen[e.meta.Name] = e.id
			groups = append(groups, map[string]any{
				"name":  e.meta.Name,
				"slots": toAny(e.meta.Slots),
			})
		}
		if len(e.meta.Utterances) > 0 {
			intents = append(intents, map[string]any{
				"name":       e.meta.Name,
				"utterances": toAny(e.meta.Utterances),
			})
		}
		entities = append(entities, toAny(e.meta.Entities)...)
	}

	return compiler.Decode(map[string]any{
		"groups":   groups,
		"intents":  intents,
		"entities": entities,
	})
}

// Watch implements ports.Watchable.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := s.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Loam debounces; a pending signal already covers this change.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}

func trimExtension(id string) string {
	base := filepath.Base(filepath.ToSlash(id))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
