package memory

import (
	"context"
	"sync"

	"github.com/aretw0/slotflow/pkg/domain"
)

// Source implements ports.GraphSource and ports.Watchable over a graph held
// in memory. Replace swaps the graph and notifies watchers.
type Source struct {
	mu       sync.RWMutex
	graph    *domain.Graph
	watchers []chan struct{}
}

// NewSource creates a source serving graph.
func NewSource(graph *domain.Graph) *Source {
	if graph == nil {
		graph = &domain.Graph{}
	}
	return &Source{graph: graph}
}

// NewSourceFromGroups creates a source from intent groups without training data.
func NewSourceFromGroups(groups ...domain.IntentGroup) *Source {
	return NewSource(&domain.Graph{Groups: groups})
}

// Load returns a copy of the current graph.
func (s *Source) Load(ctx context.Context) (*domain.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &domain.Graph{
		Groups: append([]domain.IntentGroup(nil), s.graph.Groups...),
		Training: domain.TrainingSet{
			Documents: append([]domain.TrainingDocument(nil), s.graph.Training.Documents...),
			Entities:  append([]domain.EntityDefinition(nil), s.graph.Training.Entities...),
		},
	}
	return out, nil
}

// Replace swaps the served graph and signals every watcher.
func (s *Source) Replace(graph *domain.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = graph

	// Sends happen under the lock so a concurrent Watch cancellation cannot close ch first.
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch returns a channel signaled after every Replace. It is closed when ctx ends.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}
