package ports

import (
	"context"

	"github.com/aretw0/slotflow/pkg/domain"
)

// GraphSource supplies the slot graph. Each Load returns the whole graph;
// the engine replaces its previous graph with it.
type GraphSource interface {
	Load(ctx context.Context) (*domain.Graph, error)
}

// Watchable defines an interface for sources that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying graph changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
