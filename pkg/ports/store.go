package ports

import (
	"context"

	"github.com/aretw0/slotflow/pkg/domain"
)

// ContextStore persists the conversation context of each session.
// The engine treats stored contexts as opaque values keyed by session id.
type ContextStore interface {
	// Save persists the context for a given session ID.
	Save(ctx context.Context, sessionID string, c *domain.Context) error

	// Load retrieves the context for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Context, error)

	// Delete removes the context for a given session ID. Deleting a missing
	// session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the ids of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
