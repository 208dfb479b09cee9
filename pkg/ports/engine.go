package ports

import (
	"context"

	"github.com/aretw0/slotflow/pkg/domain"
)

// TurnProcessor is the turn boundary used by driving adapters (HTTP, MCP, REPL).
type TurnProcessor interface {
	// ProcessTurn handles one user utterance for a session and persists the
	// resulting context.
	ProcessTurn(ctx context.Context, sessionID, text string) (*domain.TurnResult, error)

	// ResetContext discards the stored context of a session.
	ResetContext(ctx context.Context, sessionID string) error

	// Inspect returns the loaded intent groups for introspection.
	Inspect() []domain.IntentGroup
}
