package runner

import (
	"context"
)

// Reply is what the user sees after a turn.
type Reply struct {
	SessionID string         `json:"session_id"`
	Answer    string         `json:"answer"`
	Terminal  bool           `json:"terminal"`
	Context   map[string]any `json:"context,omitempty"`
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (REPL) and JSON (piped) modes.
type IOHandler interface {
	// Input reads the next utterance. io.EOF ends the conversation.
	Input(ctx context.Context) (string, error)

	// Output presents the answer of a turn.
	Output(ctx context.Context, reply Reply) error

	// SystemOutput presents a meta-message (command feedback, errors).
	SystemOutput(ctx context.Context, msg string) error
}
