package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/rs/xid"

	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
)

// REPL commands.
const (
	CmdReset   = "/reset"
	CmdExit    = "/exit"
	CmdQuit    = "/quit"
	CmdIntents = "/intents"
	CmdHelp    = "/help"
)

// Runner drives a chat session against a TurnProcessor, reading utterances
// from an IOHandler until the input ends, the user exits or ctx is done.
type Runner struct {
	Handler   IOHandler
	Logger    *slog.Logger
	SessionID string
	MaxInput  int
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithSessionID resumes the given session instead of starting a new one.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithMaxInputBytes bounds the size of an utterance.
func WithMaxInputBytes(n int) Option {
	return func(r *Runner) {
		r.MaxInput = n
	}
}

// NewRunner creates a Runner reading stdin and writing stdout by default.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{Logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	if r.SessionID == "" {
		r.SessionID = xid.New().String()
	}
	return r
}

// Run executes the chat loop. Ctrl+C ends it gracefully.
func (r *Runner) Run(ctx context.Context, engine ports.TurnProcessor) error {
	signals := NewSignalManager(ctx)
	defer signals.Stop()

	r.Logger.Debug("chat session started", "session_id", r.SessionID)

	for {
		loopCtx := signals.Context()
		text, err := r.Handler.Input(loopCtx)
		if err != nil {
			signals.CheckRace()
			if errors.Is(err, io.EOF) || loopCtx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		text, err = SanitizeInput(text, r.MaxInput)
		if err != nil {
			if err := r.Handler.SystemOutput(loopCtx, fmt.Sprintf("%v. Please try again.", err)); err != nil {
				return err
			}
			continue
		}
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			done, err := r.command(loopCtx, engine, text)
			if err != nil || done {
				return err
			}
			continue
		}

		if err := r.turn(loopCtx, engine, text); err != nil {
			return err
		}
	}
}

// turn processes one utterance. Turn failures are reported to the user and
// the loop goes on; only output failures end it.
func (r *Runner) turn(ctx context.Context, engine ports.TurnProcessor, text string) error {
	res, err := engine.ProcessTurn(ctx, r.SessionID, text)
	if err != nil {
		r.Logger.Warn("turn failed", "error", err, "session_id", r.SessionID)
		msg := fmt.Sprintf("error: %v", err)
		if errors.Is(err, domain.ErrIntentUnresolved) {
			msg = "I did not understand that. Try rephrasing."
		}
		return r.Handler.SystemOutput(ctx, msg)
	}

	reply := Reply{
		SessionID: r.SessionID,
		Answer:    res.Answer,
		Terminal:  res.Terminal(),
	}
	if res.Context != nil {
		reply.Context = res.Context.Snapshot()
	}
	return r.Handler.Output(ctx, reply)
}

// command runs a REPL command and reports whether the loop should stop.
func (r *Runner) command(ctx context.Context, engine ports.TurnProcessor, text string) (bool, error) {
	switch strings.ToLower(strings.Fields(text)[0]) {
	case CmdExit, CmdQuit:
		return true, nil
	case CmdReset:
		if err := engine.ResetContext(ctx, r.SessionID); err != nil {
			return false, r.Handler.SystemOutput(ctx, fmt.Sprintf("reset failed: %v", err))
		}
		return false, r.Handler.SystemOutput(ctx, "context reset")
	case CmdIntents:
		var names []string
		for _, g := range engine.Inspect() {
			names = append(names, g.Name)
		}
		sort.Strings(names)
		return false, r.Handler.SystemOutput(ctx, "intents: "+strings.Join(names, ", "))
	case CmdHelp:
		return false, r.Handler.SystemOutput(ctx, "commands: /reset, /intents, /exit")
	default:
		return false, r.Handler.SystemOutput(ctx, fmt.Sprintf("unknown command %s, try /help", text))
	}
}
