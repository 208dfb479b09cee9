// Package runtime implements the dialogue engine: one call per user turn,
// driving a session through the slots of the loaded graph.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/slotflow/internal/actions"
	"github.com/aretw0/slotflow/internal/expr"
	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/internal/render"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
)

// DefaultClassifierTimeout bounds a classifier call when none is configured.
const DefaultClassifierTimeout = 5 * time.Second

// Engine is the dialogue state machine over one immutable graph.
// It holds no session state and is safe for concurrent use.
type Engine struct {
	graph             *domain.Graph
	classifier        ports.Classifier
	renderer          *render.Renderer
	executor          *actions.Executor
	hooks             domain.LifecycleHooks
	logger            *slog.Logger
	classifierTimeout time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(h domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = h
	}
}

// WithRenderer shares a renderer (and its compiled expression cache).
func WithRenderer(r *render.Renderer) EngineOption {
	return func(e *Engine) {
		e.renderer = r
	}
}

// WithExecutor sets the action executor.
func WithExecutor(x *actions.Executor) EngineOption {
	return func(e *Engine) {
		e.executor = x
	}
}

// WithClassifierTimeout bounds each classifier call.
func WithClassifierTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.classifierTimeout = d
		}
	}
}

// NewEngine creates an engine for graph. Missing renderer and executor are
// built with defaults.
func NewEngine(graph *domain.Graph, classifier ports.Classifier, opts ...EngineOption) (*Engine, error) {
	if graph == nil {
		return nil, errors.New("graph is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}

	e := &Engine{
		graph:             graph,
		classifier:        classifier,
		logger:            logging.NewNop(),
		classifierTimeout: DefaultClassifierTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.renderer == nil {
		ev, err := expr.New(expr.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.renderer = render.New(ev, render.WithLogger(e.logger))
	}
	if e.executor == nil {
		e.executor = actions.New(e.renderer,
			actions.WithLogger(e.logger),
			actions.WithLifecycleHooks(e.hooks),
		)
	}
	return e, nil
}

// Graph returns the graph served by the engine.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// Inspect returns the intent groups for introspection.
func (e *Engine) Inspect() []domain.IntentGroup {
	return append([]domain.IntentGroup(nil), e.graph.Groups...)
}

// HandleTurn processes one user utterance against the session context cc.
//
// cc is never mutated: the turn works on a copy, so when an error is returned
// the caller still holds the context as it was before the turn. See
// domain.TurnResult for the two shapes a finished dialogue can take.
func (e *Engine) HandleTurn(ctx context.Context, input string, cc *domain.Context) (*domain.TurnResult, error) {
	start := time.Now()
	work := cc.Clone()

	var (
		res     *domain.TurnResult
		outcome domain.TurnOutcome
		err     error
	)

	slot, awaiting := e.awaitedSlot(work)
	if awaiting {
		res, outcome, err = e.answer(ctx, input, work, slot)
	} else {
		res, outcome, err = e.begin(ctx, input, work)
	}
	if err != nil {
		outcome = domain.OutcomeError
	}

	e.emitTurn(ctx, work, outcome, time.Since(start))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// awaitedSlot returns the slot awaiting an answer. A context pointing at a
// slot that no longer exists (the graph was reloaded) starts over.
func (e *Engine) awaitedSlot(cc *domain.Context) (*domain.SlotDefinition, bool) {
	if !cc.AwaitingAnswer() {
		return nil, false
	}
	slot, _, ok := e.graph.Slot(cc.CurrentSlot())
	if !ok {
		e.logger.Warn("awaited slot not in graph, restarting dialogue",
			"slot", cc.CurrentSlot(), "intent", cc.CurrentIntent())
		return nil, false
	}
	return slot, true
}

// begin handles a turn while no dialogue is in progress.
func (e *Engine) begin(ctx context.Context, input string, cc *domain.Context) (*domain.TurnResult, domain.TurnOutcome, error) {
	cc.Set(domain.KeyUserInput, input)

	cls, err := e.classify(ctx, input)
	if err != nil {
		return nil, "", err
	}
	e.record(cc, cls)

	slot, err := e.firstSlot(ctx, cc.CurrentIntent(), cc)
	if err != nil {
		return nil, "", err
	}

	cc.SetCurrentSlot(slot.ID)
	answer := e.enter(ctx, slot, cc)

	if slot.JumpTo == "" {
		return &domain.TurnResult{Answer: answer}, domain.OutcomeSingleShot, nil
	}
	return &domain.TurnResult{Answer: answer, Context: cc}, domain.OutcomeQuestion, nil
}

// answer handles a turn while slot awaits an answer.
func (e *Engine) answer(ctx context.Context, input string, cc *domain.Context, slot *domain.SlotDefinition) (*domain.TurnResult, domain.TurnOutcome, error) {
	cc.Set(domain.KeyUserInput, input)

	cls, err := e.classify(ctx, input)
	if err != nil {
		return nil, "", err
	}
	e.record(cc, cls)

	value, accepted := acceptAnswer(slot.Requires, input, cls)
	if !accepted {
		resolved := e.renderer.ResolveSlot(ctx, *slot, cc)
		text := resolved.Fallback
		if text == "" {
			text = resolved.Question
		}
		return &domain.TurnResult{Answer: e.renderer.Interpolate(ctx, text, cc), Context: cc}, domain.OutcomeRejected, nil
	}

	cc.Set(slot.ID, value)
	current := e.renderer.ResolveSlot(ctx, *slot, cc)
	e.emitSlotLeave(ctx, cc, current.ID)

	next, found := e.resolveJump(ctx, current.JumpTo, cc)
	if !found {
		e.executor.Run(ctx, current, domain.PhasePost, cc)
		cc.ClearDialogue()
		return &domain.TurnResult{Answer: e.renderer.Interpolate(ctx, current.Question, cc), Context: cc}, domain.OutcomeTerminal, nil
	}

	cc.SetCurrentSlot(next.ID)
	e.executor.Run(ctx, current, domain.PhasePost, cc)
	answer := e.enter(ctx, next, cc)
	return &domain.TurnResult{Answer: answer, Context: cc}, domain.OutcomeQuestion, nil
}

// enter runs the slot's pre actions and renders its question.
func (e *Engine) enter(ctx context.Context, slot *domain.SlotDefinition, cc *domain.Context) string {
	e.emitSlotEnter(ctx, cc, slot.ID)
	e.executor.Run(ctx, *slot, domain.PhasePre, cc)
	resolved := e.renderer.ResolveSlot(ctx, *slot, cc)
	return e.renderer.Interpolate(ctx, resolved.Question, cc)
}

// classify calls the classifier under the configured timeout.
func (e *Engine) classify(ctx context.Context, input string) (*domain.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, e.classifierTimeout)
	defer cancel()

	cls, err := e.classifier.Classify(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrClassifierFailure, err)
	}
	if cls == nil {
		cls = &domain.Classification{}
	}
	return cls, nil
}

// record stores the classification bookkeeping in the context.
// An empty intent label is stored as the fallback intent.
func (e *Engine) record(cc *domain.Context, cls *domain.Classification) {
	intent := cls.Intent
	if intent == "" {
		intent = domain.NoneIntent
	}
	cc.SetCurrentIntent(intent)
	cc.Set(domain.KeyEntities, cls.EntityMap())
	cc.Set(domain.KeySentiment, cls.Sentiment)
}

// acceptAnswer extracts the slot value from a turn, if the slot accepts it.
func acceptAnswer(req domain.EntityRequirement, input string, cls *domain.Classification) (string, bool) {
	if req.AcceptsAny() {
		return input, true
	}
	ent, ok := cls.Find(req.Entity)
	if !ok {
		return "", false
	}
	if ent.MatchedText != "" {
		return ent.MatchedText, true
	}
	return ent.CanonicalText, true
}
