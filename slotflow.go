package slotflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/slotflow/internal/actions"
	"github.com/aretw0/slotflow/internal/expr"
	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/internal/render"
	"github.com/aretw0/slotflow/internal/runtime"
	"github.com/aretw0/slotflow/internal/validator"
	"github.com/aretw0/slotflow/pkg/adapters/memory"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/nlu"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/aretw0/slotflow/pkg/session"
)

// ErrNotWatchable is returned by Watch when the graph source cannot report changes.
var ErrNotWatchable = errors.New("graph source does not support watching")

// Engine is the high-level entry point of the library. It owns the loaded
// graph, the classifier trained on it and the session store, and exposes the
// turn boundary used by every driving adapter.
type Engine struct {
	mu      sync.RWMutex
	runtime *runtime.Engine
	report  *validator.Report

	source     ports.GraphSource
	classifier ports.Classifier
	store      ports.ContextStore
	locker     ports.DistributedLocker
	lockTTL    time.Duration
	sessions   *session.Manager
	diffs      *session.Broker[*domain.ContextDiff]
	reloads    *session.Broker[ReloadEvent]

	renderer          *render.Renderer
	httpClient        actions.HTTPDoer
	hooks             domain.LifecycleHooks
	logger            *slog.Logger
	classifierTimeout time.Duration
	actionTimeout     time.Duration
	skipTraining      bool

	Name string
}

// ReloadEvent describes the outcome of a graph reload.
type ReloadEvent struct {
	At       time.Time `json:"at"`
	Groups   int       `json:"groups"`
	Warnings int       `json:"warnings"`
	Error    string    `json:"error,omitempty"`
}

// reloadTopic is the broker topic reload events are published on.
const reloadTopic = "reload"

var _ ports.TurnProcessor = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSource sets the graph source.
func WithSource(s ports.GraphSource) Option {
	return func(e *Engine) {
		e.source = s
	}
}

// WithGraph serves a fixed graph, typically one built with pkg/dsl.
func WithGraph(g *domain.Graph) Option {
	return func(e *Engine) {
		e.source = memory.NewSource(g)
	}
}

// WithClassifier replaces the reference classifier.
func WithClassifier(c ports.Classifier) Option {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithStore sets the session context store (in memory by default).
func WithStore(s ports.ContextStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker enables distributed session locking.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLockTTL sets the expiry of distributed session locks.
func WithLockTTL(d time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = d
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHTTPClient sets the client used for outbound calls.
func WithHTTPClient(c actions.HTTPDoer) Option {
	return func(e *Engine) {
		e.httpClient = c
	}
}

// WithClassifierTimeout bounds each classifier call.
func WithClassifierTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.classifierTimeout = d
	}
}

// WithActionTimeout sets the default timeout of outbound calls.
func WithActionTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.actionTimeout = d
	}
}

// WithoutTraining skips training the classifier on reload, for classifiers
// trained elsewhere.
func WithoutTraining() Option {
	return func(e *Engine) {
		e.skipTraining = true
	}
}

// New initializes an Engine and loads its graph.
// By default the graph is read from path (see OpenSource); if WithSource or
// WithGraph is given, path is only used as the engine name.
func New(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		diffs:   session.NewBroker[*domain.ContextDiff](),
		reloads: session.NewBroker[ReloadEvent](),
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if path != "" {
		eng.Name = filepath.Base(path)
		eng.logger = eng.logger.With("graph", eng.Name)
	}

	if eng.source == nil {
		if path == "" {
			return nil, errors.New("path is required when no graph source is provided")
		}
		src, err := OpenSource(path, SourceAuto, eng.logger)
		if err != nil {
			return nil, err
		}
		eng.source = src
	}
	if eng.classifier == nil {
		eng.classifier = nlu.New(nlu.WithLogger(eng.logger))
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(eng.logger), session.WithLockTTL(eng.lockTTL)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, sessionOpts...)

	ev, err := expr.New(expr.WithLogger(eng.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator: %w", err)
	}
	eng.renderer = render.New(ev, render.WithLogger(eng.logger))

	if _, err := eng.Reload(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}

// Reload loads the graph from the source, validates it, retrains the
// classifier and swaps the runtime. A graph with validation errors is refused
// and the previous one stays in service.
func (e *Engine) Reload(ctx context.Context) (*validator.Report, error) {
	g, err := e.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}

	report := validator.Validate(g, e.renderer.Evaluator())
	if err := report.Err(); err != nil {
		return report, err
	}
	for _, w := range report.Warnings {
		e.logger.Warn("graph warning", "issue", w.String())
	}

	if !e.skipTraining && !g.Training.IsEmpty() {
		if err := e.classifier.Train(ctx, g.Training); err != nil {
			return report, fmt.Errorf("failed to train classifier: %w", err)
		}
	}

	execOpts := []actions.Option{
		actions.WithLogger(e.logger),
		actions.WithLifecycleHooks(e.hooks),
	}
	if e.httpClient != nil {
		execOpts = append(execOpts, actions.WithHTTPClient(e.httpClient))
	}
	if e.actionTimeout > 0 {
		execOpts = append(execOpts, actions.WithTimeout(e.actionTimeout))
	}

	rt, err := runtime.NewEngine(g, e.classifier,
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithRenderer(e.renderer),
		runtime.WithExecutor(actions.New(e.renderer, execOpts...)),
		runtime.WithClassifierTimeout(e.classifierTimeout),
	)
	if err != nil {
		return report, err
	}

	e.mu.Lock()
	e.runtime = rt
	e.report = report
	e.mu.Unlock()

	e.logger.Info("graph loaded", "groups", len(g.Groups), "warnings", len(report.Warnings))
	return report, nil
}

func (e *Engine) current() *runtime.Engine {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runtime
}

// Report returns the validation report of the graph in service.
func (e *Engine) Report() *validator.Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.report
}

// Graph returns the graph in service.
func (e *Engine) Graph() *domain.Graph {
	return e.current().Graph()
}

// Inspect returns the intent groups of the graph in service.
func (e *Engine) Inspect() []domain.IntentGroup {
	return e.current().Inspect()
}

// ProcessTurn handles one utterance for sessionID. The stored context is
// replaced by the one in the result, or deleted when the result carries none.
// On error the stored context is left untouched.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, text string) (*domain.TurnResult, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	rt := e.current()

	var (
		res  *domain.TurnResult
		diff *domain.ContextDiff
	)
	err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, current *domain.Context) (*domain.Context, error) {
		r, err := rt.HandleTurn(ctx, text, current)
		if err != nil {
			return nil, err
		}
		res = r
		diff = domain.Diff(sessionID, current, r.Context)
		return r.Context, nil
	})
	if err != nil {
		return nil, err
	}

	if diff != nil {
		e.diffs.Publish(sessionID, diff)
	}
	return res, nil
}

// ResetContext discards the stored context of sessionID.
func (e *Engine) ResetContext(ctx context.Context, sessionID string) error {
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	e.diffs.Publish(sessionID, &domain.ContextDiff{SessionID: sessionID, Reset: true})
	return nil
}

// Context returns the stored context of sessionID.
func (e *Engine) Context(ctx context.Context, sessionID string) (*domain.Context, error) {
	return e.sessions.Load(ctx, sessionID)
}

// Sessions lists the ids of stored sessions.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// Subscribe streams the context changes of sessionID. Call cancel to stop.
func (e *Engine) Subscribe(sessionID string) (<-chan *domain.ContextDiff, func()) {
	return e.diffs.Subscribe(sessionID)
}

// SubscribeReloads streams the outcome of reloads triggered by Watch.
func (e *Engine) SubscribeReloads() (<-chan ReloadEvent, func()) {
	return e.reloads.Subscribe(reloadTopic)
}

// Watch reloads the graph whenever the source reports a change, until ctx is
// done. A failed reload is logged and keeps the previous graph in service.
func (e *Engine) Watch(ctx context.Context) error {
	w, ok := e.source.(ports.Watchable)
	if !ok {
		return ErrNotWatchable
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch graph source: %w", err)
	}

	go func() {
		for range changes {
			event := ReloadEvent{At: time.Now()}
			report, err := e.Reload(ctx)
			if err != nil {
				e.logger.Error("graph reload failed", "error", err)
				event.Error = err.Error()
			} else {
				event.Groups = len(e.Graph().Groups)
				event.Warnings = len(report.Warnings)
			}
			e.reloads.Publish(reloadTopic, event)
		}
	}()
	return nil
}
