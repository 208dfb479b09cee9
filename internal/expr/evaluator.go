package expr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"

	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
)

// ErrEmptyExpression is returned when asked to evaluate a blank expression.
var ErrEmptyExpression = errors.New("empty expression")

const (
	varSlots   = "slots"
	varContext = "context"
)

// legacyOperators rewrites strict comparison operators found in older graphs.
var legacyOperators = strings.NewReplacer("===", "==", "!==", "!=")

// Evaluator compiles and runs expressions against a conversation context.
// It is safe for concurrent use.
type Evaluator struct {
	env      *cel.Env
	programs sync.Map // source -> *compiled
	logger   *slog.Logger
}

type compiled struct {
	prg cel.Program
	err error
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for guard failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// New builds an Evaluator with the fixed sandbox environment.
func New(opts ...Option) (*Evaluator, error) {
	envOpts := []cel.EnvOption{
		cel.Variable(varSlots, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable(varContext, cel.MapType(cel.StringType, cel.DynType)),
		cel.ClearMacros(),
		cel.Macros(cel.HasMacro),
		cel.CrossTypeNumericComparisons(true),
		ext.Strings(),
	}
	env, err := cel.NewEnv(append(envOpts, arithmeticFunctions()...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to build expression environment: %w", err)
	}

	e := &Evaluator{env: env, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Compile checks that src is a valid expression. Results are cached.
func (e *Evaluator) Compile(src string) error {
	_, err := e.program(src)
	return err
}

// Eval evaluates src against c and returns a plain Go value
// (string, bool, int64, uint64, float64, map[string]any, []any or nil).
func (e *Evaluator) Eval(ctx context.Context, src string, c *domain.Context) (any, error) {
	prg, err := e.program(src)
	if err != nil {
		return nil, err
	}

	slots := c.Snapshot()
	out, _, err := prg.ContextEval(ctx, map[string]any{
		varSlots:   slots,
		varContext: map[string]any{varSlots: slots},
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", src, err)
	}
	return toNative(out)
}

// Guard evaluates a slot guard. An empty guard passes; an evaluation error
// is logged and counts as false.
func (e *Evaluator) Guard(ctx context.Context, src string, c *domain.Context) bool {
	if strings.TrimSpace(src) == "" {
		return true
	}
	v, err := e.Eval(ctx, src, c)
	if err != nil {
		e.logger.Warn("guard evaluation failed", "guard", src, "error", err)
		return false
	}
	return Truthy(v)
}

func (e *Evaluator) program(src string) (cel.Program, error) {
	if cached, ok := e.programs.Load(src); ok {
		c := cached.(*compiled)
		return c.prg, c.err
	}

	c := &compiled{}
	c.prg, c.err = e.compile(src)
	e.programs.Store(src, c)
	return c.prg, c.err
}

func (e *Evaluator) compile(src string) (cel.Program, error) {
	body := strings.TrimSpace(src)
	if body == "" {
		return nil, ErrEmptyExpression
	}
	body = legacyOperators.Replace(body)

	parsed, iss := e.env.Parse(body)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", src, iss.Err())
	}
	rewriteArithmetic(parsed.NativeRep())
	checked, iss := e.env.Check(parsed)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", src, iss.Err())
	}
	prg, err := e.env.Program(checked)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", src, err)
	}
	return prg, nil
}
