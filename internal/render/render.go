// Package render resolves {{expr}} placeholders and %expr% dynamic values
// against a conversation context.
package render

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aretw0/slotflow/internal/expr"
	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
)

var (
	placeholderRe = regexp.MustCompile(`\{\{(.+?)\}\}`)
	dottedPathRe  = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)
)

// Renderer interpolates templates and resolves dynamic values.
type Renderer struct {
	eval   *expr.Evaluator
	logger *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger used for failed placeholders.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Renderer backed by eval.
func New(eval *expr.Evaluator, opts ...Option) *Renderer {
	r := &Renderer{eval: eval, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Evaluator exposes the underlying expression evaluator.
func (r *Renderer) Evaluator() *expr.Evaluator {
	return r.eval
}

// Interpolate replaces every {{expr}} span in text with the text form of its
// value. A span whose expression fails is left unchanged. Substituted values
// are not scanned again.
func (r *Renderer) Interpolate(ctx context.Context, text string, c *domain.Context) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(span string) string {
		src := strings.TrimSpace(placeholderRe.FindStringSubmatch(span)[1])
		v, err := r.eval.Eval(ctx, src, c)
		if err != nil {
			r.logger.Warn("placeholder left unresolved", "placeholder", span, "error", err)
			return span
		}
		return expr.Text(v)
	})
}

// Resolve walks value and resolves every string in it. A string wrapped in
// %...% is evaluated as a whole expression and replaced by the typed result;
// other strings get their {{...}} spans interpolated, where a bare dotted path
// such as {{weather.temp}} is looked up under slots first.
func (r *Renderer) Resolve(ctx context.Context, value any, c *domain.Context) any {
	switch v := value.(type) {
	case string:
		return r.resolveString(ctx, v, c)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = r.Resolve(ctx, item, c)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.Resolve(ctx, item, c)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.resolveString(ctx, item, c)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = r.resolveString(ctx, item, c)
		}
		return out
	default:
		return value
	}
}

// ResolveText resolves a string and returns its text form.
func (r *Renderer) ResolveText(ctx context.Context, s string, c *domain.Context) string {
	return expr.Text(r.resolveString(ctx, s, c))
}

// ResolveSlot returns a copy of slot whose computed fields reflect c.
// Question and fallback are only resolved when they are dynamic values, so
// their placeholders are rendered once, when the text is shown. Action specs
// are resolved by the executor when they run.
func (r *Renderer) ResolveSlot(ctx context.Context, slot domain.SlotDefinition, c *domain.Context) domain.SlotDefinition {
	if IsDynamic(slot.Question) {
		slot.Question = r.ResolveText(ctx, slot.Question, c)
	}
	if IsDynamic(slot.Fallback) {
		slot.Fallback = r.ResolveText(ctx, slot.Fallback, c)
	}
	slot.JumpTo = strings.TrimSpace(r.ResolveText(ctx, slot.JumpTo, c))
	return slot
}

// Dynamic returns the expression of a %expr% value whose body compiles.
// A %...% string that is not a valid expression, such as
// "%50 off, save 20%", is literal text.
func (r *Renderer) Dynamic(s string) (string, bool) {
	body, ok := DynamicBody(s)
	if !ok {
		return "", false
	}
	if err := r.eval.Compile(body); err != nil {
		r.logger.Debug("dynamic value does not compile, using literal", "value", s, "error", err)
		return "", false
	}
	return body, true
}

func (r *Renderer) resolveString(ctx context.Context, s string, c *domain.Context) any {
	if body, ok := r.Dynamic(s); ok {
		v, err := r.eval.Eval(ctx, body, c)
		if err != nil {
			r.logger.Warn("dynamic value left unresolved", "value", s, "error", err)
			return s
		}
		return v
	}
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(span string) string {
		src := strings.TrimSpace(placeholderRe.FindStringSubmatch(span)[1])
		if v, ok := lookupPath(c, src); ok {
			return expr.Text(v)
		}
		v, err := r.eval.Eval(ctx, src, c)
		if err != nil {
			r.logger.Warn("placeholder left unresolved", "placeholder", span, "error", err)
			return span
		}
		return expr.Text(v)
	})
}

// IsDynamic reports whether s is a %expr% dynamic value.
func IsDynamic(s string) bool {
	_, ok := DynamicBody(s)
	return ok
}

// DynamicBody returns the expression inside a %expr% value. A leading
// "return" keyword and a trailing semicolon are tolerated.
func DynamicBody(s string) (string, bool) {
	t := strings.TrimSpace(s)
	if len(t) < 3 || t[0] != '%' || t[len(t)-1] != '%' {
		return "", false
	}
	body := strings.TrimSpace(t[1 : len(t)-1])
	if strings.HasPrefix(body, "return ") {
		body = strings.TrimSpace(strings.TrimPrefix(body, "return "))
	}
	body = strings.TrimSpace(strings.TrimSuffix(body, ";"))
	if body == "" {
		return "", false
	}
	return body, true
}

// lookupPath resolves a dotted path rooted at the context map.
func lookupPath(c *domain.Context, path string) (any, bool) {
	if !dottedPathRe.MatchString(path) {
		return nil, false
	}
	var cur any = c.Snapshot()
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Placeholders returns the expressions of the {{...}} spans in text.
func Placeholders(text string) []string {
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}
