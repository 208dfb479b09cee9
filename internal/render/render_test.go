package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/slotflow/internal/expr"
	"github.com/aretw0/slotflow/pkg/domain"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	ev, err := expr.New()
	require.NoError(t, err)
	return New(ev)
}

func newContext(values map[string]any) *domain.Context {
	c := domain.NewContext()
	c.Merge(values)
	return c
}

func TestInterpolate(t *testing.T) {
	r := newRenderer(t)
	ctx := context.Background()
	c := newContext(map[string]any{
		"userInput": "Hi",
		"weather":   map[string]any{"temp": 21.0},
	})

	assert.Equal(t, "You said: Hi", r.Interpolate(ctx, "You said: {{slots.userInput}}", c))
	assert.Equal(t, "It is 21C", r.Interpolate(ctx, "It is {{ context.slots.weather.temp }}C", c))
	assert.Equal(t, "no placeholders", r.Interpolate(ctx, "no placeholders", c))
}

func TestInterpolate_FailedSpanKeptVerbatim(t *testing.T) {
	r := newRenderer(t)
	c := newContext(map[string]any{"a": "x"})

	got := r.Interpolate(context.Background(), "{{slots.a}} and {{slots.missing}}", c)
	assert.Equal(t, "x and {{slots.missing}}", got)
}

func TestInterpolate_DoesNotRescanValues(t *testing.T) {
	r := newRenderer(t)
	c := newContext(map[string]any{"userInput": "{{slots.secret}}", "secret": "s3cr3t"})

	got := r.Interpolate(context.Background(), "You said {{slots.userInput}}", c)
	assert.Equal(t, "You said {{slots.secret}}", got)
}

func TestResolve_DynamicValues(t *testing.T) {
	r := newRenderer(t)
	ctx := context.Background()
	c := newContext(map[string]any{"adults": 2.0, "city": "Lisbon"})

	assert.Equal(t, 4.0, r.Resolve(ctx, "%slots.adults * 2.0%", c))
	assert.Equal(t, true, r.Resolve(ctx, "%return slots.city == 'Lisbon';%", c))
	assert.Equal(t, "%slots.nope%", r.Resolve(ctx, "%slots.nope%", c), "failures keep the original")
	assert.Equal(t, 42, r.Resolve(ctx, 42, c), "non-strings pass through")
}

func TestResolve_UncompilablePercentTextIsLiteral(t *testing.T) {
	r := newRenderer(t)
	ctx := context.Background()
	c := newContext(map[string]any{"city": "Lisbon"})

	_, ok := r.Dynamic("%50 off, save 20%")
	assert.False(t, ok)
	body, ok := r.Dynamic("%slots.city%")
	assert.True(t, ok)
	assert.Equal(t, "slots.city", body)

	assert.Equal(t, "%50 off, save 20%", r.Resolve(ctx, "%50 off, save 20%", c))
	assert.Equal(t, "%50 off in Lisbon, save 20%", r.Resolve(ctx, "%50 off in {{slots.city}}, save 20%", c))
}

func TestResolve_PartialInterpolation(t *testing.T) {
	r := newRenderer(t)
	ctx := context.Background()
	c := newContext(map[string]any{
		"city":    "Lisbon",
		"weather": map[string]any{"temp": 21.0},
	})

	got := r.Resolve(ctx, map[string]any{
		"url":     "https://api.example.com/weather?q={{city}}",
		"headers": map[string]any{"X-Temp": "{{weather.temp}}"},
		"list":    []any{"{{slots.city}}", 1},
	}, c)

	assert.Equal(t, map[string]any{
		"url":     "https://api.example.com/weather?q=Lisbon",
		"headers": map[string]any{"X-Temp": "21"},
		"list":    []any{"Lisbon", 1},
	}, got)
}

func TestResolveSlot(t *testing.T) {
	r := newRenderer(t)
	c := newContext(map[string]any{"age": 30.0, "name": "Ana"})

	slot := domain.SlotDefinition{
		ID:       "age",
		Question: "Thanks {{slots.name}}",
		Fallback: "%'Sorry ' + slots.name%",
		JumpTo:   "%slots.age >= 18.0 ? 'adult' : 'minor'%",
	}

	got := r.ResolveSlot(context.Background(), slot, c)
	assert.Equal(t, "Thanks {{slots.name}}", got.Question, "placeholders wait for display")
	assert.Equal(t, "Sorry Ana", got.Fallback)
	assert.Equal(t, "adult", got.JumpTo)
	assert.Equal(t, "%slots.age >= 18.0 ? 'adult' : 'minor'%", slot.JumpTo, "original untouched")
}

func TestDynamicBody(t *testing.T) {
	for in, want := range map[string]string{
		"%slots.a%":             "slots.a",
		" % return slots.a ; % ": "slots.a",
		"%1 + 1%":               "1 + 1",
	} {
		got, ok := DynamicBody(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "%", "%%", "50% off", "plain"} {
		assert.False(t, IsDynamic(in), in)
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"slots.city", "1 + 2"}, Placeholders("In {{ slots.city }} it is {{1 + 2}}"))
	assert.Empty(t, Placeholders("no placeholders"))
}
