package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/dsl"
)

// stubClassifier returns canned classifications keyed by utterance.
type stubClassifier struct {
	mu      sync.Mutex
	results map[string]*domain.Classification
	err     error
	block   bool
	calls   int
}

func classify(results map[string]*domain.Classification) *stubClassifier {
	return &stubClassifier{results: results}
}

func (s *stubClassifier) Classify(ctx context.Context, text string) (*domain.Classification, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.results[text]; ok {
		return r, nil
	}
	return &domain.Classification{Intent: domain.NoneIntent}, nil
}

func (s *stubClassifier) Train(context.Context, domain.TrainingSet) error { return nil }

func intent(name string, entities ...domain.Entity) *domain.Classification {
	return &domain.Classification{Intent: name, Score: 1, Entities: entities}
}

func city(text string) domain.Entity {
	return domain.Entity{Type: "city", Confidence: 1, CanonicalText: text, MatchedText: text}
}

func newEngine(t *testing.T, b *dsl.Builder, c *stubClassifier, opts ...EngineOption) *Engine {
	t.Helper()
	graph, err := b.Build()
	require.NoError(t, err)
	e, err := NewEngine(graph, c, opts...)
	require.NoError(t, err)
	return e
}

// turn runs one turn and returns the answer and the context to carry over.
func turn(t *testing.T, e *Engine, input string, cc *domain.Context) (string, *domain.Context) {
	t.Helper()
	res, err := e.HandleTurn(context.Background(), input, cc)
	require.NoError(t, err)
	return res.Answer, res.Context
}

func bookingGraph() *dsl.Builder {
	b := dsl.New()
	b.Intent("Greeting").
		Slot("hello").Ask("You said: {{slots.userInput}}")

	b.Intent("BookingFlow").
		Slot("city").Ask("Which city?").Expect("city").Fallback("Please name a city.").Then("date").
		Slot("date").Ask("When do you travel to {{slots.city}}?").Then("confirm").
		Slot("confirm").Ask("Booked {{slots.city}} on {{slots.date}}.").
		AssignOnAnswer(domain.FunctionSpec{"booked": true})
	return b
}
