package runtime

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/dsl"
)

func TestHandleTurn_SingleShotGreeting(t *testing.T) {
	e := newEngine(t, bookingGraph(), classify(map[string]*domain.Classification{
		"Hi": intent("Greeting"),
	}))

	res, err := e.HandleTurn(context.Background(), "Hi", domain.NewContext())
	require.NoError(t, err)

	assert.Equal(t, "You said: Hi", res.Answer)
	assert.Nil(t, res.Context, "single-slot dialogues discard the context")
	assert.True(t, res.Terminal())
}

func TestHandleTurn_BookingFlow(t *testing.T) {
	e := newEngine(t, bookingGraph(), classify(map[string]*domain.Classification{
		"book a trip": intent("BookingFlow"),
		"Lisbon":      intent("BookingFlow", city("Lisbon")),
	}))

	answer, cc := turn(t, e, "book a trip", domain.NewContext())
	assert.Equal(t, "Which city?", answer)
	require.NotNil(t, cc)
	assert.Equal(t, "BookingFlow", cc.CurrentIntent())
	assert.Equal(t, "city", cc.CurrentSlot())

	answer, cc = turn(t, e, "somewhere nice", cc)
	assert.Equal(t, "Please name a city.", answer)
	assert.Equal(t, "city", cc.CurrentSlot(), "rejected answers keep the slot")
	_, answered := cc.Get("city")
	assert.False(t, answered)

	answer, cc = turn(t, e, "Lisbon", cc)
	assert.Equal(t, "When do you travel to Lisbon?", answer)
	assert.Equal(t, "date", cc.CurrentSlot())
	assert.Equal(t, "Lisbon", cc.String("city"))

	answer, cc = turn(t, e, "tomorrow", cc)
	assert.Equal(t, "Booked Lisbon on tomorrow.", answer)
	assert.Equal(t, "confirm", cc.CurrentSlot())

	res, err := e.HandleTurn(context.Background(), "yes", cc)
	require.NoError(t, err)
	assert.Equal(t, "Booked Lisbon on tomorrow.", res.Answer, "one closing message, the final slot's question")
	require.NotNil(t, res.Context, "multi-slot dialogues return the cleared context")
	assert.True(t, res.Terminal())
	assert.Equal(t, "", res.Context.CurrentIntent())
	assert.Equal(t, "yes", res.Context.String("confirm"))
	booked, _ := res.Context.Get("booked")
	assert.Equal(t, true, booked, "post actions of the last slot run before closing")
}

func TestHandleTurn_DoesNotMutateInput(t *testing.T) {
	e := newEngine(t, bookingGraph(), classify(map[string]*domain.Classification{
		"book a trip": intent("BookingFlow"),
	}))

	in := domain.NewContext()
	in.Set("keep", "me")
	_, out := turn(t, e, "book a trip", in)

	assert.Equal(t, "city", out.CurrentSlot())
	assert.Equal(t, "", in.CurrentSlot())
	assert.Equal(t, "me", out.String("keep"))
}

func TestHandleTurn_BookkeepingRefreshedOnAnswer(t *testing.T) {
	c := classify(map[string]*domain.Classification{
		"book a trip": intent("BookingFlow"),
		"Lisbon": {
			Intent:    "Travel",
			Entities:  []domain.Entity{city("Lisbon")},
			Sentiment: 0.5,
		},
	})
	e := newEngine(t, bookingGraph(), c)

	_, cc := turn(t, e, "book a trip", domain.NewContext())
	_, cc = turn(t, e, "Lisbon", cc)

	assert.Equal(t, "Travel", cc.CurrentIntent(), "the answer branch refreshes the intent label")
	assert.Equal(t, "Lisbon", cc.String(domain.KeyUserInput))
	sentiment, _ := cc.Get(domain.KeySentiment)
	assert.Equal(t, 0.5, sentiment)
	entities, _ := cc.Get(domain.KeyEntities)
	assert.Contains(t, entities, "city")
}

func TestHandleTurn_IntentUnresolved(t *testing.T) {
	b := dsl.New()
	b.Intent("Greeting").Slot("hello").Ask("Hi")

	e := newEngine(t, b, classify(nil))

	in := domain.NewContext()
	res, err := e.HandleTurn(context.Background(), "gibberish", in)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrIntentUnresolved)
	assert.Empty(t, in.Slots, "the caller's context is untouched")
}

func TestHandleTurn_NoneGroupCatchesUnknownIntents(t *testing.T) {
	b := dsl.New()
	b.Intent("Greeting").Slot("hello").Ask("Hi")
	b.Intent("None").Slot("sorry").Ask("Sorry, I did not get that.")

	e := newEngine(t, b, classify(map[string]*domain.Classification{
		"weather?": intent("Weather"),
	}))

	res, err := e.HandleTurn(context.Background(), "weather?", domain.NewContext())
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I did not get that.", res.Answer)
}

func TestHandleTurn_NoneGroupGuardsApply(t *testing.T) {
	b := dsl.New()
	b.Intent("None").Slot("sorry").Ask("Sorry").When("false")

	e := newEngine(t, b, classify(nil))
	_, err := e.HandleTurn(context.Background(), "anything", domain.NewContext())
	assert.ErrorIs(t, err, domain.ErrIntentUnresolved)
}

func TestHandleTurn_EmptyIntentStoredAsNone(t *testing.T) {
	b := dsl.New()
	b.Intent("None").Slot("sorry").Ask("Sorry, again?").Then("sorry")

	e := newEngine(t, b, classify(map[string]*domain.Classification{"?": {}}))
	_, cc := turn(t, e, "?", domain.NewContext())
	assert.Equal(t, domain.NoneIntent, cc.CurrentIntent())
}

func TestHandleTurn_ClassifierFailure(t *testing.T) {
	c := classify(nil)
	c.err = errors.New("model not loaded")
	e := newEngine(t, bookingGraph(), c)

	in := domain.NewContext()
	in.SetCurrentIntent("BookingFlow")
	in.SetCurrentSlot("city")

	res, err := e.HandleTurn(context.Background(), "Lisbon", in)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrClassifierFailure)
	assert.Equal(t, "city", in.CurrentSlot())
	_, hasInput := in.Get(domain.KeyUserInput)
	assert.False(t, hasInput)
}

func TestHandleTurn_ClassifierTimeout(t *testing.T) {
	c := classify(nil)
	c.block = true
	e := newEngine(t, bookingGraph(), c, WithClassifierTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := e.HandleTurn(context.Background(), "Hi", domain.NewContext())
	assert.ErrorIs(t, err, domain.ErrClassifierFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHandleTurn_UnknownAwaitedSlotRestarts(t *testing.T) {
	e := newEngine(t, bookingGraph(), classify(map[string]*domain.Classification{
		"Hi": intent("Greeting"),
	}))

	stale := domain.NewContext()
	stale.SetCurrentIntent("OldFlow")
	stale.SetCurrentSlot("removed")

	res, err := e.HandleTurn(context.Background(), "Hi", stale)
	require.NoError(t, err)
	assert.Equal(t, "You said: Hi", res.Answer)
}

func TestHandleTurn_FunctionSpecFeedsQuestion(t *testing.T) {
	b := dsl.New()
	b.Intent("Greeting").
		Slot("hello").Ask("{{slots.greeting}}, {{slots.shout}}").
		AssignOnEnter(domain.FunctionSpec{
			"greeting": "hello",
			"shout":    "%slots.userInput.upperAscii()%",
		})

	e := newEngine(t, b, classify(map[string]*domain.Classification{"hey": intent("Greeting")}))

	res, err := e.HandleTurn(context.Background(), "hey", domain.NewContext())
	require.NoError(t, err)
	assert.Equal(t, "hello, HEY", res.Answer)
}

func TestHandleTurn_DynamicJumpTo(t *testing.T) {
	b := dsl.New()
	b.Intent("Signup").
		Slot("age").Ask("How old are you?").Then("%int(slots.age) >= 18 ? 'adult' : 'minor'%").
		Slot("adult").Ask("Welcome aboard.").
		Slot("minor").Ask("Ask a parent.")

	e := newEngine(t, b, classify(map[string]*domain.Classification{"join": intent("Signup")}))

	_, cc := turn(t, e, "join", domain.NewContext())
	answer, cc := turn(t, e, "30", cc)
	assert.Equal(t, "Welcome aboard.", answer)
	assert.Equal(t, "adult", cc.CurrentSlot())

	_, cc = turn(t, e, "join", domain.NewContext())
	answer, _ = turn(t, e, "12", cc)
	assert.Equal(t, "Ask a parent.", answer)
}

func TestHandleTurn_RejectedWithoutFallbackRepeatsQuestion(t *testing.T) {
	b := dsl.New()
	b.Intent("Flow").
		Slot("city").Ask("Which city?").Expect("city").Then("next").
		Slot("next").Ask("Done")

	e := newEngine(t, b, classify(map[string]*domain.Classification{"go": intent("Flow")}))
	_, cc := turn(t, e, "go", domain.NewContext())
	answer, _ := turn(t, e, "nope", cc)
	assert.Equal(t, "Which city?", answer)
}

func TestHandleTurn_MatchedTextIsTheAnswer(t *testing.T) {
	e := newEngine(t, bookingGraph(), classify(map[string]*domain.Classification{
		"book a trip": intent("BookingFlow"),
		"to lisboa please": intent("BookingFlow", domain.Entity{
			Type: "city", Confidence: 1, CanonicalText: "Lisbon", MatchedText: "lisboa",
		}),
	}))

	_, cc := turn(t, e, "book a trip", domain.NewContext())
	_, cc = turn(t, e, "to lisboa please", cc)
	assert.Equal(t, "lisboa", cc.String("city"))
}

func TestHandleTurn_Hooks(t *testing.T) {
	var (
		entered  []string
		left     []string
		outcomes []domain.TurnOutcome
	)
	hooks := domain.LifecycleHooks{
		OnSlotEnter: func(_ context.Context, ev *domain.SlotEvent) { entered = append(entered, ev.SlotID) },
		OnSlotLeave: func(_ context.Context, ev *domain.SlotEvent) { left = append(left, ev.SlotID) },
		OnTurn:      func(_ context.Context, ev *domain.TurnEvent) { outcomes = append(outcomes, ev.Outcome) },
	}
	e := newEngine(t, bookingGraph(), classify(map[string]*domain.Classification{
		"book a trip": intent("BookingFlow"),
		"Lisbon":      intent("BookingFlow", city("Lisbon")),
	}), WithLifecycleHooks(hooks))

	_, cc := turn(t, e, "book a trip", domain.NewContext())
	_, cc = turn(t, e, "nope", cc)
	_, _ = turn(t, e, "Lisbon", cc)

	assert.Equal(t, []string{"city", "date"}, entered)
	assert.Equal(t, []string{"city"}, left)
	assert.Equal(t, []domain.TurnOutcome{domain.OutcomeQuestion, domain.OutcomeRejected, domain.OutcomeQuestion}, outcomes)
}

func TestHandleTurn_PostActionsFeedNextSlot(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.URL.RequestURI())
		mu.Unlock()
		switch r.URL.Path {
		case "/token":
			_, _ = io.WriteString(w, `{"code":"abc"}`)
		case "/lookup/abc":
			_, _ = io.WriteString(w, `{"label":"Gold"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	b := dsl.New()
	b.Intent("Flow").
		Slot("a").Ask("Ready?").Then("b").
		OnAnswer(domain.APICall{URL: srv.URL + "/token?at={{slots.currentSlot}}", ResponseKey: "k", ResponsePath: "code"}).
		AssignOnAnswer(domain.FunctionSpec{"seen": "%slots.currentSlot%"}).
		Slot("b").Ask("Code {{slots.k}} is {{slots.label}}.").Then("c").
		OnEnter(domain.APICall{URL: srv.URL + "/lookup/{{slots.k}}", ResponseKey: "label", ResponsePath: "label"}).
		Slot("c").Ask("Done")

	e := newEngine(t, b, classify(map[string]*domain.Classification{"start": intent("Flow")}))

	_, cc := turn(t, e, "start", domain.NewContext())
	answer, cc := turn(t, e, "yes", cc)

	assert.Equal(t, "Code abc is Gold.", answer)
	assert.Equal(t, "b", cc.CurrentSlot())
	assert.Equal(t, "b", cc.String("seen"), "post actions see the next slot as current")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/token?at=b", "/lookup/abc"}, requests)
}
