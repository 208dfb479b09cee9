package dsl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/slotflow/pkg/domain"
)

func TestBuilder_BookingFlow(t *testing.T) {
	b := New()

	b.Intent("Greeting").
		Slot("hello").
		Ask("You said: {{slots.userInput}}")

	b.Intent("BookingFlow").
		Slot("city").Ask("Which city?").Expect("city").Fallback("Please name a city.").Then("date").
		OnAnswer(domain.APICall{URL: "https://api.example.com/geo?q={{city}}", ResponseKey: "geo"}).
		Slot("date").Ask("When?").Then("confirm").AssignOnEnter(domain.FunctionSpec{"step": 2}).
		Slot("confirm").Ask("Booked {{slots.city}}.")

	b.Train("BookingFlow", "book a trip")
	b.Enum("city", "Lisbon", "lisboa")

	graph, err := b.Build()
	require.NoError(t, err)

	require.Len(t, graph.Groups, 2)
	assert.Equal(t, "Greeting", graph.Groups[0].Name)
	assert.Equal(t, "BookingFlow", graph.Groups[1].Name)

	booking := graph.Groups[1]
	require.Len(t, booking.Slots, 3)

	city := booking.Slots[0]
	assert.Equal(t, domain.RequiresEntity("city"), city.Requires)
	assert.Equal(t, "date", city.JumpTo)
	require.Len(t, city.ActionsFor(domain.PhasePost), 1)
	assert.Equal(t, "geo", city.ActionsFor(domain.PhasePost)[0].Calls[0].ResponseKey)

	date := booking.Slots[1]
	assert.True(t, date.Requires.AcceptsAny())
	assert.Equal(t, 2, date.ActionsFor(domain.PhasePre)[0].Assign["step"])

	assert.Empty(t, booking.Slots[2].JumpTo)
	assert.Len(t, graph.Training.Documents, 1)
	assert.Equal(t, []string{"Lisbon", "lisboa"}, graph.Training.Entities[0].Values)
}

func TestBuilder_IntentReuseKeepsOrder(t *testing.T) {
	b := New()
	b.Intent("A").Slot("a1")
	b.Intent("B").Slot("b1")
	b.Intent("A").Slot("a2")

	graph, err := b.Build()
	require.NoError(t, err)
	require.Len(t, graph.Groups, 2)
	assert.Equal(t, "A", graph.Groups[0].Name)
	assert.Len(t, graph.Groups[0].Slots, 2)
}

func TestBuilder_DuplicateSlot(t *testing.T) {
	b := New()
	b.Intent("A").Slot("x").Slot("x")

	_, err := b.Build()
	assert.Error(t, err)
}

func TestBuilder_Source(t *testing.T) {
	b := New()
	b.Intent("Greeting").Slot("hello").Ask("Hi")

	src, err := b.Source()
	require.NoError(t, err)

	graph, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, graph.Groups, 1)
}
