package validator_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/slotflow/internal/expr"
	"github.com/aretw0/slotflow/internal/validator"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/dsl"
)

func evaluator(t *testing.T) *expr.Evaluator {
	t.Helper()
	ev, err := expr.New()
	require.NoError(t, err)
	return ev
}

func messages(issues []validator.Issue) string {
	var b strings.Builder
	for _, i := range issues {
		b.WriteString(i.String())
		b.WriteString("\n")
	}
	return b.String()
}

func TestValidate_CleanGraph(t *testing.T) {
	b := dsl.New()
	b.Intent("BookingFlow").
		Slot("city").Ask("Which city?").Expect("city").Then("nights").
		Slot("nights").Ask("How many nights in {{slots.city}}?")
	b.Intent(domain.NoneIntent).Slot("sorry").Ask("Sorry?")
	b.Train("BookingFlow", "book a hotel")
	b.Enum("city", "Lisbon")
	g, err := b.Build()
	require.NoError(t, err)

	r := validator.Validate(g, evaluator(t))
	assert.True(t, r.OK(), messages(r.Errors))
	assert.Empty(t, r.Warnings, messages(r.Warnings))
	assert.NoError(t, r.Err())
}

func TestValidate_Errors(t *testing.T) {
	g := &domain.Graph{
		Groups: []domain.IntentGroup{
			{Name: "A", Slots: []domain.SlotDefinition{{ID: "x", Question: "q"}, {ID: "x", Question: "q"}}},
			{Name: "A", Slots: []domain.SlotDefinition{{ID: "y", Question: "q"}}},
			{Name: "Empty"},
			{Name: "Calls", Slots: []domain.SlotDefinition{{
				ID: "c", Question: "q",
				Actions: []domain.ActionSet{{Phase: domain.PhasePost, Calls: []domain.APICall{{}}}},
			}}},
		},
		Training: domain.TrainingSet{Entities: []domain.EntityDefinition{
			{Name: "zip", Kind: domain.EntityRegex, Pattern: "("},
		}},
	}

	r := validator.Validate(g, evaluator(t))
	require.False(t, r.OK())
	out := messages(r.Errors)
	assert.Contains(t, out, "group A, slot x: duplicate slot id")
	assert.Contains(t, out, "group A: duplicate intent group")
	assert.Contains(t, out, "group Empty: intent group has no slots")
	assert.Contains(t, out, "post call 0 has no url")
	assert.Contains(t, out, `entity "zip" pattern does not compile`)
	assert.ErrorContains(t, r.Err(), "errors:")
}

func TestValidate_Warnings(t *testing.T) {
	g := &domain.Graph{
		Groups: []domain.IntentGroup{{Name: "A", Slots: []domain.SlotDefinition{
			{ID: "a", Question: "Hi {{slots.(}}", Guard: "slots.x ===", JumpTo: "nowhere"},
			{ID: "b", Question: "%slots.)%", JumpTo: "{{slots.next}}", Requires: domain.RequiresEntity("ghost")},
		}}},
		Training: domain.TrainingSet{
			Documents: []domain.TrainingDocument{{Intent: "Orphan", Utterances: []string{"x"}}},
			Entities:  []domain.EntityDefinition{{Name: "city", Kind: domain.EntityEnum, Values: []string{"Lisbon"}}},
		},
	}

	r := validator.Validate(g, evaluator(t))
	assert.True(t, r.OK(), messages(r.Errors))
	out := messages(r.Warnings)
	assert.Contains(t, out, "guard does not compile")
	assert.Contains(t, out, "placeholder {{slots.(}} does not compile")
	assert.Contains(t, out, `dynamic value "%slots.)%" does not compile`)
	assert.Contains(t, out, `jump target "nowhere" matches no group or slot`)
	assert.NotContains(t, out, "slots.next", "computed jumps are not checked")
	assert.Contains(t, out, `no "None" group`)
	assert.Contains(t, out, "group Orphan: training intent has no intent group")
	assert.Contains(t, out, "group A: intent group has no utterances")
	assert.Contains(t, out, `requires unknown entity "ghost"`)
}

func TestValidate_JumpBySubstringAndSlotID(t *testing.T) {
	g := &domain.Graph{Groups: []domain.IntentGroup{
		{Name: "BookingFlow", Slots: []domain.SlotDefinition{{ID: "city", Question: "q", JumpTo: "Booking"}, {ID: "d", Question: "q", JumpTo: "city"}}},
		{Name: domain.NoneIntent, Slots: []domain.SlotDefinition{{ID: "n", Question: "q"}}},
	}}

	r := validator.Validate(g, evaluator(t))
	assert.Empty(t, r.Warnings, messages(r.Warnings))
}

func TestValidate_EmptyGraph(t *testing.T) {
	assert.False(t, validator.Validate(&domain.Graph{}, evaluator(t)).OK())
	assert.False(t, validator.Validate(nil, evaluator(t)).OK())
}
