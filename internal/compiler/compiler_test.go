package compiler_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/slotflow/internal/compiler"
	"github.com/aretw0/slotflow/pkg/domain"
)

const canonicalYAML = `
groups:
  - name: Booking
    utterances: ["book a room", "i want a hotel"]
    slots:
      - id: city
        question: Which city?
        fallback: Sorry, which city?
        requires: city
        jump_to: date
        actions:
          - phase: post
            calls:
              - url: "https://weather.example/{{slots.city}}"
              - url: "https://api.example/hotels"
                method: POST
                body: {city: "%slots.city%"}
                response_key: hotels
                response_path: data.items
                timeout: 2s
                condition: "slots.city != ''"
            assign:
              greeted: true
      - id: date
        question: When?
        requires: "true"
        guard: "has(slots.city)"
  - name: None
    slots:
      - id: fallback
        question: I did not understand.
intents:
  - name: Greeting
    utterances: ["hello", "hi"]
entities:
  - name: city
    kind: enum
    values: [Lisbon, lisboa, lx]
  - name: email
    kind: regex
    pattern: '[a-z]+@[a-z]+\.com'
`

func TestParse_CanonicalYAML(t *testing.T) {
	g, err := compiler.Parse([]byte(canonicalYAML), compiler.FormatYAML)
	require.NoError(t, err)

	require.Len(t, g.Groups, 2)
	booking := g.Groups[0]
	assert.Equal(t, "Booking", booking.Name)
	require.Len(t, booking.Slots, 2)

	city := booking.Slots[0]
	assert.Equal(t, "city", city.ID)
	assert.Equal(t, "Sorry, which city?", city.Fallback)
	assert.Equal(t, domain.RequiresEntity("city"), city.Requires)
	assert.Equal(t, "date", city.JumpTo)

	post := city.ActionsFor(domain.PhasePost)
	require.Len(t, post, 1)
	require.Len(t, post[0].Calls, 2)
	assert.Equal(t, "https://weather.example/{{slots.city}}", post[0].Calls[0].URL)

	hotels := post[0].Calls[1]
	assert.Equal(t, "POST", hotels.Method)
	assert.Equal(t, "hotels", hotels.ResponseKey)
	assert.Equal(t, "data.items", hotels.ResponsePath)
	assert.Equal(t, 2*time.Second, hotels.Timeout)
	assert.Equal(t, "slots.city != ''", hotels.Condition)
	assert.Equal(t, map[string]any{"city": "%slots.city%"}, hotels.Body)
	assert.Equal(t, domain.FunctionSpec{"greeted": true}, post[0].Assign)

	date := booking.Slots[1]
	assert.True(t, date.Requires.AcceptsAny())
	assert.Equal(t, "has(slots.city)", date.Guard)

	assert.True(t, g.Groups[1].Slots[0].Requires.AcceptsAny(), "missing requires accepts any input")

	require.Len(t, g.Training.Documents, 2)
	assert.Equal(t, "Booking", g.Training.Documents[0].Intent)
	assert.Equal(t, []string{"hello", "hi"}, g.Training.Documents[1].Utterances)

	require.Len(t, g.Training.Entities, 2)
	assert.Equal(t, domain.EntityEnum, g.Training.Entities[0].Kind)
	assert.Equal(t, "Lisbon", g.Training.Entities[0].Values[0])
	assert.Equal(t, `[a-z]+@[a-z]+\.com`, g.Training.Entities[1].Pattern)
}

const legacyJSON = `{
  "slots": [
    {
      "name": "Weather",
      "questions": [
        {
          "slot": "ask_city",
          "question": "Which city?",
          "entity": "city",
          "jumpTo": "forecast",
          "condition": "",
          "callApi": [
            {"execute": "afterQuestion", "url": "https://w.example/{{slots.entities.city.canonicalText}}", "responseName": "weather"}
          ],
          "function": {"execute": "afterQuestion", "unit": "celsius", "label": "%slots.userInput%"}
        },
        {
          "slot": "forecast",
          "question": "It is {{slots.weather.temp}} degrees",
          "entity": "true",
          "function": {"execute": "firstQuestion", "shown": true}
        }
      ]
    }
  ],
  "documents": [{"intent": "Weather", "text": ["weather please"]}],
  "entities": [
    {"name": "city", "type": "enum", "value": ["Lisbon", "lx"]},
    {"name": "zip", "type": "regex", "value": "\\d{4}-\\d{3}"}
  ]
}`

func TestParse_LegacyJSON(t *testing.T) {
	g, err := compiler.Parse([]byte(legacyJSON), compiler.FormatJSON)
	require.NoError(t, err)

	require.Len(t, g.Groups, 1)
	slots := g.Groups[0].Slots
	require.Len(t, slots, 2)

	ask := slots[0]
	assert.Equal(t, "ask_city", ask.ID)
	assert.Equal(t, "city", ask.Requires.Entity)
	assert.Equal(t, "forecast", ask.JumpTo)
	assert.Empty(t, ask.Guard)

	require.Len(t, ask.Actions, 1, "callApi and function of the same phase share a set")
	set := ask.Actions[0]
	assert.Equal(t, domain.PhasePost, set.Phase)
	assert.Equal(t, "weather", set.Calls[0].ResponseKey)
	assert.Equal(t, domain.FunctionSpec{"unit": "celsius", "label": "%slots.userInput%"}, set.Assign)

	forecast := slots[1]
	assert.True(t, forecast.Requires.AcceptsAny())
	pre := forecast.ActionsFor(domain.PhasePre)
	require.Len(t, pre, 1)
	assert.Equal(t, domain.FunctionSpec{"shown": true}, pre[0].Assign)

	require.Len(t, g.Training.Documents, 1)
	assert.Equal(t, []string{"weather please"}, g.Training.Documents[0].Utterances)

	require.Len(t, g.Training.Entities, 2)
	assert.Equal(t, []string{"Lisbon", "lx"}, g.Training.Entities[0].Values)
	assert.Equal(t, `\d{4}-\d{3}`, g.Training.Entities[1].Pattern)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"group without name", "groups: [{slots: [{id: a}]}]"},
		{"slot without id", "groups: [{name: A, slots: [{question: hi}]}]"},
		{"unknown phase", "groups: [{name: A, slots: [{id: a, actions: [{phase: later}]}]}]"},
		{"legacy unknown execute", "groups: [{name: A, slots: [{id: a, callApi: [{url: x, execute: never}]}]}]"},
		{"requires false", "groups: [{name: A, slots: [{id: a, requires: false}]}]"},
		{"enum without values", "entities: [{name: c, kind: enum}]"},
		{"unknown entity kind", "entities: [{name: c, kind: fuzzy, values: [a]}]"},
		{"malformed yaml", "groups: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compiler.Parse([]byte(tt.doc), compiler.FormatYAML)
			assert.Error(t, err)
		})
	}
}

func TestParse_GuardBooleans(t *testing.T) {
	g, err := compiler.Parse([]byte(`groups: [{name: A, slots: [{id: a, guard: false}, {id: b, condition: true}]}]`), compiler.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "false", g.Groups[0].Slots[0].Guard)
	assert.Empty(t, g.Groups[0].Slots[1].Guard)
}

func TestDecode_NormalizesJSONNumbers(t *testing.T) {
	raw := map[string]any{
		"groups": []any{
			map[string]any{
				"name": "A",
				"slots": []any{
					map[string]any{
						"id": "a",
						"actions": []any{
							map[string]any{
								"phase":  "pre",
								"assign": map[string]any{"count": json.Number("3"), "ratio": json.Number("0.5")},
							},
						},
					},
				},
			},
		},
	}
	g, err := compiler.Decode(raw)
	require.NoError(t, err)
	assign := g.Groups[0].Slots[0].Actions[0].Assign
	assert.Equal(t, int64(3), assign["count"])
	assert.Equal(t, 0.5, assign["ratio"])
}

func TestMerge(t *testing.T) {
	a := &domain.Graph{Groups: []domain.IntentGroup{{Name: "A"}}, Training: domain.TrainingSet{
		Documents: []domain.TrainingDocument{{Intent: "A", Utterances: []string{"a"}}},
	}}
	b := &domain.Graph{Groups: []domain.IntentGroup{{Name: "B"}}}

	merged, err := compiler.Merge(a, nil, b)
	require.NoError(t, err)
	assert.Len(t, merged.Groups, 2)
	assert.Len(t, merged.Training.Documents, 1)

	_, err = compiler.Merge(a, a)
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, compiler.FormatJSON, compiler.FormatFromPath("bot.JSON"))
	assert.Equal(t, compiler.FormatYAML, compiler.FormatFromPath("bot.yml"))
	assert.True(t, compiler.IsGraphFile("x/y.yaml"))
	assert.False(t, compiler.IsGraphFile("x/y.md"))
}
