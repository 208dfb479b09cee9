package nlu_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/nlu"
)

func trainingSet() domain.TrainingSet {
	return domain.TrainingSet{
		Documents: []domain.TrainingDocument{
			{Intent: "Greeting", Utterances: []string{"hello there", "good morning", "hi"}},
			{Intent: "BookingFlow", Utterances: []string{"book a hotel room", "i need a hotel", "reserve a room"}},
		},
		Entities: []domain.EntityDefinition{
			{Name: "city", Kind: domain.EntityEnum, Values: []string{"Lisbon", "lisboa", "lx"}},
			{Name: "email", Kind: domain.EntityRegex, Pattern: `[a-z.]+@[a-z]+\.[a-z]+`},
		},
	}
}

func trained(t *testing.T, opts ...nlu.Option) *nlu.Classifier {
	t.Helper()
	c := nlu.New(opts...)
	require.NoError(t, c.Train(context.Background(), trainingSet()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClassify_Intent(t *testing.T) {
	c := trained(t)
	ctx := context.Background()

	res, err := c.Classify(ctx, "Hello!")
	require.NoError(t, err)
	assert.Equal(t, "Greeting", res.Intent)
	assert.Greater(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 1.0)

	res, err = c.Classify(ctx, "I would like to book a hotel")
	require.NoError(t, err)
	assert.Equal(t, "BookingFlow", res.Intent)
}

func TestClassify_NoneWhenNothingMatches(t *testing.T) {
	c := trained(t)

	res, err := c.Classify(context.Background(), "quantum chromodynamics")
	require.NoError(t, err)
	assert.Equal(t, domain.NoneIntent, res.Intent)
	assert.Zero(t, res.Score)
}

func TestClassify_MinScore(t *testing.T) {
	c := trained(t, nlu.WithMinScore(1e9))

	res, err := c.Classify(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, domain.NoneIntent, res.Intent)
}

func TestClassify_Untrained(t *testing.T) {
	res, err := nlu.New().Classify(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.NoneIntent, res.Intent)
	assert.Empty(t, res.Entities)
}

func TestClassify_EnumEntity(t *testing.T) {
	c := trained(t)
	ctx := context.Background()

	res, err := c.Classify(ctx, "I am flying to LISBOA tomorrow")
	require.NoError(t, err)
	city, ok := res.Find("city")
	require.True(t, ok)
	assert.Equal(t, "Lisbon", city.CanonicalText, "first value is canonical")
	assert.Equal(t, "LISBOA", city.MatchedText)
	assert.Equal(t, 1.0, city.Confidence)

	res, err = c.Classify(ctx, "I like lxml parsers")
	require.NoError(t, err)
	_, ok = res.Find("city")
	assert.False(t, ok, "values match whole words only")
}

func TestClassify_RegexEntity(t *testing.T) {
	c := trained(t)

	res, err := c.Classify(context.Background(), "mail me at ana.silva@example.com please")
	require.NoError(t, err)
	email, ok := res.Find("email")
	require.True(t, ok)
	assert.Equal(t, "ana.silva@example.com", email.CanonicalText)
	assert.Equal(t, "ana.silva@example.com", email.MatchedText)
}

func TestClassify_EntitiesOrderedByPosition(t *testing.T) {
	c := trained(t)

	res, err := c.Classify(context.Background(), "a@b.com from lx")
	require.NoError(t, err)
	require.Len(t, res.Entities, 2)
	assert.Equal(t, "email", res.Entities[0].Type)
	assert.Equal(t, "city", res.Entities[1].Type)
}

func TestClassify_Sentiment(t *testing.T) {
	c := trained(t)

	res, err := c.Classify(context.Background(), "this is great, thanks")
	require.NoError(t, err)
	sentiment, ok := res.Sentiment.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, nlu.VotePositive, sentiment["vote"])
	assert.Equal(t, 3.0, sentiment["score"])
}

func TestTrain_Errors(t *testing.T) {
	c := nlu.New()
	ctx := context.Background()

	err := c.Train(ctx, domain.TrainingSet{Entities: []domain.EntityDefinition{
		{Name: "bad", Kind: domain.EntityRegex, Pattern: "("},
	}})
	assert.Error(t, err)

	err = c.Train(ctx, domain.TrainingSet{Entities: []domain.EntityDefinition{
		{Name: "odd", Kind: "fuzzy"},
	}})
	assert.Error(t, err)
}

func TestTrain_Replaces(t *testing.T) {
	c := trained(t)
	ctx := context.Background()

	require.NoError(t, c.Train(ctx, domain.TrainingSet{Documents: []domain.TrainingDocument{
		{Intent: "Farewell", Utterances: []string{"goodbye", "see you"}},
	}}))

	res, err := c.Classify(ctx, "hello there")
	require.NoError(t, err)
	assert.Equal(t, domain.NoneIntent, res.Intent)

	res, err = c.Classify(ctx, "goodbye")
	require.NoError(t, err)
	assert.Equal(t, "Farewell", res.Intent)
}

func TestLexicon_Score(t *testing.T) {
	l := nlu.DefaultLexicon()

	assert.Equal(t, nlu.VoteNegative, l.Score("que péssimo atendimento")["vote"])
	assert.Equal(t, nlu.VoteNeutral, l.Score("the sky")["vote"])
	assert.Equal(t, 0, l.Score("")["numWords"])
}
