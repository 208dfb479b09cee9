package nlu

import (
	"strings"
	"unicode"
)

// Lexicon maps lowercase words to a polarity weight.
type Lexicon map[string]float64

// Sentiment votes.
const (
	VotePositive = "positive"
	VoteNegative = "negative"
	VoteNeutral  = "neutral"
)

// DefaultLexicon returns a small English and Portuguese word list.
func DefaultLexicon() Lexicon {
	return Lexicon{
		"good": 1, "great": 2, "excellent": 3, "thanks": 1, "thank": 1, "love": 2,
		"nice": 1, "happy": 2, "perfect": 3, "awesome": 3, "yes": 0.5,
		"bad": -1, "terrible": -3, "awful": -3, "hate": -2, "angry": -2,
		"sad": -2, "wrong": -1, "problem": -1, "no": -0.5, "never": -1,
		"bom": 1, "boa": 1, "ótimo": 2, "otimo": 2, "excelente": 3, "obrigado": 1,
		"obrigada": 1, "adoro": 2, "feliz": 2, "perfeito": 3, "sim": 0.5,
		"ruim": -1, "péssimo": -3, "pessimo": -3, "odeio": -2, "triste": -2,
		"errado": -1, "problema": -1, "não": -0.5, "nao": -0.5, "nunca": -1,
	}
}

// Score returns the sentiment of text as stored in the context: the summed
// score, its average per word, the number of words and a vote.
func (l Lexicon) Score(text string) map[string]any {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	var score float64
	for _, w := range words {
		score += l[w]
	}

	vote := VoteNeutral
	switch {
	case score > 0:
		vote = VotePositive
	case score < 0:
		vote = VoteNegative
	}

	comparative := 0.0
	if len(words) > 0 {
		comparative = score / float64(len(words))
	}
	return map[string]any{
		"score":       score,
		"comparative": comparative,
		"numWords":    len(words),
		"vote":        vote,
	}
}
