package nlu

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
)

// maxHits bounds the utterances considered per query.
const maxHits = 20

// utterance is the indexed document.
type utterance struct {
	Text string `json:"text"`
}

// Classifier implements ports.Classifier.
type Classifier struct {
	mu       sync.RWMutex
	model    *model
	minScore float64
	lexicon  Lexicon
	logger   *slog.Logger
}

type model struct {
	index    bleve.Index
	intents  map[string]string
	entities []matcher
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMinScore sets the raw search score under which the intent is None.
func WithMinScore(score float64) Option {
	return func(c *Classifier) {
		c.minScore = score
	}
}

// WithLexicon replaces the sentiment lexicon.
func WithLexicon(l Lexicon) Option {
	return func(c *Classifier) {
		if l != nil {
			c.lexicon = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an untrained classifier. Until Train is called every utterance
// classifies as None.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		lexicon: DefaultLexicon(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Train builds a new index from set and swaps it in. The previous model keeps
// serving until the new one is ready.
func (c *Classifier) Train(ctx context.Context, set domain.TrainingSet) error {
	entities, err := compileEntities(set.Entities)
	if err != nil {
		return err
	}

	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	m := &model{index: index, intents: make(map[string]string), entities: entities}
	batch := index.NewBatch()
	for _, doc := range set.Documents {
		for i, text := range doc.Utterances {
			if err := ctx.Err(); err != nil {
				_ = index.Close()
				return err
			}
			id := fmt.Sprintf("%s#%d", doc.Intent, i)
			m.intents[id] = doc.Intent
			if err := batch.Index(id, utterance{Text: text}); err != nil {
				_ = index.Close()
				return fmt.Errorf("failed to index utterance %q: %w", text, err)
			}
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return fmt.Errorf("failed to index training set: %w", err)
	}

	c.mu.Lock()
	old := c.model
	c.model = m
	c.mu.Unlock()

	if old != nil {
		_ = old.index.Close()
	}
	c.logger.Debug("classifier trained", "utterances", len(m.intents), "entities", len(entities))
	return nil
}

// Classify returns the best intent, the recognized entities and the sentiment.
func (c *Classifier) Classify(ctx context.Context, text string) (*domain.Classification, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := &domain.Classification{
		Intent:    domain.NoneIntent,
		Sentiment: c.lexicon.Score(text),
	}
	if c.model == nil {
		return out, nil
	}

	intent, score, err := c.model.intent(ctx, text)
	if err != nil {
		return nil, err
	}
	if intent != "" && score.raw >= c.minScore {
		out.Intent = intent
		out.Score = score.share
	}
	out.Entities = c.model.extract(text)
	return out, nil
}

// Close releases the index.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return nil
	}
	err := c.model.index.Close()
	c.model = nil
	return err
}

type intentScore struct {
	raw   float64
	share float64
}

// intent keeps the best hit per intent and reports the winner with its raw
// score and its share of the per-intent total.
func (m *model) intent(ctx context.Context, text string) (string, intentScore, error) {
	q := bleve.NewMatchQuery(text)
	q.SetField("text")
	req := bleve.NewSearchRequestOptions(q, maxHits, 0, false)

	res, err := m.index.SearchInContext(ctx, req)
	if err != nil {
		return "", intentScore{}, fmt.Errorf("search failed: %w", err)
	}

	best := make(map[string]float64)
	for _, hit := range res.Hits {
		name := m.intents[hit.ID]
		if hit.Score > best[name] {
			best[name] = hit.Score
		}
	}

	var winner string
	var top, total float64
	for name, score := range best {
		total += score
		if score > top || (score == top && name < winner) {
			winner, top = name, score
		}
	}
	if winner == "" || total == 0 {
		return "", intentScore{}, nil
	}
	return winner, intentScore{raw: top, share: top / total}, nil
}
