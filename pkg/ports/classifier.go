package ports

import (
	"context"

	"github.com/aretw0/slotflow/pkg/domain"
)

// Classifier recognizes the intent, entities and sentiment of an utterance.
type Classifier interface {
	// Classify must honor ctx cancellation; the engine bounds it with a timeout.
	Classify(ctx context.Context, text string) (*domain.Classification, error)

	// Train replaces the classifier model with one built from set.
	Train(ctx context.Context, set domain.TrainingSet) error
}
