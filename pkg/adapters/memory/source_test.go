package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/slotflow/pkg/adapters/memory"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports/tests"
)

func TestSource_Contract(t *testing.T) {
	src := memory.NewSourceFromGroups(
		domain.IntentGroup{Name: "Greeting", Slots: []domain.SlotDefinition{{ID: "hello"}}},
		domain.IntentGroup{Name: "None", Slots: []domain.SlotDefinition{{ID: "fallback"}}},
	)
	tests.GraphSourceContractTest(t, src, []string{"Greeting", "None"})
}

func TestSource_ReplaceNotifiesWatchers(t *testing.T) {
	src := memory.NewSourceFromGroups(domain.IntentGroup{Name: "A"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := src.Watch(ctx)
	require.NoError(t, err)

	src.Replace(&domain.Graph{Groups: []domain.IntentGroup{{Name: "B"}}})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a reload signal")
	}

	graph, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "B", graph.Groups[0].Name)
}

func TestSource_WatchClosesOnCancel(t *testing.T) {
	src := memory.NewSourceFromGroups()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := src.Watch(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed")
	}
}
