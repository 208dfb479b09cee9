package tests

import (
	"context"
	"testing"

	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GraphSourceContractTest verifies that an adapter complies with ports.GraphSource.
// wantGroups lists the intent group names the source is expected to yield, in order.
func GraphSourceContractTest(t *testing.T, source ports.GraphSource, wantGroups []string) {
	t.Helper()

	t.Run("Load_Groups", func(t *testing.T) {
		graph, err := source.Load(context.Background())
		require.NoError(t, err)

		var names []string
		for _, g := range graph.Groups {
			names = append(names, g.Name)
		}
		assert.Equal(t, wantGroups, names)
	})

	t.Run("Load_SlotIDs", func(t *testing.T) {
		graph, err := source.Load(context.Background())
		require.NoError(t, err)

		for _, g := range graph.Groups {
			for _, s := range g.Slots {
				assert.NotEmpty(t, s.ID, "group %s has a slot without id", g.Name)
			}
		}
	})

	t.Run("Load_Repeatable", func(t *testing.T) {
		first, err := source.Load(context.Background())
		require.NoError(t, err)
		second, err := source.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, len(first.Groups), len(second.Groups))
	})
}
