package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunContextStoreContract runs a suite of tests to verify that a ContextStore
// implementation adheres to the defined interface contract.
func RunContextStoreContract(t *testing.T, store ContextStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		c := domain.NewContext()
		c.SetCurrentIntent("BookingFlow")
		c.SetCurrentSlot("city")
		c.Set("city", "Lisbon")
		c.Set("count", 42)

		err := store.Save(ctx, sessionID, c)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "BookingFlow", loaded.CurrentIntent())
		assert.Equal(t, "city", loaded.CurrentSlot())
		assert.Equal(t, "Lisbon", loaded.String("city"))
		// JSON backends turn ints into float64; only presence is part of the contract.
		count, ok := loaded.Get("count")
		assert.True(t, ok)
		assert.NotNil(t, count)
	})

	t.Run("Cleared Dialogue Survives", func(t *testing.T) {
		c := domain.NewContext()
		c.Set("city", "Lisbon")
		c.ClearDialogue()
		require.NoError(t, store.Save(ctx, sessionID, c))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, loaded.AwaitingAnswer())
		assert.Equal(t, "Lisbon", loaded.String("city"))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewContext())
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Delete of a missing session is a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewContext())
		_ = store.Save(ctx, id2, domain.NewContext())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
