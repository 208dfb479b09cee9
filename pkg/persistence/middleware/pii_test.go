package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/slotflow/pkg/adapters/memory"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password", "ssn", "current"})
	require.NoError(t, err)
	secure := mw(underlying)
	ctx := context.Background()

	c := domain.NewContext()
	c.SetCurrentIntent("Signup")
	c.SetCurrentSlot("password")
	c.Set("username", "jdoe")
	c.Set("user_password", "secret123")
	c.Set("details", map[string]any{
		"address":    "123 St",
		"ssn_number": "999-99-9999",
	})
	require.NoError(t, secure.Save(ctx, "pii", c))

	assert.Equal(t, "secret123", c.String("user_password"), "caller's context must not be modified")
	assert.Equal(t, "999-99-9999", c.Slots["details"].(map[string]any)["ssn_number"])

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.String("username"))
	assert.Equal(t, middleware.Mask, stored.String("user_password"))
	assert.Equal(t, middleware.Mask, stored.Slots["details"].(map[string]any)["ssn_number"])
	assert.Equal(t, "123 St", stored.Slots["details"].(map[string]any)["address"])

	assert.Equal(t, "Signup", stored.CurrentIntent(), "dialogue keys are never masked")
	assert.Equal(t, "password", stored.CurrentSlot())
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestWrap_Order(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"card"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Wrap(underlying, pii, enc)
	ctx := context.Background()

	c := domain.NewContext()
	c.Set("card", "4111")
	require.NoError(t, store.Save(ctx, "w", c))

	loaded, err := store.Load(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.String("card"), "masking runs before encryption")
}
