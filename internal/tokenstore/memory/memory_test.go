package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogamaster/yoga-client/internal/models"
)

func TestMemoryTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()

	t.Run("EmptyGet", func(t *testing.T) {
		token, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("SetGet", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, &models.Token{Value: "tok", IssuedForEmail: "a@x.com"}))
		token, err := store.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, "tok", token.Value)
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		token, err := store.Get(ctx)
		require.NoError(t, err)
		token.Value = "mutated"

		again, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok", again.Value)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		token, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("SetInvalid", func(t *testing.T) {
		assert.Error(t, store.Set(ctx, nil))
	})
}
