package stock

import (
	"context"
	"testing"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationService(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and lists locations", func(t *testing.T) {
		env := newTestEnv(t)

		created, err := env.locations.CreateLocation(ctx, CreateLocationCommand{
			Code:     "room-1",
			Name:     "Treatment room 1",
			Category: stock.LocationRoom,
		})
		require.NoError(t, err)
		assert.Equal(t, "ROOM-1", created.Code)
		assert.True(t, created.Active)

		all, err := env.locations.List(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 2) // MAIN from the env plus the new one
	})

	t.Run("duplicate code is rejected", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.locations.CreateLocation(ctx, CreateLocationCommand{
			Code: "MAIN", Name: "Another main", Category: stock.LocationCabinet,
		})
		require.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("deactivation removes the location from the active list", func(t *testing.T) {
		env := newTestEnv(t)

		deactivated, err := env.locations.Deactivate(ctx, env.location.ID)
		require.NoError(t, err)
		assert.False(t, deactivated.Active)

		active, err := env.locations.List(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, active)

		reactivated, err := env.locations.Activate(ctx, env.location.ID)
		require.NoError(t, err)
		assert.True(t, reactivated.Active)
	})

	t.Run("rename", func(t *testing.T) {
		env := newTestEnv(t)

		renamed, err := env.locations.Rename(ctx, env.location.ID, "Back office cabinet")
		require.NoError(t, err)
		assert.Equal(t, "Back office cabinet", renamed.Name)
	})
}
