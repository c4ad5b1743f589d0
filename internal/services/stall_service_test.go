package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/pkg/utils"
)

func TestCreateStall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)

	stall, err := f.stalls.Create(ctx, request_models.CreateStallRequest{
		Name: "Ring toss", Type: "game", ShopkeeperID: keeper.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(dbm.DefaultPointsPerTransaction), stall.PointsPerTransaction)
	assert.True(t, stall.IsActive)

	owner, err := f.userRepo.FindByID(ctx, keeper.ID)
	require.NoError(t, err)
	require.NotNil(t, owner.StallID)
	assert.Equal(t, stall.ID, *owner.StallID)

	visitor := f.user(t, "Visitor", dbm.RoleUser)
	_, err = f.stalls.Create(ctx, request_models.CreateStallRequest{Name: "Nope", Type: "game", ShopkeeperID: visitor.ID.String()})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.stalls.Create(ctx, request_models.CreateStallRequest{Name: "Nope", Type: "game", ShopkeeperID: uuid.NewString()})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = f.stalls.Create(ctx, request_models.CreateStallRequest{Name: "Nope", Type: "casino", ShopkeeperID: keeper.ID.String()})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestStallListUpdateAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	game := f.stall(t, keeper, dbm.StallGame)
	f.stall(t, keeper, dbm.StallFood)

	games, err := f.stalls.List(ctx, StallListQuery{Type: "game"})
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, game.ID, games[0].ID)

	mine, err := f.stalls.List(ctx, StallListQuery{ShopkeeperID: keeper.ID.String()})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	name, points := "Duck pond", int64(25)
	updated, err := f.stalls.Update(ctx, game.ID, request_models.UpdateStallRequest{Name: &name, PointsPerTransaction: &points})
	require.NoError(t, err)
	assert.Equal(t, "Duck pond", updated.Name)
	assert.Equal(t, int64(25), updated.PointsPerTransaction)

	bad := "casino"
	_, err = f.stalls.Update(ctx, game.ID, request_models.UpdateStallRequest{Type: &bad})
	assert.ErrorIs(t, err, utils.ErrValidation)

	off, err := f.stalls.SetStatus(ctx, game.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	inactive := false
	closed, err := f.stalls.List(ctx, StallListQuery{IsActive: &inactive})
	require.NoError(t, err)
	assert.Len(t, closed, 1)

	_, err = f.stalls.SetStatus(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestStallShortCodeAndLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)

	stall, err := f.stalls.Create(ctx, request_models.CreateStallRequest{
		Name: "Dunk tank", Type: "game", ShopkeeperID: keeper.ID.String(),
		ShortCode: "dunk1", TokenCost: 5, MaxParticipants: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, "DUNK1", stall.ShortCode)
	assert.NotEmpty(t, stall.QRCode)

	_, err = f.stalls.Create(ctx, request_models.CreateStallRequest{
		Name: "Copy", Type: "game", ShopkeeperID: keeper.ID.String(), ShortCode: "DUNK1",
	})
	assert.ErrorIs(t, err, utils.ErrConflict)

	cost, capacity := int64(8), int64(0)
	updated, err := f.stalls.Update(ctx, stall.ID, request_models.UpdateStallRequest{TokenCost: &cost, MaxParticipants: &capacity})
	require.NoError(t, err)
	assert.Equal(t, int64(8), updated.TokenCost)
	assert.Zero(t, updated.MaxParticipants)

	negative := int64(-1)
	_, err = f.stalls.Update(ctx, stall.ID, request_models.UpdateStallRequest{TokenCost: &negative})
	assert.ErrorIs(t, err, utils.ErrValidation)
}
