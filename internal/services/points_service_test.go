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

func TestAwardPointsRejectsDuplicateTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	stall := f.stall(t, keeper, dbm.StallGame)
	u := f.user(t, "Dup", dbm.RoleUser)

	in := AwardPointsInput{UserID: u.ID, StallID: stall.ID, Points: 10, AwardedBy: keeper.ID, TransactionID: "T1"}
	p, err := f.points.AwardPoints(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, p.TransactionID)
	assert.Equal(t, "T1", *p.TransactionID)
	assert.Equal(t, dbm.PointSourceManual, p.Source)

	_, err = f.points.AwardPoints(ctx, in)
	assert.ErrorIs(t, err, utils.ErrDuplicateTransaction)

	total, err := f.pointRepo.SumAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
}

func TestAwardPointsDuplicateCaughtByIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	stall := f.stall(t, keeper, dbm.StallGame)
	u := f.user(t, "Race", dbm.RoleUser)

	tx := "T-race"
	first := &dbm.Point{UserID: u.ID, StallID: stall.ID, Points: 1, AwardedBy: keeper.ID, AwardedAt: 1, TransactionID: &tx, Source: dbm.PointSourceManual}
	require.NoError(t, f.pointRepo.Create(ctx, first))

	second := &dbm.Point{UserID: u.ID, StallID: stall.ID, Points: 1, AwardedBy: keeper.ID, AwardedAt: 2, TransactionID: &tx, Source: dbm.PointSourceManual}
	assert.Error(t, f.pointRepo.Create(ctx, second))
}

func TestAwardPointsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	stall := f.stall(t, keeper, dbm.StallGame)
	u := f.user(t, "Val", dbm.RoleUser)

	_, err := f.points.AwardPoints(ctx, AwardPointsInput{UserID: u.ID, StallID: stall.ID, Points: -1, AwardedBy: keeper.ID})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.points.AwardPoints(ctx, AwardPointsInput{UserID: uuid.New(), StallID: stall.ID, Points: 1, AwardedBy: keeper.ID})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = f.points.AwardPoints(ctx, AwardPointsInput{UserID: u.ID, StallID: uuid.New(), Points: 1, AwardedBy: keeper.ID})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = f.stalls.SetStatus(ctx, stall.ID, false)
	require.NoError(t, err)
	_, err = f.points.AwardPoints(ctx, AwardPointsInput{UserID: u.ID, StallID: stall.ID, Points: 1, AwardedBy: keeper.ID})
	assert.ErrorIs(t, err, utils.ErrValidation)

	total, err := f.pointRepo.SumAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUserPointsAndSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	stall := f.stall(t, keeper, dbm.StallFood)
	u := f.user(t, "Sales", dbm.RoleUser)

	for _, p := range []int64{4, 6} {
		_, err := f.points.AwardPoints(ctx, AwardPointsInput{UserID: u.ID, StallID: stall.ID, Points: p, AwardedBy: keeper.ID})
		require.NoError(t, err)
	}
	summary, err := f.points.UserPoints(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), summary.TotalPoints)
	assert.Equal(t, int64(2), summary.Awards)
	assert.Equal(t, 1, summary.Rank)

	_, err = f.points.RecordSale(ctx, request_models.RecordSaleRequest{UserID: u.ID.String(), StallID: stall.ID.String(), Amount: 0})
	assert.ErrorIs(t, err, utils.ErrValidation)

	sale, err := f.points.RecordSale(ctx, request_models.RecordSaleRequest{
		UserID: u.ID.String(), StallID: stall.ID.String(), Amount: 2500, Description: "payasam",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), sale.Amount)

	sales, err := f.points.StallSales(ctx, stall.ID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "payasam", sales[0].Description)
}
