package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/pkg/realtime"
	"carnival/pkg/utils"
)

func (f *fixture) gameStall(t *testing.T, keeper *dbm.User, cost, capacity int64) *dbm.Stall {
	t.Helper()
	s := &dbm.Stall{
		Name:            "Ring Toss " + uuid.NewString()[:6],
		Type:            dbm.StallGame,
		ShopkeeperID:    keeper.ID,
		IsActive:        true,
		TokenCost:       cost,
		MaxParticipants: capacity,
	}
	require.NoError(t, f.stallRepo.Create(context.Background(), s))
	return s
}

func player(u *dbm.User) Actor { return Actor{ID: u.ID, Role: u.Role} }

func TestStallLookupByEitherCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	stall := f.gameStall(t, keeper, 0, 0)
	assert.True(t, len(stall.QRCode) > len(utils.StallQRCodePrefix))
	assert.Len(t, stall.ShortCode, 5)

	byQR, err := f.participations.Lookup(ctx, stall.QRCode, "")
	require.NoError(t, err)
	assert.Equal(t, stall.ID, byQR.Stall.ID)
	assert.Equal(t, "Keeper Tester", byQR.KeeperName)

	byCode, err := f.participations.Lookup(ctx, "", " "+stall.ShortCode+" ")
	require.NoError(t, err)
	assert.Equal(t, stall.ID, byCode.Stall.ID)

	_, err = f.participations.Lookup(ctx, "", "")
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = f.participations.Lookup(ctx, stall.QRCode, stall.ShortCode)
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = f.participations.Lookup(ctx, "", "ZZZZZ9")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestParticipationPaysStallCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	stall := f.gameStall(t, keeper, 15, 0)
	u := f.user(t, "Player", dbm.RoleUser)
	f.account(t, u, 40)

	res, err := f.participations.Participate(ctx, player(u), request_models.ParticipateRequest{QRCode: stall.QRCode})
	require.NoError(t, err)
	require.NotNil(t, res.RemainingBalance)
	assert.Equal(t, int64(25), *res.RemainingBalance)
	assert.Equal(t, int64(15), res.Participation.TokensPaid)
	require.NotNil(t, res.Participation.TransactionID)
	assert.Equal(t, dbm.ParticipationPending, res.Participation.Status)

	acc, err := f.tokenRepo.FindAccountByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), acc.Balance)
	assert.Equal(t, int64(15), acc.TotalSpent)
	assert.Equal(t, 1, f.notifier.count(keeper.ID.String(), realtime.TypeParticipation))
	assert.Equal(t, 2, f.notifier.count(u.ID.String(), realtime.TypeTransaction), "recharge then payment")

	_, err = f.participations.Participate(ctx, player(u), request_models.ParticipateRequest{ShortCode: stall.ShortCode})
	require.NoError(t, err)
	_, err = f.participations.Participate(ctx, player(u), request_models.ParticipateRequest{ShortCode: stall.ShortCode})
	assert.ErrorIs(t, err, utils.ErrInsufficientBalance)

	broke := f.user(t, "NoAccount", dbm.RoleUser)
	_, err = f.participations.Participate(ctx, player(broke), request_models.ParticipateRequest{QRCode: stall.QRCode})
	assert.ErrorIs(t, err, utils.ErrAccountNotFound)
}

func TestParticipationCapHoldsUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	stall := f.gameStall(t, keeper, 0, 3)

	const players = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		joined  int
		refused int
	)
	for i := 0; i < players; i++ {
		u := f.user(t, "Racer", dbm.RoleUser)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.participations.Participate(ctx, player(u), request_models.ParticipateRequest{QRCode: stall.QRCode})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				joined++
			} else if assert.ErrorIs(t, err, utils.ErrValidation) {
				refused++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, joined)
	assert.Equal(t, players-3, refused)

	stored, err := f.stallRepo.FindByID(ctx, stall.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.CurrentParticipants)
}

func TestClosedStallRefusesParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	stall := f.gameStall(t, keeper, 0, 0)
	_, err := f.stalls.SetStatus(ctx, stall.ID, false)
	require.NoError(t, err)

	u := f.user(t, "Late", dbm.RoleUser)
	_, err = f.participations.Participate(ctx, player(u), request_models.ParticipateRequest{QRCode: stall.QRCode})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestAwardParticipationOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	other := f.user(t, "Other", dbm.RoleShopkeeper)
	stall := f.gameStall(t, keeper, 0, 0)
	u := f.user(t, "Winner", dbm.RoleUser)

	res, err := f.participations.Participate(ctx, player(u), request_models.ParticipateRequest{QRCode: stall.QRCode})
	require.NoError(t, err)
	id := res.Participation.ID

	score := int64(80)
	award := request_models.AwardParticipationRequest{Points: 12, Score: &score}
	_, err = f.participations.Award(ctx, player(other), id, award)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	done, err := f.participations.Award(ctx, player(keeper), id, award)
	require.NoError(t, err)
	assert.Equal(t, dbm.ParticipationCompleted, done.Status)
	assert.Equal(t, int64(12), done.PointsAwarded)
	require.NotNil(t, done.Score)
	assert.Equal(t, int64(80), *done.Score)

	_, err = f.participations.Award(ctx, player(keeper), id, award)
	assert.ErrorIs(t, err, utils.ErrValidation)

	total, err := f.pointRepo.UserTotal(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total.Total)

	pending, err := f.participations.ListForStall(ctx, player(keeper), stall.ID, "pending")
	require.NoError(t, err)
	assert.Empty(t, pending)
	completed, err := f.participations.ListForStall(ctx, player(keeper), stall.ID, "completed")
	require.NoError(t, err)
	assert.Len(t, completed, 1)
	_, err = f.participations.ListForStall(ctx, player(keeper), stall.ID, "lost")
	assert.ErrorIs(t, err, utils.ErrValidation)

	lookup, err := f.participations.Lookup(ctx, stall.QRCode, "")
	require.NoError(t, err)
	require.Len(t, lookup.TopWinners, 1)
	assert.Equal(t, u.ID.String(), lookup.TopWinners[0].UserID)
	assert.Equal(t, int64(80), lookup.TopWinners[0].Score)
}

func TestScoreEditKeepsLedgerAndDeleteFreesPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	stall := f.gameStall(t, keeper, 0, 1)
	u := f.user(t, "Scorer", dbm.RoleUser)

	res, err := f.participations.Participate(ctx, player(u), request_models.ParticipateRequest{QRCode: stall.QRCode})
	require.NoError(t, err)
	id := res.Participation.ID
	_, err = f.participations.Award(ctx, player(keeper), id, request_models.AwardParticipationRequest{Points: 5})
	require.NoError(t, err)

	edited, err := f.participations.UpdateScore(ctx, id, 42)
	require.NoError(t, err)
	require.NotNil(t, edited.Score)
	assert.Equal(t, int64(42), *edited.Score)
	total, err := f.pointRepo.UserTotal(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total.Total)

	_, err = f.participations.UpdateScore(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	next := f.user(t, "Queued", dbm.RoleUser)
	_, err = f.participations.Participate(ctx, player(next), request_models.ParticipateRequest{QRCode: stall.QRCode})
	assert.ErrorIs(t, err, utils.ErrValidation)

	require.NoError(t, f.participations.Delete(ctx, id))
	assert.ErrorIs(t, f.participations.Delete(ctx, id), utils.ErrNotFound)

	_, err = f.participations.Participate(ctx, player(next), request_models.ParticipateRequest{QRCode: stall.QRCode})
	assert.NoError(t, err)
}
