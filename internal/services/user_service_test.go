package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/pkg/realtime"
	"carnival/pkg/utils"
)

func (f *fixture) superUser(t *testing.T) *dbm.User {
	t.Helper()
	u := f.user(t, "Root", dbm.RoleAdmin)
	require.NoError(t, f.userRepo.Update(context.Background(), u.ID, map[string]interface{}{"is_super_user": true}))
	u.IsSuperUser = true
	return u
}

func TestUserListAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fam := f.family(t, "Kizhakkedath")
	a := f.user(t, "Arjun", dbm.RoleUser)
	f.user(t, "Bhavana", dbm.RoleUser)
	f.user(t, "Chandran", dbm.RoleShopkeeper)
	_, err := f.tree.AddMember(ctx, fam.ID, request_models.AddMemberRequest{UserID: a.ID.String()})
	require.NoError(t, err)

	all, err := f.users.List(ctx, UserListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Count)

	keepers, err := f.users.List(ctx, UserListQuery{Role: "shopkeeper"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), keepers.Count)

	members, err := f.users.List(ctx, UserListQuery{FamilyID: fam.ID.String()})
	require.NoError(t, err)
	require.Len(t, members.Users, 1)
	assert.Equal(t, a.ID, members.Users[0].ID)

	page, err := f.users.List(ctx, UserListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Count)
	assert.Len(t, page.Users, 2)

	_, err = f.users.List(ctx, UserListQuery{Role: "king"})
	assert.ErrorIs(t, err, utils.ErrValidation)

	found, err := f.users.Search(ctx, "bhav", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Bhavana", found[0].FirstName)
}

func TestUserAdminUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "Deepa", dbm.RoleUser)
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	stall := f.stall(t, keeper, dbm.StallFood)

	role, house, stallID := "shopkeeper", string(dbm.HouseKadannamanna), stall.ID.String()
	updated, err := f.users.Update(ctx, u.ID, request_models.AdminUpdateUserRequest{Role: &role, House: &house, StallID: &stallID})
	require.NoError(t, err)
	assert.Equal(t, dbm.RoleShopkeeper, updated.Role)
	assert.Equal(t, dbm.HouseKadannamanna, updated.House)
	require.NotNil(t, updated.StallID)
	assert.Equal(t, stall.ID, *updated.StallID)

	badRole := "king"
	_, err = f.users.Update(ctx, u.ID, request_models.AdminUpdateUserRequest{Role: &badRole})
	assert.ErrorIs(t, err, utils.ErrValidation)

	missing := uuid.NewString()
	_, err = f.users.Update(ctx, u.ID, request_models.AdminUpdateUserRequest{StallID: &missing})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	active := false
	_, err = f.users.Update(ctx, uuid.New(), request_models.AdminUpdateUserRequest{IsActive: &active})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestSuperUsersAreProtected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.superUser(t)
	admin := f.user(t, "Admin", dbm.RoleAdmin)
	actor := Actor{ID: admin.ID, Role: dbm.RoleAdmin}

	_, err := f.users.SetStatus(ctx, root.ID, false)
	assert.ErrorIs(t, err, utils.ErrForbidden)
	_, err = f.users.SetStatus(ctx, root.ID, true)
	assert.NoError(t, err)

	assert.ErrorIs(t, f.users.Delete(ctx, actor, root.ID), utils.ErrForbidden)
	assert.ErrorIs(t, f.users.Delete(ctx, actor, admin.ID), utils.ErrValidation)
	assert.ErrorIs(t, f.users.Delete(ctx, actor, uuid.New()), utils.ErrNotFound)
}

func TestDeleteUserRemovesLedgers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keeper := f.user(t, "Keeper", dbm.RoleShopkeeper)
	stall := f.stall(t, keeper, dbm.StallGame)
	fam, a, b, c := chain(t, f)
	f.account(t, b, 25)
	f.rawPoint(t, b, stall, 40, 1)

	require.NoError(t, f.users.Delete(ctx, adminActor(), b.ID))

	gone, err := f.userRepo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	acc, err := f.tokenRepo.FindAccountByUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, acc)

	total, err := f.pointRepo.SumAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	child, err := f.familyRepo.FindNodeByUser(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, child.ParentID)

	summary, err := f.tree.RebuildTree(ctx, fam.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID.String(), c.ID.String()}, summary.RootMemberIDs)
	assert.Equal(t, 1, f.notifier.count("*", realtime.TypeLeaderboard))
}
