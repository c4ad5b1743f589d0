package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/internal/repositories"
	"carnival/pkg/utils"
)

func (f *fixture) registration(t *testing.T, phone, email string) request_models.RegisterRequest {
	t.Helper()
	return request_models.RegisterRequest{
		FirstName:   "Lakshmi",
		LastName:    "Nair",
		Email:       email,
		Phone:       phone,
		Password:    "secret1",
		House:       string(dbm.HouseMankada),
		InviteToken: f.invite(t),
	}
}

func TestRegisterCreatesUserAccountAndMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fam := f.family(t, "Thekkedath")

	req := f.registration(t, nextPhone(), " Lakshmi@Example.com ")
	req.FamilyID = fam.ID.String()
	auth, err := f.accounts.Register(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, auth.User.Email)
	assert.Equal(t, "lakshmi@example.com", *auth.User.Email)
	assert.Equal(t, dbm.RoleUser, auth.User.Role)
	assert.NotEqual(t, "secret1", auth.User.PasswordHash)

	claims, err := f.jwt.ValidateToken(auth.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.User.ID.String(), claims.UserID)
	assert.Equal(t, "user", claims.Role)

	node, err := f.familyRepo.FindNodeByUser(ctx, auth.User.ID)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, fam.ID, node.FamilyID)

	acc, err := f.tokenRepo.FindAccountByUser(ctx, auth.User.ID)
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Zero(t, acc.Balance)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := nextPhone()

	_, err := f.accounts.Register(ctx, f.registration(t, phone, "dup@example.com"))
	require.NoError(t, err)

	_, err = f.accounts.Register(ctx, f.registration(t, phone, ""))
	assert.ErrorIs(t, err, utils.ErrConflict)

	_, err = f.accounts.Register(ctx, f.registration(t, nextPhone(), "DUP@example.com"))
	assert.ErrorIs(t, err, utils.ErrConflict)

	bad := f.registration(t, nextPhone(), "")
	bad.House = "Nowhere"
	_, err = f.accounts.Register(ctx, bad)
	assert.ErrorIs(t, err, utils.ErrValidation)

	short := f.registration(t, nextPhone(), "")
	short.Password = "abc"
	_, err = f.accounts.Register(ctx, short)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := nextPhone()
	reg, err := f.accounts.Register(ctx, f.registration(t, phone, "login@example.com"))
	require.NoError(t, err)

	byPhone, err := f.accounts.Login(ctx, request_models.LoginRequest{Phone: phone, Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, byPhone.User.ID)
	assert.NotEmpty(t, byPhone.Token)

	byEmail, err := f.accounts.Login(ctx, request_models.LoginRequest{Identifier: "LOGIN@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, byEmail.User.ID)

	_, err = f.accounts.Login(ctx, request_models.LoginRequest{Phone: phone, Password: "wrong!"})
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	_, err = f.accounts.Login(ctx, request_models.LoginRequest{Phone: "+000", Password: "secret1"})
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	_, err = f.accounts.Login(ctx, request_models.LoginRequest{Password: "secret1"})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.users.SetStatus(ctx, reg.User.ID, false)
	require.NoError(t, err)
	_, err = f.accounts.Login(ctx, request_models.LoginRequest{Phone: phone, Password: "secret1"})
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestUpdateProfileAndChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	taken, err := f.accounts.Register(ctx, f.registration(t, nextPhone(), "taken@example.com"))
	require.NoError(t, err)
	phone := nextPhone()
	me, err := f.accounts.Register(ctx, f.registration(t, phone, ""))
	require.NoError(t, err)

	job := " carpenter "
	updated, err := f.accounts.UpdateProfile(ctx, me.User.ID, request_models.UpdateProfileRequest{Occupation: &job})
	require.NoError(t, err)
	assert.Equal(t, "carpenter", updated.Occupation)

	email := "Taken@example.com"
	_, err = f.accounts.UpdateProfile(ctx, me.User.ID, request_models.UpdateProfileRequest{Email: &email})
	assert.ErrorIs(t, err, utils.ErrConflict)

	// Re-saving your own email is not a conflict.
	own := "taken@example.com"
	_, err = f.accounts.UpdateProfile(ctx, taken.User.ID, request_models.UpdateProfileRequest{Email: &own})
	assert.NoError(t, err)

	blank := "  "
	_, err = f.accounts.UpdateProfile(ctx, me.User.ID, request_models.UpdateProfileRequest{FirstName: &blank})
	assert.ErrorIs(t, err, utils.ErrValidation)

	err = f.accounts.ChangePassword(ctx, me.User.ID, request_models.ChangePasswordRequest{CurrentPassword: "nope!!", NewPassword: "another1"})
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	err = f.accounts.ChangePassword(ctx, me.User.ID, request_models.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "short"})
	assert.ErrorIs(t, err, utils.ErrValidation)
	require.NoError(t, f.accounts.ChangePassword(ctx, me.User.ID, request_models.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "another1"}))

	_, err = f.accounts.Login(ctx, request_models.LoginRequest{Phone: phone, Password: "secret1"})
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	_, err = f.accounts.Login(ctx, request_models.LoginRequest{Phone: phone, Password: "another1"})
	assert.NoError(t, err)
}

func TestRegisterWithUnknownFamilyWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := nextPhone()

	req := f.registration(t, phone, "orphan@example.com")
	req.FamilyID = uuid.NewString()
	_, err := f.accounts.Register(ctx, req)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	stored, err := f.userRepo.FindByPhone(ctx, phone)
	require.NoError(t, err)
	assert.Nil(t, stored)
	_, err = f.invites.ValidateInvite(ctx, req.InviteToken)
	assert.NoError(t, err, "invite must stay unspent")

	req.FamilyID = ""
	auth, err := f.accounts.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, phone, auth.User.Phone)
}

func TestRegistrationRollsBackOnLateFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fam := f.family(t, "Puthenveedu")
	holder := f.user(t, "Holder", dbm.RoleUser)
	taken := f.account(t, holder, 0)
	token := f.invite(t)

	u := &dbm.User{FirstName: "Late", LastName: "Failure", Phone: nextPhone(), PasswordHash: "x",
		Role: dbm.RoleUser, House: dbm.HouseAripra, IsActive: true}
	err := f.userRepo.Register(ctx, repositories.Registration{
		User:    u,
		Node:    &dbm.FamilyNode{FamilyID: fam.ID},
		Account: &dbm.TokenAccount{QRCode: taken.QRCode},
		Invite:  token,
		At:      utils.NowUnixSeconds(),
	})
	require.Error(t, err)

	stored, err := f.userRepo.FindByPhone(ctx, u.Phone)
	require.NoError(t, err)
	assert.Nil(t, stored)
	node, err := f.familyRepo.FindNodeByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, node)
	_, err = f.invites.ValidateInvite(ctx, token)
	assert.NoError(t, err)

	err = f.userRepo.Register(ctx, repositories.Registration{
		User:    &dbm.User{FirstName: "No", LastName: "Family", Phone: nextPhone(), PasswordHash: "x", Role: dbm.RoleUser, House: dbm.HouseAripra},
		Node:    &dbm.FamilyNode{FamilyID: uuid.New()},
		Account: &dbm.TokenAccount{QRCode: utils.NewQRCode()},
		At:      utils.NowUnixSeconds(),
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRegisterRequiresUsableInvite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.registration(t, nextPhone(), "")
	req.InviteToken = ""
	_, err := f.accounts.Register(ctx, req)
	assert.ErrorIs(t, err, utils.ErrValidation)

	req.InviteToken = "not-a-token"
	_, err = f.accounts.Register(ctx, req)
	assert.ErrorIs(t, err, utils.ErrValidation)

	token := f.invite(t)
	first := f.registration(t, nextPhone(), "")
	first.InviteToken = token
	_, err = f.accounts.Register(ctx, first)
	require.NoError(t, err)

	second := f.registration(t, nextPhone(), "")
	second.InviteToken = token
	_, err = f.accounts.Register(ctx, second)
	assert.ErrorIs(t, err, utils.ErrValidation)

	expired := &dbm.InviteToken{Token: utils.NewInviteToken(), CreatedBy: uuid.New(), ExpiresAt: utils.NowUnixSeconds() - 1}
	require.NoError(t, f.inviteRepo.CreateInvite(ctx, expired))
	late := f.registration(t, nextPhone(), "")
	late.InviteToken = expired.Token
	_, err = f.accounts.Register(ctx, late)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestInvitePinnedToEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inviter := f.user(t, "Inviter", dbm.RoleUser)
	inv, err := f.invites.CreateInvite(ctx, Actor{ID: inviter.ID, Role: inviter.Role},
		request_models.CreateInviteRequest{Email: "Guest@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "http://carnival.test/register?invite="+inv.Token, inv.InviteLink)

	req := f.registration(t, nextPhone(), "someone@example.com")
	req.InviteToken = inv.Token
	_, err = f.accounts.Register(ctx, req)
	assert.ErrorIs(t, err, utils.ErrValidation)

	req.Email = "guest@example.com"
	_, err = f.accounts.Register(ctx, req)
	require.NoError(t, err)

	mine, err := f.invites.MyInvites(ctx, Actor{ID: inviter.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].Used)
}

func TestAdminRegistrationNeedsCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.registration(t, nextPhone(), "")
	req.Role = string(dbm.RoleAdmin)
	_, err := f.accounts.Register(ctx, req)
	assert.ErrorIs(t, err, utils.ErrValidation)

	code, err := f.invites.GenerateAdminCode(ctx, adminActor())
	require.NoError(t, err)
	assert.Len(t, code.Code, 6)
	active, err := f.invites.ActiveAdminCodes(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	req.ValidationCode = code.Code
	auth, err := f.accounts.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, dbm.RoleAdmin, auth.User.Role)

	active, err = f.invites.ActiveAdminCodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	again := f.registration(t, nextPhone(), "")
	again.Role = string(dbm.RoleAdmin)
	again.ValidationCode = code.Code
	_, err = f.accounts.Register(ctx, again)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestOpenRegistrationSkipsInvite(t *testing.T) {
	f := newFixture(t)
	f.cfg.Auth.OpenRegistration = true
	accounts := NewAccountService(f.userRepo, f.familyRepo, f.invites, f.tree, f.jwt, f.cfg, zap.NewNop())

	req := f.registration(t, nextPhone(), "")
	req.InviteToken = ""
	_, err := accounts.Register(context.Background(), req)
	assert.NoError(t, err)
}
