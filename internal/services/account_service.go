package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carnival/internal/config"
	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/internal/models/response_models"
	"carnival/internal/repositories"
	"carnival/pkg/utils"
)

type AccountServiceInterface interface {
	Register(ctx context.Context, req request_models.RegisterRequest) (*response_models.AuthResponse, error)
	Login(ctx context.Context, req request_models.LoginRequest) (*response_models.AuthResponse, error)
	Profile(ctx context.Context, userID uuid.UUID) (*dbm.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req request_models.UpdateProfileRequest) (*dbm.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req request_models.ChangePasswordRequest) error
}

type AccountService struct {
	userRepo         repositories.UserRepository
	familyRepo       repositories.FamilyRepository
	invites          InviteServiceInterface
	familyTree       FamilyTreeServiceInterface
	jwt              *utils.JWTManager
	openRegistration bool
	timeout          time.Duration
	log              *zap.Logger
}

func NewAccountService(
	userRepo repositories.UserRepository,
	familyRepo repositories.FamilyRepository,
	invites InviteServiceInterface,
	familyTree FamilyTreeServiceInterface,
	jwt *utils.JWTManager,
	cfg *config.Config,
	log *zap.Logger,
) AccountServiceInterface {
	return &AccountService{
		userRepo:         userRepo,
		familyRepo:       familyRepo,
		invites:          invites,
		familyTree:       familyTree,
		jwt:              jwt,
		openRegistration: cfg.Auth.OpenRegistration,
		timeout:          cfg.DB.QueryTimeout,
		log:              log.Named("account"),
	}
}

// newUser validates and builds a user row without saving it.
func newUser(first, last, email, phone, password, house string) (*dbm.User, error) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	phone = strings.TrimSpace(phone)
	if first == "" || last == "" {
		return nil, validationf("first and last name are required")
	}
	if phone == "" {
		return nil, validationf("phone is required")
	}
	if len(password) < 6 {
		return nil, validationf("password must be at least 6 characters")
	}
	h := dbm.House(strings.TrimSpace(house))
	if !h.Valid() {
		return nil, validationf("unknown house %q", house)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", utils.ErrDatabaseError, err)
	}
	return &dbm.User{
		FirstName:    first,
		LastName:     last,
		Email:        dbm.NormalizeEmail(email),
		Phone:        phone,
		PasswordHash: hash,
		Role:         dbm.RoleUser,
		House:        h,
		IsActive:     true,
	}, nil
}

// ensureUnique reports a conflict when the phone or email already belongs to
// someone else.
func ensureUnique(ctx context.Context, users repositories.UserRepository, self uuid.UUID, phone string, email *string) error {
	if phone != "" {
		existing, err := users.FindByPhone(ctx, phone)
		if err != nil {
			return storeErr(err, "user")
		}
		if existing != nil && existing.ID != self {
			return fmt.Errorf("%w: phone number is already registered", utils.ErrConflict)
		}
	}
	if email != nil {
		existing, err := users.FindByEmail(ctx, *email)
		if err != nil {
			return storeErr(err, "user")
		}
		if existing != nil && existing.ID != self {
			return fmt.Errorf("%w: email is already registered", utils.ErrConflict)
		}
	}
	return nil
}

// Register signs a user up. Every check runs before anything is written,
// and the user, their family node, their token account and the spent
// invite or admin code are stored in one transaction.
func (a *AccountService) Register(ctx context.Context, req request_models.RegisterRequest) (*response_models.AuthResponse, error) {
	familyID, err := parseOptionalID(req.FamilyID, "familyId")
	if err != nil {
		return nil, err
	}
	role := dbm.UserRole(strings.TrimSpace(req.Role))
	switch role {
	case "":
		role = dbm.RoleUser
	case dbm.RoleUser, dbm.RoleShopkeeper, dbm.RoleAdmin:
	default:
		return nil, validationf("unknown role %q", req.Role)
	}
	user, err := newUser(req.FirstName, req.LastName, req.Email, req.Phone, req.Password, req.House)
	if err != nil {
		return nil, err
	}
	user.Role = role
	user.CountryCode = strings.TrimSpace(req.CountryCode)
	user.Gender = req.Gender
	user.Occupation = strings.TrimSpace(req.Occupation)
	user.Address = strings.TrimSpace(req.Address)

	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	reg := repositories.Registration{
		User:    user,
		Account: &dbm.TokenAccount{QRCode: utils.NewQRCode()},
		At:      utils.NowUnixSeconds(),
	}
	if !a.openRegistration {
		if err := a.invites.CheckInvite(ctx, req.InviteToken, user.Email); err != nil {
			return nil, err
		}
		reg.Invite = strings.TrimSpace(req.InviteToken)
	}
	if role == dbm.RoleAdmin {
		if err := a.invites.CheckAdminCode(ctx, req.ValidationCode); err != nil {
			return nil, err
		}
		reg.AdminCode = strings.TrimSpace(req.ValidationCode)
	}
	if familyID != nil {
		family, err := a.familyRepo.FindByID(ctx, *familyID)
		if err != nil {
			return nil, storeErr(err, "family")
		}
		if family == nil {
			return nil, notFoundf("family %s", *familyID)
		}
		reg.Node = &dbm.FamilyNode{FamilyID: family.ID}
	}
	if err := ensureUnique(ctx, a.userRepo, uuid.Nil, user.Phone, user.Email); err != nil {
		return nil, err
	}

	if err := a.userRepo.Register(ctx, reg); err != nil {
		if spent := spentErr(err); spent != nil {
			return nil, spent
		}
		if errors.Is(err, gorm.ErrRecordNotFound) && familyID != nil {
			return nil, notFoundf("family %s", *familyID)
		}
		return nil, storeErr(err, "user")
	}
	a.log.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	if familyID != nil {
		if _, err := a.familyTree.RebuildTree(ctx, *familyID); err != nil {
			a.log.Warn("family tree rebuild after registration failed",
				zap.String("family_id", familyID.String()), zap.Error(err))
		}
	}

	token, err := a.jwt.CreateToken(user.ID, string(user.Role), user.IsSuperUser)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %v", utils.ErrDatabaseError, err)
	}
	return &response_models.AuthResponse{Token: token, User: user}, nil
}

func (a *AccountService) Login(ctx context.Context, req request_models.LoginRequest) (*response_models.AuthResponse, error) {
	login := strings.TrimSpace(req.Login())
	if login == "" {
		return nil, validationf("email or phone is required")
	}

	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	user, err := a.userRepo.FindByLogin(ctx, login)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if user == nil {
		return nil, utils.ErrInvalidCredentials
	}
	if err := utils.ComparePasswords(user.PasswordHash, req.Password); err != nil {
		return nil, utils.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", utils.ErrForbidden)
	}

	token, err := a.jwt.CreateToken(user.ID, string(user.Role), user.IsSuperUser)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %v", utils.ErrDatabaseError, err)
	}
	return &response_models.AuthResponse{Token: token, User: user}, nil
}

func (a *AccountService) Profile(ctx context.Context, userID uuid.UUID) (*dbm.User, error) {
	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	user, err := a.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if user == nil {
		return nil, notFoundf("user %s", userID)
	}
	return user, nil
}

// profileFields turns a partial profile update into column updates.
func profileFields(req request_models.UpdateProfileRequest) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if req.FirstName != nil {
		v := strings.TrimSpace(*req.FirstName)
		if v == "" {
			return nil, validationf("firstName must not be empty")
		}
		fields["first_name"] = v
	}
	if req.LastName != nil {
		v := strings.TrimSpace(*req.LastName)
		if v == "" {
			return nil, validationf("lastName must not be empty")
		}
		fields["last_name"] = v
	}
	if req.Email != nil {
		fields["email"] = dbm.NormalizeEmail(*req.Email)
	}
	if req.Gender != nil {
		fields["gender"] = *req.Gender
	}
	if req.Occupation != nil {
		fields["occupation"] = strings.TrimSpace(*req.Occupation)
	}
	if req.Address != nil {
		fields["address"] = strings.TrimSpace(*req.Address)
	}
	return fields, nil
}

func (a *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, req request_models.UpdateProfileRequest) (*dbm.User, error) {
	fields, err := profileFields(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	if req.Email != nil {
		if err := ensureUnique(ctx, a.userRepo, userID, "", dbm.NormalizeEmail(*req.Email)); err != nil {
			return nil, err
		}
	}
	if len(fields) > 0 {
		if err := a.userRepo.Update(ctx, userID, fields); err != nil {
			return nil, storeErr(err, "user")
		}
	}
	return a.Profile(ctx, userID)
}

func (a *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, req request_models.ChangePasswordRequest) error {
	if len(req.NewPassword) < 6 {
		return validationf("new password must be at least 6 characters")
	}

	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	user, err := a.userRepo.FindByID(ctx, userID)
	if err != nil {
		return storeErr(err, "user")
	}
	if user == nil {
		return notFoundf("user %s", userID)
	}
	if err := utils.ComparePasswords(user.PasswordHash, req.CurrentPassword); err != nil {
		return utils.ErrInvalidCredentials
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("%w: hash password: %v", utils.ErrDatabaseError, err)
	}
	if err := a.userRepo.Update(ctx, userID, map[string]interface{}{"password_hash": hash}); err != nil {
		return storeErr(err, "user")
	}
	a.log.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}
