package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carnival/internal/config"
	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/internal/models/response_models"
	"carnival/internal/repositories"
	"carnival/pkg/utils"
)

const (
	defaultSearchLimit = 1000
	maxListLimit       = 1000
)

type UserListQuery struct {
	Role     string
	FamilyID string
	Limit    int
	Offset   int
}

type UserServiceInterface interface {
	Get(ctx context.Context, id uuid.UUID) (*dbm.User, error)
	Search(ctx context.Context, query string, limit int) ([]dbm.User, error)
	List(ctx context.Context, q UserListQuery) (*response_models.UserListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req request_models.AdminUpdateUserRequest) (*dbm.User, error)
	SetStatus(ctx context.Context, id uuid.UUID, active bool) (*dbm.User, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type UserService struct {
	userRepo    repositories.UserRepository
	stallRepo   repositories.StallRepository
	leaderboard LeaderboardServiceInterface
	timeout     time.Duration
	log         *zap.Logger
}

func NewUserService(
	userRepo repositories.UserRepository,
	stallRepo repositories.StallRepository,
	leaderboard LeaderboardServiceInterface,
	cfg *config.Config,
	log *zap.Logger,
) UserServiceInterface {
	return &UserService{
		userRepo:    userRepo,
		stallRepo:   stallRepo,
		leaderboard: leaderboard,
		timeout:     cfg.DB.QueryTimeout,
		log:         log.Named("users"),
	}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*dbm.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if user == nil {
		return nil, notFoundf("user %s", id)
	}
	return user, nil
}

func (s *UserService) Search(ctx context.Context, query string, limit int) ([]dbm.User, error) {
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.userRepo.Search(ctx, query, limit)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	return users, nil
}

func (s *UserService) List(ctx context.Context, q UserListQuery) (*response_models.UserListResponse, error) {
	filter := repositories.UserFilter{Limit: q.Limit, Offset: q.Offset}
	if q.Role != "" {
		filter.Role = dbm.UserRole(q.Role)
		if !filter.Role.Valid() {
			return nil, validationf("unknown role %q", q.Role)
		}
	}
	familyID, err := parseOptionalID(q.FamilyID, "familyId")
	if err != nil {
		return nil, err
	}
	filter.FamilyID = familyID
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	return &response_models.UserListResponse{Count: total, Users: users}, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, req request_models.AdminUpdateUserRequest) (*dbm.User, error) {
	fields, err := profileFields(req.UpdateProfileRequest)
	if err != nil {
		return nil, err
	}
	if req.Role != nil {
		role := dbm.UserRole(*req.Role)
		if !role.Valid() {
			return nil, validationf("unknown role %q", *req.Role)
		}
		fields["role"] = role
	}
	if req.House != nil {
		house := dbm.House(*req.House)
		if !house.Valid() {
			return nil, validationf("unknown house %q", *req.House)
		}
		fields["house"] = house
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if req.StallID != nil {
		stallID, err := parseOptionalID(*req.StallID, "stallId")
		if err != nil {
			return nil, err
		}
		if stallID != nil {
			stall, err := s.stallRepo.FindByID(ctx, *stallID)
			if err != nil {
				return nil, storeErr(err, "stall")
			}
			if stall == nil {
				return nil, notFoundf("stall %s", *stallID)
			}
		}
		fields["stall_id"] = stallID
	}
	if req.Email != nil {
		if err := ensureUnique(ctx, s.userRepo, id, "", dbm.NormalizeEmail(*req.Email)); err != nil {
			return nil, err
		}
	}

	if len(fields) > 0 {
		if err := s.userRepo.Update(ctx, id, fields); err != nil {
			return nil, storeErr(err, "user")
		}
		s.log.Info("user updated", zap.String("user_id", id.String()), zap.Int("fields", len(fields)))
	}
	return s.Get(ctx, id)
}

func (s *UserService) SetStatus(ctx context.Context, id uuid.UUID, active bool) (*dbm.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsSuperUser && !active {
		return nil, fmt.Errorf("%w: super users cannot be deactivated", utils.ErrForbidden)
	}
	if err := s.userRepo.Update(ctx, id, map[string]interface{}{"is_active": active}); err != nil {
		return nil, storeErr(err, "user")
	}
	user.IsActive = active
	s.log.Info("user status changed", zap.String("user_id", id.String()), zap.Bool("active", active))
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.IsSuperUser {
		return fmt.Errorf("%w: super users cannot be deleted", utils.ErrForbidden)
	}
	if user.ID == actor.ID {
		return validationf("you cannot delete your own account")
	}

	if err := s.userRepo.DeleteCascade(ctx, id); err != nil {
		return storeErr(err, "user")
	}
	s.log.Warn("user deleted",
		zap.String("user_id", id.String()),
		zap.String("name", strings.TrimSpace(user.FullName())),
		zap.String("actor", actor.ID.String()))
	s.leaderboard.Changed()
	return nil
}
