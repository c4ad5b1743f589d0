package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"carnival/internal/config"
	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/internal/models/response_models"
	"carnival/internal/repositories"
	"carnival/pkg/utils"
)

const (
	DeleteAllUsersPhrase = "DELETE_ALL_USERS"
	tempPasswordBytes    = 6
)

type BulkServiceInterface interface {
	DeleteAllUsers(ctx context.Context, phrase string, actor Actor) (int64, error)
	ImportUsers(ctx context.Context, actor Actor, req request_models.ImportUsersRequest) (*response_models.ImportUsersResponse, error)
}

type BulkService struct {
	userRepo    repositories.UserRepository
	families    FamilyServiceInterface
	familyTree  FamilyTreeServiceInterface
	tokens      TokenServiceInterface
	leaderboard LeaderboardServiceInterface
	timeout     time.Duration
	log         *zap.Logger
}

func NewBulkService(
	userRepo repositories.UserRepository,
	families FamilyServiceInterface,
	familyTree FamilyTreeServiceInterface,
	tokens TokenServiceInterface,
	leaderboard LeaderboardServiceInterface,
	cfg *config.Config,
	log *zap.Logger,
) BulkServiceInterface {
	return &BulkService{
		userRepo:    userRepo,
		families:    families,
		familyTree:  familyTree,
		tokens:      tokens,
		leaderboard: leaderboard,
		timeout:     cfg.DB.QueryTimeout,
		log:         log.Named("bulk"),
	}
}

// DeleteAllUsers removes every user except super users, along with their
// ledgers and family nodes.
func (s *BulkService) DeleteAllUsers(ctx context.Context, phrase string, actor Actor) (int64, error) {
	if phrase != DeleteAllUsersPhrase {
		return 0, fmt.Errorf("%w: type %s to delete all users", utils.ErrInvalidConfirmation, DeleteAllUsersPhrase)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	deleted, err := s.userRepo.DeleteAllExceptSuperUsers(ctx)
	if err != nil {
		return 0, storeErr(err, "users")
	}
	s.log.Warn("all users deleted",
		zap.String("actor", actor.ID.String()),
		zap.Int64("deleted", deleted))
	s.leaderboard.Changed()
	return deleted, nil
}

// ImportUsers creates users row by row. A failing row is reported in its
// result and does not stop the import. A row that fails after its user was
// saved still reports the user id. Rows without a password get a
// generated one, returned once in the row result.
func (s *BulkService) ImportUsers(ctx context.Context, actor Actor, req request_models.ImportUsersRequest) (*response_models.ImportUsersResponse, error) {
	if len(req.Users) == 0 {
		return nil, validationf("no users to import")
	}

	out := &response_models.ImportUsersResponse{
		Results: make([]response_models.ImportRowResult, 0, len(req.Users)),
	}
	for i, row := range req.Users {
		result := response_models.ImportRowResult{Row: i + 1}
		created, temp, familyCreated, err := s.importRow(ctx, row)
		if created != nil {
			result.UserID = created.ID.String()
			result.TemporaryPassword = temp
		}
		if err != nil {
			result.Error = err.Error()
			out.Failed++
		} else {
			out.Created++
		}
		if familyCreated {
			out.FamiliesCreated++
		}
		out.Results = append(out.Results, result)
	}

	s.log.Info("users imported",
		zap.String("actor", actor.ID.String()),
		zap.Int("created", out.Created),
		zap.Int("failed", out.Failed),
		zap.Int("families_created", out.FamiliesCreated))
	return out, nil
}

func (s *BulkService) importRow(ctx context.Context, row request_models.ImportUserRow) (*dbm.User, string, bool, error) {
	password, temp := row.Password, ""
	if password == "" {
		token, err := utils.GenerateSecureToken(tempPasswordBytes)
		if err != nil {
			return nil, "", false, fmt.Errorf("%w: generate password: %v", utils.ErrDatabaseError, err)
		}
		password, temp = token, token
	}

	user, err := newUser(row.FirstName, row.LastName, row.Email, row.Phone, password, row.House)
	if err != nil {
		return nil, "", false, err
	}
	if row.Role != "" {
		role := dbm.UserRole(strings.TrimSpace(row.Role))
		if !role.Valid() {
			return nil, "", false, validationf("unknown role %q", row.Role)
		}
		user.Role = role
	}
	user.Gender = strings.TrimSpace(row.Gender)

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := ensureUnique(ctx, s.userRepo, user.ID, user.Phone, user.Email); err != nil {
		return nil, "", false, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", false, storeErr(err, "user")
	}

	familyCreated := false
	if name := strings.TrimSpace(row.Family); name != "" {
		family, created, err := s.families.FindOrCreate(ctx, name)
		if err != nil {
			return user, temp, false, err
		}
		familyCreated = created
		if _, err := s.familyTree.AddMember(ctx, family.ID, request_models.AddMemberRequest{UserID: user.ID.String()}); err != nil {
			return user, temp, familyCreated, err
		}
	}
	if _, err := s.tokens.EnsureAccount(ctx, user.ID); err != nil {
		return user, temp, familyCreated, err
	}
	return user, temp, familyCreated, nil
}
