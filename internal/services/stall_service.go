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
	"carnival/internal/repositories"
	"carnival/pkg/utils"
)

type StallListQuery struct {
	Type         string
	ShopkeeperID string
	IsActive     *bool
}

type StallServiceInterface interface {
	Create(ctx context.Context, req request_models.CreateStallRequest) (*dbm.Stall, error)
	List(ctx context.Context, q StallListQuery) ([]dbm.Stall, error)
	Get(ctx context.Context, id uuid.UUID) (*dbm.Stall, error)
	Update(ctx context.Context, id uuid.UUID, req request_models.UpdateStallRequest) (*dbm.Stall, error)
	SetStatus(ctx context.Context, id uuid.UUID, active bool) (*dbm.Stall, error)
}

type StallService struct {
	stallRepo repositories.StallRepository
	userRepo  repositories.UserRepository
	timeout   time.Duration
	log       *zap.Logger
}

func NewStallService(
	stallRepo repositories.StallRepository,
	userRepo repositories.UserRepository,
	cfg *config.Config,
	log *zap.Logger,
) StallServiceInterface {
	return &StallService{
		stallRepo: stallRepo,
		userRepo:  userRepo,
		timeout:   cfg.DB.QueryTimeout,
		log:       log.Named("stalls"),
	}
}

// shopkeeper checks that the user exists and may run a stall.
func (s *StallService) shopkeeper(ctx context.Context, id uuid.UUID) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return storeErr(err, "user")
	}
	if user == nil {
		return notFoundf("shopkeeper %s", id)
	}
	if user.Role != dbm.RoleShopkeeper && user.Role != dbm.RoleAdmin && !user.IsSuperUser {
		return validationf("user %s is not a shopkeeper", id)
	}
	return nil
}

func (s *StallService) Create(ctx context.Context, req request_models.CreateStallRequest) (*dbm.Stall, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationf("name is required")
	}
	kind := dbm.StallType(req.Type)
	if !kind.Valid() {
		return nil, validationf("unknown stall type %q", req.Type)
	}
	shopkeeperID, err := parseID(req.ShopkeeperID, "shopkeeperId")
	if err != nil {
		return nil, err
	}
	points := int64(dbm.DefaultPointsPerTransaction)
	if req.PointsPerTransaction != nil {
		if *req.PointsPerTransaction < 0 {
			return nil, validationf("pointsPerTransaction must not be negative")
		}
		points = *req.PointsPerTransaction
	}
	if req.TokenCost < 0 || req.MaxParticipants < 0 {
		return nil, validationf("tokenCost and maxParticipants must not be negative")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.shopkeeper(ctx, shopkeeperID); err != nil {
		return nil, err
	}
	stall := &dbm.Stall{
		Name:                 name,
		Description:          strings.TrimSpace(req.Description),
		Type:                 kind,
		ShopkeeperID:         shopkeeperID,
		PointsPerTransaction: points,
		IsActive:             true,
		ShortCode:            strings.TrimSpace(req.ShortCode),
		TokenCost:            req.TokenCost,
		MaxParticipants:      req.MaxParticipants,
	}
	if err := s.stallRepo.Create(ctx, stall); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: short code %s is taken", utils.ErrConflict, strings.ToUpper(stall.ShortCode))
		}
		return nil, storeErr(err, "stall")
	}
	if err := s.userRepo.Update(ctx, shopkeeperID, map[string]interface{}{"stall_id": stall.ID}); err != nil {
		return nil, storeErr(err, "shopkeeper")
	}
	s.log.Info("stall created", zap.String("stall_id", stall.ID.String()), zap.String("name", name))
	return stall, nil
}

func (s *StallService) List(ctx context.Context, q StallListQuery) ([]dbm.Stall, error) {
	filter := repositories.StallFilter{IsActive: q.IsActive}
	if q.Type != "" {
		filter.Type = dbm.StallType(q.Type)
		if !filter.Type.Valid() {
			return nil, validationf("unknown stall type %q", q.Type)
		}
	}
	shopkeeperID, err := parseOptionalID(q.ShopkeeperID, "shopkeeperId")
	if err != nil {
		return nil, err
	}
	filter.ShopkeeperID = shopkeeperID

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stalls, err := s.stallRepo.List(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "stalls")
	}
	return stalls, nil
}

func (s *StallService) Get(ctx context.Context, id uuid.UUID) (*dbm.Stall, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stall, err := s.stallRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "stall")
	}
	if stall == nil {
		return nil, notFoundf("stall %s", id)
	}
	return stall, nil
}

func (s *StallService) Update(ctx context.Context, id uuid.UUID, req request_models.UpdateStallRequest) (*dbm.Stall, error) {
	fields := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationf("name must not be empty")
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Type != nil {
		kind := dbm.StallType(*req.Type)
		if !kind.Valid() {
			return nil, validationf("unknown stall type %q", *req.Type)
		}
		fields["type"] = kind
	}
	if req.PointsPerTransaction != nil {
		if *req.PointsPerTransaction < 0 {
			return nil, validationf("pointsPerTransaction must not be negative")
		}
		fields["points_per_transaction"] = *req.PointsPerTransaction
	}
	if req.TokenCost != nil {
		if *req.TokenCost < 0 {
			return nil, validationf("tokenCost must not be negative")
		}
		fields["token_cost"] = *req.TokenCost
	}
	if req.MaxParticipants != nil {
		if *req.MaxParticipants < 0 {
			return nil, validationf("maxParticipants must not be negative")
		}
		fields["max_participants"] = *req.MaxParticipants
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if req.ShopkeeperID != nil {
		shopkeeperID, err := parseID(*req.ShopkeeperID, "shopkeeperId")
		if err != nil {
			return nil, err
		}
		if err := s.shopkeeper(ctx, shopkeeperID); err != nil {
			return nil, err
		}
		fields["shopkeeper_id"] = shopkeeperID
	}

	if len(fields) > 0 {
		if err := s.stallRepo.Update(ctx, id, fields); err != nil {
			return nil, storeErr(err, "stall")
		}
	}
	return s.Get(ctx, id)
}

func (s *StallService) SetStatus(ctx context.Context, id uuid.UUID, active bool) (*dbm.Stall, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.stallRepo.Update(ctx, id, map[string]interface{}{"is_active": active}); err != nil {
		return nil, storeErr(err, "stall")
	}
	s.log.Info("stall status changed", zap.String("stall_id", id.String()), zap.Bool("active", active))
	return s.Get(ctx, id)
}
