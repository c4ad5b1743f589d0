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
	"carnival/pkg/metrics"
	"carnival/pkg/utils"
)

type AwardPointsInput struct {
	UserID        uuid.UUID
	StallID       uuid.UUID
	Points        int64
	AwardedBy     uuid.UUID
	TransactionID string
	QRCodeData    string
}

type PointsServiceInterface interface {
	AwardPoints(ctx context.Context, in AwardPointsInput) (*dbm.Point, error)
	UserPoints(ctx context.Context, userID uuid.UUID) (*response_models.UserPointsResponse, error)
	RecordSale(ctx context.Context, req request_models.RecordSaleRequest) (*dbm.Sale, error)
	StallSales(ctx context.Context, stallID uuid.UUID) ([]dbm.Sale, error)
}

type PointsService struct {
	pointRepo   repositories.PointRepository
	userRepo    repositories.UserRepository
	stallRepo   repositories.StallRepository
	leaderboard LeaderboardServiceInterface
	metrics     *metrics.Metrics
	timeout     time.Duration
	log         *zap.Logger
}

func NewPointsService(
	pointRepo repositories.PointRepository,
	userRepo repositories.UserRepository,
	stallRepo repositories.StallRepository,
	leaderboard LeaderboardServiceInterface,
	cfg *config.Config,
	m *metrics.Metrics,
	log *zap.Logger,
) PointsServiceInterface {
	return &PointsService{
		pointRepo:   pointRepo,
		userRepo:    userRepo,
		stallRepo:   stallRepo,
		leaderboard: leaderboard,
		metrics:     m,
		timeout:     cfg.DB.QueryTimeout,
		log:         log.Named("points"),
	}
}

// activeParticipants checks that both sides of a ledger entry exist and are
// active.
func activeParticipants(ctx context.Context, users repositories.UserRepository, stalls repositories.StallRepository, userID, stallID uuid.UUID) (*dbm.User, *dbm.Stall, error) {
	user, err := users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, storeErr(err, "user")
	}
	if user == nil {
		return nil, nil, notFoundf("user %s", userID)
	}
	if !user.IsActive {
		return nil, nil, validationf("user %s is inactive", userID)
	}

	stall, err := stalls.FindByID(ctx, stallID)
	if err != nil {
		return nil, nil, storeErr(err, "stall")
	}
	if stall == nil {
		return nil, nil, notFoundf("stall %s", stallID)
	}
	if !stall.IsActive {
		return nil, nil, validationf("stall %s is inactive", stallID)
	}
	return user, stall, nil
}

func (s *PointsService) AwardPoints(ctx context.Context, in AwardPointsInput) (*dbm.Point, error) {
	if in.Points < 0 {
		return nil, validationf("points must not be negative")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, _, err := activeParticipants(ctx, s.userRepo, s.stallRepo, in.UserID, in.StallID); err != nil {
		return nil, err
	}

	point := &dbm.Point{
		UserID:     in.UserID,
		StallID:    in.StallID,
		Points:     in.Points,
		QRCodeData: in.QRCodeData,
		AwardedBy:  in.AwardedBy,
		AwardedAt:  utils.NowUnixMillis(),
		Source:     dbm.PointSourceManual,
	}
	if txID := strings.TrimSpace(in.TransactionID); txID != "" {
		exists, err := s.pointRepo.TransactionIDExists(ctx, txID)
		if err != nil {
			return nil, storeErr(err, "points")
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", utils.ErrDuplicateTransaction, txID)
		}
		point.TransactionID = &txID
	}

	if err := s.pointRepo.Create(ctx, point); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", utils.ErrDuplicateTransaction, *point.TransactionID)
		}
		return nil, storeErr(err, "points")
	}

	s.log.Info("points awarded",
		zap.String("user_id", in.UserID.String()),
		zap.String("stall_id", in.StallID.String()),
		zap.Int64("points", in.Points),
		zap.String("awarded_by", in.AwardedBy.String()))
	s.metrics.PointsAwarded(string(point.Source), point.Points)
	s.leaderboard.Changed()
	return point, nil
}

func (s *PointsService) UserPoints(ctx context.Context, userID uuid.UUID) (*response_models.UserPointsResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if user == nil {
		return nil, notFoundf("user %s", userID)
	}

	total, err := s.pointRepo.UserTotal(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "points")
	}
	rank, err := s.leaderboard.RankOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &response_models.UserPointsResponse{
		UserID:      userID.String(),
		TotalPoints: total.Total,
		Awards:      total.Awards,
		Rank:        rank,
	}, nil
}

func (s *PointsService) RecordSale(ctx context.Context, req request_models.RecordSaleRequest) (*dbm.Sale, error) {
	userID, err := parseID(req.UserID, "userId")
	if err != nil {
		return nil, err
	}
	stallID, err := parseID(req.StallID, "stallId")
	if err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, validationf("amount must be positive")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, _, err := activeParticipants(ctx, s.userRepo, s.stallRepo, userID, stallID); err != nil {
		return nil, err
	}
	sale := &dbm.Sale{
		StallID:     stallID,
		UserID:      userID,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.pointRepo.CreateSale(ctx, sale); err != nil {
		return nil, storeErr(err, "sale")
	}
	return sale, nil
}

func (s *PointsService) StallSales(ctx context.Context, stallID uuid.UUID) ([]dbm.Sale, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stall, err := s.stallRepo.FindByID(ctx, stallID)
	if err != nil {
		return nil, storeErr(err, "stall")
	}
	if stall == nil {
		return nil, notFoundf("stall %s", stallID)
	}
	sales, err := s.pointRepo.SalesForStall(ctx, stallID)
	if err != nil {
		return nil, storeErr(err, "sales")
	}
	return sales, nil
}
