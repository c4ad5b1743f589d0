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
	"carnival/pkg/realtime"
	"carnival/pkg/utils"
)

const topWinnersLimit = 10

type ParticipationServiceInterface interface {
	// Lookup finds a stall by exactly one of its scan codes.
	Lookup(ctx context.Context, qrCode, shortCode string) (*response_models.StallLookup, error)
	Participate(ctx context.Context, actor Actor, req request_models.ParticipateRequest) (*response_models.ParticipationResult, error)
	ListForStall(ctx context.Context, actor Actor, stallID uuid.UUID, status string) ([]dbm.StallParticipation, error)
	Award(ctx context.Context, actor Actor, id uuid.UUID, req request_models.AwardParticipationRequest) (*dbm.StallParticipation, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int64) (*dbm.StallParticipation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ParticipationService struct {
	participationRepo repositories.ParticipationRepository
	stallRepo         repositories.StallRepository
	userRepo          repositories.UserRepository
	tokenRepo         repositories.TokenRepository
	eventRepo         repositories.EventRepository
	leaderboard       LeaderboardServiceInterface
	receipts          *utils.ReceiptGenerator
	notifier          realtime.Notifier
	metrics           *metrics.Metrics
	timeout           time.Duration
	log               *zap.Logger
}

func NewParticipationService(
	participationRepo repositories.ParticipationRepository,
	stallRepo repositories.StallRepository,
	userRepo repositories.UserRepository,
	tokenRepo repositories.TokenRepository,
	eventRepo repositories.EventRepository,
	leaderboard LeaderboardServiceInterface,
	receipts *utils.ReceiptGenerator,
	notifier realtime.Notifier,
	m *metrics.Metrics,
	cfg *config.Config,
	log *zap.Logger,
) ParticipationServiceInterface {
	return &ParticipationService{
		participationRepo: participationRepo,
		stallRepo:         stallRepo,
		userRepo:          userRepo,
		tokenRepo:         tokenRepo,
		eventRepo:         eventRepo,
		leaderboard:       leaderboard,
		receipts:          receipts,
		notifier:          notifier,
		metrics:           m,
		timeout:           cfg.DB.QueryTimeout,
		log:               log.Named("participation"),
	}
}

func (s *ParticipationService) stallByCode(ctx context.Context, qrCode, shortCode string) (*dbm.Stall, error) {
	qrCode, shortCode = strings.TrimSpace(qrCode), strings.TrimSpace(shortCode)
	if (qrCode == "") == (shortCode == "") {
		return nil, validationf("provide exactly one of qrCode or shortCode")
	}
	var (
		stall *dbm.Stall
		err   error
	)
	if qrCode != "" {
		stall, err = s.stallRepo.FindByQRCode(ctx, qrCode)
	} else {
		stall, err = s.stallRepo.FindByShortCode(ctx, shortCode)
	}
	if err != nil {
		return nil, storeErr(err, "stall")
	}
	if stall == nil {
		return nil, notFoundf("stall")
	}
	return stall, nil
}

func (s *ParticipationService) Lookup(ctx context.Context, qrCode, shortCode string) (*response_models.StallLookup, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stall, err := s.stallByCode(ctx, qrCode, shortCode)
	if err != nil {
		return nil, err
	}
	out := &response_models.StallLookup{Stall: stall, TopWinners: []response_models.StallWinner{}}

	keeper, err := s.userRepo.FindByID(ctx, stall.ShopkeeperID)
	if err != nil {
		return nil, storeErr(err, "shopkeeper")
	}
	if keeper != nil {
		out.KeeperName = keeper.FullName()
	}

	rows, err := s.participationRepo.TopScores(ctx, stall.ID, topWinnersLimit)
	if err != nil {
		return nil, storeErr(err, "stall scores")
	}
	for _, r := range rows {
		out.TopWinners = append(out.TopWinners, response_models.StallWinner{
			UserID: r.UserID.String(),
			Name:   strings.TrimSpace(r.FirstName + " " + r.LastName),
			Score:  r.Score,
		})
	}
	return out, nil
}

func (s *ParticipationService) Participate(ctx context.Context, actor Actor, req request_models.ParticipateRequest) (*response_models.ParticipationResult, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stall, err := s.stallByCode(ctx, req.QRCode, req.ShortCode)
	if err != nil {
		return nil, err
	}
	switch {
	case !stall.IsActive:
		return nil, validationf("stall %s is not active", stall.Name)
	case stall.Full():
		return nil, validationf("stall %s has reached its maximum participants", stall.Name)
	}

	user, err := s.userRepo.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if user == nil {
		return nil, notFoundf("user %s", actor.ID)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", utils.ErrForbidden)
	}

	var payment *dbm.TokenTransaction
	if stall.TokenCost > 0 {
		account, err := s.tokenRepo.FindAccountByUser(ctx, user.ID)
		if err != nil {
			return nil, storeErr(err, "token account")
		}
		if account == nil {
			return nil, utils.ErrAccountNotFound
		}
		if account.Balance < stall.TokenCost {
			return nil, fmt.Errorf("%w: balance %d, stall costs %d", utils.ErrInsufficientBalance, account.Balance, stall.TokenCost)
		}
		now := utils.NowUnixSeconds()
		payment = &dbm.TokenTransaction{
			Type:          dbm.TokenTxPayment,
			Status:        dbm.TokenTxCompleted,
			Tokens:        stall.TokenCost,
			Description:   stall.Name,
			ActorID:       &user.ID,
			QRCodeScanned: stall.QRCode,
			Reference:     s.receipts.Next(),
			CompletedAt:   &now,
		}
	}

	p := &dbm.StallParticipation{
		StallID: stall.ID,
		UserID:  user.ID,
		Status:  dbm.ParticipationPending,
		Notes:   strings.TrimSpace(req.Notes),
	}
	if event, err := s.eventRepo.FindActive(ctx); err != nil {
		return nil, storeErr(err, "event")
	} else if event != nil {
		p.EventID = &event.ID
	}

	after, err := s.participationRepo.Participate(ctx, p, payment)
	switch {
	case errors.Is(err, repositories.ErrStallClosed):
		return nil, validationf("stall %s is not active", stall.Name)
	case errors.Is(err, repositories.ErrStallFull):
		return nil, validationf("stall %s has reached its maximum participants", stall.Name)
	case errors.Is(err, repositories.ErrInsufficientFunds):
		return nil, fmt.Errorf("%w: stall costs %d", utils.ErrInsufficientBalance, stall.TokenCost)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, utils.ErrAccountNotFound
	case err != nil:
		return nil, storeErr(err, "participation")
	}

	s.log.Info("stall participation",
		zap.String("stall_id", stall.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.Int64("tokens", p.TokensPaid))

	result := &response_models.ParticipationResult{Participation: p}
	if payment != nil {
		s.metrics.TokensMoved(string(dbm.TokenTxPayment), payment.Tokens)
		result.RemainingBalance = &after.Balance
		s.notifier.NotifyUser(user.ID.String(), realtime.Message{
			Type: realtime.TypeBalance,
			Data: map[string]int64{"balance": after.Balance},
		})
		s.notifier.NotifyUser(user.ID.String(), realtime.Message{Type: realtime.TypeTransaction, Data: payment})
	}
	s.notifier.NotifyUser(stall.ShopkeeperID.String(), realtime.Message{Type: realtime.TypeParticipation, Data: p})
	return result, nil
}

// keptStall loads the stall and checks that a non admin actor keeps it.
func (s *ParticipationService) keptStall(ctx context.Context, actor Actor, stallID uuid.UUID) (*dbm.Stall, error) {
	stall, err := s.stallRepo.FindByID(ctx, stallID)
	if err != nil {
		return nil, storeErr(err, "stall")
	}
	if stall == nil {
		return nil, notFoundf("stall %s", stallID)
	}
	if !actor.IsAdmin() && stall.ShopkeeperID != actor.ID {
		return nil, fmt.Errorf("%w: stall belongs to another shopkeeper", utils.ErrForbidden)
	}
	return stall, nil
}

func (s *ParticipationService) ListForStall(ctx context.Context, actor Actor, stallID uuid.UUID, status string) ([]dbm.StallParticipation, error) {
	st := dbm.ParticipationStatus(strings.TrimSpace(status))
	switch st {
	case "", dbm.ParticipationPending, dbm.ParticipationCompleted:
	default:
		return nil, validationf("unknown participation status %q", status)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.keptStall(ctx, actor, stallID); err != nil {
		return nil, err
	}
	out, err := s.participationRepo.ListByStall(ctx, stallID, st)
	if err != nil {
		return nil, storeErr(err, "participations")
	}
	return out, nil
}

func (s *ParticipationService) find(ctx context.Context, id uuid.UUID) (*dbm.StallParticipation, error) {
	p, err := s.participationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "participation")
	}
	if p == nil {
		return nil, notFoundf("participation %s", id)
	}
	return p, nil
}

// Award closes a pending participation. Points go to the ledger as a game
// award keyed by the participation, so one participation is never paid
// twice.
func (s *ParticipationService) Award(ctx context.Context, actor Actor, id uuid.UUID, req request_models.AwardParticipationRequest) (*dbm.StallParticipation, error) {
	if req.Points < 0 {
		return nil, validationf("points must not be negative")
	}
	if req.Score != nil && *req.Score < 0 {
		return nil, validationf("score must not be negative")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.keptStall(ctx, actor, p.StallID); err != nil {
		return nil, err
	}
	if p.Status != dbm.ParticipationPending {
		return nil, validationf("points were already awarded for this participation")
	}

	fields := map[string]interface{}{
		"points_awarded": req.Points,
		"awarded_by":     actor.ID,
		"awarded_at":     utils.NowUnixSeconds(),
		"notes":          strings.TrimSpace(req.Notes),
	}
	if req.Score != nil {
		fields["score"] = *req.Score
	}
	var point *dbm.Point
	if req.Points > 0 {
		ref := "participation:" + p.ID.String()
		point = &dbm.Point{
			UserID:        p.UserID,
			StallID:       p.StallID,
			Points:        req.Points,
			TransactionID: &ref,
			AwardedBy:     actor.ID,
			AwardedAt:     utils.NowUnixMillis(),
			Source:        dbm.PointSourceGame,
		}
	}

	updated, err := s.participationRepo.Award(ctx, id, fields, point)
	switch {
	case errors.Is(err, repositories.ErrStaleState):
		return nil, validationf("points were already awarded for this participation")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, fmt.Errorf("%w: participation %s", utils.ErrDuplicateTransaction, id)
	case err != nil:
		return nil, storeErr(err, "participation")
	}

	s.log.Info("participation awarded",
		zap.String("participation_id", id.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.Int64("points", req.Points))
	if point != nil {
		s.metrics.PointsAwarded(string(point.Source), point.Points)
		s.leaderboard.Changed()
	}
	s.notifier.NotifyUser(updated.UserID.String(), realtime.Message{Type: realtime.TypeParticipation, Data: updated})
	return updated, nil
}

// UpdateScore corrects the recorded game score. Points already in the
// ledger are left as they are.
func (s *ParticipationService) UpdateScore(ctx context.Context, id uuid.UUID, score int64) (*dbm.StallParticipation, error) {
	if score < 0 {
		return nil, validationf("score must not be negative")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.participationRepo.UpdateScore(ctx, id, score); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("participation %s", id)
		}
		return nil, storeErr(err, "participation")
	}
	s.log.Info("participation score updated", zap.String("participation_id", id.String()), zap.Int64("score", score))
	return s.find(ctx, id)
}

func (s *ParticipationService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.participationRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("participation %s", id)
		}
		return storeErr(err, "participation")
	}
	s.log.Info("participation deleted", zap.String("participation_id", id.String()))
	return nil
}
