package services

import (
	"context"
	"errors"
	"fmt"
	"math"
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

const defaultHistoryLimit = 200

// Recharge amounts are in minor units; token config bounds in major units.
const minorUnitsPerMajor = 100

// Defaults applied to zero fields of a saved token config.
const (
	DefaultAmountToTokenRatio = 2
	DefaultMinRecharge        = 10
	DefaultMaxRecharge        = 1000
	DefaultTokenAmount        = 50
)

type RechargeInput struct {
	UserID      *uuid.UUID
	QRCode      string
	Tokens      int64
	Amount      int64
	Description string
	AdminID     uuid.UUID
}

// TransactionQuery is the raw filter of a transaction listing. Dates accept
// RFC3339 or YYYY-MM-DD; a date-only end covers the whole day.
type TransactionQuery struct {
	UserID    string
	StallID   string
	Type      string
	Status    string
	StartDate string
	EndDate   string
	Limit     int
}

type TokenServiceInterface interface {
	EnsureAccount(ctx context.Context, userID uuid.UUID) (*dbm.TokenAccount, error)
	Recharge(ctx context.Context, in RechargeInput) (*response_models.RechargeResult, error)
	GetBalance(ctx context.Context, userID *uuid.UUID, qrCode string) (*response_models.BalanceResponse, error)
	ListTransactions(ctx context.Context, q TransactionQuery) ([]dbm.TokenTransaction, error)
	History(ctx context.Context, userID uuid.UUID) ([]dbm.TokenTransaction, error)
	GetStallStats(ctx context.Context, stallID uuid.UUID) (*response_models.StallStats, error)

	InitiatePayment(ctx context.Context, actor Actor, req request_models.InitiatePaymentRequest) (*dbm.TokenTransaction, error)
	CompletePayment(ctx context.Context, actor Actor, req request_models.CompletePaymentRequest) (*response_models.PaymentResult, error)
	DeclinePayment(ctx context.Context, actor Actor, req request_models.DeclinePaymentRequest) (*dbm.TokenTransaction, error)
	PendingForStall(ctx context.Context, actor Actor, stallID uuid.UUID) ([]dbm.TokenTransaction, error)
	Refund(ctx context.Context, actor Actor, req request_models.RefundRequest) (*response_models.RechargeResult, error)

	SaveTokenConfig(ctx context.Context, req request_models.SaveTokenConfigRequest) (*dbm.TokenConfig, error)
	GetTokenConfig(ctx context.Context, eventID uuid.UUID) (*dbm.TokenConfig, error)
}

type TokenService struct {
	tokenRepo   repositories.TokenRepository
	userRepo    repositories.UserRepository
	stallRepo   repositories.StallRepository
	eventRepo   repositories.EventRepository
	leaderboard LeaderboardServiceInterface
	receipts    *utils.ReceiptGenerator
	notifier    realtime.Notifier
	metrics     *metrics.Metrics
	timeout     time.Duration
	log         *zap.Logger
}

func NewTokenService(
	tokenRepo repositories.TokenRepository,
	userRepo repositories.UserRepository,
	stallRepo repositories.StallRepository,
	eventRepo repositories.EventRepository,
	leaderboard LeaderboardServiceInterface,
	receipts *utils.ReceiptGenerator,
	notifier realtime.Notifier,
	m *metrics.Metrics,
	cfg *config.Config,
	log *zap.Logger,
) TokenServiceInterface {
	return &TokenService{
		tokenRepo:   tokenRepo,
		userRepo:    userRepo,
		stallRepo:   stallRepo,
		eventRepo:   eventRepo,
		leaderboard: leaderboard,
		receipts:    receipts,
		notifier:    notifier,
		metrics:     m,
		timeout:     cfg.DB.QueryTimeout,
		log:         log.Named("tokens"),
	}
}

func (s *TokenService) EnsureAccount(ctx context.Context, userID uuid.UUID) (*dbm.TokenAccount, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.tokenRepo.FindAccountByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "token account")
	}
	if account != nil {
		return account, nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if user == nil {
		return nil, notFoundf("user %s", userID)
	}

	account = &dbm.TokenAccount{UserID: userID, QRCode: utils.NewQRCode()}
	if err := s.tokenRepo.CreateAccount(ctx, account); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storeErr(err, "token account")
		}
		// Created concurrently by another request.
		account, err = s.tokenRepo.FindAccountByUser(ctx, userID)
		if err != nil {
			return nil, storeErr(err, "token account")
		}
		if account == nil {
			return nil, fmt.Errorf("%w: token account for user %s could not be created", utils.ErrConflict, userID)
		}
		return account, nil
	}
	s.log.Info("token account created", zap.String("user_id", userID.String()))
	return account, nil
}

func (s *TokenService) resolveAccount(ctx context.Context, userID *uuid.UUID, qrCode string) (*dbm.TokenAccount, error) {
	var (
		account *dbm.TokenAccount
		err     error
	)
	if userID != nil {
		account, err = s.tokenRepo.FindAccountByUser(ctx, *userID)
	} else {
		account, err = s.tokenRepo.FindAccountByQRCode(ctx, qrCode)
	}
	if err != nil {
		return nil, storeErr(err, "token account")
	}
	if account == nil {
		return nil, utils.ErrAccountNotFound
	}
	return account, nil
}

func (s *TokenService) Recharge(ctx context.Context, in RechargeInput) (*response_models.RechargeResult, error) {
	in.QRCode = strings.TrimSpace(in.QRCode)
	if (in.UserID == nil) == (in.QRCode == "") {
		return nil, validationf("provide exactly one of userId or qrCode")
	}
	if in.Tokens < 0 || (in.Tokens == 0 && in.Amount == 0) {
		return nil, validationf("tokens must be positive")
	}
	if in.Amount < 0 {
		return nil, validationf("amount must not be negative")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rules, err := s.activeConfig(ctx)
	if err != nil {
		return nil, err
	}
	if in.Tokens, err = applyRechargeRules(rules, in.Tokens, in.Amount); err != nil {
		return nil, err
	}

	account, err := s.resolveAccount(ctx, in.UserID, in.QRCode)
	if err != nil {
		return nil, err
	}

	now := utils.NowUnixSeconds()
	txn := &dbm.TokenTransaction{
		UserID:        account.UserID,
		Type:          dbm.TokenTxRecharge,
		Status:        dbm.TokenTxCompleted,
		Tokens:        in.Tokens,
		Amount:        in.Amount,
		Description:   strings.TrimSpace(in.Description),
		ActorID:       &in.AdminID,
		QRCodeScanned: in.QRCode,
		Reference:     s.receipts.Next(),
		CompletedAt:   &now,
	}
	if txn.Description == "" {
		txn.Description = "Token recharge"
	}

	after, err := s.tokenRepo.Recharge(ctx, account.ID, txn)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrAccountNotFound
		}
		return nil, storeErr(err, "recharge")
	}

	s.log.Info("tokens recharged",
		zap.String("user_id", account.UserID.String()),
		zap.String("admin_id", in.AdminID.String()),
		zap.Int64("tokens", in.Tokens),
		zap.Int64("balance", after.Balance),
		zap.String("reference", txn.Reference))
	s.metrics.TokensMoved(string(dbm.TokenTxRecharge), in.Tokens)
	s.publish(txn, after.Balance)

	return &response_models.RechargeResult{Transaction: txn, NewBalance: after.Balance}, nil
}

// activeConfig returns the token config of the running event when it has
// an active one.
func (s *TokenService) activeConfig(ctx context.Context) (*dbm.TokenConfig, error) {
	event, err := s.eventRepo.FindActive(ctx)
	if err != nil {
		return nil, storeErr(err, "event")
	}
	if event == nil {
		return nil, nil
	}
	cfg, err := s.tokenRepo.FindConfig(ctx, event.ID)
	if err != nil {
		return nil, storeErr(err, "token config")
	}
	if cfg == nil || !cfg.IsActive {
		return nil, nil
	}
	return cfg, nil
}

// applyRechargeRules checks a paid amount against the bounds of rules and
// derives the token count from it when tokens is zero.
func applyRechargeRules(rules *dbm.TokenConfig, tokens, amount int64) (int64, error) {
	if rules != nil && amount > 0 {
		if amount < rules.MinRecharge*minorUnitsPerMajor {
			return 0, validationf("recharge amount is below the minimum of %d", rules.MinRecharge)
		}
		if amount > rules.MaxRecharge*minorUnitsPerMajor {
			return 0, validationf("recharge amount is above the maximum of %d", rules.MaxRecharge)
		}
		if tokens == 0 {
			tokens = int64(math.Floor(float64(amount) / minorUnitsPerMajor * rules.AmountToTokenRatio))
		}
	}
	if tokens <= 0 {
		return 0, validationf("tokens must be positive")
	}
	return tokens, nil
}

func (s *TokenService) SaveTokenConfig(ctx context.Context, req request_models.SaveTokenConfigRequest) (*dbm.TokenConfig, error) {
	eventID, err := parseID(req.EventID, "eventId")
	if err != nil {
		return nil, err
	}
	cfg := &dbm.TokenConfig{
		EventID:            eventID,
		AmountToTokenRatio: req.AmountToTokenRatio,
		MinRecharge:        req.MinRecharge,
		MaxRecharge:        req.MaxRecharge,
		DefaultTokenAmount: req.DefaultTokenAmount,
		IsActive:           req.IsActive == nil || *req.IsActive,
	}
	if cfg.AmountToTokenRatio == 0 {
		cfg.AmountToTokenRatio = DefaultAmountToTokenRatio
	}
	if cfg.MinRecharge == 0 {
		cfg.MinRecharge = DefaultMinRecharge
	}
	if cfg.MaxRecharge == 0 {
		cfg.MaxRecharge = DefaultMaxRecharge
	}
	if cfg.DefaultTokenAmount == 0 {
		cfg.DefaultTokenAmount = DefaultTokenAmount
	}
	switch {
	case cfg.AmountToTokenRatio < 0 || cfg.MinRecharge < 0 || cfg.MaxRecharge < 0 || cfg.DefaultTokenAmount < 0:
		return nil, validationf("token config values must not be negative")
	case cfg.MinRecharge > cfg.MaxRecharge:
		return nil, validationf("minRecharge must not exceed maxRecharge")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "event")
	}
	if event == nil {
		return nil, notFoundf("event %s", eventID)
	}
	if err := s.tokenRepo.SaveConfig(ctx, cfg); err != nil {
		return nil, storeErr(err, "token config")
	}
	s.log.Info("token config saved",
		zap.String("event_id", eventID.String()),
		zap.Float64("ratio", cfg.AmountToTokenRatio),
		zap.Bool("active", cfg.IsActive))
	return cfg, nil
}

func (s *TokenService) GetTokenConfig(ctx context.Context, eventID uuid.UUID) (*dbm.TokenConfig, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	cfg, err := s.tokenRepo.FindConfig(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "token config")
	}
	if cfg == nil {
		return nil, notFoundf("token config for event %s", eventID)
	}
	return cfg, nil
}

func (s *TokenService) GetBalance(ctx context.Context, userID *uuid.UUID, qrCode string) (*response_models.BalanceResponse, error) {
	qrCode = strings.TrimSpace(qrCode)
	if userID == nil && qrCode == "" {
		return nil, validationf("provide userId or qrCode")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.resolveAccount(ctx, userID, qrCode)
	if err != nil {
		return nil, err
	}
	return &response_models.BalanceResponse{
		UserID:         account.UserID.String(),
		Balance:        account.Balance,
		TotalRecharged: account.TotalRecharged,
		TotalSpent:     account.TotalSpent,
		QRCode:         account.QRCode,
	}, nil
}

func (q TransactionQuery) filter() (repositories.TransactionFilter, error) {
	var f repositories.TransactionFilter
	var err error
	if f.UserID, err = parseOptionalID(q.UserID, "userId"); err != nil {
		return f, err
	}
	if f.StallID, err = parseOptionalID(q.StallID, "stallId"); err != nil {
		return f, err
	}

	f.Type = dbm.TokenTxType(strings.TrimSpace(q.Type))
	switch f.Type {
	case "", dbm.TokenTxRecharge, dbm.TokenTxPayment, dbm.TokenTxRefund:
	default:
		return f, validationf("unknown transaction type %q", q.Type)
	}
	f.Status = dbm.TokenTxStatus(strings.TrimSpace(q.Status))
	switch f.Status {
	case "", dbm.TokenTxPending, dbm.TokenTxCompleted, dbm.TokenTxDeclined:
	default:
		return f, validationf("unknown transaction status %q", q.Status)
	}

	start, err := utils.ParseDateParam(q.StartDate)
	if err != nil {
		return f, validationf("startDate: %v", err)
	}
	end, err := utils.ParseDateParam(q.EndDate)
	if err != nil {
		return f, validationf("endDate: %v", err)
	}
	if len(q.EndDate) == len(time.DateOnly) {
		end = utils.EndOfDay(end)
	}
	if !start.IsZero() {
		f.From = start.Unix()
	}
	if !end.IsZero() {
		f.To = end.Unix()
	}
	if f.From > 0 && f.To > 0 && f.From > f.To {
		return f, validationf("startDate must not be after endDate")
	}

	if q.Limit < 0 {
		return f, validationf("limit must not be negative")
	}
	f.Limit = q.Limit
	return f, nil
}

func (s *TokenService) ListTransactions(ctx context.Context, q TransactionQuery) ([]dbm.TokenTransaction, error) {
	filter, err := q.filter()
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	txns, err := s.tokenRepo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "transactions")
	}
	return txns, nil
}

func (s *TokenService) History(ctx context.Context, userID uuid.UUID) ([]dbm.TokenTransaction, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	txns, err := s.tokenRepo.ListTransactions(ctx, repositories.TransactionFilter{
		UserID: &userID,
		Limit:  defaultHistoryLimit,
	})
	if err != nil {
		return nil, storeErr(err, "transactions")
	}
	return txns, nil
}

func (s *TokenService) GetStallStats(ctx context.Context, stallID uuid.UUID) (*response_models.StallStats, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stall, err := s.stallRepo.FindByID(ctx, stallID)
	if err != nil {
		return nil, storeErr(err, "stall")
	}
	if stall == nil {
		return nil, notFoundf("stall %s", stallID)
	}
	return s.stallStats(ctx, stallID)
}

func (s *TokenService) stallStats(ctx context.Context, stallID uuid.UUID) (*response_models.StallStats, error) {
	row, err := s.tokenRepo.StallStats(ctx, stallID)
	if err != nil {
		return nil, storeErr(err, "stall stats")
	}
	stats := &response_models.StallStats{
		StallID:              stallID.String(),
		TotalVisits:          row.Visits,
		TotalTokensCollected: row.Tokens,
		UniqueUsers:          row.UniqueUsers,
		TotalScore:           row.TotalScore,
	}
	if row.Visits > 0 {
		stats.AverageScore = float64(row.TotalScore) / float64(row.Visits)
	}
	return stats, nil
}

// ownStall loads an active stall and checks that a shopkeeper actor runs it.
func (s *TokenService) ownStall(ctx context.Context, actor Actor, stallID uuid.UUID) (*dbm.Stall, error) {
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

func (s *TokenService) InitiatePayment(ctx context.Context, actor Actor, req request_models.InitiatePaymentRequest) (*dbm.TokenTransaction, error) {
	stallID, err := parseID(req.StallID, "stallId")
	if err != nil {
		return nil, err
	}
	qrCode := strings.TrimSpace(req.QRCode)
	if qrCode == "" {
		return nil, validationf("qrCode is required")
	}
	if req.Tokens <= 0 {
		return nil, validationf("tokens must be positive")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stall, err := s.ownStall(ctx, actor, stallID)
	if err != nil {
		return nil, err
	}
	if !stall.IsActive {
		return nil, validationf("stall %s is inactive", stallID)
	}

	account, err := s.resolveAccount(ctx, nil, qrCode)
	if err != nil {
		return nil, err
	}
	if account.Balance < req.Tokens {
		return nil, fmt.Errorf("%w: balance %d, requested %d", utils.ErrInsufficientBalance, account.Balance, req.Tokens)
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = stall.Name
	}
	txn := &dbm.TokenTransaction{
		AccountID:     account.ID,
		UserID:        account.UserID,
		StallID:       &stall.ID,
		Type:          dbm.TokenTxPayment,
		Status:        dbm.TokenTxPending,
		Tokens:        req.Tokens,
		BalanceBefore: account.Balance,
		BalanceAfter:  account.Balance - req.Tokens,
		Description:   description,
		ActorID:       &actor.ID,
		QRCodeScanned: qrCode,
		Reference:     s.receipts.Next(),
	}
	if err := s.tokenRepo.CreateTransaction(ctx, txn); err != nil {
		return nil, storeErr(err, "payment")
	}

	s.notifier.NotifyUser(txn.UserID.String(), realtime.Message{Type: realtime.TypeTransaction, Data: txn})
	return txn, nil
}

// claimPending loads a pending payment the actor is allowed to settle.
func (s *TokenService) claimPending(ctx context.Context, actor Actor, rawID string) (*dbm.TokenTransaction, error) {
	id, err := parseID(rawID, "transactionId")
	if err != nil {
		return nil, err
	}
	txn, err := s.tokenRepo.FindTransaction(ctx, id)
	if err != nil {
		return nil, storeErr(err, "transaction")
	}
	if txn == nil || txn.Type != dbm.TokenTxPayment {
		return nil, notFoundf("payment %s", id)
	}
	if !actor.IsAdmin() && (txn.ActorID == nil || *txn.ActorID != actor.ID) {
		return nil, fmt.Errorf("%w: payment was initiated by another shopkeeper", utils.ErrForbidden)
	}
	if txn.Status != dbm.TokenTxPending {
		return nil, validationf("payment is %s, not pending", txn.Status)
	}
	return txn, nil
}

func (s *TokenService) CompletePayment(ctx context.Context, actor Actor, req request_models.CompletePaymentRequest) (*response_models.PaymentResult, error) {
	if req.GameScore != nil && *req.GameScore < 0 {
		return nil, validationf("gameScore must not be negative")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	pending, err := s.claimPending(ctx, actor, req.TransactionID)
	if err != nil {
		return nil, err
	}

	var award *dbm.Point
	if req.GameScore != nil && *req.GameScore > 0 && pending.StallID != nil {
		ref := pending.Reference
		award = &dbm.Point{
			UserID:        pending.UserID,
			StallID:       *pending.StallID,
			Points:        *req.GameScore,
			TransactionID: &ref,
			AwardedBy:     actor.ID,
			AwardedAt:     utils.NowUnixMillis(),
			Source:        dbm.PointSourceGame,
		}
	}

	txn, account, err := s.tokenRepo.CompletePayment(ctx, pending.ID, req.GameScore, award)
	switch {
	case errors.Is(err, repositories.ErrInsufficientFunds):
		return nil, fmt.Errorf("%w: payment needs %d tokens", utils.ErrInsufficientBalance, pending.Tokens)
	case errors.Is(err, repositories.ErrStaleState):
		return nil, validationf("payment is no longer pending")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, fmt.Errorf("%w: %s", utils.ErrDuplicateTransaction, pending.Reference)
	case err != nil:
		return nil, storeErr(err, "payment")
	}

	s.log.Info("payment completed",
		zap.String("user_id", txn.UserID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.Int64("tokens", txn.Tokens),
		zap.Int64("balance", account.Balance),
		zap.String("reference", txn.Reference))
	s.metrics.TokensMoved(string(dbm.TokenTxPayment), txn.Tokens)

	result := &response_models.PaymentResult{Transaction: txn, NewBalance: account.Balance}
	if award != nil {
		result.PointsAwarded = award.Points
		s.metrics.PointsAwarded(string(award.Source), award.Points)
		s.leaderboard.Changed()
	}
	s.publish(txn, account.Balance)
	if txn.StallID != nil && txn.ActorID != nil {
		if stats, err := s.stallStats(ctx, *txn.StallID); err == nil {
			s.notifier.NotifyUser(txn.ActorID.String(), realtime.Message{Type: realtime.TypeStallStats, Data: stats})
		}
	}
	return result, nil
}

func (s *TokenService) DeclinePayment(ctx context.Context, actor Actor, req request_models.DeclinePaymentRequest) (*dbm.TokenTransaction, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	pending, err := s.claimPending(ctx, actor, req.TransactionID)
	if err != nil {
		return nil, err
	}
	txn, err := s.tokenRepo.DeclinePayment(ctx, pending.ID)
	switch {
	case errors.Is(err, repositories.ErrStaleState):
		return nil, validationf("payment is no longer pending")
	case err != nil:
		return nil, storeErr(err, "payment")
	}

	s.log.Info("payment declined",
		zap.String("user_id", txn.UserID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.String("reference", txn.Reference))
	s.notifier.NotifyUser(txn.UserID.String(), realtime.Message{Type: realtime.TypeTransaction, Data: txn})
	return txn, nil
}

func (s *TokenService) PendingForStall(ctx context.Context, actor Actor, stallID uuid.UUID) ([]dbm.TokenTransaction, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.ownStall(ctx, actor, stallID); err != nil {
		return nil, err
	}
	txns, err := s.tokenRepo.ListTransactions(ctx, repositories.TransactionFilter{
		StallID: &stallID,
		Type:    dbm.TokenTxPayment,
		Status:  dbm.TokenTxPending,
	})
	if err != nil {
		return nil, storeErr(err, "transactions")
	}
	return txns, nil
}

func (s *TokenService) Refund(ctx context.Context, actor Actor, req request_models.RefundRequest) (*response_models.RechargeResult, error) {
	paymentID, err := parseID(req.TransactionID, "transactionId")
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	now := utils.NowUnixSeconds()
	refund := &dbm.TokenTransaction{
		Type:        dbm.TokenTxRefund,
		Status:      dbm.TokenTxCompleted,
		Description: strings.TrimSpace(req.Reason),
		ActorID:     &actor.ID,
		Reference:   s.receipts.Next(),
		CompletedAt: &now,
	}
	if refund.Description == "" {
		refund.Description = "Payment refund"
	}

	after, err := s.tokenRepo.Refund(ctx, paymentID, refund)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, notFoundf("payment %s", paymentID)
	case errors.Is(err, repositories.ErrStaleState):
		return nil, validationf("only a completed payment can be refunded, and only once")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, validationf("payment %s is already refunded", paymentID)
	case err != nil:
		return nil, storeErr(err, "refund")
	}

	s.log.Info("payment refunded",
		zap.String("payment_id", paymentID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.Int64("tokens", refund.Tokens),
		zap.String("reference", refund.Reference))
	s.metrics.TokensMoved(string(dbm.TokenTxRefund), refund.Tokens)
	s.publish(refund, after.Balance)
	return &response_models.RechargeResult{Transaction: refund, NewBalance: after.Balance}, nil
}

func (s *TokenService) publish(txn *dbm.TokenTransaction, balance int64) {
	user := txn.UserID.String()
	s.notifier.NotifyUser(user, realtime.Message{
		Type: realtime.TypeBalance,
		Data: map[string]int64{"balance": balance},
	})
	s.notifier.NotifyUser(user, realtime.Message{Type: realtime.TypeTransaction, Data: txn})
}
