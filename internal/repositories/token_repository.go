package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbm "carnival/internal/models/db_models"
)

var (
	// ErrInsufficientFunds is returned when a conditional debit matched no row.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrStaleState is returned when a transaction is no longer in the state
	// the operation requires (e.g. completing a payment twice).
	ErrStaleState = errors.New("transaction state changed")
)

type TransactionFilter struct {
	UserID  *uuid.UUID
	StallID *uuid.UUID
	Type    dbm.TokenTxType
	Status  dbm.TokenTxStatus
	From    int64
	To      int64
	Limit   int
}

type StallStatsRow struct {
	Visits      int64 `gorm:"column:visits"`
	Tokens      int64 `gorm:"column:tokens"`
	UniqueUsers int64 `gorm:"column:unique_users"`
	TotalScore  int64 `gorm:"column:total_score"`
}

type TokenRepository interface {
	CreateAccount(ctx context.Context, account *dbm.TokenAccount) error
	FindAccountByUser(ctx context.Context, userID uuid.UUID) (*dbm.TokenAccount, error)
	FindAccountByQRCode(ctx context.Context, qrCode string) (*dbm.TokenAccount, error)

	// Recharge credits the account and appends txn with its balances filled in.
	Recharge(ctx context.Context, accountID uuid.UUID, txn *dbm.TokenTransaction) (*dbm.TokenAccount, error)
	CreateTransaction(ctx context.Context, txn *dbm.TokenTransaction) error
	FindTransaction(ctx context.Context, id uuid.UUID) (*dbm.TokenTransaction, error)
	// CompletePayment debits a pending payment only if the balance covers it.
	// award, when non nil, is appended to the points ledger in the same
	// transaction.
	CompletePayment(ctx context.Context, txnID uuid.UUID, gameScore *int64, award *dbm.Point) (*dbm.TokenTransaction, *dbm.TokenAccount, error)
	DeclinePayment(ctx context.Context, txnID uuid.UUID) (*dbm.TokenTransaction, error)
	// Refund locks the payment row, so concurrent refunds of one payment
	// run one after the other and only the first credits the account.
	Refund(ctx context.Context, paymentID uuid.UUID, refund *dbm.TokenTransaction) (*dbm.TokenAccount, error)

	ListTransactions(ctx context.Context, filter TransactionFilter) ([]dbm.TokenTransaction, error)
	// SaveConfig inserts or replaces the token config of cfg.EventID.
	SaveConfig(ctx context.Context, cfg *dbm.TokenConfig) error
	FindConfig(ctx context.Context, eventID uuid.UUID) (*dbm.TokenConfig, error)

	// StallStats aggregates the completed payments of a stall that have not
	// been refunded.
	StallStats(ctx context.Context, stallID uuid.UUID) (StallStatsRow, error)
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) CreateAccount(ctx context.Context, account *dbm.TokenAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *tokenRepository) findAccount(db *gorm.DB, query string, arg interface{}) (*dbm.TokenAccount, error) {
	var account dbm.TokenAccount
	if err := db.Where(query, arg).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *tokenRepository) FindAccountByUser(ctx context.Context, userID uuid.UUID) (*dbm.TokenAccount, error) {
	return r.findAccount(r.db.WithContext(ctx), "user_id = ?", userID)
}

func (r *tokenRepository) FindAccountByQRCode(ctx context.Context, qrCode string) (*dbm.TokenAccount, error) {
	return r.findAccount(r.db.WithContext(ctx), "qr_code = ?", qrCode)
}

func (r *tokenRepository) Recharge(ctx context.Context, accountID uuid.UUID, txn *dbm.TokenTransaction) (*dbm.TokenAccount, error) {
	var after dbm.TokenAccount
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&dbm.TokenAccount{}).
			Where("id = ?", accountID).
			Updates(map[string]interface{}{
				"balance":         gorm.Expr("balance + ?", txn.Tokens),
				"total_recharged": gorm.Expr("total_recharged + ?", txn.Tokens),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.First(&after, "id = ?", accountID).Error; err != nil {
			return err
		}

		txn.AccountID = accountID
		txn.BalanceAfter = after.Balance
		txn.BalanceBefore = after.Balance - txn.Tokens
		return tx.Create(txn).Error
	})
	if err != nil {
		return nil, err
	}
	return &after, nil
}

func (r *tokenRepository) CreateTransaction(ctx context.Context, txn *dbm.TokenTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *tokenRepository) FindTransaction(ctx context.Context, id uuid.UUID) (*dbm.TokenTransaction, error) {
	var txn dbm.TokenTransaction
	if err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *tokenRepository) CompletePayment(ctx context.Context, txnID uuid.UUID, gameScore *int64, award *dbm.Point) (*dbm.TokenTransaction, *dbm.TokenAccount, error) {
	var (
		txn   dbm.TokenTransaction
		after dbm.TokenAccount
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&txn, "id = ?", txnID).Error; err != nil {
			return err
		}
		if txn.Type != dbm.TokenTxPayment || txn.Status != dbm.TokenTxPending {
			return ErrStaleState
		}

		res := tx.Model(&dbm.TokenAccount{}).
			Where("id = ? AND balance >= ?", txn.AccountID, txn.Tokens).
			Updates(map[string]interface{}{
				"balance":     gorm.Expr("balance - ?", txn.Tokens),
				"total_spent": gorm.Expr("total_spent + ?", txn.Tokens),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientFunds
		}
		if err := tx.First(&after, "id = ?", txn.AccountID).Error; err != nil {
			return err
		}

		now := time.Now().Unix()
		fields := map[string]interface{}{
			"status":         dbm.TokenTxCompleted,
			"balance_before": after.Balance + txn.Tokens,
			"balance_after":  after.Balance,
			"completed_at":   now,
			"game_score":     gameScore,
		}
		claimed := tx.Model(&dbm.TokenTransaction{}).
			Where("id = ? AND status = ?", txn.ID, dbm.TokenTxPending).
			Updates(fields)
		if claimed.Error != nil {
			return claimed.Error
		}
		if claimed.RowsAffected == 0 {
			return ErrStaleState
		}
		txn.Status = dbm.TokenTxCompleted
		txn.BalanceBefore = after.Balance + txn.Tokens
		txn.BalanceAfter = after.Balance
		txn.CompletedAt = &now
		txn.GameScore = gameScore

		if award != nil {
			return tx.Create(award).Error
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &txn, &after, nil
}

func (r *tokenRepository) DeclinePayment(ctx context.Context, txnID uuid.UUID) (*dbm.TokenTransaction, error) {
	var txn dbm.TokenTransaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&dbm.TokenTransaction{}).
			Where("id = ? AND type = ? AND status = ?", txnID, dbm.TokenTxPayment, dbm.TokenTxPending).
			Update("status", dbm.TokenTxDeclined)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.First(&txn, "id = ?", txnID).Error; err != nil {
				return err
			}
			return ErrStaleState
		}
		return tx.First(&txn, "id = ?", txnID).Error
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *tokenRepository) Refund(ctx context.Context, paymentID uuid.UUID, refund *dbm.TokenTransaction) (*dbm.TokenAccount, error) {
	var after dbm.TokenAccount
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment dbm.TokenTransaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "id = ?", paymentID).Error; err != nil {
			return err
		}
		if payment.Type != dbm.TokenTxPayment || payment.Status != dbm.TokenTxCompleted {
			return ErrStaleState
		}

		var prior int64
		if err := tx.Model(&dbm.TokenTransaction{}).
			Where("refund_of = ?", paymentID).
			Count(&prior).Error; err != nil {
			return err
		}
		if prior > 0 {
			return ErrStaleState
		}

		if err := tx.Model(&dbm.TokenAccount{}).
			Where("id = ?", payment.AccountID).
			Updates(map[string]interface{}{
				"balance":     gorm.Expr("balance + ?", payment.Tokens),
				"total_spent": gorm.Expr("total_spent - ?", payment.Tokens),
			}).Error; err != nil {
			return err
		}
		if err := tx.First(&after, "id = ?", payment.AccountID).Error; err != nil {
			return err
		}

		refund.AccountID = payment.AccountID
		refund.UserID = payment.UserID
		refund.StallID = payment.StallID
		refund.Tokens = payment.Tokens
		refund.RefundOf = &payment.ID
		refund.BalanceAfter = after.Balance
		refund.BalanceBefore = after.Balance - payment.Tokens
		return tx.Create(refund).Error
	})
	if err != nil {
		return nil, err
	}
	return &after, nil
}

func (r *tokenRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]dbm.TokenTransaction, error) {
	q := r.db.WithContext(ctx).Model(&dbm.TokenTransaction{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.StallID != nil {
		q = q.Where("stall_id = ?", *filter.StallID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.From > 0 {
		q = q.Where("created_at >= ?", filter.From)
	}
	if filter.To > 0 {
		q = q.Where("created_at <= ?", filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var txns []dbm.TokenTransaction
	err := q.Order("created_at DESC, reference DESC").Find(&txns).Error
	return txns, err
}

func (r *tokenRepository) StallStats(ctx context.Context, stallID uuid.UUID) (StallStatsRow, error) {
	var row StallStatsRow
	err := r.db.WithContext(ctx).Model(&dbm.TokenTransaction{}).
		Select(`COUNT(*) AS visits,
			COALESCE(SUM(tokens), 0) AS tokens,
			COUNT(DISTINCT user_id) AS unique_users,
			COALESCE(SUM(game_score), 0) AS total_score`).
		Where("stall_id = ? AND type = ? AND status = ?", stallID, dbm.TokenTxPayment, dbm.TokenTxCompleted).
		Where(`NOT EXISTS (SELECT 1 FROM token_transactions r
			WHERE r.refund_of = token_transactions.id AND r.deleted_at IS NULL)`).
		Scan(&row).Error
	return row, err
}

func (r *tokenRepository) SaveConfig(ctx context.Context, cfg *dbm.TokenConfig) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing dbm.TokenConfig
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("event_id = ?", cfg.EventID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(cfg).Error
		case err != nil:
			return err
		}
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
		return tx.Save(cfg).Error
	})
}

func (r *tokenRepository) FindConfig(ctx context.Context, eventID uuid.UUID) (*dbm.TokenConfig, error) {
	var cfg dbm.TokenConfig
	if err := r.db.WithContext(ctx).First(&cfg, "event_id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}
