package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbm "carnival/internal/models/db_models"
)

var (
	ErrStallClosed = errors.New("stall is not accepting participants")
	ErrStallFull   = errors.New("stall is full")
)

type ScoreRow struct {
	UserID    uuid.UUID `gorm:"column:user_id"`
	FirstName string    `gorm:"column:first_name"`
	LastName  string    `gorm:"column:last_name"`
	Score     int64     `gorm:"column:score"`
}

type ParticipationRepository interface {
	// Participate books a place at the stall and, when payment is non nil,
	// debits the visitor's account for it. The stall row is locked for the
	// whole transaction so the participant cap holds under concurrency.
	Participate(ctx context.Context, p *dbm.StallParticipation, payment *dbm.TokenTransaction) (*dbm.TokenAccount, error)
	FindByID(ctx context.Context, id uuid.UUID) (*dbm.StallParticipation, error)
	ListByStall(ctx context.Context, stallID uuid.UUID, status dbm.ParticipationStatus) ([]dbm.StallParticipation, error)
	TopScores(ctx context.Context, stallID uuid.UUID, limit int) ([]ScoreRow, error)

	// Award completes a pending participation and appends point to the
	// ledger when it is non nil. A participation that is no longer pending
	// yields ErrStaleState.
	Award(ctx context.Context, id uuid.UUID, fields map[string]interface{}, point *dbm.Point) (*dbm.StallParticipation, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int64) error
	// Delete removes the participation and frees its place at the stall.
	Delete(ctx context.Context, id uuid.UUID) error
}

type participationRepository struct {
	db *gorm.DB
}

func NewParticipationRepository(db *gorm.DB) ParticipationRepository {
	return &participationRepository{db: db}
}

func (r *participationRepository) Participate(ctx context.Context, p *dbm.StallParticipation, payment *dbm.TokenTransaction) (*dbm.TokenAccount, error) {
	var after *dbm.TokenAccount
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stall dbm.Stall
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&stall, "id = ?", p.StallID).Error; err != nil {
			return err
		}
		if !stall.IsActive {
			return ErrStallClosed
		}
		if stall.Full() {
			return ErrStallFull
		}

		if payment != nil {
			var account dbm.TokenAccount
			if err := tx.First(&account, "user_id = ?", p.UserID).Error; err != nil {
				return err
			}
			res := tx.Model(&dbm.TokenAccount{}).
				Where("id = ? AND balance >= ?", account.ID, payment.Tokens).
				Updates(map[string]interface{}{
					"balance":     gorm.Expr("balance - ?", payment.Tokens),
					"total_spent": gorm.Expr("total_spent + ?", payment.Tokens),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientFunds
			}
			after = &dbm.TokenAccount{}
			if err := tx.First(after, "id = ?", account.ID).Error; err != nil {
				return err
			}

			payment.AccountID = account.ID
			payment.UserID = p.UserID
			payment.StallID = &stall.ID
			payment.BalanceAfter = after.Balance
			payment.BalanceBefore = after.Balance + payment.Tokens
			if err := tx.Create(payment).Error; err != nil {
				return err
			}
			p.TransactionID = &payment.ID
			p.TokensPaid = payment.Tokens
		}

		if err := tx.Model(&dbm.Stall{}).Where("id = ?", stall.ID).
			Update("current_participants", gorm.Expr("current_participants + 1")).Error; err != nil {
			return err
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	return after, nil
}

func (r *participationRepository) FindByID(ctx context.Context, id uuid.UUID) (*dbm.StallParticipation, error) {
	var p dbm.StallParticipation
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *participationRepository) ListByStall(ctx context.Context, stallID uuid.UUID, status dbm.ParticipationStatus) ([]dbm.StallParticipation, error) {
	q := r.db.WithContext(ctx).Where("stall_id = ?", stallID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []dbm.StallParticipation
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *participationRepository) TopScores(ctx context.Context, stallID uuid.UUID, limit int) ([]ScoreRow, error) {
	var rows []ScoreRow
	err := r.db.WithContext(ctx).Model(&dbm.StallParticipation{}).
		Select("stall_participations.user_id, users.first_name, users.last_name, stall_participations.score").
		Joins("JOIN users ON users.id = stall_participations.user_id AND users.deleted_at IS NULL").
		Where("stall_participations.stall_id = ? AND stall_participations.score > 0", stallID).
		Order("stall_participations.score DESC, stall_participations.created_at ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *participationRepository) Award(ctx context.Context, id uuid.UUID, fields map[string]interface{}, point *dbm.Point) (*dbm.StallParticipation, error) {
	var p dbm.StallParticipation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields["status"] = dbm.ParticipationCompleted
		res := tx.Model(&dbm.StallParticipation{}).
			Where("id = ? AND status = ?", id, dbm.ParticipationPending).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.First(&p, "id = ?", id).Error; err != nil {
				return err
			}
			return ErrStaleState
		}
		if point != nil {
			if err := tx.Create(point).Error; err != nil {
				return err
			}
		}
		return tx.First(&p, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participationRepository) UpdateScore(ctx context.Context, id uuid.UUID, score int64) error {
	res := r.db.WithContext(ctx).Model(&dbm.StallParticipation{}).
		Where("id = ?", id).
		Update("score", score)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *participationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p dbm.StallParticipation
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&p).Error; err != nil {
			return err
		}
		return tx.Model(&dbm.Stall{}).
			Where("id = ? AND current_participants > 0", p.StallID).
			Update("current_participants", gorm.Expr("current_participants - 1")).Error
	})
}
