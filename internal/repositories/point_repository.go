package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "carnival/internal/models/db_models"
)

// AwardWindow bounds awarded_at (unix millis, inclusive). Zero means open.
type AwardWindow struct {
	From int64
	To   int64
}

// UserPoints is one row of the per-user aggregation behind the leaderboard.
// ReachedAt is the latest positive award and is null when every award
// for the user was zero.
type UserPoints struct {
	UserID    uuid.UUID `gorm:"column:user_id"`
	Total     int64     `gorm:"column:total"`
	ReachedAt *int64    `gorm:"column:reached_at"`
	FirstAt   int64     `gorm:"column:first_at"`
	Awards    int64     `gorm:"column:awards"`
}

type PointRepository interface {
	Create(ctx context.Context, point *dbm.Point) error
	TransactionIDExists(ctx context.Context, transactionID string) (bool, error)
	AggregateByUser(ctx context.Context, window AwardWindow) ([]UserPoints, error)
	UserTotal(ctx context.Context, userID uuid.UUID) (UserPoints, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]dbm.Point, error)
	DeleteAll(ctx context.Context) (int64, error)
	SumAll(ctx context.Context) (int64, error)

	CreateSale(ctx context.Context, sale *dbm.Sale) error
	SalesForStall(ctx context.Context, stallID uuid.UUID) ([]dbm.Sale, error)
}

type pointRepository struct {
	db *gorm.DB
}

func NewPointRepository(db *gorm.DB) PointRepository {
	return &pointRepository{db: db}
}

func (r *pointRepository) Create(ctx context.Context, point *dbm.Point) error {
	return r.db.WithContext(ctx).Create(point).Error
}

func (r *pointRepository) TransactionIDExists(ctx context.Context, transactionID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Point{}).
		Where("transaction_id = ?", transactionID).
		Count(&n).Error
	return n > 0, err
}

const userPointsSelect = `user_id,
	COALESCE(SUM(points), 0) AS total,
	MAX(CASE WHEN points > 0 THEN awarded_at END) AS reached_at,
	MIN(awarded_at) AS first_at,
	COUNT(*) AS awards`

func (r *pointRepository) AggregateByUser(ctx context.Context, window AwardWindow) ([]UserPoints, error) {
	q := r.db.WithContext(ctx).Model(&dbm.Point{}).Select(userPointsSelect)
	if window.From > 0 {
		q = q.Where("awarded_at >= ?", window.From)
	}
	if window.To > 0 {
		q = q.Where("awarded_at <= ?", window.To)
	}

	var rows []UserPoints
	err := q.Group("user_id").Scan(&rows).Error
	return rows, err
}

func (r *pointRepository) UserTotal(ctx context.Context, userID uuid.UUID) (UserPoints, error) {
	var rows []UserPoints
	err := r.db.WithContext(ctx).Model(&dbm.Point{}).
		Select(userPointsSelect).
		Where("user_id = ?", userID).
		Group("user_id").
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return UserPoints{UserID: userID}, err
	}
	return rows[0], nil
}

func (r *pointRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]dbm.Point, error) {
	var points []dbm.Point
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Limit(limit).
		Find(&points).Error
	return points, err
}

func (r *pointRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&dbm.Point{})
	return res.RowsAffected, res.Error
}

func (r *pointRepository) SumAll(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&dbm.Point{}).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}

func (r *pointRepository) CreateSale(ctx context.Context, sale *dbm.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *pointRepository) SalesForStall(ctx context.Context, stallID uuid.UUID) ([]dbm.Sale, error) {
	var sales []dbm.Sale
	err := r.db.WithContext(ctx).
		Where("stall_id = ?", stallID).
		Order("created_at DESC").
		Find(&sales).Error
	return sales, err
}
