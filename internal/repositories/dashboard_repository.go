package repositories

import (
	"context"

	"gorm.io/gorm"

	dbm "carnival/internal/models/db_models"
)

type DashboardRepository interface {
	// KPIs / counts
	CountUsers(ctx context.Context) (int64, error)
	CountFamilies(ctx context.Context) (int64, error)
	CountStalls(ctx context.Context) (int64, error)
	SumPoints(ctx context.Context) (int64, error)
	TokenTotals(ctx context.Context) (TokenTotalsRow, error)

	// Rankings
	StallsByGross(ctx context.Context, limit int) ([]StallGrossRow, error)
	PointsByHouse(ctx context.Context) ([]HouseRow, error)

	// Raw rows for series bucketed in Go
	RechargesBetween(ctx context.Context, start, end int64) ([]TimedTokens, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

// ---------- Row helpers ----------
type TokenTotalsRow struct {
	Recharged    int64 `gorm:"column:recharged"`
	Spent        int64 `gorm:"column:spent"`
	Refunded     int64 `gorm:"column:refunded"`
	Participants int64 `gorm:"column:participants"`
	Payments     int64 `gorm:"column:payments"`
}

type StallGrossRow struct {
	StallID      string `gorm:"column:stall_id"`
	StallName    string `gorm:"column:stall_name"`
	StallType    string `gorm:"column:stall_type"`
	Tokens       int64  `gorm:"column:tokens"`
	Visits       int64  `gorm:"column:visits"`
	Participants int64  `gorm:"column:participants"`
}

type HouseRow struct {
	House  string `gorm:"column:house"`
	Points int64  `gorm:"column:points"`
	Users  int64  `gorm:"column:users"`
}

type TimedTokens struct {
	CreatedAt int64 `gorm:"column:created_at"`
	Tokens    int64 `gorm:"column:tokens"`
	Amount    int64 `gorm:"column:amount"`
}

// ---------- Counts ----------
func (r *dashboardRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.User{}).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountFamilies(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Family{}).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountStalls(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Stall{}).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) SumPoints(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Point{}).Select("COALESCE(SUM(points), 0)").Scan(&n).Error
	return n, err
}

func (r *dashboardRepository) TokenTotals(ctx context.Context) (TokenTotalsRow, error) {
	var row TokenTotalsRow
	err := r.db.WithContext(ctx).Model(&dbm.TokenTransaction{}).
		Select(`
			COALESCE(SUM(CASE WHEN type = ? THEN tokens ELSE 0 END), 0) AS recharged,
			COALESCE(SUM(CASE WHEN type = ? THEN tokens ELSE 0 END), 0) AS spent,
			COALESCE(SUM(CASE WHEN type = ? THEN tokens ELSE 0 END), 0) AS refunded,
			COUNT(DISTINCT CASE WHEN type = ? THEN user_id END) AS participants,
			COALESCE(SUM(CASE WHEN type = ? THEN 1 ELSE 0 END), 0) AS payments`,
			dbm.TokenTxRecharge, dbm.TokenTxPayment, dbm.TokenTxRefund, dbm.TokenTxPayment, dbm.TokenTxPayment).
		Where("status = ?", dbm.TokenTxCompleted).
		Scan(&row).Error
	return row, err
}

// ---------- Rankings ----------
func (r *dashboardRepository) StallsByGross(ctx context.Context, limit int) ([]StallGrossRow, error) {
	var rows []StallGrossRow
	err := r.db.WithContext(ctx).
		Table("stalls s").
		Select(`
			s.id AS stall_id,
			s.name AS stall_name,
			s.type AS stall_type,
			COALESCE(SUM(t.tokens), 0) AS tokens,
			COUNT(t.id) AS visits,
			COUNT(DISTINCT t.user_id) AS participants`).
		Joins("LEFT JOIN token_transactions t ON t.stall_id = s.id AND t.type = ? AND t.status = ?",
			dbm.TokenTxPayment, dbm.TokenTxCompleted).
		Where("s.deleted_at IS NULL").
		Group("s.id, s.name, s.type").
		Order("tokens DESC, s.name ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *dashboardRepository) PointsByHouse(ctx context.Context) ([]HouseRow, error) {
	var rows []HouseRow
	err := r.db.WithContext(ctx).
		Table("points p").
		Select("u.house AS house, COALESCE(SUM(p.points), 0) AS points, COUNT(DISTINCT p.user_id) AS users").
		Joins("JOIN users u ON u.id = p.user_id").
		Group("u.house").
		Order("points DESC").
		Find(&rows).Error
	return rows, err
}

// ---------- Series ----------
func (r *dashboardRepository) RechargesBetween(ctx context.Context, start, end int64) ([]TimedTokens, error) {
	var rows []TimedTokens
	err := r.db.WithContext(ctx).
		Model(&dbm.TokenTransaction{}).
		Select("created_at, tokens, amount").
		Where("type = ? AND status = ?", dbm.TokenTxRecharge, dbm.TokenTxCompleted).
		Where("created_at BETWEEN ? AND ?", start, end).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
