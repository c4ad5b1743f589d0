package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "carnival/internal/models/db_models"
)

type StallFilter struct {
	Type         dbm.StallType
	ShopkeeperID *uuid.UUID
	IsActive     *bool
}

type StallRepository interface {
	Create(ctx context.Context, stall *dbm.Stall) error
	FindByID(ctx context.Context, id uuid.UUID) (*dbm.Stall, error)
	FindByQRCode(ctx context.Context, qrCode string) (*dbm.Stall, error)
	FindByShortCode(ctx context.Context, shortCode string) (*dbm.Stall, error)
	List(ctx context.Context, filter StallFilter) ([]dbm.Stall, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	CountAll(ctx context.Context) (int64, error)
}

type stallRepository struct {
	db *gorm.DB
}

func NewStallRepository(db *gorm.DB) StallRepository {
	return &stallRepository{db: db}
}

func (r *stallRepository) Create(ctx context.Context, stall *dbm.Stall) error {
	return r.db.WithContext(ctx).Create(stall).Error
}

func (r *stallRepository) FindByID(ctx context.Context, id uuid.UUID) (*dbm.Stall, error) {
	var stall dbm.Stall
	if err := r.db.WithContext(ctx).First(&stall, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stall, nil
}

func (r *stallRepository) FindByQRCode(ctx context.Context, qrCode string) (*dbm.Stall, error) {
	return r.first(ctx, "qr_code = ?", qrCode)
}

func (r *stallRepository) FindByShortCode(ctx context.Context, shortCode string) (*dbm.Stall, error) {
	return r.first(ctx, "short_code = ?", strings.ToUpper(shortCode))
}

func (r *stallRepository) first(ctx context.Context, query string, arg interface{}) (*dbm.Stall, error) {
	var stall dbm.Stall
	if err := r.db.WithContext(ctx).Where(query, arg).First(&stall).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stall, nil
}

func (r *stallRepository) List(ctx context.Context, filter StallFilter) ([]dbm.Stall, error) {
	q := r.db.WithContext(ctx).Model(&dbm.Stall{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.ShopkeeperID != nil {
		q = q.Where("shopkeeper_id = ?", *filter.ShopkeeperID)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	var stalls []dbm.Stall
	err := q.Order("name ASC").Find(&stalls).Error
	return stalls, err
}

func (r *stallRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&dbm.Stall{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *stallRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Stall{}).Count(&n).Error
	return n, err
}
