package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "carnival/internal/models/db_models"
)

var (
	// ErrInviteUnavailable is returned when an invite token was spent or
	// expired between validation and registration.
	ErrInviteUnavailable = errors.New("invite token unavailable")
	// ErrAdminCodeUnavailable is the same for admin validation codes.
	ErrAdminCodeUnavailable = errors.New("admin code unavailable")
)

type InviteRepository interface {
	CreateInvite(ctx context.Context, invite *dbm.InviteToken) error
	FindInvite(ctx context.Context, token string) (*dbm.InviteToken, error)
	InvitesBy(ctx context.Context, userID uuid.UUID) ([]dbm.InviteToken, error)

	CreateAdminCode(ctx context.Context, code *dbm.AdminCode) error
	FindAdminCode(ctx context.Context, code string) (*dbm.AdminCode, error)
	// ActiveAdminCodes lists unused codes that expire after now.
	ActiveAdminCodes(ctx context.Context, now int64) ([]dbm.AdminCode, error)
}

type inviteRepository struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepository{db: db}
}

func (r *inviteRepository) CreateInvite(ctx context.Context, invite *dbm.InviteToken) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *inviteRepository) FindInvite(ctx context.Context, token string) (*dbm.InviteToken, error) {
	var invite dbm.InviteToken
	if err := r.db.WithContext(ctx).First(&invite, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invite, nil
}

func (r *inviteRepository) InvitesBy(ctx context.Context, userID uuid.UUID) ([]dbm.InviteToken, error) {
	var invites []dbm.InviteToken
	err := r.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}

func (r *inviteRepository) CreateAdminCode(ctx context.Context, code *dbm.AdminCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *inviteRepository) FindAdminCode(ctx context.Context, code string) (*dbm.AdminCode, error) {
	var found dbm.AdminCode
	if err := r.db.WithContext(ctx).First(&found, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &found, nil
}

func (r *inviteRepository) ActiveAdminCodes(ctx context.Context, now int64) ([]dbm.AdminCode, error) {
	var codes []dbm.AdminCode
	err := r.db.WithContext(ctx).
		Where("used_at IS NULL AND expires_at > ?", now).
		Order("expires_at ASC").
		Find(&codes).Error
	return codes, err
}

// claimInvite spends an invite inside a registration transaction. The
// conditional update makes two registrations racing for one token end with
// exactly one winner.
func claimInvite(tx *gorm.DB, token string, userID uuid.UUID, now int64) error {
	res := tx.Model(&dbm.InviteToken{}).
		Where("token = ? AND used_at IS NULL AND expires_at > ?", token, now).
		Updates(map[string]interface{}{"used_by": userID, "used_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInviteUnavailable
	}
	return nil
}

func claimAdminCode(tx *gorm.DB, code string, userID uuid.UUID, now int64) error {
	res := tx.Model(&dbm.AdminCode{}).
		Where("code = ? AND used_at IS NULL AND expires_at > ?", code, now).
		Updates(map[string]interface{}{"used_by": userID, "used_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAdminCodeUnavailable
	}
	return nil
}
