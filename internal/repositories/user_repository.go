package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbm "carnival/internal/models/db_models"
)

type UserFilter struct {
	Role     dbm.UserRole
	FamilyID *uuid.UUID
	Limit    int
	Offset   int
}

// Registration is everything a sign-up writes. Node is nil when the user
// joins no family. Invite and AdminCode are spent when set.
type Registration struct {
	User      *dbm.User
	Node      *dbm.FamilyNode
	Account   *dbm.TokenAccount
	Invite    string
	AdminCode string
	At        int64
}

type UserRepository interface {
	Create(ctx context.Context, user *dbm.User) error
	// Register writes a Registration in one transaction. A family that does
	// not exist yields gorm.ErrRecordNotFound and nothing is written.
	Register(ctx context.Context, reg Registration) error
	FindByID(ctx context.Context, id uuid.UUID) (*dbm.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]dbm.User, error)
	FindByLogin(ctx context.Context, identifier string) (*dbm.User, error)
	FindByEmail(ctx context.Context, email string) (*dbm.User, error)
	FindByPhone(ctx context.Context, phone string) (*dbm.User, error)
	Search(ctx context.Context, query string, limit int) ([]dbm.User, error)
	List(ctx context.Context, filter UserFilter) ([]dbm.User, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	CountAll(ctx context.Context) (int64, error)

	// DeleteCascade removes the user and everything the ledgers hold for them.
	DeleteCascade(ctx context.Context, id uuid.UUID) error
	// DeleteAllExceptSuperUsers is DeleteCascade for every non super user.
	DeleteAllExceptSuperUsers(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *dbm.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Register(ctx context.Context, reg Registration) error {
	if reg.User.ID == uuid.Nil {
		reg.User.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if reg.Node != nil {
			var family dbm.Family
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&family, "id = ?", reg.Node.FamilyID).Error; err != nil {
				return err
			}
			reg.User.FamilyID = &family.ID
		}
		if reg.Invite != "" {
			if err := claimInvite(tx, reg.Invite, reg.User.ID, reg.At); err != nil {
				return err
			}
		}
		if reg.AdminCode != "" {
			if err := claimAdminCode(tx, reg.AdminCode, reg.User.ID, reg.At); err != nil {
				return err
			}
		}

		if err := tx.Create(reg.User).Error; err != nil {
			return err
		}
		if reg.Node != nil {
			reg.Node.UserID = reg.User.ID
			if err := tx.Create(reg.Node).Error; err != nil {
				return err
			}
		}
		reg.Account.UserID = reg.User.ID
		return tx.Create(reg.Account).Error
	})
}

func (r *userRepository) first(ctx context.Context, query string, args ...interface{}) (*dbm.User, error) {
	var user dbm.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*dbm.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]dbm.User, error) {
	var users []dbm.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *userRepository) FindByLogin(ctx context.Context, identifier string) (*dbm.User, error) {
	identifier = strings.TrimSpace(identifier)
	return r.first(ctx, "email = ? OR phone = ?", strings.ToLower(identifier), identifier)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*dbm.User, error) {
	return r.first(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*dbm.User, error) {
	return r.first(ctx, "phone = ?", strings.TrimSpace(phone))
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]dbm.User, error) {
	var users []dbm.User
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?",
			like, like, like, like).
		Order("first_name ASC, last_name ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]dbm.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&dbm.User{})
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.FamilyID != nil {
		q = q.Where("family_id = ?", *filter.FamilyID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []dbm.User
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	err := q.Order("created_at DESC").Find(&users).Error
	return users, total, err
}

func (r *userRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&dbm.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.User{}).Count(&n).Error
	return n, err
}

func (r *userRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return purgeUsers(tx, []uuid.UUID{id})
	})
}

func (r *userRepository) DeleteAllExceptSuperUsers(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Model(&dbm.User{}).Where("is_super_user = ?", false).Pluck("id", &ids).Error; err != nil {
			return err
		}
		deleted = int64(len(ids))
		return purgeUsers(tx, ids)
	})
	return deleted, err
}

// purgeUsers hard-deletes users with their points, sales, token ledger and
// family nodes. Children of a removed node become roots.
func purgeUsers(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	steps := []func() error{
		func() error { return tx.Where("user_id IN ?", ids).Delete(&dbm.Point{}).Error },
		func() error { return tx.Unscoped().Where("user_id IN ?", ids).Delete(&dbm.Sale{}).Error },
		func() error { return tx.Unscoped().Where("user_id IN ?", ids).Delete(&dbm.StallParticipation{}).Error },
		func() error { return tx.Unscoped().Where("user_id IN ?", ids).Delete(&dbm.TokenTransaction{}).Error },
		func() error { return tx.Unscoped().Where("user_id IN ?", ids).Delete(&dbm.TokenAccount{}).Error },
		func() error {
			return tx.Model(&dbm.FamilyNode{}).Where("parent_id IN ?", ids).Update("parent_id", nil).Error
		},
		func() error { return tx.Unscoped().Where("user_id IN ?", ids).Delete(&dbm.FamilyNode{}).Error },
		func() error {
			return tx.Model(&dbm.Family{}).Where("head_of_family_id IN ?", ids).Update("head_of_family_id", nil).Error
		},
		func() error { return tx.Unscoped().Where("id IN ?", ids).Delete(&dbm.User{}).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
