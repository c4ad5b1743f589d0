package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbm "carnival/internal/models/db_models"
)

// ParentChange re-points one node of the family while a tree is saved.
type ParentChange struct {
	UserID   uuid.UUID
	ParentID *uuid.UUID
}

// TreeWrite is everything persisted after a successful rebuild.
type TreeWrite struct {
	Generations map[uuid.UUID]int
	Summary     *dbm.FamilyTree
	Reparent    *ParentChange
}

// TreeState is a family as read inside UpdateTree.
type TreeState struct {
	Family *dbm.Family
	Nodes  []dbm.FamilyNode
	Names  map[uuid.UUID]string
}

type FamilyRepository interface {
	Create(ctx context.Context, family *dbm.Family) error
	FindByID(ctx context.Context, id uuid.UUID) (*dbm.Family, error)
	FindByIDWithMembers(ctx context.Context, id uuid.UUID) (*dbm.Family, error)
	FindByName(ctx context.Context, name string) (*dbm.Family, error)
	List(ctx context.Context) ([]dbm.Family, error)
	SetHead(ctx context.Context, familyID uuid.UUID, userID *uuid.UUID) error
	CountAll(ctx context.Context) (int64, error)

	ListNodes(ctx context.Context, familyID uuid.UUID) ([]dbm.FamilyNode, error)
	FindNodeByUser(ctx context.Context, userID uuid.UUID) (*dbm.FamilyNode, error)
	NodesByGeneration(ctx context.Context, familyID uuid.UUID, generation int) ([]dbm.FamilyNode, error)

	// AddMember moves the user into the family and gives them a node,
	// dropping any node they had elsewhere.
	AddMember(ctx context.Context, node *dbm.FamilyNode) error
	RemoveMember(ctx context.Context, familyID, userID uuid.UUID) error

	// UpdateTree locks the family row, reads its nodes and member names,
	// and saves what build returns, all in one transaction. Updates of one
	// family therefore run one after another. When build fails nothing is
	// written. A missing family yields gorm.ErrRecordNotFound.
	UpdateTree(ctx context.Context, familyID uuid.UUID, build func(TreeState) (*TreeWrite, error)) error
	FindTree(ctx context.Context, familyID uuid.UUID) (*dbm.FamilyTree, error)
}

type familyRepository struct {
	db *gorm.DB
}

func NewFamilyRepository(db *gorm.DB) FamilyRepository {
	return &familyRepository{db: db}
}

func (r *familyRepository) Create(ctx context.Context, family *dbm.Family) error {
	return r.db.WithContext(ctx).Create(family).Error
}

func (r *familyRepository) FindByID(ctx context.Context, id uuid.UUID) (*dbm.Family, error) {
	var family dbm.Family
	if err := r.db.WithContext(ctx).First(&family, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &family, nil
}

func (r *familyRepository) FindByIDWithMembers(ctx context.Context, id uuid.UUID) (*dbm.Family, error) {
	var family dbm.Family
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("first_name ASC")
		}).
		First(&family, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &family, nil
}

func (r *familyRepository) FindByName(ctx context.Context, name string) (*dbm.Family, error) {
	var family dbm.Family
	if err := r.db.WithContext(ctx).First(&family, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &family, nil
}

func (r *familyRepository) List(ctx context.Context) ([]dbm.Family, error) {
	var families []dbm.Family
	err := r.db.WithContext(ctx).Order("name ASC").Find(&families).Error
	return families, err
}

func (r *familyRepository) SetHead(ctx context.Context, familyID uuid.UUID, userID *uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&dbm.Family{}).
		Where("id = ?", familyID).
		Update("head_of_family_id", userID).Error
}

func (r *familyRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Family{}).Count(&n).Error
	return n, err
}

func (r *familyRepository) ListNodes(ctx context.Context, familyID uuid.UUID) ([]dbm.FamilyNode, error) {
	var nodes []dbm.FamilyNode
	err := r.db.WithContext(ctx).
		Where("family_id = ?", familyID).
		Order("created_at ASC, user_id ASC").
		Find(&nodes).Error
	return nodes, err
}

func (r *familyRepository) FindNodeByUser(ctx context.Context, userID uuid.UUID) (*dbm.FamilyNode, error) {
	var node dbm.FamilyNode
	if err := r.db.WithContext(ctx).First(&node, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

func (r *familyRepository) NodesByGeneration(ctx context.Context, familyID uuid.UUID, generation int) ([]dbm.FamilyNode, error) {
	var nodes []dbm.FamilyNode
	err := r.db.WithContext(ctx).
		Where("family_id = ? AND generation = ?", familyID, generation).
		Order("created_at ASC").
		Find(&nodes).Error
	return nodes, err
}

func (r *familyRepository) AddMember(ctx context.Context, node *dbm.FamilyNode) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := detachNode(tx, node.UserID); err != nil {
			return err
		}
		if err := tx.Model(&dbm.User{}).Where("id = ?", node.UserID).
			Update("family_id", node.FamilyID).Error; err != nil {
			return err
		}
		return tx.Create(node).Error
	})
}

func (r *familyRepository) RemoveMember(ctx context.Context, familyID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&dbm.User{}).
			Where("id = ? AND family_id = ?", userID, familyID).
			Update("family_id", nil)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Model(&dbm.Family{}).
			Where("id = ? AND head_of_family_id = ?", familyID, userID).
			Update("head_of_family_id", nil).Error; err != nil {
			return err
		}
		return detachNode(tx, userID)
	})
}

// detachNode deletes the user's node wherever it is and turns its children
// into roots.
func detachNode(tx *gorm.DB, userID uuid.UUID) error {
	if err := tx.Model(&dbm.FamilyNode{}).
		Where("parent_id = ?", userID).
		Update("parent_id", nil).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where("user_id = ?", userID).Delete(&dbm.FamilyNode{}).Error
}

func (r *familyRepository) UpdateTree(ctx context.Context, familyID uuid.UUID, build func(TreeState) (*TreeWrite, error)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var family dbm.Family
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&family, "id = ?", familyID).Error; err != nil {
			return err
		}
		var nodes []dbm.FamilyNode
		if err := tx.Where("family_id = ?", familyID).
			Order("created_at ASC, user_id ASC").
			Find(&nodes).Error; err != nil {
			return err
		}
		names := make(map[uuid.UUID]string, len(nodes))
		if len(nodes) > 0 {
			ids := make([]uuid.UUID, len(nodes))
			for i, n := range nodes {
				ids[i] = n.UserID
			}
			var users []dbm.User
			if err := tx.Where("id IN ?", ids).Find(&users).Error; err != nil {
				return err
			}
			for _, u := range users {
				names[u.ID] = u.FullName()
			}
		}

		w, err := build(TreeState{Family: &family, Nodes: nodes, Names: names})
		if err != nil {
			return err
		}
		return saveTree(tx, familyID, w)
	})
}

func saveTree(tx *gorm.DB, familyID uuid.UUID, w *TreeWrite) error {
	if w.Reparent != nil {
		if err := tx.Model(&dbm.FamilyNode{}).
			Where("family_id = ? AND user_id = ?", familyID, w.Reparent.UserID).
			Update("parent_id", w.Reparent.ParentID).Error; err != nil {
			return err
		}
	}

	for userID, gen := range w.Generations {
		if err := tx.Model(&dbm.FamilyNode{}).
			Where("family_id = ? AND user_id = ?", familyID, userID).
			Update("generation", gen).Error; err != nil {
			return err
		}
	}

	var existing dbm.FamilyTree
	err := tx.Where("family_id = ?", familyID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(w.Summary).Error
	case err != nil:
		return err
	}

	w.Summary.ID = existing.ID
	w.Summary.CreatedAt = existing.CreatedAt
	return tx.Save(w.Summary).Error
}

func (r *familyRepository) FindTree(ctx context.Context, familyID uuid.UUID) (*dbm.FamilyTree, error) {
	var tree dbm.FamilyTree
	if err := r.db.WithContext(ctx).First(&tree, "family_id = ?", familyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tree, nil
}
