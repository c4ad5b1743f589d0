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
	"carnival/pkg/utils"
)

type FamilyServiceInterface interface {
	// List returns every family, creating the house families first if any
	// is missing.
	List(ctx context.Context) ([]dbm.Family, error)
	Create(ctx context.Context, req request_models.CreateFamilyRequest) (*dbm.Family, error)
	Get(ctx context.Context, id uuid.UUID) (*response_models.FamilyDetail, error)
	SetHead(ctx context.Context, id uuid.UUID, req request_models.SetHeadRequest) (*dbm.Family, error)
	FindOrCreate(ctx context.Context, name string) (*dbm.Family, bool, error)
}

type FamilyService struct {
	familyRepo repositories.FamilyRepository
	timeout    time.Duration
	log        *zap.Logger
}

func NewFamilyService(familyRepo repositories.FamilyRepository, cfg *config.Config, log *zap.Logger) FamilyServiceInterface {
	return &FamilyService{
		familyRepo: familyRepo,
		timeout:    cfg.DB.QueryTimeout,
		log:        log.Named("families"),
	}
}

func (s *FamilyService) List(ctx context.Context) ([]dbm.Family, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	for _, house := range dbm.Houses {
		if _, _, err := s.FindOrCreate(ctx, string(house)); err != nil {
			return nil, err
		}
	}
	families, err := s.familyRepo.List(ctx)
	if err != nil {
		return nil, storeErr(err, "families")
	}
	return families, nil
}

// FindOrCreate returns the family with the given name, creating it when it
// does not exist yet. The flag reports whether it was created.
func (s *FamilyService) FindOrCreate(ctx context.Context, name string) (*dbm.Family, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, validationf("family name is required")
	}

	existing, err := s.familyRepo.FindByName(ctx, name)
	if err != nil {
		return nil, false, storeErr(err, "family")
	}
	if existing != nil {
		return existing, false, nil
	}

	family := &dbm.Family{Name: name, IsActive: true}
	if err := s.familyRepo.Create(ctx, family); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, err = s.familyRepo.FindByName(ctx, name)
			if err != nil || existing == nil {
				return nil, false, storeErr(err, "family")
			}
			return existing, false, nil
		}
		return nil, false, storeErr(err, "family")
	}
	s.log.Info("family created", zap.String("family_id", family.ID.String()), zap.String("name", name))
	return family, true, nil
}

func (s *FamilyService) Create(ctx context.Context, req request_models.CreateFamilyRequest) (*dbm.Family, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationf("name is required")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	existing, err := s.familyRepo.FindByName(ctx, name)
	if err != nil {
		return nil, storeErr(err, "family")
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: family %q", utils.ErrConflict, name)
	}

	family := &dbm.Family{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		IsActive:    true,
	}
	if err := s.familyRepo.Create(ctx, family); err != nil {
		return nil, storeErr(err, "family")
	}
	s.log.Info("family created", zap.String("family_id", family.ID.String()), zap.String("name", name))
	return family, nil
}

func (s *FamilyService) Get(ctx context.Context, id uuid.UUID) (*response_models.FamilyDetail, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	family, err := s.familyRepo.FindByIDWithMembers(ctx, id)
	if err != nil {
		return nil, storeErr(err, "family")
	}
	if family == nil {
		return nil, notFoundf("family %s", id)
	}
	detail := &response_models.FamilyDetail{Family: *family}

	tree, err := s.familyRepo.FindTree(ctx, id)
	if err != nil {
		return nil, storeErr(err, "family tree")
	}
	if tree != nil {
		detail.Tree = &response_models.FamilyTreeSummary{
			FamilyID:         tree.FamilyID.String(),
			RootMemberIDs:    tree.RootMemberIDs,
			TotalMembers:     tree.TotalMembers,
			TotalGenerations: tree.TotalGenerations,
			Structure:        tree.Structure.Data(),
		}
	}
	return detail, nil
}

func (s *FamilyService) SetHead(ctx context.Context, id uuid.UUID, req request_models.SetHeadRequest) (*dbm.Family, error) {
	userID, err := parseOptionalID(req.UserID, "userId")
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	family, err := s.familyRepo.FindByIDWithMembers(ctx, id)
	if err != nil {
		return nil, storeErr(err, "family")
	}
	if family == nil {
		return nil, notFoundf("family %s", id)
	}
	if userID != nil {
		member := false
		for _, m := range family.Members {
			if m.ID == *userID {
				member = true
				break
			}
		}
		if !member {
			return nil, validationf("head of family must be a member of the family")
		}
	}

	if err := s.familyRepo.SetHead(ctx, id, userID); err != nil {
		return nil, storeErr(err, "family")
	}
	family.HeadOfFamilyID = userID
	family.Members = nil
	return family, nil
}
