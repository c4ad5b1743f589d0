package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"carnival/internal/config"
	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/internal/models/response_models"
	"carnival/internal/repositories"
	"carnival/pkg/utils"
)

const adminCodeAttempts = 5

type InviteServiceInterface interface {
	CreateInvite(ctx context.Context, actor Actor, req request_models.CreateInviteRequest) (*response_models.InviteResponse, error)
	ValidateInvite(ctx context.Context, token string) (*response_models.InviteStatus, error)
	MyInvites(ctx context.Context, actor Actor) ([]response_models.MyInvite, error)

	GenerateAdminCode(ctx context.Context, actor Actor) (*response_models.AdminCodeResponse, error)
	ActiveAdminCodes(ctx context.Context) ([]response_models.AdminCodeResponse, error)

	// CheckInvite reports why token cannot be used to register email, if
	// it cannot. Spending happens in the registration transaction.
	CheckInvite(ctx context.Context, token string, email *string) error
	CheckAdminCode(ctx context.Context, code string) error
}

type InviteService struct {
	inviteRepo repositories.InviteRepository
	userRepo   repositories.UserRepository
	inviteTTL  time.Duration
	codeTTL    time.Duration
	linkBase   string
	timeout    time.Duration
	log        *zap.Logger
}

func NewInviteService(
	inviteRepo repositories.InviteRepository,
	userRepo repositories.UserRepository,
	cfg *config.Config,
	log *zap.Logger,
) InviteServiceInterface {
	s := &InviteService{
		inviteRepo: inviteRepo,
		userRepo:   userRepo,
		inviteTTL:  cfg.Auth.InviteTTL,
		codeTTL:    cfg.Auth.AdminCodeTTL,
		linkBase:   cfg.Auth.FrontendURL,
		timeout:    cfg.DB.QueryTimeout,
		log:        log.Named("invites"),
	}
	if s.inviteTTL <= 0 {
		s.inviteTTL = 7 * 24 * time.Hour
	}
	if s.codeTTL <= 0 {
		s.codeTTL = time.Minute
	}
	return s
}

func (s *InviteService) link(token string) string {
	return s.linkBase + "/register?invite=" + token
}

func (s *InviteService) CreateInvite(ctx context.Context, actor Actor, req request_models.CreateInviteRequest) (*response_models.InviteResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.userRepo.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if user == nil {
		return nil, notFoundf("user %s", actor.ID)
	}

	invite := &dbm.InviteToken{
		Token:         utils.NewInviteToken(),
		CreatedBy:     user.ID,
		CreatedByName: user.FullName(),
		Email:         dbm.NormalizeEmail(req.Email),
		ExpiresAt:     time.Now().Add(s.inviteTTL).Unix(),
	}
	if err := s.inviteRepo.CreateInvite(ctx, invite); err != nil {
		return nil, storeErr(err, "invite")
	}
	s.log.Info("invite created", zap.String("created_by", user.ID.String()))
	return &response_models.InviteResponse{
		Token:      invite.Token,
		ExpiresAt:  invite.ExpiresAt,
		InviteLink: s.link(invite.Token),
	}, nil
}

func checkInvite(invite *dbm.InviteToken, now int64) error {
	switch {
	case invite.Used():
		return validationf("invite token already used")
	case invite.ExpiresAt <= now:
		return validationf("invite token expired")
	}
	return nil
}

func (s *InviteService) ValidateInvite(ctx context.Context, token string) (*response_models.InviteStatus, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	invite, err := s.inviteRepo.FindInvite(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, storeErr(err, "invite")
	}
	if invite == nil {
		return nil, notFoundf("invite token")
	}
	if err := checkInvite(invite, utils.NowUnixSeconds()); err != nil {
		return nil, err
	}
	return &response_models.InviteStatus{
		Valid:         true,
		CreatedByName: invite.CreatedByName,
		ExpiresAt:     invite.ExpiresAt,
	}, nil
}

func (s *InviteService) MyInvites(ctx context.Context, actor Actor) ([]response_models.MyInvite, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	invites, err := s.inviteRepo.InvitesBy(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "invites")
	}
	out := make([]response_models.MyInvite, len(invites))
	for i, inv := range invites {
		out[i] = response_models.MyInvite{InviteToken: inv, Used: inv.Used(), InviteLink: s.link(inv.Token)}
	}
	return out, nil
}

func (s *InviteService) CheckInvite(ctx context.Context, token string, email *string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return validationf("invite token is required for registration")
	}
	invite, err := s.inviteRepo.FindInvite(ctx, token)
	if err != nil {
		return storeErr(err, "invite")
	}
	if invite == nil {
		return validationf("invalid invite token")
	}
	if err := checkInvite(invite, utils.NowUnixSeconds()); err != nil {
		return err
	}
	if invite.Email != nil && (email == nil || *email != *invite.Email) {
		return validationf("invite token was issued for another email")
	}
	return nil
}

func (s *InviteService) GenerateAdminCode(ctx context.Context, actor Actor) (*response_models.AdminCodeResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	code := &dbm.AdminCode{
		CreatedBy: actor.ID,
		ExpiresAt: time.Now().Add(s.codeTTL).Unix(),
	}
	var err error
	for attempt := 0; attempt < adminCodeAttempts; attempt++ {
		code.Code = utils.NewAdminCode()
		if err = s.inviteRepo.CreateAdminCode(ctx, code); !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return nil, storeErr(err, "admin code")
	}
	s.log.Info("admin code generated", zap.String("created_by", actor.ID.String()))
	return &response_models.AdminCodeResponse{Code: code.Code, ExpiresAt: code.ExpiresAt}, nil
}

func (s *InviteService) ActiveAdminCodes(ctx context.Context) ([]response_models.AdminCodeResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	codes, err := s.inviteRepo.ActiveAdminCodes(ctx, utils.NowUnixSeconds())
	if err != nil {
		return nil, storeErr(err, "admin codes")
	}
	out := make([]response_models.AdminCodeResponse, len(codes))
	for i, c := range codes {
		out[i] = response_models.AdminCodeResponse{Code: c.Code, ExpiresAt: c.ExpiresAt}
	}
	return out, nil
}

func (s *InviteService) CheckAdminCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return validationf("admin registration requires validationCode")
	}
	found, err := s.inviteRepo.FindAdminCode(ctx, code)
	if err != nil {
		return storeErr(err, "admin code")
	}
	switch {
	case found == nil:
		return validationf("invalid validation code")
	case found.Used():
		return validationf("validation code already used")
	case found.ExpiresAt <= utils.NowUnixSeconds():
		return validationf("validation code expired")
	}
	return nil
}

// spentErr turns a lost race for an invite or admin code into the error a
// caller would have seen had it lost before validation.
func spentErr(err error) error {
	switch {
	case errors.Is(err, repositories.ErrInviteUnavailable):
		return fmt.Errorf("%w: invite token already used or expired", utils.ErrValidation)
	case errors.Is(err, repositories.ErrAdminCodeUnavailable):
		return fmt.Errorf("%w: validation code already used or expired", utils.ErrValidation)
	}
	return nil
}
