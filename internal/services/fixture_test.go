package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carnival/internal/config"
	"carnival/internal/infra/testdb"
	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/internal/repositories"
	mem "carnival/pkg/memcache"
	"carnival/pkg/metrics"
	"carnival/pkg/realtime"
	"carnival/pkg/utils"
)

type sentMessage struct {
	to  string
	msg realtime.Message
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) record(to string, msg realtime.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{to: to, msg: msg})
}

func (n *recordingNotifier) NotifyUser(userID string, msg realtime.Message) { n.record(userID, msg) }
func (n *recordingNotifier) NotifyRole(role string, msg realtime.Message)   { n.record("role:"+role, msg) }
func (n *recordingNotifier) Broadcast(msg realtime.Message)                 { n.record("*", msg) }

func (n *recordingNotifier) count(to string, kind realtime.MessageType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.to == to && s.msg.Type == kind {
			c++
		}
	}
	return c
}

type fixture struct {
	db       *gorm.DB
	cfg      *config.Config
	notifier *recordingNotifier
	jwt      *utils.JWTManager

	userRepo   repositories.UserRepository
	familyRepo repositories.FamilyRepository
	eventRepo  repositories.EventRepository
	stallRepo  repositories.StallRepository
	pointRepo  repositories.PointRepository
	tokenRepo  repositories.TokenRepository
	inviteRepo repositories.InviteRepository

	leaderboard LeaderboardServiceInterface
	points      PointsServiceInterface
	tree        FamilyTreeServiceInterface
	families    FamilyServiceInterface
	tokens      TokenServiceInterface
	accounts    AccountServiceInterface
	users       UserServiceInterface
	events      EventServiceInterface
	stalls      StallServiceInterface
	bulk        BulkServiceInterface
	dashboard   DashboardService

	invites        InviteServiceInterface
	participations ParticipationServiceInterface
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testdb.New(t)
	cfg := &config.Config{
		DB:    config.DBConfig{QueryTimeout: 5 * time.Second},
		Cache: config.CacheConfig{LeaderboardTTL: time.Minute},
		Auth:  config.AuthConfig{InviteTTL: time.Hour, AdminCodeTTL: time.Minute, FrontendURL: "http://carnival.test"},
	}
	log := zap.NewNop()
	m := metrics.New()
	receipts, err := utils.NewReceiptGenerator(1)
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		cfg:      cfg,
		notifier: &recordingNotifier{},
		jwt:      utils.NewJWTManager("fixture-secret-0123456789", time.Hour),

		userRepo:   repositories.NewUserRepository(db),
		familyRepo: repositories.NewFamilyRepository(db),
		eventRepo:  repositories.NewEventRepository(db),
		stallRepo:  repositories.NewStallRepository(db),
		pointRepo:  repositories.NewPointRepository(db),
		tokenRepo:  repositories.NewTokenRepository(db),
		inviteRepo: repositories.NewInviteRepository(db),
	}

	f.leaderboard = NewLeaderboardService(f.pointRepo, f.userRepo, f.familyRepo, f.eventRepo,
		mem.NewTTLCache[*Standings](), cfg, m, f.notifier, log)
	f.points = NewPointsService(f.pointRepo, f.userRepo, f.stallRepo, f.leaderboard, cfg, m, log)
	f.tree = NewFamilyTreeService(f.familyRepo, f.userRepo, cfg, log)
	f.families = NewFamilyService(f.familyRepo, cfg, log)
	f.tokens = NewTokenService(f.tokenRepo, f.userRepo, f.stallRepo, f.eventRepo, f.leaderboard, receipts, f.notifier, m, cfg, log)
	f.invites = NewInviteService(f.inviteRepo, f.userRepo, cfg, log)
	f.accounts = NewAccountService(f.userRepo, f.familyRepo, f.invites, f.tree, f.jwt, cfg, log)
	f.users = NewUserService(f.userRepo, f.stallRepo, f.leaderboard, cfg, log)
	f.events = NewEventService(f.eventRepo, cfg, log)
	f.stalls = NewStallService(f.stallRepo, f.userRepo, cfg, log)
	f.bulk = NewBulkService(f.userRepo, f.families, f.tree, f.tokens, f.leaderboard, cfg, log)
	f.dashboard = NewDashboardService(repositories.NewDashboardRepository(db))
	f.participations = NewParticipationService(repositories.NewParticipationRepository(db), f.stallRepo, f.userRepo,
		f.tokenRepo, f.eventRepo, f.leaderboard, receipts, f.notifier, m, cfg, log)
	return f
}

var phoneSeq struct {
	sync.Mutex
	n int
}

func nextPhone() string {
	phoneSeq.Lock()
	defer phoneSeq.Unlock()
	phoneSeq.n++
	return fmt.Sprintf("+9190000%05d", phoneSeq.n)
}

// user inserts an active user directly, skipping password hashing.
func (f *fixture) user(t *testing.T, first string, role dbm.UserRole) *dbm.User {
	t.Helper()
	u := &dbm.User{
		FirstName:    first,
		LastName:     "Tester",
		Phone:        nextPhone(),
		PasswordHash: "x",
		Role:         role,
		House:        dbm.HouseAripra,
		IsActive:     true,
	}
	require.NoError(t, f.userRepo.Create(context.Background(), u))
	return u
}

func (f *fixture) stall(t *testing.T, shopkeeper *dbm.User, kind dbm.StallType) *dbm.Stall {
	t.Helper()
	s := &dbm.Stall{
		Name:                 "Stall " + uuid.NewString()[:8],
		Type:                 kind,
		ShopkeeperID:         shopkeeper.ID,
		PointsPerTransaction: dbm.DefaultPointsPerTransaction,
		IsActive:             true,
	}
	require.NoError(t, f.stallRepo.Create(context.Background(), s))
	return s
}

func (f *fixture) family(t *testing.T, name string) *dbm.Family {
	t.Helper()
	fam := &dbm.Family{Name: name, IsActive: true}
	require.NoError(t, f.familyRepo.Create(context.Background(), fam))
	return fam
}

func (f *fixture) account(t *testing.T, u *dbm.User, balance int64) *dbm.TokenAccount {
	t.Helper()
	acc, err := f.tokens.EnsureAccount(context.Background(), u.ID)
	require.NoError(t, err)
	if balance > 0 {
		_, err := f.tokens.Recharge(context.Background(), RechargeInput{UserID: &u.ID, Tokens: balance, AdminID: uuid.New()})
		require.NoError(t, err)
	}
	return acc
}

// invite issues a fresh invite token from a throwaway inviter.
func (f *fixture) invite(t *testing.T) string {
	t.Helper()
	inviter := f.user(t, "Inviter", dbm.RoleUser)
	inv, err := f.invites.CreateInvite(context.Background(), Actor{ID: inviter.ID, Role: inviter.Role}, request_models.CreateInviteRequest{})
	require.NoError(t, err)
	return inv.Token
}

func adminActor() Actor {
	return Actor{ID: uuid.New(), Role: dbm.RoleAdmin}
}
