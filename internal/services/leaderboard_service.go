package services

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carnival/internal/config"
	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/response_models"
	"carnival/internal/repositories"
	mem "carnival/pkg/memcache"
	"carnival/pkg/metrics"
	"carnival/pkg/realtime"
	"carnival/pkg/utils"
)

const (
	ClearLeaderboardPhrase  = "CLEAR_LEADERBOARD"
	DefaultLeaderboardLimit = 100
	MaxLeaderboardLimit     = 1000
)

type LeaderboardQuery struct {
	Limit   int
	EventID *uuid.UUID
}

func (q LeaderboardQuery) key() string {
	event := "all"
	if q.EventID != nil {
		event = q.EventID.String()
	}
	return fmt.Sprintf("%s|%d", event, q.Limit)
}

// Standings is one computed leaderboard. It is never modified after it is
// built, so cached copies are shared between readers.
type Standings struct {
	eventID *uuid.UUID
	entries []response_models.LeaderboardEntry
}

// All yields the entries in rank order. Each call starts from the top.
func (s *Standings) All() iter.Seq[response_models.LeaderboardEntry] {
	return func(yield func(response_models.LeaderboardEntry) bool) {
		for _, e := range s.entries {
			if !yield(e) {
				return
			}
		}
	}
}

func (s *Standings) Len() int { return len(s.entries) }

func (s *Standings) Response() response_models.LeaderboardResponse {
	out := response_models.LeaderboardResponse{
		Entries: make([]response_models.LeaderboardEntry, 0, len(s.entries)),
	}
	if s.eventID != nil {
		out.EventID = s.eventID.String()
	}
	for e := range s.All() {
		out.Entries = append(out.Entries, e)
	}
	return out
}

type LeaderboardServiceInterface interface {
	ComputeLeaderboard(ctx context.Context, q LeaderboardQuery) (*Standings, error)
	RankOf(ctx context.Context, userID uuid.UUID) (int, error)
	ClearLeaderboard(ctx context.Context, phrase string, actor uuid.UUID) (int64, error)
	// Changed drops cached standings and tells subscribers to refetch.
	Changed()
}

type LeaderboardService struct {
	pointRepo  repositories.PointRepository
	userRepo   repositories.UserRepository
	familyRepo repositories.FamilyRepository
	eventRepo  repositories.EventRepository
	cache      mem.Store[*Standings]
	ttl        time.Duration
	timeout    time.Duration
	metrics    *metrics.Metrics
	notifier   realtime.Notifier
	log        *zap.Logger
}

func NewLeaderboardService(
	pointRepo repositories.PointRepository,
	userRepo repositories.UserRepository,
	familyRepo repositories.FamilyRepository,
	eventRepo repositories.EventRepository,
	cache mem.Store[*Standings],
	cfg *config.Config,
	m *metrics.Metrics,
	notifier realtime.Notifier,
	log *zap.Logger,
) LeaderboardServiceInterface {
	return &LeaderboardService{
		pointRepo:  pointRepo,
		userRepo:   userRepo,
		familyRepo: familyRepo,
		eventRepo:  eventRepo,
		cache:      cache,
		ttl:        cfg.Cache.LeaderboardTTL,
		timeout:    cfg.DB.QueryTimeout,
		metrics:    m,
		notifier:   notifier,
		log:        log.Named("leaderboard"),
	}
}

// rankRows orders aggregated totals: highest total first, then whoever
// reached their total earliest, then user id.
func rankRows(rows []repositories.UserPoints) {
	reached := func(r repositories.UserPoints) int64 {
		if r.ReachedAt != nil {
			return *r.ReachedAt
		}
		return r.FirstAt
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if ra, rb := reached(a), reached(b); ra != rb {
			return ra < rb
		}
		return a.UserID.String() < b.UserID.String()
	})
}

func (s *LeaderboardService) ComputeLeaderboard(ctx context.Context, q LeaderboardQuery) (*Standings, error) {
	switch {
	case q.Limit < 0:
		return nil, validationf("limit must not be negative")
	case q.Limit == 0:
		q.Limit = DefaultLeaderboardLimit
	case q.Limit > MaxLeaderboardLimit:
		q.Limit = MaxLeaderboardLimit
	}

	key := q.key()
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}
	epoch := s.cache.Epoch()

	start := time.Now()
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var window repositories.AwardWindow
	if q.EventID != nil {
		event, err := s.eventRepo.FindByID(ctx, *q.EventID)
		if err != nil {
			return nil, storeErr(err, "event")
		}
		if event == nil {
			return nil, notFoundf("event %s", *q.EventID)
		}
		window.From = event.StartDate * 1000
		window.To = event.EndDate*1000 + 999
	}

	rows, err := s.pointRepo.AggregateByUser(ctx, window)
	if err != nil {
		return nil, storeErr(err, "points")
	}
	rankRows(rows)
	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	entries, err := s.describe(ctx, rows)
	if err != nil {
		return nil, err
	}
	standings := &Standings{eventID: q.EventID, entries: entries}

	s.metrics.ObserveLeaderboard(time.Since(start))
	s.cache.SetAt(epoch, key, standings, s.ttl)
	return standings, nil
}

func (s *LeaderboardService) describe(ctx context.Context, rows []repositories.UserPoints) ([]response_models.LeaderboardEntry, error) {
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	byID := make(map[uuid.UUID]dbm.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	families, err := s.familyRepo.List(ctx)
	if err != nil {
		return nil, storeErr(err, "families")
	}
	familyNames := make(map[uuid.UUID]string, len(families))
	for _, f := range families {
		familyNames[f.ID] = f.Name
	}

	entries := make([]response_models.LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		e := response_models.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      r.UserID.String(),
			TotalPoints: r.Total,
		}
		if u, ok := byID[r.UserID]; ok {
			e.UserName = u.FullName()
			e.House = string(u.House)
			if u.FamilyID != nil {
				e.FamilyName = familyNames[*u.FamilyID]
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// RankOf returns the user's rank on the overall leaderboard, or 0 when the
// user has no points.
func (s *LeaderboardService) RankOf(ctx context.Context, userID uuid.UUID) (int, error) {
	standings, err := s.ComputeLeaderboard(ctx, LeaderboardQuery{Limit: MaxLeaderboardLimit})
	if err != nil {
		return 0, err
	}
	want := userID.String()
	for e := range standings.All() {
		if e.UserID == want {
			return e.Rank, nil
		}
	}
	return 0, nil
}

func (s *LeaderboardService) ClearLeaderboard(ctx context.Context, phrase string, actor uuid.UUID) (int64, error) {
	if phrase != ClearLeaderboardPhrase {
		return 0, fmt.Errorf("%w: type %s to clear the leaderboard", utils.ErrInvalidConfirmation, ClearLeaderboardPhrase)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	deleted, err := s.pointRepo.DeleteAll(ctx)
	if err != nil {
		return 0, storeErr(err, "points")
	}
	s.log.Warn("leaderboard cleared",
		zap.String("actor", actor.String()),
		zap.Int64("deleted", deleted))
	s.Changed()
	return deleted, nil
}

func (s *LeaderboardService) Changed() {
	s.cache.Purge()
	s.notifier.Broadcast(realtime.Message{
		Type: realtime.TypeLeaderboard,
		Data: map[string]int64{"updatedAt": utils.NowUnixMillis()},
	})
}
