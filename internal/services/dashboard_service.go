package services

import (
	"context"
	"time"

	resp "carnival/internal/models/response_models"
	"carnival/internal/repositories"
)

const topStallsLimit = 10

type DashboardService interface {
	BuildDashboard(ctx context.Context, rng resp.TimeRange) (*resp.DashboardReport, error)
}

type dashboardService struct {
	repo repositories.DashboardRepository
}

func NewDashboardService(repo repositories.DashboardRepository) DashboardService {
	return &dashboardService{repo: repo}
}

// normalizeRange ensures sane defaults and ordering
func normalizeRange(r resp.TimeRange) (resp.TimeRange, error) {
	out := r
	switch out.Interval {
	case "":
		out.Interval = "day"
	case "hour", "day", "week":
	default:
		return out, validationf("interval must be hour, day or week")
	}
	if out.End.IsZero() {
		out.End = time.Now().UTC()
	}
	if out.Start.IsZero() {
		out.Start = out.End.AddDate(0, 0, -7) // last 7 days default
	}
	if out.Start.After(out.End) {
		out.Start, out.End = out.End, out.Start
	}
	return out, nil
}

// bucketStart truncates t to the start of its interval in loc. Weeks start
// on Monday.
func bucketStart(t time.Time, interval string, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	switch interval {
	case "hour":
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	case "week":
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

func rechargeSeries(rows []repositories.TimedTokens, interval string, loc *time.Location) resp.RechargeSeries {
	var series resp.RechargeSeries
	for _, r := range rows {
		bucket := bucketStart(time.Unix(r.CreatedAt, 0), interval, loc)
		n := len(series.Points)
		if n == 0 || !series.Points[n-1].Bucket.Equal(bucket) {
			series.Points = append(series.Points, resp.SeriesPoint{Bucket: bucket})
			n++
		}
		p := &series.Points[n-1]
		p.Tokens += r.Tokens
		p.Amount += r.Amount
		p.Count++
		series.TotalTokens += r.Tokens
		series.TotalAmount += r.Amount
	}
	return series
}

func (s *dashboardService) BuildDashboard(ctx context.Context, rng resp.TimeRange) (*resp.DashboardReport, error) {
	rng, err := normalizeRange(rng)
	if err != nil {
		return nil, err
	}
	loc := time.UTC
	if rng.Timezone != "" {
		if loc, err = time.LoadLocation(rng.Timezone); err != nil {
			return nil, validationf("unknown timezone %q", rng.Timezone)
		}
	}

	// ---------- Core counts ----------
	totalUsers, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	totalFamilies, err := s.repo.CountFamilies(ctx)
	if err != nil {
		return nil, storeErr(err, "families")
	}
	totalStalls, err := s.repo.CountStalls(ctx)
	if err != nil {
		return nil, storeErr(err, "stalls")
	}
	totalPoints, err := s.repo.SumPoints(ctx)
	if err != nil {
		return nil, storeErr(err, "points")
	}
	tokens, err := s.repo.TokenTotals(ctx)
	if err != nil {
		return nil, storeErr(err, "token totals")
	}

	// ---------- Series ----------
	rows, err := s.repo.RechargesBetween(ctx, rng.Start.Unix(), rng.End.Unix())
	if err != nil {
		return nil, storeErr(err, "recharges")
	}
	recharges := rechargeSeries(rows, rng.Interval, loc)

	// ---------- Rankings ----------
	stallRows, err := s.repo.StallsByGross(ctx, topStallsLimit)
	if err != nil {
		return nil, storeErr(err, "stalls")
	}
	topStalls := make([]resp.StallGross, 0, len(stallRows))
	for _, r := range stallRows {
		g := resp.StallGross{
			StallID:      r.StallID,
			StallName:    r.StallName,
			StallType:    r.StallType,
			Tokens:       r.Tokens,
			Visits:       r.Visits,
			Participants: r.Participants,
		}
		if r.Participants > 0 {
			g.AvgTokensPerUser = float64(r.Tokens) / float64(r.Participants)
		}
		topStalls = append(topStalls, g)
	}

	houseRows, err := s.repo.PointsByHouse(ctx)
	if err != nil {
		return nil, storeErr(err, "houses")
	}
	houses := make([]resp.HouseStanding, 0, len(houseRows))
	for _, r := range houseRows {
		houses = append(houses, resp.HouseStanding{House: r.House, Points: r.Points, Users: r.Users})
	}

	report := &resp.DashboardReport{
		Range: rng,
		KPIs: resp.KPIBlock{
			TotalUsers:     totalUsers,
			TotalFamilies:  totalFamilies,
			TotalStalls:    totalStalls,
			TotalPoints:    totalPoints,
			Participants:   tokens.Participants,
			Payments:       tokens.Payments,
			TokensRecharge: tokens.Recharged,
			TokensSpent:    tokens.Spent,
			TokensRefunded: tokens.Refunded,
			NetTokenFlow:   tokens.Recharged - (tokens.Spent - tokens.Refunded),
		},
		Recharges: recharges,
		TopStalls: topStalls,
		Houses:    houses,
	}

	return report, nil
}
