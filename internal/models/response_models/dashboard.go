package response_models

import (
	"time"
)

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// "hour" | "day" | "week"
	Interval string `json:"interval"`
	// Optional: timezone used for bucketing (defaults to UTC if empty)
	Timezone string `json:"timezone,omitempty"`
}

type KPIBlock struct {
	TotalUsers     int64 `json:"total_users"`
	TotalFamilies  int64 `json:"total_families"`
	TotalStalls    int64 `json:"total_stalls"`
	TotalPoints    int64 `json:"total_points"`
	Participants   int64 `json:"participants"`
	Payments       int64 `json:"payments"`
	TokensRecharge int64 `json:"tokens_recharged"`
	TokensSpent    int64 `json:"tokens_spent"`
	TokensRefunded int64 `json:"tokens_refunded"`
	NetTokenFlow   int64 `json:"net_token_flow"` // recharged - (spent - refunded)
}

type SeriesPoint struct {
	Bucket time.Time `json:"bucket"`
	Tokens int64     `json:"tokens"`
	Amount int64     `json:"amount"`
	Count  int64     `json:"count"`
}

type RechargeSeries struct {
	Points      []SeriesPoint `json:"points"`
	TotalTokens int64         `json:"total_tokens"`
	TotalAmount int64         `json:"total_amount"`
}

type StallGross struct {
	StallID          string  `json:"stall_id"`
	StallName        string  `json:"stall_name"`
	StallType        string  `json:"stall_type"`
	Tokens           int64   `json:"tokens"`
	Visits           int64   `json:"visits"`
	Participants     int64   `json:"participants"`
	AvgTokensPerUser float64 `json:"avg_tokens_per_participant"`
}

type HouseStanding struct {
	House  string `json:"house"`
	Points int64  `json:"points"`
	Users  int64  `json:"users"`
}

type DashboardReport struct {
	Range     TimeRange       `json:"range"`
	KPIs      KPIBlock        `json:"kpis"`
	Recharges RechargeSeries  `json:"recharges"`
	TopStalls []StallGross    `json:"top_stalls"`
	Houses    []HouseStanding `json:"houses"`
}
