package response_models

import dbm "carnival/internal/models/db_models"

type BalanceResponse struct {
	UserID         string `json:"userId"`
	Balance        int64  `json:"balance"`
	TotalRecharged int64  `json:"totalRecharged"`
	TotalSpent     int64  `json:"totalSpent"`
	QRCode         string `json:"qrCode"`
}

type RechargeResult struct {
	Transaction *dbm.TokenTransaction `json:"transaction"`
	NewBalance  int64                 `json:"newBalance"`
}

type PaymentResult struct {
	Transaction   *dbm.TokenTransaction `json:"transaction"`
	NewBalance    int64                 `json:"newBalance"`
	PointsAwarded int64                 `json:"pointsAwarded,omitempty"`
}

type StallStats struct {
	StallID              string  `json:"stallId"`
	TotalVisits          int64   `json:"totalVisits"`
	TotalTokensCollected int64   `json:"totalTokensCollected"`
	UniqueUsers          int64   `json:"uniqueUsers"`
	TotalScore           int64   `json:"totalScore"`
	AverageScore         float64 `json:"averageScore"`
}

type StallWinner struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Score  int64  `json:"score"`
}

// StallLookup is what a visitor sees after scanning a stall code.
type StallLookup struct {
	Stall      *dbm.Stall    `json:"stall"`
	KeeperName string        `json:"keeperName"`
	TopWinners []StallWinner `json:"topWinners"`
}

type ParticipationResult struct {
	Participation    *dbm.StallParticipation `json:"participation"`
	RemainingBalance *int64                  `json:"remainingBalance,omitempty"`
}
