package response_models

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	FamilyName  string `json:"familyName,omitempty"`
	House       string `json:"house,omitempty"`
	TotalPoints int64  `json:"totalPoints"`
}

type LeaderboardResponse struct {
	EventID string             `json:"eventId,omitempty"`
	Entries []LeaderboardEntry `json:"leaderboard"`
}

type UserPointsResponse struct {
	UserID      string `json:"userId"`
	TotalPoints int64  `json:"totalPoints"`
	Awards      int64  `json:"awards"`
	Rank        int    `json:"rank,omitempty"`
}

type ClearLeaderboardResponse struct {
	Deleted int64 `json:"deleted"`
}
