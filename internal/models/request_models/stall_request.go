package request_models

type CreateStallRequest struct {
	Name                 string `json:"name" binding:"required,max=160"`
	Description          string `json:"description"`
	Type                 string `json:"type" binding:"required,oneof=food game shopping activity other"`
	ShopkeeperID         string `json:"shopkeeperId" binding:"required,uuid"`
	PointsPerTransaction *int64 `json:"pointsPerTransaction" binding:"omitempty,min=0"`
	ShortCode            string `json:"shortCode" binding:"omitempty,alphanum,min=3,max=10"`
	TokenCost            int64  `json:"tokenCost" binding:"min=0"`
	MaxParticipants      int64  `json:"maxParticipants" binding:"min=0"`
}

type UpdateStallRequest struct {
	Name                 *string `json:"name" binding:"omitempty,max=160"`
	Description          *string `json:"description"`
	Type                 *string `json:"type" binding:"omitempty,oneof=food game shopping activity other"`
	ShopkeeperID         *string `json:"shopkeeperId" binding:"omitempty,uuid"`
	PointsPerTransaction *int64  `json:"pointsPerTransaction" binding:"omitempty,min=0"`
	TokenCost            *int64  `json:"tokenCost" binding:"omitempty,min=0"`
	MaxParticipants      *int64  `json:"maxParticipants" binding:"omitempty,min=0"`
}

type StallStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// ParticipateRequest identifies the stall by exactly one of its codes.
type ParticipateRequest struct {
	QRCode    string `json:"qrCode"`
	ShortCode string `json:"shortCode"`
	Notes     string `json:"notes"`
}

type AwardParticipationRequest struct {
	Points int64  `json:"points" binding:"min=0"`
	Score  *int64 `json:"score" binding:"omitempty,min=0"`
	Notes  string `json:"notes"`
}

type ParticipationScoreRequest struct {
	Score *int64 `json:"score" binding:"required,min=0"`
}
