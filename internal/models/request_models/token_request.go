package request_models

type RechargeRequest struct {
	UserID      string `json:"userId" binding:"omitempty,uuid"`
	QRCode      string `json:"qrCode"`
	Tokens      int64  `json:"tokens"`
	Amount      int64  `json:"amount" binding:"min=0"`
	Description string `json:"description"`
}

type InitiatePaymentRequest struct {
	QRCode      string `json:"qrCode" binding:"required"`
	StallID     string `json:"stallId" binding:"required,uuid"`
	Tokens      int64  `json:"tokens"`
	Description string `json:"description"`
}

type CompletePaymentRequest struct {
	TransactionID string `json:"transactionId" binding:"required,uuid"`
	GameScore     *int64 `json:"gameScore" binding:"omitempty,min=0"`
}

type DeclinePaymentRequest struct {
	TransactionID string `json:"transactionId" binding:"required,uuid"`
}

type RefundRequest struct {
	TransactionID string `json:"transactionId" binding:"required,uuid"`
	Reason        string `json:"reason"`
}

// SaveTokenConfigRequest leaves zero fields at their defaults.
type SaveTokenConfigRequest struct {
	EventID            string  `json:"eventId" binding:"required,uuid"`
	AmountToTokenRatio float64 `json:"amountToTokenRatio" binding:"min=0"`
	MinRecharge        int64   `json:"minRecharge" binding:"min=0"`
	MaxRecharge        int64   `json:"maxRecharge" binding:"min=0"`
	DefaultTokenAmount int64   `json:"defaultTokenAmount" binding:"min=0"`
	IsActive           *bool   `json:"isActive"`
}
