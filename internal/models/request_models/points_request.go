package request_models

type AwardPointsRequest struct {
	UserID        string `json:"userId" binding:"required,uuid"`
	StallID       string `json:"stallId" binding:"required,uuid"`
	Points        int64  `json:"points"`
	TransactionID string `json:"transactionId" binding:"omitempty,max=128"`
	QRCodeData    string `json:"qrCodeData"`
}

type RecordSaleRequest struct {
	UserID      string `json:"userId" binding:"required,uuid"`
	StallID     string `json:"stallId" binding:"required,uuid"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}
