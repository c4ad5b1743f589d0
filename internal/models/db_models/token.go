package db_models

import "github.com/google/uuid"

type TokenAccount struct {
	BaseModel
	UserID         uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	Balance        int64     `gorm:"not null" json:"balance"`
	TotalRecharged int64     `gorm:"not null" json:"totalRecharged"`
	TotalSpent     int64     `gorm:"not null" json:"totalSpent"`
	QRCode         string    `gorm:"size:64;uniqueIndex;not null" json:"qrCode"`
}

type TokenTxType string

const (
	TokenTxRecharge TokenTxType = "recharge"
	TokenTxPayment  TokenTxType = "payment"
	TokenTxRefund   TokenTxType = "refund"
)

type TokenTxStatus string

const (
	TokenTxPending   TokenTxStatus = "pending"
	TokenTxCompleted TokenTxStatus = "completed"
	TokenTxDeclined  TokenTxStatus = "declined"
)

// TokenTransaction records every movement on a TokenAccount. Amount is the
// money paid for a recharge in minor units; Tokens is the token delta.
type TokenTransaction struct {
	BaseModel
	AccountID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"accountId"`
	UserID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"userId"`
	StallID       *uuid.UUID    `gorm:"type:uuid;index" json:"stallId,omitempty"`
	Type          TokenTxType   `gorm:"size:16;not null;index" json:"type"`
	Status        TokenTxStatus `gorm:"size:16;not null;index" json:"status"`
	Tokens        int64         `gorm:"not null" json:"tokens"`
	Amount        int64         `gorm:"not null" json:"amount"`
	BalanceBefore int64         `gorm:"not null" json:"balanceBefore"`
	BalanceAfter  int64         `gorm:"not null" json:"balanceAfter"`
	Description   string        `json:"description,omitempty"`
	GameScore     *int64        `json:"gameScore,omitempty"`
	ActorID       *uuid.UUID    `gorm:"type:uuid" json:"actorId,omitempty"`
	QRCodeScanned string        `json:"qrCodeScanned,omitempty"`
	Reference     string        `gorm:"size:32;uniqueIndex;not null" json:"reference"`
	RefundOf      *uuid.UUID    `gorm:"type:uuid;uniqueIndex" json:"refundOf,omitempty"`
	CompletedAt   *int64        `json:"completedAt,omitempty"`
}

// TokenConfig holds the recharge rules of one event. Recharge bounds are in
// major currency units; the ratio is tokens per major unit.
type TokenConfig struct {
	BaseModel
	EventID            uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"eventId"`
	AmountToTokenRatio float64   `gorm:"not null" json:"amountToTokenRatio"`
	MinRecharge        int64     `gorm:"not null" json:"minRecharge"`
	MaxRecharge        int64     `gorm:"not null" json:"maxRecharge"`
	DefaultTokenAmount int64     `gorm:"not null" json:"defaultTokenAmount"`
	IsActive           bool      `gorm:"not null" json:"isActive"`
}
