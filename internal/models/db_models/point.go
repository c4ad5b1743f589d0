package db_models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PointSource string

const (
	PointSourceManual PointSource = "manual"
	PointSourceGame   PointSource = "game"
)

// Point is an immutable ledger entry. It has no update path and no soft
// delete; clearing the leaderboard removes rows outright.
type Point struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID   `gorm:"type:uuid;not null;index:idx_points_user_stall" json:"userId"`
	StallID       uuid.UUID   `gorm:"type:uuid;not null;index:idx_points_user_stall;index" json:"stallId"`
	Points        int64       `gorm:"not null" json:"points"`
	TransactionID *string     `gorm:"size:128;uniqueIndex" json:"transactionId,omitempty"`
	QRCodeData    string      `json:"qrCodeData,omitempty"`
	AwardedBy     uuid.UUID   `gorm:"type:uuid;not null" json:"awardedBy"`
	AwardedAt     int64       `gorm:"not null;index" json:"awardedAt"`
	Source        PointSource `gorm:"size:16;not null" json:"source"`
	CreatedAt     int64       `gorm:"autoCreateTime" json:"createdAt"`
}

func (p *Point) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Point) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrInvalidData
}

// Sale amounts are in minor currency units.
type Sale struct {
	BaseModel
	StallID     uuid.UUID `gorm:"type:uuid;not null;index" json:"stallId"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Description string    `json:"description,omitempty"`
}
