package db_models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"carnival/pkg/utils"
)

type StallType string

const (
	StallFood     StallType = "food"
	StallGame     StallType = "game"
	StallShopping StallType = "shopping"
	StallActivity StallType = "activity"
	StallOther    StallType = "other"
)

func (t StallType) Valid() bool {
	switch t {
	case StallFood, StallGame, StallShopping, StallActivity, StallOther:
		return true
	}
	return false
}

const DefaultPointsPerTransaction = 10

type Stall struct {
	BaseModel
	Name                 string    `gorm:"size:160;not null" json:"name"`
	Description          string    `json:"description,omitempty"`
	Type                 StallType `gorm:"size:16;not null;index" json:"type"`
	ShopkeeperID         uuid.UUID `gorm:"type:uuid;not null;index" json:"shopkeeperId"`
	PointsPerTransaction int64     `gorm:"not null" json:"pointsPerTransaction"`
	IsActive             bool      `gorm:"not null" json:"isActive"`

	QRCode              string `gorm:"size:64;uniqueIndex;not null" json:"qrCode"`
	ShortCode           string `gorm:"size:10;uniqueIndex;not null" json:"shortCode"`
	TokenCost           int64  `gorm:"not null" json:"tokenCost"`
	MaxParticipants     int64  `gorm:"not null" json:"maxParticipants"`
	CurrentParticipants int64  `gorm:"not null" json:"currentParticipants"`
}

// BeforeCreate fills in the scan codes of a new stall.
func (s *Stall) BeforeCreate(tx *gorm.DB) error {
	if s.QRCode == "" {
		s.QRCode = utils.NewStallQRCode()
	}
	if s.ShortCode == "" {
		s.ShortCode = utils.NewShortCode()
	}
	s.ShortCode = strings.ToUpper(s.ShortCode)
	return s.BaseModel.BeforeCreate(tx)
}

// Full reports whether the stall has reached its participant cap. Zero
// means no cap.
func (s *Stall) Full() bool {
	return s.MaxParticipants > 0 && s.CurrentParticipants >= s.MaxParticipants
}
