package db_models

import "github.com/google/uuid"

type ParticipationStatus string

const (
	ParticipationPending   ParticipationStatus = "pending"
	ParticipationCompleted ParticipationStatus = "completed"
)

// StallParticipation is one visit to a stall started by the visitor
// scanning the stall's code. The token cost is paid up front; points are
// awarded later by the stall keeper.
type StallParticipation struct {
	BaseModel
	StallID       uuid.UUID           `gorm:"type:uuid;not null;index:idx_participation_stall_user" json:"stallId"`
	UserID        uuid.UUID           `gorm:"type:uuid;not null;index:idx_participation_stall_user;index" json:"userId"`
	EventID       *uuid.UUID          `gorm:"type:uuid;index" json:"eventId,omitempty"`
	TransactionID *uuid.UUID          `gorm:"type:uuid" json:"transactionId,omitempty"`
	TokensPaid    int64               `gorm:"not null" json:"tokensPaid"`
	Score         *int64              `json:"score,omitempty"`
	PointsAwarded int64               `gorm:"not null" json:"pointsAwarded"`
	Status        ParticipationStatus `gorm:"size:16;not null;index" json:"status"`
	AwardedBy     *uuid.UUID          `gorm:"type:uuid" json:"awardedBy,omitempty"`
	AwardedAt     *int64              `json:"awardedAt,omitempty"`
	Notes         string              `json:"notes,omitempty"`
}
