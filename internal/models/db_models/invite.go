package db_models

import "github.com/google/uuid"

// InviteToken lets one person self-register. It is spent by the
// registration that uses it.
type InviteToken struct {
	BaseModel
	Token         string     `gorm:"size:64;uniqueIndex;not null" json:"token"`
	CreatedBy     uuid.UUID  `gorm:"type:uuid;not null;index" json:"createdBy"`
	CreatedByName string     `gorm:"size:200" json:"createdByName"`
	Email         *string    `gorm:"size:254" json:"email,omitempty"`
	UsedBy        *uuid.UUID `gorm:"type:uuid" json:"usedBy,omitempty"`
	UsedAt        *int64     `json:"usedAt,omitempty"`
	ExpiresAt     int64      `gorm:"not null;index" json:"expiresAt"`
}

func (t *InviteToken) Used() bool { return t.UsedAt != nil }

// AdminCode is a short lived one-time code that an admin hands out so
// someone can register with the admin role.
type AdminCode struct {
	BaseModel
	Code      string     `gorm:"size:16;uniqueIndex;not null" json:"code"`
	CreatedBy uuid.UUID  `gorm:"type:uuid;not null" json:"createdBy"`
	UsedBy    *uuid.UUID `gorm:"type:uuid" json:"usedBy,omitempty"`
	UsedAt    *int64     `json:"usedAt,omitempty"`
	ExpiresAt int64      `gorm:"not null;index" json:"expiresAt"`
}

func (c *AdminCode) Used() bool { return c.UsedAt != nil }
