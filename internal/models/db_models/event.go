package db_models

type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventUpcoming, EventActive, EventCompleted:
		return true
	}
	return false
}

const DefaultEventMaxPoints = 1000

// Event dates are unix seconds.
type Event struct {
	BaseModel
	Name            string      `gorm:"size:160;uniqueIndex;not null" json:"name"`
	Description     string      `json:"description,omitempty"`
	StartDate       int64       `gorm:"not null;index" json:"startDate"`
	EndDate         int64       `gorm:"not null" json:"endDate"`
	Location        string      `json:"location,omitempty"`
	Status          EventStatus `gorm:"size:16;not null;index" json:"status"`
	IsPhase2Active  bool        `gorm:"not null" json:"isPhase2Active"`
	Phase2StartDate *int64      `json:"phase2StartDate,omitempty"`
	MaxPoints       int64       `gorm:"not null" json:"maxPoints"`
	BannerImage     string      `json:"bannerImage,omitempty"`
	IsActive        bool        `gorm:"not null" json:"isActive"`
}
