package request_models

import "time"

type CreateEventRequest struct {
	Name        string    `json:"name" binding:"required,max=160"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate" binding:"required"`
	EndDate     time.Time `json:"endDate" binding:"required"`
	Location    string    `json:"location"`
	Status      string    `json:"status" binding:"omitempty,oneof=upcoming active completed"`
	MaxPoints   *int64    `json:"maxPoints" binding:"omitempty,min=0"`
	BannerImage string    `json:"bannerImage"`
}

type UpdateEventRequest struct {
	Name        *string    `json:"name" binding:"omitempty,max=160"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Location    *string    `json:"location"`
	MaxPoints   *int64     `json:"maxPoints" binding:"omitempty,min=0"`
	BannerImage *string    `json:"bannerImage"`
	IsActive    *bool      `json:"isActive"`
}

type EventStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=upcoming active completed"`
}

type Phase2Request struct {
	IsPhase2Active *bool `json:"isPhase2Active" binding:"required"`
}
