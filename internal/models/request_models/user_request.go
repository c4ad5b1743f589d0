package request_models

type AdminUpdateUserRequest struct {
	UpdateProfileRequest
	Role     *string `json:"role" binding:"omitempty,oneof=user shopkeeper admin"`
	House    *string `json:"house"`
	StallID  *string `json:"stallId" binding:"omitempty,uuid"`
	IsActive *bool   `json:"isActive"`
}

type UserStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}
