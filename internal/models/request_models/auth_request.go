package request_models

type RegisterRequest struct {
	FirstName   string `json:"firstName" binding:"required,max=100"`
	LastName    string `json:"lastName" binding:"required,max=100"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone" binding:"required,min=6,max=32"`
	CountryCode string `json:"countryCode" binding:"omitempty,max=8"`
	Password    string `json:"password" binding:"required,min=6"`
	House       string `json:"house" binding:"required"`
	Gender      string `json:"gender" binding:"omitempty,oneof=male female other"`
	Occupation  string `json:"occupation"`
	Address     string `json:"address"`
	FamilyID    string `json:"familyId" binding:"omitempty,uuid"`
	Role        string `json:"role" binding:"omitempty,oneof=user shopkeeper admin"`
	// InviteToken is required unless open registration is enabled.
	InviteToken string `json:"inviteToken"`
	// ValidationCode is the one-time admin code required for the admin role.
	ValidationCode string `json:"validationCode"`
}

// LoginRequest accepts either an email or a phone number as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password" binding:"required"`
}

func (r LoginRequest) Login() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.Email != "":
		return r.Email
	default:
		return r.Phone
	}
}

type UpdateProfileRequest struct {
	FirstName  *string `json:"firstName" binding:"omitempty,max=100"`
	LastName   *string `json:"lastName" binding:"omitempty,max=100"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Gender     *string `json:"gender" binding:"omitempty,oneof=male female other"`
	Occupation *string `json:"occupation"`
	Address    *string `json:"address"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

type CreateInviteRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}
