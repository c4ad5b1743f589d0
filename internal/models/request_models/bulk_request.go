package request_models

type ConfirmationRequest struct {
	Confirmation string `json:"confirmCode" binding:"required"`
}

type ImportUserRow struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	House     string `json:"house"`
	Gender    string `json:"gender"`
	Family    string `json:"family"`
}

type ImportUsersRequest struct {
	Users []ImportUserRow `json:"users" binding:"required,min=1,max=1000"`
}
