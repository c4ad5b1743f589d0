package response_models

import dbm "carnival/internal/models/db_models"

type AuthResponse struct {
	Token string    `json:"token"`
	User  *dbm.User `json:"user"`
}

type UserListResponse struct {
	Count int64      `json:"count"`
	Users []dbm.User `json:"users"`
}

type DeleteAllUsersResponse struct {
	Deleted int64 `json:"deleted"`
}

type ImportRowResult struct {
	Row               int    `json:"row"`
	UserID            string `json:"userId,omitempty"`
	TemporaryPassword string `json:"temporaryPassword,omitempty"`
	Error             string `json:"error,omitempty"`
}

type ImportUsersResponse struct {
	Created         int               `json:"created"`
	Failed          int               `json:"failed"`
	FamiliesCreated int               `json:"familiesCreated"`
	Results         []ImportRowResult `json:"results"`
}
