package response_models

import dbm "carnival/internal/models/db_models"

type InviteResponse struct {
	Token      string `json:"token"`
	ExpiresAt  int64  `json:"expiresAt"`
	InviteLink string `json:"inviteLink"`
}

type InviteStatus struct {
	Valid         bool   `json:"valid"`
	CreatedByName string `json:"createdByName,omitempty"`
	ExpiresAt     int64  `json:"expiresAt"`
}

type MyInvite struct {
	dbm.InviteToken
	Used       bool   `json:"used"`
	InviteLink string `json:"inviteLink"`
}

type AdminCodeResponse struct {
	Code      string `json:"code"`
	ExpiresAt int64  `json:"expiresAt"`
}
