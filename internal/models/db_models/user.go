package db_models

import (
	"strings"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleShopkeeper UserRole = "shopkeeper"
	RoleAdmin      UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleShopkeeper, RoleAdmin:
		return true
	}
	return false
}

type House string

const (
	HouseKadannamanna House = "Kadannamanna"
	HouseAyiranazhi   House = "Ayiranazhi"
	HouseAripra       House = "Aripra"
	HouseMankada      House = "Mankada"
)

var Houses = []House{HouseKadannamanna, HouseAyiranazhi, HouseAripra, HouseMankada}

func (h House) Valid() bool {
	for _, known := range Houses {
		if h == known {
			return true
		}
	}
	return false
}

type User struct {
	BaseModel
	FirstName    string     `gorm:"size:100;not null" json:"firstName"`
	LastName     string     `gorm:"size:100;not null" json:"lastName"`
	Email        *string    `gorm:"size:255;uniqueIndex" json:"email,omitempty"`
	Phone        string     `gorm:"size:32;uniqueIndex;not null" json:"phone"`
	CountryCode  string     `gorm:"size:8" json:"countryCode"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         UserRole   `gorm:"size:20;not null;index" json:"role"`
	IsSuperUser  bool       `gorm:"not null" json:"isSuperUser"`
	FamilyID     *uuid.UUID `gorm:"type:uuid;index" json:"familyId,omitempty"`
	House        House      `gorm:"size:32" json:"house"`
	Gender       string     `gorm:"size:16" json:"gender,omitempty"`
	Occupation   string     `json:"occupation,omitempty"`
	Address      string     `json:"address,omitempty"`
	StallID      *uuid.UUID `gorm:"type:uuid" json:"stallId,omitempty"`
	IsActive     bool       `gorm:"not null" json:"isActive"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail trims and lower-cases an email, returning nil for blanks so
// the unique index ignores users without one.
func NormalizeEmail(email string) *string {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return nil
	}
	return &e
}
