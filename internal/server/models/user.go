package models

import (
	"fmt"
	"time"
)

// Role is fixed at registration and drives authorization decisions.
// The set is closed: RoleAdmin, RoleRegular, RoleGuest.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleRegular Role = "regular"
	RoleGuest   Role = "guest"
)

// ParseRole validates s against the closed role set. An empty string
// yields RoleRegular.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleRegular, nil
	case RoleAdmin, RoleRegular, RoleGuest:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

type User struct {
	ID           string
	UserName     string
	Email        string
	Role         Role
	PasswordHash string
	MFAEnabled   bool
	// MFASecret is the confirmed TOTP secret used at login.
	MFASecret string
	// MFAPendingSecret is issued by enrollment and promoted on confirmation.
	MFAPendingSecret string
	CreatedAt        time.Time
}

// Principal is the authenticated caller as carried in an access token.
type Principal struct {
	UserID     string
	UserName   string
	Email      string
	Role       Role
	MFAEnabled bool
}

// Principal projects the user into the identity carried by tokens.
func (u *User) Principal() *Principal {
	return &Principal{
		UserID:     u.ID,
		UserName:   u.UserName,
		Email:      u.Email,
		Role:       u.Role,
		MFAEnabled: u.MFAEnabled,
	}
}
