package session

import (
	"fmt"

	"github.com/dmitrijs2005/gophshare/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
)

type accessClaims struct {
	jwt.RegisteredClaims
	UserID     string      `json:"user_id"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	Role       models.Role `json:"role"`
	MFAEnabled bool        `json:"mfa_enabled"`
}

// DecodeIdentity reads the caller from an access credential without
// verifying its signature. The server remains the authority; the result
// is only used for display and as an expiry hint.
func DecodeIdentity(access string) (models.Identity, error) {
	var c accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(access, &c); err != nil {
		return models.Identity{}, err
	}
	if c.UserID == "" {
		return models.Identity{}, fmt.Errorf("access credential has no user_id")
	}

	id := models.Identity{
		UserID:     c.UserID,
		UserName:   c.Username,
		Email:      c.Email,
		Role:       c.Role,
		MFAEnabled: c.MFAEnabled,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return id, nil
}
