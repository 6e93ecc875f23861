// Package auth issues and validates the HS256 access tokens handed to
// clients after a successful login.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the standard registered claims plus the caller identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID     string      `json:"user_id"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	Role       models.Role `json:"role"`
	MFAEnabled bool        `json:"mfa_enabled"`
}

func GenerateToken(p *models.Principal, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:     p.UserID,
		Username:   p.UserName,
		Email:      p.Email,
		Role:       p.Role,
		MFAEnabled: p.MFAEnabled,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates signature and expiry and returns the caller.
// Expired tokens yield common.ErrTokenExpired; anything else that fails
// validation yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*models.Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return &models.Principal{
		UserID:     claims.UserID,
		UserName:   claims.Username,
		Email:      claims.Email,
		Role:       claims.Role,
		MFAEnabled: claims.MFAEnabled,
	}, nil
}

func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	p, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}
