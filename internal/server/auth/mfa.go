package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const mfaAudience = "mfa-login"

// GenerateMFAChallenge issues a short-lived token proving the password step
// of a login succeeded for userID. It is only accepted by ParseMFAChallenge.
func GenerateMFAChallenge(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{mfaAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
	})
	return token.SignedString(secretKey)
}

// ParseMFAChallenge returns the user id the challenge was issued for.
func ParseMFAChallenge(tokenString string, secretKey []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(mfaAudience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", common.ErrInvalidToken
	}
	return claims.Subject, nil
}
