// Package common defines shared constants and sentinel errors used across
// client and server layers of GophShare. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Session errors.
	ErrAuth           = errors.New("invalid credentials")
	ErrMFA            = errors.New("invalid verification code")
	ErrSessionExpired = errors.New("session expired")
	ErrInvalidState   = errors.New("operation not allowed in current session state")
	ErrMFAEnabled     = errors.New("mfa already enabled")

	// Crypto errors.
	ErrIntegrity  = errors.New("integrity check failed")
	ErrInvalidKey = errors.New("invalid content key")

	// Authorization errors.
	ErrNotOwner    = errors.New("only the owner or an admin may do this")
	ErrForbidden   = errors.New("forbidden")
	ErrExpiredLink = errors.New("share link expired")
)
