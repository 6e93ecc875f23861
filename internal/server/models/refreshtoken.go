package models

import "time"

// RefreshToken is a persisted refresh credential. Only the SHA-256 hash of
// the opaque token is stored.
type RefreshToken struct {
	UserID    string
	TokenHash string
	Expires   time.Time
	CreatedAt time.Time
}
