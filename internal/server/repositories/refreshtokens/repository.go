// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh
// tokens. Tokens are addressed by their hash; the plain value is never stored.
type Repository interface {
	// Create stores a new refresh token hash for userID expiring at expiresAt.
	Create(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error

	// Find looks up a refresh token by its hash and returns its metadata.
	// Implementations return common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// Delete removes a refresh token. Deleting a non-existent token is not
	// an error.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteExpired removes every token that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
