// Package sharelinks stores expiring share-link tokens.
package sharelinks

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, link *models.ShareLink) error
	// Find returns the link or common.ErrorNotFound. Expiry is not checked.
	Find(ctx context.Context, token string) (*models.ShareLink, error)
	// Delete removes the link or returns common.ErrorNotFound.
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes every link that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
