// Package users declares the server-side repository contract for accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophshare/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills ID and CreatedAt. A duplicate username
	// or email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// SetPendingMFASecret stores a secret issued by enrollment.
	SetPendingMFASecret(ctx context.Context, userID, secret string) error
	// EnableMFA promotes the pending secret and turns MFA on.
	EnableMFA(ctx context.Context, userID string) error
}
