// Package files declares the repository contract for file metadata.
package files

import (
	"context"

	"github.com/dmitrijs2005/gophshare/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) error
	// GetByID returns the file with its owner's name, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.File, error)
	// ListAll returns every file, newest first.
	ListAll(ctx context.Context) ([]*models.FileAccess, error)
	// ListOwnedOrShared returns files owned by userID plus files granted to it.
	ListOwnedOrShared(ctx context.Context, userID string) ([]*models.FileAccess, error)
	// ListSharedWith returns only files granted to userID.
	ListSharedWith(ctx context.Context, userID string) ([]*models.FileAccess, error)
	Delete(ctx context.Context, id string) error
}
