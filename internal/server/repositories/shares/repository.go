// Package shares stores per-user share grants.
package shares

import (
	"context"

	"github.com/dmitrijs2005/gophshare/internal/server/models"
)

type Repository interface {
	// Upsert creates the grant or replaces the permission of the existing
	// grant for the same (file, grantee).
	Upsert(ctx context.Context, grant *models.ShareGrant) (*models.ShareGrant, error)
	// Find returns the grant for (fileID, granteeID) or common.ErrorNotFound.
	Find(ctx context.Context, fileID, granteeID string) (*models.ShareGrant, error)
	ListByFile(ctx context.Context, fileID string) ([]*models.ShareGrant, error)
}
