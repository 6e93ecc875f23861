package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/dbx"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, grant *models.ShareGrant) (*models.ShareGrant, error) {
	query := `
		INSERT INTO share_grants (file_id, grantee_id, permission)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_id, grantee_id)
		DO UPDATE SET permission = EXCLUDED.permission, updated_at = now()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, grant.FileID, grant.GranteeID, string(grant.Permission)).
		Scan(&grant.ID, &grant.CreatedAt, &grant.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return grant, nil
}

func (r *PostgresRepository) Find(ctx context.Context, fileID, granteeID string) (*models.ShareGrant, error) {
	query := `
		SELECT g.id, g.permission, u.username, u.email, g.created_at, g.updated_at
		FROM share_grants g JOIN users u ON u.id = g.grantee_id
		WHERE g.file_id = $1 AND g.grantee_id = $2
	`
	g := &models.ShareGrant{FileID: fileID, GranteeID: granteeID}
	var perm string
	err := r.db.QueryRowContext(ctx, query, fileID, granteeID).
		Scan(&g.ID, &perm, &g.GranteeName, &g.GranteeEmail, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	g.Permission = models.Permission(perm)
	return g, nil
}

func (r *PostgresRepository) ListByFile(ctx context.Context, fileID string) ([]*models.ShareGrant, error) {
	query := `
		SELECT g.id, g.grantee_id, u.username, u.email, g.permission, g.created_at, g.updated_at
		FROM share_grants g JOIN users u ON u.id = g.grantee_id
		WHERE g.file_id = $1
		ORDER BY g.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to select grants: %w", err)
	}
	defer rows.Close()

	result := make([]*models.ShareGrant, 0)
	for rows.Next() {
		g := &models.ShareGrant{FileID: fileID}
		var perm string
		if err := rows.Scan(&g.ID, &g.GranteeID, &g.GranteeName, &g.GranteeEmail, &perm, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		g.Permission = models.Permission(perm)
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
