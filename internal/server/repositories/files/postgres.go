package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/dbx"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
)

const fileColumns = `f.id, f.owner_id, u.username, f.file_name, f.content_type, f.size, f.storage_key, f.content_key, f.nonce, f.created_at`

// PostgresRepository implements file metadata storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, owner_id, file_name, content_type, size, storage_key, content_key, nonce)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.OwnerID, file.FileName, file.ContentType, file.Size, file.StorageKey, file.ContentKey, file.Nonce,
	).Scan(&file.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + `
		FROM files f JOIN users u ON u.id = f.owner_id
		WHERE f.id = $1
	`
	f := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&f.ID, &f.OwnerID, &f.OwnerName, &f.FileName, &f.ContentType, &f.Size,
		&f.StorageKey, &f.ContentKey, &f.Nonce, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.FileAccess, error) {
	query := `SELECT ` + fileColumns + `, ''
		FROM files f JOIN users u ON u.id = f.owner_id
		ORDER BY f.created_at DESC
	`
	return r.list(ctx, query)
}

func (r *PostgresRepository) ListOwnedOrShared(ctx context.Context, userID string) ([]*models.FileAccess, error) {
	query := `SELECT ` + fileColumns + `, COALESCE(g.permission, '')
		FROM files f
		JOIN users u ON u.id = f.owner_id
		LEFT JOIN share_grants g ON g.file_id = f.id AND g.grantee_id = $1
		WHERE f.owner_id = $1 OR g.grantee_id = $1
		ORDER BY f.created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) ListSharedWith(ctx context.Context, userID string) ([]*models.FileAccess, error) {
	query := `SELECT ` + fileColumns + `, g.permission
		FROM files f
		JOIN users u ON u.id = f.owner_id
		JOIN share_grants g ON g.file_id = f.id
		WHERE g.grantee_id = $1
		ORDER BY f.created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.FileAccess, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.FileAccess
	for rows.Next() {
		f := &models.File{}
		var perm string
		if err := rows.Scan(
			&f.ID, &f.OwnerID, &f.OwnerName, &f.FileName, &f.ContentType, &f.Size,
			&f.StorageKey, &f.ContentKey, &f.Nonce, &f.CreatedAt, &perm); err != nil {
			return nil, err
		}
		result = append(result, &models.FileAccess{File: f, Permission: models.Permission(perm)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
