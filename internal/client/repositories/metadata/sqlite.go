// Package metadata persists the CLI's local state in SQLite: a small
// key/value table holding the refresh credential between runs.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophshare/internal/dbx"
)

const (
	keyRefreshToken = "refresh_token"
	keyUserName     = "username"
	keyServerURL    = "server_url"
)

// Credential is the part of a session that survives a restart. The access
// credential is never stored.
type Credential struct {
	ServerURL    string
	UserName     string
	RefreshToken string
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns (nil, nil) when key is absent.
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, r.db, key)
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	return set(ctx, r.db, key, value)
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	return del(ctx, r.db, key)
}

// SaveCredential replaces the stored credential atomically.
func (r *SQLiteRepository) SaveCredential(ctx context.Context, c Credential) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for k, v := range map[string]string{
			keyServerURL:    c.ServerURL,
			keyUserName:     c.UserName,
			keyRefreshToken: c.RefreshToken,
		} {
			if err := set(ctx, tx, k, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadCredential returns the stored credential, or nil when none is stored.
func (r *SQLiteRepository) LoadCredential(ctx context.Context) (*Credential, error) {
	var c Credential
	for k, dst := range map[string]*string{
		keyServerURL:    &c.ServerURL,
		keyUserName:     &c.UserName,
		keyRefreshToken: &c.RefreshToken,
	} {
		v, err := get(ctx, r.db, k)
		if err != nil {
			return nil, err
		}
		*dst = string(v)
	}
	if c.RefreshToken == "" {
		return nil, nil
	}
	return &c, nil
}

// ClearCredential removes every credential key. Clearing an empty store is
// not an error.
func (r *SQLiteRepository) ClearCredential(ctx context.Context) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, k := range []string{keyServerURL, keyUserName, keyRefreshToken} {
			if err := del(ctx, tx, k); err != nil {
				return err
			}
		}
		return nil
	})
}

func get(ctx context.Context, q dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func set(ctx context.Context, q dbx.DBTX, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func del(ctx context.Context, q dbx.DBTX, key string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}
