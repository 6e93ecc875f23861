package client

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophshare/internal/client/migrations"
	"github.com/dmitrijs2005/gophshare/internal/filex"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// RunMigrations applies the embedded goose migrations to the local state
// database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the SQLite state file at path and
// brings its schema up to date. The file holds the refresh credential, so it
// is restricted to the current user. URI and in-memory DSNs are passed to
// the driver untouched.
func InitDatabase(ctx context.Context, path string) (*sql.DB, error) {
	plainFile := !strings.HasPrefix(path, "file:") && path != ":memory:"
	if plainFile {
		if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if plainFile {
		if err := os.Chmod(path, 0o600); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("restrict %s: %w", path, err)
		}
	}

	return db, nil
}
