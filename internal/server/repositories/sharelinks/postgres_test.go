package sharelinks

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	exp := time.Now().Add(24 * time.Hour)
	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+share_links\s*\(token,\s*file_id,\s*created_by,\s*permission,\s*expires_at\).*RETURNING\s+created_at$`).
		WithArgs("tok", "f1", "u1", "view", exp).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	l := &models.ShareLink{Token: "tok", FileID: "f1", CreatedBy: "u1", Permission: models.PermissionView, ExpiresAt: exp}
	if err := repo.Create(context.Background(), l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.CreatedAt.Equal(now) {
		t.Fatalf("created_at not populated")
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+share_links`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.ShareLink{Token: "tok"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFind(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+file_id,\s*created_by,\s*permission,\s*expires_at,\s*created_at\s+FROM\s+share_links\s+WHERE\s+token\s*=\s*\$1$`
	exp := time.Now()
	mock.ExpectQuery(q).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"file_id", "created_by", "permission", "expires_at", "created_at"}).
			AddRow("f1", "u1", "download", exp, exp))
	mock.ExpectQuery(q).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Find(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FileID != "f1" || got.Permission != models.PermissionDownload || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected link: %+v", got)
	}

	if _, err := repo.Find(context.Background(), "missing"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^DELETE\s+FROM\s+share_links\s+WHERE\s+token\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs("tok").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "tok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(context.Background(), "gone"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`^DELETE\s+FROM\s+share_links\s+WHERE\s+expires_at\s*<\s*\$1$`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteExpired(context.Background(), now)
	if err != nil || n != 2 {
		t.Fatalf("DeleteExpired = %d, %v", n, err)
	}
}
