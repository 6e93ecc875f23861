package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/dbx"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
	"github.com/dmitrijs2005/gophshare/internal/server/repositories/files"
	"github.com/dmitrijs2005/gophshare/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophshare/internal/server/repositories/sharelinks"
	"github.com/dmitrijs2005/gophshare/internal/server/repositories/shares"
	"github.com/dmitrijs2005/gophshare/internal/server/repositories/users"
	"github.com/google/uuid"
)

// memRepos is an in-memory RepositoryManager. Every repository it vends
// shares the same state regardless of the DBTX passed in.
type memRepos struct {
	mu       sync.Mutex
	users    map[string]*models.User
	tokens   map[string]*models.RefreshToken
	files    map[string]*models.File
	grants   map[string]*models.ShareGrant
	links    map[string]*models.ShareLink
	failWith error
}

func newMemRepos() *memRepos {
	return &memRepos{
		users:  map[string]*models.User{},
		tokens: map[string]*models.RefreshToken{},
		files:  map[string]*models.File{},
		grants: map[string]*models.ShareGrant{},
		links:  map[string]*models.ShareLink{},
	}
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func (m *memRepos) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *memRepos) Users(dbx.DBTX) users.Repository                 { return memUsers{m} }
func (m *memRepos) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return memTokens{m} }
func (m *memRepos) Files(dbx.DBTX) files.Repository                 { return memFiles{m} }
func (m *memRepos) Shares(dbx.DBTX) shares.Repository               { return memShares{m} }
func (m *memRepos) ShareLinks(dbx.DBTX) sharelinks.Repository       { return memLinks{m} }
func grantKey(fileID, granteeID string) string                      { return fileID + "/" + granteeID }
func (m *memRepos) addUser(u *models.User) *models.User             { m.users[u.ID] = u; return u }
func (m *memRepos) addFile(f *models.File) *models.File             { m.files[f.ID] = f; return f }

type memUsers struct{ m *memRepos }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	for _, e := range r.m.users {
		if e.UserName == u.UserName || e.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *u
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	r.m.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r memUsers) find(match func(*models.User) bool) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	for _, u := range r.m.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.UserName == login })
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r memUsers) SetPendingMFASecret(_ context.Context, userID, secret string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.MFAPendingSecret = secret
	return nil
}

func (r memUsers) EnableMFA(_ context.Context, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok || u.MFAPendingSecret == "" {
		return common.ErrorNotFound
	}
	u.MFASecret, u.MFAPendingSecret, u.MFAEnabled = u.MFAPendingSecret, "", true
	return nil
}

type memTokens struct{ m *memRepos }

func (r memTokens) Create(_ context.Context, userID, hash string, expiresAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return r.m.failWith
	}
	r.m.tokens[hash] = &models.RefreshToken{UserID: userID, TokenHash: hash, Expires: expiresAt}
	return nil
}

func (r memTokens) Find(_ context.Context, hash string) (*models.RefreshToken, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tokens[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (r memTokens) Delete(_ context.Context, hash string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.tokens, hash)
	return nil
}

func (r memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for k, t := range r.m.tokens {
		if t.Expires.Before(now) {
			delete(r.m.tokens, k)
			n++
		}
	}
	return n, nil
}

type memFiles struct{ m *memRepos }

func (r memFiles) Create(_ context.Context, f *models.File) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return r.m.failWith
	}
	c := *f
	c.CreatedAt = time.Now()
	r.m.files[c.ID] = &c
	return nil
}

func (r memFiles) GetByID(_ context.Context, id string) (*models.File, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	f, ok := r.m.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *f
	return &c, nil
}

func (r memFiles) list(include func(*models.File) (bool, models.Permission)) []*models.FileAccess {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*models.FileAccess{}
	for _, f := range r.m.files {
		if ok, perm := include(f); ok {
			c := *f
			out = append(out, &models.FileAccess{File: &c, Permission: perm})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File.FileName < out[j].File.FileName })
	return out
}

func (r memFiles) grantFor(fileID, userID string) (models.Permission, bool) {
	g, ok := r.m.grants[grantKey(fileID, userID)]
	if !ok {
		return "", false
	}
	return g.Permission, true
}

func (r memFiles) ListAll(context.Context) ([]*models.FileAccess, error) {
	return r.list(func(*models.File) (bool, models.Permission) { return true, "" }), nil
}

func (r memFiles) ListOwnedOrShared(_ context.Context, userID string) ([]*models.FileAccess, error) {
	return r.list(func(f *models.File) (bool, models.Permission) {
		if f.OwnerID == userID {
			return true, ""
		}
		p, ok := r.grantFor(f.ID, userID)
		return ok, p
	}), nil
}

func (r memFiles) ListSharedWith(_ context.Context, userID string) ([]*models.FileAccess, error) {
	return r.list(func(f *models.File) (bool, models.Permission) {
		p, ok := r.grantFor(f.ID, userID)
		return ok, p
	}), nil
}

func (r memFiles) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.files[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.m.files, id)
	for k, g := range r.m.grants {
		if g.FileID == id {
			delete(r.m.grants, k)
		}
	}
	for k, l := range r.m.links {
		if l.FileID == id {
			delete(r.m.links, k)
		}
	}
	return nil
}

type memShares struct{ m *memRepos }

func (r memShares) Upsert(_ context.Context, g *models.ShareGrant) (*models.ShareGrant, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	k := grantKey(g.FileID, g.GranteeID)
	if e, ok := r.m.grants[k]; ok {
		e.Permission = g.Permission
		c := *e
		return &c, nil
	}
	c := *g
	c.ID = uuid.NewString()
	r.m.grants[k] = &c
	out := c
	return &out, nil
}

func (r memShares) Find(_ context.Context, fileID, granteeID string) (*models.ShareGrant, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	g, ok := r.m.grants[grantKey(fileID, granteeID)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *g
	return &c, nil
}

func (r memShares) ListByFile(_ context.Context, fileID string) ([]*models.ShareGrant, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*models.ShareGrant{}
	for _, g := range r.m.grants {
		if g.FileID == fileID {
			c := *g
			if u, ok := r.m.users[g.GranteeID]; ok {
				c.GranteeName, c.GranteeEmail = u.UserName, u.Email
			}
			out = append(out, &c)
		}
	}
	return out, nil
}

type memLinks struct{ m *memRepos }

func (r memLinks) Create(_ context.Context, l *models.ShareLink) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *l
	r.m.links[c.Token] = &c
	return nil
}

func (r memLinks) Find(_ context.Context, token string) (*models.ShareLink, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	l, ok := r.m.links[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *l
	return &c, nil
}

func (r memLinks) Delete(_ context.Context, token string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.links[token]; !ok {
		return common.ErrorNotFound
	}
	delete(r.m.links, token)
	return nil
}

func (r memLinks) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for k, l := range r.m.links {
		if l.ExpiresAt.Before(now) {
			delete(r.m.links, k)
			n++
		}
	}
	return n, nil
}
