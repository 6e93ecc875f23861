package httpapi

import (
	"context"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
	"github.com/dmitrijs2005/gophshare/internal/server/services"
)

var (
	alice = &models.Principal{UserID: "u-alice", UserName: "alice", Email: "alice@example.com", Role: models.RoleRegular}
	admin = &models.Principal{UserID: "u-root", UserName: "root", Email: "root@example.com", Role: models.RoleAdmin}
)

type fakeUsers struct {
	tokens map[string]*models.Principal

	LastRegister []string
	LastLogin    []string
	LastRefresh  string
	LastLogout   string
	LastCode     string

	registerErr error
	loginResult *services.LoginResult
	loginErr    error
	verifyErr   error
	refreshErr  error
	enrollErr   error
	confirmErr  error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{tokens: map[string]*models.Principal{"alice-token": alice, "admin-token": admin}}
}

func (f *fakeUsers) Register(_ context.Context, username, email, password, role string) (*models.User, *services.TokenPair, error) {
	f.LastRegister = []string{username, email, password, role}
	if f.registerErr != nil {
		return nil, nil, f.registerErr
	}
	r, _ := models.ParseRole(role)
	return &models.User{ID: "u-new", UserName: username, Email: email, Role: r}, &services.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeUsers) Login(_ context.Context, userName, password string) (*services.LoginResult, error) {
	f.LastLogin = []string{userName, password}
	return f.loginResult, f.loginErr
}

func (f *fakeUsers) VerifyLoginMFA(_ context.Context, userName, mfaToken, code string) (*services.LoginResult, error) {
	f.LastCode = code
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &services.LoginResult{
		User:   &models.User{ID: "u-alice", UserName: userName, MFAEnabled: true},
		Tokens: &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"},
	}, nil
}

func (f *fakeUsers) RefreshToken(_ context.Context, refresh string) (string, error) {
	f.LastRefresh = refresh
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return "fresh-access", nil
}

func (f *fakeUsers) Logout(_ context.Context, refresh string) error {
	f.LastLogout = refresh
	return nil
}

func (f *fakeUsers) BeginMFAEnrollment(context.Context, *models.Principal) (*services.MFAEnrollment, error) {
	if f.enrollErr != nil {
		return nil, f.enrollErr
	}
	return &services.MFAEnrollment{Secret: "SECRET", ProvisioningURI: "otpauth://totp/x", QRCode: "data:image/png;base64,AA=="}, nil
}

func (f *fakeUsers) ConfirmMFAEnrollment(_ context.Context, _ *models.Principal, code string) error {
	f.LastCode = code
	return f.confirmErr
}

func (f *fakeUsers) Authenticate(token string) (*models.Principal, error) {
	switch token {
	case "expired":
		return nil, common.ErrTokenExpired
	}
	p, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrInvalidToken
	}
	return p, nil
}

type fakeFiles struct {
	LastUpload    services.UploadInput
	LastCaller    *models.Principal
	LastLinkToken string

	payload *models.FilePayload
	list    []*models.FileAccess
	err     error
}

func (f *fakeFiles) Upload(_ context.Context, c *models.Principal, in services.UploadInput) (*models.File, error) {
	f.LastCaller = c
	f.LastUpload = in
	f.LastUpload.ContentKey = append([]byte(nil), in.ContentKey...)
	if f.err != nil {
		return nil, f.err
	}
	return &models.File{ID: "f1", OwnerID: c.UserID, OwnerName: c.UserName, FileName: in.FileName, ContentType: in.ContentType, Size: in.Size}, nil
}

func (f *fakeFiles) List(_ context.Context, c *models.Principal) ([]*models.FileAccess, error) {
	f.LastCaller = c
	return f.list, f.err
}

func (f *fakeFiles) fetch(c *models.Principal, token string) (*models.FilePayload, error) {
	f.LastCaller = c
	f.LastLinkToken = token
	if f.err != nil {
		return nil, f.err
	}
	p := *f.payload
	p.ContentKey = append([]byte(nil), f.payload.ContentKey...)
	return &p, nil
}

func (f *fakeFiles) Download(_ context.Context, c *models.Principal, _, token string) (*models.FilePayload, error) {
	return f.fetch(c, token)
}

func (f *fakeFiles) Preview(_ context.Context, c *models.Principal, _, token string) (*models.FilePayload, error) {
	return f.fetch(c, token)
}

func (f *fakeFiles) Delete(_ context.Context, c *models.Principal, _ string) error {
	f.LastCaller = c
	return f.err
}

type fakeShares struct {
	LastEmail string
	LastPerm  models.Permission
	LastHours int
	LastToken string

	err error
}

func (f *fakeShares) GrantShare(_ context.Context, _ *models.Principal, fileID, email string, perm models.Permission) (*models.ShareGrant, error) {
	f.LastEmail, f.LastPerm = email, perm
	if f.err != nil {
		return nil, f.err
	}
	return &models.ShareGrant{ID: "g1", FileID: fileID, GranteeID: "u-bob", GranteeEmail: email, Permission: perm}, nil
}

func (f *fakeShares) ListShares(_ context.Context, _ *models.Principal, fileID string) ([]*models.ShareGrant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*models.ShareGrant{}, nil
}

func (f *fakeShares) CreateShareLink(_ context.Context, _ *models.Principal, fileID string, hours int, perm models.Permission) (*models.ShareLink, error) {
	f.LastHours, f.LastPerm = hours, perm
	if f.err != nil {
		return nil, f.err
	}
	return &models.ShareLink{Token: "tok", FileID: fileID, Permission: perm}, nil
}

func (f *fakeShares) ResolveShareLink(_ context.Context, c *models.Principal, token string) (*models.ResolvedLink, error) {
	f.LastToken = token
	if f.err != nil {
		return nil, f.err
	}
	return &models.ResolvedLink{
		File:       &models.File{ID: "f1", FileName: "report.pdf", ContentType: "application/pdf"},
		Permission: models.PermissionView,
		SharedWith: &models.User{ID: c.UserID, UserName: c.UserName},
	}, nil
}

func (f *fakeShares) RevokeShareLink(_ context.Context, _ *models.Principal, token string) error {
	f.LastToken = token
	return f.err
}
