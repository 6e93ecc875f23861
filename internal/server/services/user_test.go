package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophshare/internal/apierr"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/cryptox"
	"github.com/dmitrijs2005/gophshare/internal/server/auth"
	"github.com/dmitrijs2005/gophshare/internal/server/config"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
	"github.com/dmitrijs2005/gophshare/internal/timex"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newUserService(t *testing.T) (*UserService, *memRepos, sqlmock.Sqlmock, *timex.StubClock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	repos := newMemRepos()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		MFAIssuer:                    "GophShare",
	}
	svc := NewUserService(db, repos, cfg)
	clk := timex.NewStubClock(testNow)
	svc.clock = clk
	return svc, repos, mock, clk
}

func seedUser(t *testing.T, repos *memRepos, name, password string, role models.Role) *models.User {
	t.Helper()
	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)
	return repos.addUser(&models.User{
		ID:           "id-" + name,
		UserName:     name,
		Email:        name + "@example.com",
		Role:         role,
		PasswordHash: hash,
	})
}

func TestRegister_Success(t *testing.T) {
	svc, repos, mock, _ := newUserService(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	u, pair, err := svc.Register(context.Background(), "alice", "alice@example.com", "password1", "guest")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, models.RoleGuest, u.Role)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Len(t, pair.RefreshToken, 2*refreshTokenLength)
	assert.Contains(t, repos.tokens, hashToken(pair.RefreshToken))

	p, err := svc.Authenticate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.Equal(t, models.RoleGuest, p.Role)
}

func TestRegister_DefaultRoleIsRegular(t *testing.T) {
	svc, _, mock, _ := newUserService(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	u, _, err := svc.Register(context.Background(), "bob", "bob@example.com", "password1", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleRegular, u.Role)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _, _ := newUserService(t)

	cases := []struct {
		name, user, email, pass, role string
	}{
		{"empty username", "", "a@b.c", "password1", ""},
		{"bad email", "a", "nope", "password1", ""},
		{"short password", "a", "a@b.c", "short", ""},
		{"unknown role", "a", "a@b.c", "password1", "root"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Register(context.Background(), tc.user, tc.email, tc.pass, tc.role)
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestRegister_DuplicateRollsBack(t *testing.T) {
	svc, repos, mock, _ := newUserService(t)
	seedUser(t, repos, "alice", "password1", models.RoleRegular)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, _, err := svc.Register(context.Background(), "alice", "other@example.com", "password1", "")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_Flows(t *testing.T) {
	svc, repos, _, _ := newUserService(t)
	seedUser(t, repos, "alice", "password1", models.RoleRegular)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.False(t, res.MFARequired)
	require.NotNil(t, res.Tokens)

	_, err = svc.Login(ctx, "alice", "wrong-pass")
	assert.ErrorIs(t, err, common.ErrAuth)

	_, err = svc.Login(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, common.ErrAuth)

	repos.failWith = errors.New("db down")
	_, err = svc.Login(ctx, "alice", "password1")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func enrollMFA(t *testing.T, svc *UserService, clk *timex.StubClock, u *models.User) string {
	t.Helper()
	ctx := context.Background()

	enr, err := svc.BeginMFAEnrollment(ctx, u.Principal())
	require.NoError(t, err)
	require.NotEmpty(t, enr.Secret)
	assert.Contains(t, enr.ProvisioningURI, "otpauth://totp/")
	assert.Contains(t, enr.QRCode, "data:image/png;base64,")

	code, err := totp.GenerateCode(enr.Secret, clk.Now())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmMFAEnrollment(ctx, u.Principal(), code))
	return enr.Secret
}

func TestMFA_LoginRequiresSecondFactor(t *testing.T) {
	svc, repos, _, clk := newUserService(t)
	u := seedUser(t, repos, "carol", "password1", models.RoleRegular)
	secret := enrollMFA(t, svc, clk, u)
	ctx := context.Background()

	res, err := svc.Login(ctx, "carol", "password1")
	require.NoError(t, err)
	require.True(t, res.MFARequired)
	assert.Nil(t, res.Tokens)
	require.NotEmpty(t, res.MFAToken)

	_, err = svc.VerifyLoginMFA(ctx, "carol", res.MFAToken, "000000")
	assert.ErrorIs(t, err, common.ErrMFA)

	code, err := totp.GenerateCode(secret, clk.Now())
	require.NoError(t, err)

	_, err = svc.VerifyLoginMFA(ctx, "mallory", res.MFAToken, code)
	assert.ErrorIs(t, err, common.ErrAuth)

	_, err = svc.VerifyLoginMFA(ctx, "carol", "garbage", code)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	done, err := svc.VerifyLoginMFA(ctx, "carol", res.MFAToken, code)
	require.NoError(t, err)
	require.NotNil(t, done.Tokens)

	p, err := svc.Authenticate(done.Tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, p.MFAEnabled)
}

func TestMFA_AccessTokenIsNotAChallenge(t *testing.T) {
	svc, repos, _, clk := newUserService(t)
	u := seedUser(t, repos, "dave", "password1", models.RoleRegular)
	secret := enrollMFA(t, svc, clk, u)

	access, err := auth.GenerateToken(u.Principal(), svc.jwtSecret, time.Hour)
	require.NoError(t, err)
	code, _ := totp.GenerateCode(secret, clk.Now())

	_, err = svc.VerifyLoginMFA(context.Background(), "dave", access, code)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestMFA_ExpiredChallenge(t *testing.T) {
	svc, repos, _, clk := newUserService(t)
	u := seedUser(t, repos, "frank", "password1", models.RoleRegular)
	secret := enrollMFA(t, svc, clk, u)

	challenge, err := auth.GenerateMFAChallenge(u.ID, svc.jwtSecret, -time.Minute)
	require.NoError(t, err)
	code, err := totp.GenerateCode(secret, clk.Now())
	require.NoError(t, err)

	_, err = svc.VerifyLoginMFA(context.Background(), "frank", challenge, code)
	require.ErrorIs(t, err, common.ErrTokenExpired)
	assert.NotErrorIs(t, err, common.ErrAuth)

	status, _ := apierr.Classify(err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMFA_EnrollmentStates(t *testing.T) {
	svc, repos, _, clk := newUserService(t)
	u := seedUser(t, repos, "erin", "password1", models.RoleRegular)
	ctx := context.Background()

	err := svc.ConfirmMFAEnrollment(ctx, u.Principal(), "123456")
	assert.ErrorIs(t, err, common.ErrInvalidState)

	_, err = svc.BeginMFAEnrollment(ctx, u.Principal())
	require.NoError(t, err)
	err = svc.ConfirmMFAEnrollment(ctx, u.Principal(), "not-a-code")
	assert.ErrorIs(t, err, common.ErrMFA)
	assert.False(t, repos.users[u.ID].MFAEnabled)

	enrollMFA(t, svc, clk, u)
	assert.True(t, repos.users[u.ID].MFAEnabled)
	assert.Empty(t, repos.users[u.ID].MFAPendingSecret)

	_, err = svc.BeginMFAEnrollment(ctx, u.Principal())
	assert.ErrorIs(t, err, common.ErrMFAEnabled)
}

func TestMFA_CodeWindow(t *testing.T) {
	svc, repos, _, clk := newUserService(t)
	u := seedUser(t, repos, "frank", "password1", models.RoleRegular)
	secret := enrollMFA(t, svc, clk, u)

	code, err := totp.GenerateCode(secret, clk.Now())
	require.NoError(t, err)

	clk.Advance(30 * time.Second)
	assert.True(t, svc.validateCode(code, secret), "one step of skew is accepted")

	clk.Advance(60 * time.Second)
	assert.False(t, svc.validateCode(code, secret))
}

func TestRefreshToken_Flows(t *testing.T) {
	svc, repos, _, clk := newUserService(t)
	seedUser(t, repos, "gina", "password1", models.RoleAdmin)
	ctx := context.Background()

	res, err := svc.Login(ctx, "gina", "password1")
	require.NoError(t, err)

	access, err := svc.RefreshToken(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	p, err := svc.Authenticate(access)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, p.Role)

	_, err = svc.RefreshToken(ctx, "unknown")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	clk.Advance(3 * time.Hour)
	_, err = svc.RefreshToken(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
	assert.NotContains(t, repos.tokens, hashToken(res.Tokens.RefreshToken))
}

func TestLogout_InvalidatesRefreshToken(t *testing.T) {
	svc, repos, _, _ := newUserService(t)
	seedUser(t, repos, "hank", "password1", models.RoleRegular)
	ctx := context.Background()

	res, err := svc.Login(ctx, "hank", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Tokens.RefreshToken))
	_, err = svc.RefreshToken(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	require.NoError(t, svc.Logout(ctx, res.Tokens.RefreshToken))
}

func TestPurgeExpiredTokens(t *testing.T) {
	svc, repos, _, clk := newUserService(t)
	seedUser(t, repos, "ivy", "password1", models.RoleRegular)
	ctx := context.Background()

	_, err := svc.Login(ctx, "ivy", "password1")
	require.NoError(t, err)
	clk.Advance(time.Hour)
	_, err = svc.Login(ctx, "ivy", "password1")
	require.NoError(t, err)

	clk.Advance(90 * time.Minute)
	n, err := svc.PurgeExpiredTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Len(t, repos.tokens, 1)
}
