// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login with optional TOTP second
// factor, access-token refresh, logout and MFA enrollment.
package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image/png"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/cryptox"
	"github.com/dmitrijs2005/gophshare/internal/dbx"
	"github.com/dmitrijs2005/gophshare/internal/server/auth"
	"github.com/dmitrijs2005/gophshare/internal/server/config"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
	"github.com/dmitrijs2005/gophshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophshare/internal/timex"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	minPasswordLength  = 8
	mfaChallengeTTL    = 5 * time.Minute
	refreshTokenLength = 32
	qrCodeSize         = 200
)

// dummyPasswordHash is verified against when the user does not exist so a
// miss costs the same as a wrong password.
var dummyPasswordHash, _ = cryptox.HashPassword("not-a-real-password")

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is either a full session (Tokens set) or an MFA challenge
// (MFARequired with MFAToken set).
type LoginResult struct {
	User        *models.User
	Tokens      *TokenPair
	MFARequired bool
	MFAToken    string
}

// MFAEnrollment is what an authenticator app needs to add the account.
type MFAEnrollment struct {
	Secret          string
	ProvisioningURI string
	// QRCode is a PNG data URL of ProvisioningURI.
	QRCode string
}

// UserService provides authentication-related operations.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	mfaIssuer                    string
	clock                        timex.Clock
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		mfaIssuer:                    cfg.MFAIssuer,
		clock:                        timex.RealClock{},
	}
}

// Register creates a user with a fixed role and returns a fresh session.
func (s *UserService) Register(ctx context.Context, username, email, password, role string) (*models.User, *TokenPair, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, nil, fmt.Errorf("%w: username is required", common.ErrorValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	if len(password) < minPasswordLength {
		return nil, nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, minPasswordLength)
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	var (
		user *models.User
		pair *TokenPair
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			UserName:     username,
			Email:        email,
			Role:         r,
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		user = u
		pair, err = s.generateTokenPair(ctx, u, tx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login verifies credentials. Users with MFA enabled get an MFA challenge
// instead of tokens. Unknown users and wrong passwords both yield
// common.ErrAuth.
func (s *UserService) Login(ctx context.Context, userName, password string) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = cryptox.VerifyPassword(password, dummyPasswordHash)
			return nil, common.ErrAuth
		}
		return nil, common.ErrorInternal
	}

	ok, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.ErrAuth
	}

	if user.MFAEnabled {
		challenge, err := auth.GenerateMFAChallenge(user.ID, s.jwtSecret, mfaChallengeTTL)
		if err != nil {
			return nil, common.ErrorInternal
		}
		return &LoginResult{User: user, MFARequired: true, MFAToken: challenge}, nil
	}

	pair, err := s.generateTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: pair}, nil
}

// VerifyLoginMFA completes a login that returned an MFA challenge. A wrong
// code yields common.ErrMFA and the challenge stays usable until it expires.
func (s *UserService) VerifyLoginMFA(ctx context.Context, userName, mfaToken, code string) (*LoginResult, error) {
	userID, err := auth.ParseMFAChallenge(mfaToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAuth
		}
		return nil, common.ErrorInternal
	}
	if userName != "" && user.UserName != userName {
		return nil, common.ErrAuth
	}
	if !user.MFAEnabled || user.MFASecret == "" {
		return nil, common.ErrAuth
	}
	if !s.validateCode(code, user.MFASecret) {
		return nil, common.ErrMFA
	}

	pair, err := s.generateTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: pair}, nil
}

// RefreshToken exchanges a refresh token for a new access token. The refresh
// token itself stays valid until it expires or the user logs out. Expired
// tokens are removed and yield common.ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	repo := s.repomanager.RefreshTokens(s.db)
	hash := hashToken(refreshToken)

	token, err := repo.Find(ctx, hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidToken
		}
		return "", fmt.Errorf("error searching refresh token: %w", err)
	}
	if !token.Expires.After(s.clock.Now()) {
		_ = repo.Delete(ctx, hash)
		return "", common.ErrRefreshTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidToken
		}
		return "", fmt.Errorf("error loading user: %w", err)
	}

	access, err := s.generateAccessToken(user)
	if err != nil {
		return "", common.ErrorInternal
	}
	return access, nil
}

// Logout invalidates the refresh token. Unknown tokens are ignored.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// BeginMFAEnrollment issues a new pending TOTP secret. Any earlier pending
// secret is replaced.
func (s *UserService) BeginMFAEnrollment(ctx context.Context, caller *models.Principal) (*MFAEnrollment, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if user.MFAEnabled {
		return nil, common.ErrMFAEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.mfaIssuer,
		AccountName: user.UserName,
	})
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := repo.SetPendingMFASecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, fmt.Errorf("error storing mfa secret: %w", err)
	}

	qr, err := qrDataURL(key)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &MFAEnrollment{Secret: key.Secret(), ProvisioningURI: key.URL(), QRCode: qr}, nil
}

// ConfirmMFAEnrollment enables MFA once the user proves possession of the
// pending secret. A wrong code leaves MFA disabled and yields common.ErrMFA.
func (s *UserService) ConfirmMFAEnrollment(ctx context.Context, caller *models.Principal, code string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, caller.UserID)
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}
	if user.MFAEnabled {
		return common.ErrMFAEnabled
	}
	if user.MFAPendingSecret == "" {
		return common.ErrInvalidState
	}
	if !s.validateCode(code, user.MFAPendingSecret) {
		return common.ErrMFA
	}

	if err := repo.EnableMFA(ctx, user.ID); err != nil {
		return fmt.Errorf("error enabling mfa: %w", err)
	}
	return nil
}

// PurgeExpiredTokens removes refresh tokens past their expiry.
func (s *UserService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.clock.Now())
}

// Authenticate validates an access token and returns the caller.
func (s *UserService) Authenticate(accessToken string) (*models.Principal, error) {
	return auth.ParseToken(accessToken, s.jwtSecret)
}

// --- helpers below ---

func (s *UserService) validateCode(code, secret string) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, s.clock.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (s *UserService) generateAccessToken(user *models.User) (string, error) {
	return auth.GenerateToken(user.Principal(), s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(refreshTokenLength)
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	expires := s.clock.Now().Add(s.refreshTokenValidityDuration)
	if err := refreshRepo.Create(ctx, user.ID, hashToken(refresh), expires); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func qrDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
