// Package session holds the CLI's authentication state machine and the
// credential pair it produces.
//
// States:
//
//	Anonymous ──login──▶ Authenticated
//	Anonymous ──login (MFA on)──▶ MFAPending ──code──▶ Authenticated
//	MFAPending ──wrong code──▶ MFAPending
//	MFAPending ──cancel / challenge expired──▶ Anonymous
//	Authenticated ──refresh ok──▶ Authenticated
//	Authenticated ──refresh failed / logout──▶ Anonymous
//
// A Manager is created once per process and injected wherever the caller's
// identity or credentials are needed. It implements client.TokenSource.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/client/client"
	"github.com/dmitrijs2005/gophshare/internal/client/models"
	"github.com/dmitrijs2005/gophshare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/logging"
)

type State int

const (
	StateAnonymous State = iota
	StateMFAPending
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateMFAPending:
		return "mfa-pending"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// API is the subset of the server API the session drives.
type API interface {
	Register(ctx context.Context, userName, email, password string, role models.Role) (*client.LoginResult, error)
	Login(ctx context.Context, userName, password string) (*client.LoginResult, error)
	VerifyLogin(ctx context.Context, userName, mfaToken, code string) (*client.LoginResult, error)
	Refresh(ctx context.Context, refresh string) (string, error)
	Logout(ctx context.Context, refresh string) error
	BeginMFA(ctx context.Context) (*models.Enrollment, error)
	ConfirmMFA(ctx context.Context, code string) error
}

// Store persists the refresh credential between runs.
type Store interface {
	LoadCredential(ctx context.Context) (*metadata.Credential, error)
	SaveCredential(ctx context.Context, c metadata.Credential) error
	ClearCredential(ctx context.Context) error
}

type Manager struct {
	api       API
	store     Store
	serverURL string
	logger    logging.Logger

	mu        sync.RWMutex
	state     State
	access    string
	refresh   string
	identity  models.Identity
	pending   pendingLogin
	enrolling bool
	listeners []func()
}

type pendingLogin struct {
	userName string
	mfaToken string
}

func NewManager(api API, store Store, serverURL string, logger logging.Logger) *Manager {
	return &Manager{
		api:       api,
		store:     store,
		serverURL: serverURL,
		logger:    logger.With("module", "session"),
	}
}

// Init restores a session from the stored refresh credential. Without one,
// or when it belongs to another server, the session stays Anonymous. A
// rejected credential is forgotten; an unreachable server is reported and
// the credential kept for the next run.
func (m *Manager) Init(ctx context.Context) error {
	c, err := m.store.LoadCredential(ctx)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if c == nil {
		return nil
	}
	if c.ServerURL != m.serverURL {
		m.logger.Info(ctx, "stored credential belongs to another server, discarding", "server", c.ServerURL)
		return m.store.ClearCredential(ctx)
	}

	access, err := m.api.Refresh(ctx, c.RefreshToken)
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			return err
		}
		m.logger.Info(ctx, "stored credential rejected", "username", c.UserName, "error", err)
		if cerr := m.store.ClearCredential(ctx); cerr != nil {
			m.logger.Warn(ctx, "failed to clear stored credential", "error", cerr)
		}
		return nil
	}

	m.mu.Lock()
	m.enter(access, c.RefreshToken, &models.User{UserName: c.UserName})
	m.mu.Unlock()
	m.logger.Debug(ctx, "session restored", "username", c.UserName)
	return nil
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, userName, email, password string, role models.Role) error {
	if m.State() != StateAnonymous {
		return common.ErrInvalidState
	}
	res, err := m.api.Register(ctx, userName, email, password, role)
	if err != nil {
		return err
	}
	return m.complete(ctx, res)
}

// Login submits credentials. The returned state is Authenticated, or
// MFAPending when the account requires a second factor.
func (m *Manager) Login(ctx context.Context, userName, password string) (State, error) {
	if m.State() == StateAuthenticated {
		return StateAuthenticated, common.ErrInvalidState
	}

	res, err := m.api.Login(ctx, userName, password)
	if err != nil {
		m.CancelMFA()
		return StateAnonymous, err
	}

	if res.MFARequired {
		m.mu.Lock()
		m.state = StateMFAPending
		m.pending = pendingLogin{userName: res.UserName, mfaToken: res.MFAToken}
		if m.pending.userName == "" {
			m.pending.userName = userName
		}
		m.mu.Unlock()
		return StateMFAPending, nil
	}

	if err := m.complete(ctx, res); err != nil {
		return StateAnonymous, err
	}
	return StateAuthenticated, nil
}

// VerifyMFA answers the pending challenge. A wrong code keeps the challenge
// open; an expired challenge drops back to Anonymous.
func (m *Manager) VerifyMFA(ctx context.Context, code string) error {
	m.mu.RLock()
	state, pending := m.state, m.pending
	m.mu.RUnlock()
	if state != StateMFAPending {
		return common.ErrInvalidState
	}

	res, err := m.api.VerifyLogin(ctx, pending.userName, pending.mfaToken, code)
	switch {
	case err == nil:
		return m.complete(ctx, res)
	case errors.Is(err, common.ErrTokenExpired), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorUnauthorized):
		m.CancelMFA()
		return fmt.Errorf("%w: %w", common.ErrSessionExpired, err)
	default:
		return err
	}
}

// CancelMFA abandons a pending challenge.
func (m *Manager) CancelMFA() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateMFAPending {
		m.state = StateAnonymous
	}
	m.pending = pendingLogin{}
}

// Logout invalidates the refresh credential on the server and clears local
// state. Local state is cleared even when the server call fails; that
// error is returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	state, refresh := m.state, m.refresh
	if state == StateMFAPending {
		m.state, m.pending = StateAnonymous, pendingLogin{}
	}
	m.mu.Unlock()

	switch state {
	case StateAnonymous:
		return common.ErrInvalidState
	case StateMFAPending:
		return nil
	}

	serverErr := m.api.Logout(ctx, refresh)
	if serverErr != nil {
		m.logger.Warn(ctx, "server logout failed", "error", serverErr)
	}

	m.mu.Lock()
	m.clear()
	m.mu.Unlock()

	if err := m.store.ClearCredential(ctx); err != nil {
		return errors.Join(serverErr, err)
	}
	return serverErr
}

// BeginEnrollment starts TOTP enrollment for an account without MFA.
func (m *Manager) BeginEnrollment(ctx context.Context) (*models.Enrollment, error) {
	if err := m.canEnroll(); err != nil {
		return nil, err
	}
	e, err := m.api.BeginMFA(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.enrolling = true
	m.mu.Unlock()
	return e, nil
}

// ConfirmEnrollment activates MFA with a code from the pending secret.
func (m *Manager) ConfirmEnrollment(ctx context.Context, code string) error {
	if err := m.canEnroll(); err != nil {
		return err
	}
	m.mu.RLock()
	enrolling := m.enrolling
	m.mu.RUnlock()
	if !enrolling {
		return common.ErrInvalidState
	}

	if err := m.api.ConfirmMFA(ctx, code); err != nil {
		return err
	}

	m.mu.Lock()
	m.enrolling = false
	m.identity.MFAEnabled = true
	m.mu.Unlock()
	return nil
}

func (m *Manager) canEnroll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated {
		return common.ErrInvalidState
	}
	if m.identity.MFAEnabled {
		return fmt.Errorf("%w: %w", common.ErrInvalidState, common.ErrMFAEnabled)
	}
	return nil
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Identity returns the caller, when authenticated.
func (m *Manager) Identity() (models.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity, m.state == StateAuthenticated
}

// PendingUser names the account awaiting an MFA code.
func (m *Manager) PendingUser() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pending.userName
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access
}

func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh
}

func (m *Manager) AccessExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity.ExpiresAt
}

// SetAccessToken installs a refreshed access credential. It is ignored
// once the session has been torn down.
func (m *Manager) SetAccessToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return
	}
	m.access = token
	m.applyClaims(token)
}

// Expire tears the session down after a failed refresh and notifies the
// OnExpired listeners.
func (m *Manager) Expire() {
	m.mu.Lock()
	wasAuthenticated := m.state == StateAuthenticated
	m.clear()
	listeners := append([]func(){}, m.listeners...)
	m.mu.Unlock()

	if !wasAuthenticated {
		return
	}

	ctx := context.Background()
	if err := m.store.ClearCredential(ctx); err != nil {
		m.logger.Warn(ctx, "failed to clear stored credential", "error", err)
	}
	m.logger.Info(ctx, "session expired")
	for _, fn := range listeners {
		fn()
	}
}

// OnExpired registers fn to run when the session is torn down by Expire.
func (m *Manager) OnExpired(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// complete enters Authenticated from a login result and persists the
// refresh credential.
func (m *Manager) complete(ctx context.Context, res *client.LoginResult) error {
	if res == nil || res.Access == "" || res.Refresh == "" {
		return client.ErrMalformedResponse
	}

	m.mu.Lock()
	m.enter(res.Access, res.Refresh, res.User)
	userName := m.identity.UserName
	m.mu.Unlock()

	err := m.store.SaveCredential(ctx, metadata.Credential{
		ServerURL:    m.serverURL,
		UserName:     userName,
		RefreshToken: res.Refresh,
	})
	if err != nil {
		m.logger.Warn(ctx, "failed to persist credential", "error", err)
	}
	return nil
}

// enter must be called with mu held.
func (m *Manager) enter(access, refresh string, u *models.User) {
	m.state = StateAuthenticated
	m.access, m.refresh = access, refresh
	m.pending = pendingLogin{}
	m.enrolling = false
	m.identity = models.Identity{}
	if u != nil {
		m.identity = models.Identity{
			UserID:     u.ID,
			UserName:   u.UserName,
			Email:      u.Email,
			Role:       u.Role,
			MFAEnabled: u.MFAEnabled,
		}
	}
	m.applyClaims(access)
}

// clear must be called with mu held.
func (m *Manager) clear() {
	m.state = StateAnonymous
	m.access, m.refresh = "", ""
	m.identity = models.Identity{}
	m.pending = pendingLogin{}
	m.enrolling = false
}

// applyClaims must be called with mu held.
func (m *Manager) applyClaims(access string) {
	id, err := DecodeIdentity(access)
	if err != nil {
		m.logger.Debug(context.Background(), "access credential claims unreadable", "error", err)
		return
	}
	m.identity = id
}
