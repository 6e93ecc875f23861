// Package httpapi exposes the user and storage services over REST using chi.
// Authenticated routes expect "Authorization: Bearer <access>"; errors use
// the apierr JSON envelope.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
	"github.com/dmitrijs2005/gophshare/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultMaxUploadBytes = 100 << 20
	maxJSONBodyBytes      = 1 << 20
)

type UserService interface {
	Register(ctx context.Context, username, email, password, role string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, userName, password string) (*services.LoginResult, error)
	VerifyLoginMFA(ctx context.Context, userName, mfaToken, code string) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	BeginMFAEnrollment(ctx context.Context, caller *models.Principal) (*services.MFAEnrollment, error)
	ConfirmMFAEnrollment(ctx context.Context, caller *models.Principal, code string) error
	Authenticate(accessToken string) (*models.Principal, error)
}

type FileService interface {
	Upload(ctx context.Context, caller *models.Principal, in services.UploadInput) (*models.File, error)
	List(ctx context.Context, caller *models.Principal) ([]*models.FileAccess, error)
	Download(ctx context.Context, caller *models.Principal, fileID, linkToken string) (*models.FilePayload, error)
	Preview(ctx context.Context, caller *models.Principal, fileID, linkToken string) (*models.FilePayload, error)
	Delete(ctx context.Context, caller *models.Principal, fileID string) error
}

type ShareService interface {
	GrantShare(ctx context.Context, caller *models.Principal, fileID, granteeEmail string, perm models.Permission) (*models.ShareGrant, error)
	ListShares(ctx context.Context, caller *models.Principal, fileID string) ([]*models.ShareGrant, error)
	CreateShareLink(ctx context.Context, caller *models.Principal, fileID string, hours int, perm models.Permission) (*models.ShareLink, error)
	ResolveShareLink(ctx context.Context, caller *models.Principal, token string) (*models.ResolvedLink, error)
	RevokeShareLink(ctx context.Context, caller *models.Principal, token string) error
}

// Deps are the collaborators the router needs. Registry may be nil, in which
// case no metrics are collected or served.
type Deps struct {
	Users          UserService
	Files          FileService
	Shares         ShareService
	Logger         logging.Logger
	Registry       *prometheus.Registry
	MaxUploadBytes int64
}

type handler struct {
	users     UserService
	files     FileService
	shares    ShareService
	logger    logging.Logger
	maxUpload int64
}

// NewRouter builds the HTTP handler tree.
func NewRouter(d Deps) http.Handler {
	h := &handler{
		users:     d.Users,
		files:     d.Files,
		shares:    d.Shares,
		logger:    d.Logger,
		maxUpload: d.MaxUploadBytes,
	}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUploadBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	if d.Registry != nil {
		r.Use(NewMetrics(d.Registry).Middleware)
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{Registry: d.Registry}))
	}

	r.Route("/user", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Post("/token/refresh", h.refresh)
		r.Post("/mfa/verify-login", h.verifyLogin)

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(d.Users.Authenticate))
			r.Post("/mfa/setup", h.mfaSetup)
			r.Post("/mfa/verify", h.mfaVerify)
			r.Get("/me", h.me)
		})
	})

	r.Route("/storage", func(r chi.Router) {
		r.Use(Authenticator(d.Users.Authenticate))

		r.Post("/upload", h.upload)
		r.Get("/files", h.listFiles)
		r.Delete("/files/{id}", h.deleteFile)
		r.Get("/download/{id}", h.download)
		r.Get("/preview/{id}", h.preview)

		r.Get("/share/link/{token}", h.resolveLink)
		r.Delete("/share/link/{token}", h.revokeLink)
		r.Post("/share/{id}", h.grantShare)
		r.Get("/share/{id}", h.listShares)
		r.Post("/share/{id}/share-link", h.createLink)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	return dec.Decode(v)
}

func caller(r *http.Request) *models.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}
