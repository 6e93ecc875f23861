package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/client/client"
	"github.com/dmitrijs2005/gophshare/internal/client/config"
	"github.com/dmitrijs2005/gophshare/internal/client/models"
	"github.com/dmitrijs2005/gophshare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophshare/internal/client/services"
	"github.com/dmitrijs2005/gophshare/internal/client/session"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// sessionManager is the part of session.Manager the CLI drives.
type sessionManager interface {
	Init(ctx context.Context) error
	Register(ctx context.Context, userName, email, password string, role models.Role) error
	Login(ctx context.Context, userName, password string) (session.State, error)
	VerifyMFA(ctx context.Context, code string) error
	CancelMFA()
	Logout(ctx context.Context) error
	BeginEnrollment(ctx context.Context) (*models.Enrollment, error)
	ConfirmEnrollment(ctx context.Context, code string) error
	State() session.State
	Identity() (models.Identity, bool)
	OnExpired(fn func())
}

type fileService interface {
	Upload(ctx context.Context, path string) (*models.File, error)
	List(ctx context.Context) ([]models.File, error)
	Download(ctx context.Context, fileID, out, linkToken string) (string, error)
	Preview(ctx context.Context, fileID, linkToken string) (*services.Plaintext, error)
	Delete(ctx context.Context, fileID string) error
}

type shareService interface {
	Grant(ctx context.Context, fileID, email, permission string) (*models.Grant, error)
	List(ctx context.Context, fileID string) ([]models.Grant, error)
	CreateLink(ctx context.Context, fileID string, hours int, permission string) (*models.ShareLink, error)
	Resolve(ctx context.Context, token string) (*models.ResolvedLink, error)
	Revoke(ctx context.Context, token string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config       *config.Config
	session      sessionManager
	fileService  fileService
	shareService shareService
	health       pinger
	closers      []io.Closer

	mu   sync.Mutex
	Mode Mode

	expiredNotified atomic.Bool

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local state database and wires the API client, session
// manager and services.
func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	db, err := client.InitDatabase(ctx, c.StatePath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	health, err := client.NewHealthClient(c.HealthAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logger := logging.New(os.Stderr, "text", "warn")

	api := client.NewAPIClient(c.ServerURL, c.RequestTimeout, nil)
	sm := session.NewManager(api, metadata.NewSQLiteRepository(db), c.ServerURL, logger)
	api.EnableAuth(sm, c.RefreshSkew)

	a := &App{
		config:       c,
		session:      sm,
		fileService:  services.NewFileService(api, c.DownloadDir, logger),
		shareService: services.NewShareService(api),
		health:       health,
		closers:      []io.Closer{health, dbCloser{db}},
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
	}
	sm.OnExpired(a.sessionExpired)
	return a, nil
}

type dbCloser struct{ db *sql.DB }

func (d dbCloser) Close() error { return d.db.Close() }

// Run restores a saved session if there is one, starts the connectivity
// watcher and blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Welcome to GophShare CLI (type 'help' for commands)")

	if err := a.session.Init(ctx); err != nil {
		a.report(err)
	} else if id, ok := a.session.Identity(); ok {
		fmt.Fprintf(a.out, "Resumed session for %s\n", id.UserName)
	}

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == session.StateAuthenticated
}

func (a *App) sessionExpired() {
	a.expiredNotified.Store(true)
	fmt.Fprintln(a.out, describe(common.ErrSessionExpired))
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) getStatus() string {
	s := ""
	if id, ok := a.session.Identity(); ok {
		s = id.UserName + " "
	}
	if m := a.mode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.health.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// StartOnlineStatusWatcher probes the server every interval and flips Mode
// accordingly until ctx is cancelled.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Ping reports whether the server's health service is serving.
func (a *App) Ping(ctx context.Context) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.health.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return err
	}
	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Server is up (%s)\n", time.Since(start).Round(time.Millisecond))
	return nil
}
