// Package server wires configuration, storage, services and transports into
// a runnable GophShare server: the REST API, the gRPC health service and the
// housekeeping janitor.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/dmitrijs2005/gophshare/internal/server/cache"
	"github.com/dmitrijs2005/gophshare/internal/server/config"
	"github.com/dmitrijs2005/gophshare/internal/server/housekeeping"
	"github.com/dmitrijs2005/gophshare/internal/server/httpapi"
	"github.com/dmitrijs2005/gophshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophshare/internal/server/services"
	"github.com/dmitrijs2005/gophshare/internal/server/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/gophshare/internal/server/grpc"
)

const healthCheckInterval = 15 * time.Second

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	registry     *prometheus.Registry
	userService  *services.UserService
	fileService  *services.FileService
	shareService *services.ShareService
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, "json", c.LogLevel)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := newBlobStore(context.Background(), c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob storage init error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rm := repomanager.NewPostgresRepositoryManager()
	fc := cache.NewFileCache(c.FileCacheSize, c.FileCacheTTL, reg)

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		repomanager:  rm,
		registry:     reg,
		userService:  services.NewUserService(db, rm, c),
		fileService:  services.NewFileService(db, rm, blobs, fc, logger.With("module", "files")),
		shareService: services.NewShareService(db, rm, fc, logger.With("module", "shares")),
	}, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (storage.BlobStore, error) {
	switch c.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemoryStore(), nil
	case config.StorageS3, "":
		return storage.NewS3Store(ctx, storage.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema and serves until a signal arrives or any component
// fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Users:          app.userService,
		Files:          app.fileService,
		Shares:         app.shareService,
		Logger:         app.logger,
		Registry:       app.registry,
		MaxUploadBytes: app.config.MaxUploadBytes,
	})
	httpServer := httpapi.NewServer(app.config.EndpointAddrHTTP, router, app.logger)
	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger)
	janitor := housekeeping.NewJanitor(app.config.PurgeInterval, app.logger, app.registry,
		housekeeping.Task{Name: "refresh_tokens", Purge: app.userService.PurgeExpiredTokens},
		housekeeping.Task{Name: "share_links", Purge: app.shareService.PurgeExpiredLinks},
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(ctx) })
	g.Go(func() error { return grpcServer.Run(ctx) })
	g.Go(func() error {
		grpcServer.Watch(ctx, healthCheckInterval, app.db.PingContext)
		return nil
	})
	g.Go(func() error {
		janitor.Run(ctx)
		return nil
	})

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}
