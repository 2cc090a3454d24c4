// Package server wires the identity core together: configuration, the
// database manager and its startup bootstrap, the services, and the HTTP
// and gRPC listeners. It also owns graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/logging"
	"github.com/dmitrijs2005/humanist/internal/server/auth"
	"github.com/dmitrijs2005/humanist/internal/server/config"
	"github.com/dmitrijs2005/humanist/internal/server/db"
	"github.com/dmitrijs2005/humanist/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/humanist/internal/server/rest"
	"github.com/dmitrijs2005/humanist/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/humanist/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *db.Manager
	repos  repomanager.RepositoryManager
	gate   *rest.Gate
	http   *rest.Server
	health *gs.HealthServer
}

func NewApp(c *config.Config) (*App, error) {
	return newApp(c, logging.NewJSONLogger(os.Stdout, c.LogLevel))
}

func newApp(c *config.Config, logger logging.Logger) (*App, error) {
	ctx := context.Background()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.SecretKey == config.DefaultSecretKey {
		logger.Warn(ctx, "SECRET_KEY is the development default; set a real secret in production")
	}

	dsn, err := db.Normalize(c.DatabaseURL, c.DBSSL)
	if err != nil {
		return nil, err
	}

	manager, err := db.NewPostgresManager(dsn,
		db.PoolOptions{
			PoolSize:    c.DBPoolSize,
			MaxOverflow: c.DBMaxOverflow,
			PoolTimeout: c.DBPoolTimeout,
		},
		db.BootstrapOptions{
			MaxAttempts: c.DBConnectMaxAttempts,
			BaseDelay:   c.DBConnectBaseDelay,
			Factor:      c.DBConnectBackoffFactor,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	codec, err := auth.NewTokenCodec([]byte(c.SecretKey), c.Algorithm)
	if err != nil {
		_ = manager.Close()
		return nil, err
	}
	hasher := auth.NewPasswordHasher(c.BcryptCost, c.HashWorkers)

	repos := repomanager.NewPostgresRepositoryManager()
	us := services.NewUserService(manager, repos, hasher, codec, c, logger)
	ss := services.NewSessionService(manager, repos, codec, logger)

	gate := &rest.Gate{}
	handler := rest.NewHandler(us, ss, manager, gate, logger)

	return &App{
		config: c,
		logger: logger,
		db:     manager,
		repos:  repos,
		gate:   gate,
		http:   rest.NewServer(c.HTTPAddr, handler.Routes(c.CORSOrigins), logger),
		health: gs.NewHealthServer(c.GRPCAddr, logger),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Received signal, shutting down", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// bootstrap waits for the database, applies migrations and then opens the
// gate. Until it returns the listeners answer 503 / NOT_SERVING.
func (app *App) bootstrap(ctx context.Context) error {
	if err := app.db.Bootstrap(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if err := app.repos.RunMigrations(ctx, app.db.DB()); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: %w", common.ErrBootstrapFailed, err)
	}

	app.gate.Open()
	app.health.SetServing(true)
	app.logger.Info(ctx, "Identity core ready")
	return nil
}

// Run serves until ctx is cancelled, a termination signal arrives or the
// bootstrap fails. A bootstrap failure is returned so the process can exit
// non-zero.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(ctx, cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(gctx) })
	g.Go(func() error { return app.health.Run(gctx) })
	g.Go(func() error {
		if err := app.bootstrap(gctx); err != nil {
			app.logger.Error(gctx, "bootstrap failed", "error", err)
			return err
		}
		return nil
	})

	err := g.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Warn(ctx, "closing database", "error", cerr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}
