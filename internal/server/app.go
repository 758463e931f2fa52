// Package server initializes and runs the campusdesk server: it picks the
// credential store backend, wires the auth core and runs the HTTP and gRPC
// listeners until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/campusdesk/internal/logging"
	"github.com/dmitrijs2005/campusdesk/internal/server/auth"
	"github.com/dmitrijs2005/campusdesk/internal/server/config"
	gs "github.com/dmitrijs2005/campusdesk/internal/server/grpc"
	"github.com/dmitrijs2005/campusdesk/internal/server/httpapi"
	"github.com/dmitrijs2005/campusdesk/internal/server/metrics"
	"github.com/dmitrijs2005/campusdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/campusdesk/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	gate        *auth.Gate
	metrics     *metrics.Metrics
	httpServer  *httpapi.Server
	grpcServer  *gs.GRPCServer
}

// NewApp validates c and builds every component. With a DSN the users live in
// PostgreSQL and migrations run here; otherwise they are kept in memory.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, err
	}

	var (
		db *sql.DB
		rm repomanager.RepositoryManager
	)
	if c.DatabaseDSN != "" {
		db, err = repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		pm := repomanager.NewPostgresRepositoryManager()
		if err := pm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		rm = pm
	} else {
		logger.Warn(ctx, "no database DSN configured, users are kept in memory")
		rm = repomanager.NewInMemoryRepositoryManager()
	}

	hasher, err := auth.NewPasswordHasher(c.BcryptCost)
	if err != nil {
		closeDB(db)
		return nil, err
	}
	issuer, err := auth.NewTokenIssuer([]byte(c.SecretKey), c.TokenValidityDuration)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: services.NewUserService(db, rm, hasher, issuer),
		gate:        auth.NewGate(issuer),
		metrics:     metrics.NewMetrics(registry),
	}

	app.httpServer = httpapi.NewServer(c.HTTPAddr, c.ClientURL, logger, app.userService, app.gate, app.metrics)
	if c.GRPCAddr != "" {
		app.grpcServer = gs.NewGRPCServer(c.GRPCAddr, logger, app.gate, app.metrics, gs.DefaultPolicy())
	}

	return app, nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}

// HTTP returns the REST server so business handlers can be mounted with
// Handle before Run.
func (app *App) HTTP() *httpapi.Server {
	return app.httpServer
}

// GRPC returns the gRPC server so services can be mounted before Run. It is
// nil when no gRPC address is configured.
func (app *App) GRPC() *gs.GRPCServer {
	return app.grpcServer
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

// Run blocks until a signal arrives or either listener fails. A failing
// listener stops the other one.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.httpServer.Run(gctx) })
	if app.grpcServer != nil {
		g.Go(func() error { return app.grpcServer.Run(gctx) })
	}

	err := g.Wait()

	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}

	app.logger.Info(context.Background(), "App stopped")
	return err
}
