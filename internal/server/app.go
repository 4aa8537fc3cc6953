// Package server initializes and runs the todo application: it picks the
// storage backend, builds the auth core and services, and runs the HTTP
// server until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gotodo/internal/logging"
	"github.com/dmitrijs2005/gotodo/internal/server/auth"
	"github.com/dmitrijs2005/gotodo/internal/server/config"
	"github.com/dmitrijs2005/gotodo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gotodo/internal/server/revocation"
	"github.com/dmitrijs2005/gotodo/internal/server/services"
	"github.com/dmitrijs2005/gotodo/internal/server/web"
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	repomanager   repomanager.RepositoryManager
	closers       []io.Closer
	httpServer    *web.HTTPServer
	metricsServer *web.MetricsServer
}

// logOutput is where the application logger writes; a seam for tests.
var logOutput io.Writer = os.Stdout

// openRepositories picks the backend from the DSN and migrates it.
func openRepositories(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
	if dsn == config.MemoryDSN {
		return repomanager.NewInMemoryRepositoryManager(), nil
	}

	db, err := repomanager.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	m := repomanager.NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return m, nil
}

// NewAuthCore builds the hasher and token codec shared by the server and the
// admin tools.
func NewAuthCore(c *config.Config) (*auth.BcryptHasher, *auth.TokenCodec, error) {
	hasher, err := auth.NewBcryptHasher(c.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	codec, err := auth.NewTokenCodec([]byte(c.SecretKey), auth.WithDefaultTTL(c.AccessTokenValidityDuration))
	if err != nil {
		return nil, nil, err
	}
	return hasher, codec, nil
}

// OpenRepositories opens and migrates the store named by c.DatabaseDSN.
func OpenRepositories(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	rm, err := openRepositories(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	return rm, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.NewJSONLogger(logOutput, c.LogLevel)
	app := &App{config: c, logger: logger}

	hasher, codec, err := NewAuthCore(c)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "password hashing configured", "bcrypt_cost", hasher.Cost())

	rm, err := OpenRepositories(ctx, c)
	if err != nil {
		return nil, err
	}
	app.repomanager = rm
	app.closers = append(app.closers, rm)

	gateOpts := []auth.GateOption{
		auth.WithGateLogger(logger.With("module", "session_gate")),
		auth.WithSecureCookie(c.CookieSecure),
	}
	userOpts := []services.UserServiceOption{
		services.WithUserLogger(logger.With("module", "user_service")),
	}

	if c.RedisURL != "" {
		client, err := revocation.OpenRedis(ctx, c.RedisURL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, client)
		store := revocation.NewRedisStore(client)
		gateOpts = append(gateOpts, auth.WithRevocations(store))
		userOpts = append(userOpts, services.WithRevocationStore(store))
		logger.Info(ctx, "token revocation enabled")
	}

	gate := auth.NewSessionGate(codec, gateOpts...)
	us := services.NewUserService(rm, hasher, codec, c.LoginTokenValidityDuration, userOpts...)
	ts := services.NewTodoService(rm, logger.With("module", "todo_service"))

	hs, err := web.NewHTTPServer(web.Options{
		Address:         c.EndpointAddrHTTP,
		SecureCookie:    c.CookieSecure,
		ShutdownTimeout: c.ShutdownTimeout,
	}, logger, us, ts, gate)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.httpServer = hs

	if c.MetricsAddr != "" {
		app.metricsServer = web.NewMetricsServer(c.MetricsAddr, logger, c.ShutdownTimeout)
	}

	return app, nil
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

type runner interface {
	Run(ctx context.Context) error
}

// startServer runs srv and cancels the app if it fails, so the other
// listener stops too.
func (app *App) startServer(ctx context.Context, cancelFunc context.CancelFunc, srv runner) error {
	if err := srv.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return err
	}
	return nil
}

// Run blocks until the server stops, then releases the store and Redis.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	var httpErr, metricsErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		httpErr = app.startServer(ctx, cancelFunc, app.httpServer)
	}()

	if app.metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metricsErr = app.startServer(ctx, cancelFunc, app.metricsServer)
		}()
	}

	wg.Wait()

	app.Close()
	app.logger.Info(ctx, "App stopped")
	return errors.Join(httpErr, metricsErr)
}

// Close releases everything NewApp opened, newest first.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}
