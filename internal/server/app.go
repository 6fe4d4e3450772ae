// Package server wires the auth service together: configuration, logging,
// telemetry, the credential store, the session layer, and the HTTP and gRPC
// health servers. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/telemetry"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

const (
	serviceName       = "authkeeper"
	telemetryShutdown = 5 * time.Second
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	telemetry *telemetry.Telemetry
	db        *sql.DB
	http      *httpapi.Server
	health    *gs.HealthServer
}

// NewApp builds every component from c. Logs go to stdout.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, out io.Writer) (app *App, err error) {
	logger, err := logging.New(out, c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	setGinMode(c.Environment)

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    serviceName,
		TraceExporter:  c.TraceExporter,
		MetricsEnabled: c.MetricsEnabled,
		Writer:         out,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tel.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	db, rm, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	metrics, err := telemetry.NewAuthMetrics()
	if err != nil {
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	hasher := cryptox.NewBcryptHasher(c.BcryptCost, c.HashConcurrency)
	tokens := auth.NewTokenIssuer([]byte(c.JWTSecret), c.AccessTokenTTL, c.RefreshTokenTTL)
	sessions := services.NewSessionService(db, rm, hasher, tokens, logger, metrics)
	guard := auth.NewGuard(tokens, rm.Users(db), logger)

	httpSrv := httpapi.NewServer(httpapi.Options{
		Addr:         fmt.Sprintf(":%d", c.Port),
		CORSOrigin:   c.CORSOrigin,
		Production:   c.IsProduction(),
		CookieSecret: []byte(c.CookieSecret),
		AccessTTL:    c.AccessTokenTTL,
		RefreshTTL:   c.RefreshTokenTTL,
		Metrics:      tel.MetricsHandler(),
	}, sessions, guard, db, logger)

	var health *gs.HealthServer
	if c.GRPCHealthAddr != "" {
		health = gs.NewHealthServer(c.GRPCHealthAddr, logger, db, 0)
	}

	return &App{
		config:    c,
		logger:    logger,
		telemetry: tel,
		db:        db,
		http:      httpSrv,
		health:    health,
	}, nil
}

func setGinMode(env string) {
	switch env {
	case config.EnvProduction:
		gin.SetMode(gin.ReleaseMode)
	case config.EnvTest:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves until ctx is cancelled, a termination signal arrives or a
// server fails, then releases every resource. It returns the first server
// error.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Environment, "port", app.config.Port)

	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(name string, err error) {
		app.logger.Error(ctx, name+" server failed", "error", err)
		mu.Lock()
		if firstErr == nil {
			firstErr = fmt.Errorf("%s server: %w", name, err)
		}
		mu.Unlock()
		cancelFunc()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			fail("http", err)
		}
	}()

	if app.health != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.health.Run(ctx); err != nil {
				fail("grpc", err)
			}
		}()
	}

	wg.Wait()

	return errors.Join(firstErr, app.close(context.WithoutCancel(ctx)))
}

func (app *App) close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, telemetryShutdown)
	defer cancel()

	var errs []error
	if err := app.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	if err := app.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("db close: %w", err))
	}

	app.logger.Info(ctx, "App stopped")
	return errors.Join(errs...)
}
