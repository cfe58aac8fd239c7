// Package server wires the authkeeper components together and runs them
// until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/api"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/hasher"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/throttle"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	profileThrottle *throttle.Throttle
	authThrottle    *throttle.Throttle
	http            *api.Server
	health          *gs.HealthServer
}

// NewApp opens the database, applies migrations and builds the servers.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	app, err := newApp(cfg, logger, db, m, prometheus.NewRegistry())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(cfg *config.Config, logger logging.Logger, db *sql.DB, m repomanager.RepositoryManager, reg *prometheus.Registry) (*App, error) {
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	mt, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	h, err := hasher.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	issuer, err := tokens.NewIssuer(tokens.Config{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.Issuer,
	})
	if err != nil {
		return nil, err
	}

	pt, err := throttle.New(throttle.Config{Limit: cfg.ThrottleLimit, Window: cfg.ThrottleWindow})
	if err != nil {
		return nil, fmt.Errorf("profile throttle: %w", err)
	}
	at, err := throttle.New(throttle.Config{Limit: cfg.AuthThrottleLimit, Window: cfg.AuthThrottleWindow})
	if err != nil {
		return nil, fmt.Errorf("login throttle: %w", err)
	}

	httpServer, err := api.NewServer(api.Options{
		Address:         cfg.HTTPAddr,
		Logger:          logger,
		Users:           services.NewUserService(db, m, h),
		Auth:            services.NewAuthService(db, m, h, issuer),
		ProfileThrottle: pt,
		AuthThrottle:    at,
		Metrics:         mt,
		Gatherer:        reg,
		RequestTimeout:  cfg.RequestTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
	if err != nil {
		return nil, err
	}

	health, err := gs.NewHealthServer(cfg.GRPCHealthAddr, logger, reg)
	if err != nil {
		return nil, err
	}

	return &App{
		config:          cfg,
		logger:          logger,
		db:              db,
		profileThrottle: pt,
		authThrottle:    at,
		http:            httpServer,
		health:          health,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", sig.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run blocks until ctx is cancelled, a signal arrives or a server fails.
// The first server error is returned; the database is closed on exit.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(name string, err error) {
		app.logger.Error(ctx, name+" stopped", "error", err)
		mu.Lock()
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", name, err)
		}
		mu.Unlock()
		cancelFunc()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			fail("http server", err)
		}
	}()
	go func() {
		defer wg.Done()
		if app.config.GRPCHealthAddr == "" {
			return
		}
		if err := app.health.Run(ctx); err != nil {
			fail("grpc server", err)
		}
	}()
	go func() {
		defer wg.Done()
		app.profileThrottle.Run(ctx, app.profileThrottle.Window())
	}()
	go func() {
		defer wg.Done()
		app.authThrottle.Run(ctx, app.authThrottle.Window())
	}()

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")

	return errors.Join(firstErr, app.db.Close())
}
