// Package app wires the NoteNest server runtime: config, logging, metrics,
// database, and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"notenest/cmd/identity"
	"notenest/cmd/internal/assets"
	authapi "notenest/cmd/internal/auth/api"
	"notenest/cmd/internal/auth/session"
	"notenest/cmd/internal/notes"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the NoteNest server runtime. It owns the HTTP server wiring and the
// database pool lifecycle.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	auth    *authapi.Handler
	notes   *notes.Handler
	metrics *Metrics
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tokens, err := session.NewHMACManager(sessCfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	var (
		pool      *pgxpool.Pool
		dbEnabled bool
		users     identity.Store
		noteStore notes.Store
	)

	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			if err := MigrateDB(cfg, log); err != nil {
				return nil, err
			}
		}

		pool, err = NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}

		pgUsers, err := identity.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pgNotes, err := notes.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}

		users = pgUsers
		noteStore = pgNotes
		dbEnabled = true
		log.Info("db.enabled.postgres_store")
	} else {
		users = identity.NewMemStore()
		noteStore = notes.NewMemStore()
		log.Info("db.disabled.inmemory_store")
	}

	host, err := assets.HostFromEnv(ctx)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, err
	}
	if _, ok := host.(assets.NoopHost); ok {
		log.Info("assets.disabled.noop_host")
	}

	apiCfg := authapi.LoadConfigFromEnv()
	sessions := session.NewService(sessCfg, users, tokens)
	auth := authapi.NewHandler(log, apiCfg, users, sessions, tokens, host)
	noteRoutes := notes.NewHandler(log, noteStore, apiCfg.MaxBodyBytes)

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    pool,
		dbEnabled: dbEnabled,
		auth:      auth,
		notes:     noteRoutes,
		metrics:   NewMetrics(),
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth, a.notes, a.metrics)

	handler := WithRequestLogging(WithMetrics(mux, a.metrics), a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
