// Package runtime assembles the raffle engine: configuration, storage, the
// token ledger, the randomness gateway, the raffle service, and the HTTP
// server, with ordered startup and graceful shutdown.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/raffle-engine/internal/app/httpapi"
	"github.com/R3E-Network/raffle-engine/internal/app/metrics"
	raffleservice "github.com/R3E-Network/raffle-engine/internal/app/services/raffle"
	"github.com/R3E-Network/raffle-engine/internal/app/storage"
	"github.com/R3E-Network/raffle-engine/internal/app/storage/postgres"
	"github.com/R3E-Network/raffle-engine/internal/config"
	"github.com/R3E-Network/raffle-engine/internal/middleware"
	"github.com/R3E-Network/raffle-engine/internal/platform/migrations"
	"github.com/R3E-Network/raffle-engine/internal/randomness"
	"github.com/R3E-Network/raffle-engine/internal/scheduler"
	"github.com/R3E-Network/raffle-engine/internal/token"
	"github.com/R3E-Network/raffle-engine/pkg/logger"
)

// Application is the composed raffle engine process.
type Application struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *sql.DB
	server    *http.Server
	scheduler *scheduler.Scheduler

	Service *raffleservice.Service
	Gateway *randomness.Gateway
	Token   *token.Memory
}

// New builds the application from configuration. The process is usable for
// tests as well; Run is only needed when serving HTTP.
func New(cfg *config.Config) (*Application, error) {
	log := logger.New(cfg.Logging).Component("raffle-engine")

	app := &Application{cfg: cfg, log: log}

	store, err := app.buildStore()
	if err != nil {
		return nil, err
	}

	app.Token = token.NewMemory(cfg.Raffle.EscrowAccount)
	app.Gateway = randomness.New(log.Component("randomness"))

	service, err := raffleservice.New(raffleservice.Config{
		Owner:         cfg.Raffle.Owner,
		Beneficiary:   cfg.Raffle.Beneficiary,
		EscrowAccount: cfg.Raffle.EscrowAccount,
		ProfitFactor:  cfg.Raffle.ProfitFactor,
	}, store, app.Token, app.Gateway, log.Component("raffle"))
	if err != nil {
		return nil, fmt.Errorf("build raffle service: %w", err)
	}
	app.Service = service

	if spec := cfg.Raffle.CloseSchedule; spec != "" {
		sched, err := scheduler.New(service, cfg.Raffle.Owner, spec, log.Component("scheduler"))
		if err != nil {
			return nil, err
		}
		app.scheduler = sched
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return app, nil
}

// buildStore opens the configured persistence backend. An empty DSN selects
// the in-memory store, which loses the archive across restarts.
func (a *Application) buildStore() (storage.RaffleStore, error) {
	if a.cfg.Database.DSN == "" {
		a.log.Warn("no database DSN configured, using in-memory round store")
		return storage.NewMemory(), nil
	}

	db, err := sql.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrations.Apply(ctx, db); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	a.db = db
	a.log.Info("connected to postgres round store")
	return postgres.New(db), nil
}

func (a *Application) buildRouter() http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	handler := httpapi.NewHandler(a.Service, a.Gateway, a.log.Component("httpapi"))
	handler.RegisterRoutes(router)

	auth := middleware.NewAuthMiddleware(
		[]byte(a.cfg.Auth.JWTSecret),
		a.log.Component("auth"),
		[]string{"/healthz", "/metrics", "/randomness/fulfillments"},
	)
	limiter := middleware.NewRateLimiter(a.cfg.RateLimit.RequestsPerSecond, a.cfg.RateLimit.Burst, a.log.Component("ratelimit"))

	// Auth runs before logging so request logs carry the caller identity.
	router.Use(
		metrics.InstrumentHandler,
		auth.Handler,
		middleware.LoggingMiddleware(a.log.Component("http")),
		limiter.Handler,
	)
	return router
}

// Run starts the scheduler and serves HTTP until the listener fails or
// Shutdown is called.
func (a *Application) Run() error {
	if a.scheduler != nil {
		a.scheduler.Start()
	}

	a.log.WithField("addr", a.server.Addr).Info("raffle engine listening")
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the scheduler, drains the HTTP server, and closes the
// database connection.
func (a *Application) Shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("shutdown http server: %w", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close database: %w", err)
		}
	}
	a.log.Info("raffle engine stopped")
	return firstErr
}
