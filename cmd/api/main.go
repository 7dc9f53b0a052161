package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/money-tracker/api"
	"github.com/josh-kwaku/money-tracker/internal/auth"
	"github.com/josh-kwaku/money-tracker/internal/config"
	"github.com/josh-kwaku/money-tracker/internal/domain"
	"github.com/josh-kwaku/money-tracker/internal/handler"
	"github.com/josh-kwaku/money-tracker/internal/logging"
	"github.com/josh-kwaku/money-tracker/internal/middleware"
	"github.com/josh-kwaku/money-tracker/internal/repository"
	"github.com/josh-kwaku/money-tracker/internal/service"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("money-api", cfg.LogLevel, cfg.AppEnv)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		ConnectAttempts:  30,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	codec, err := auth.NewCodec(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	persons := repository.NewPersonRepository(db)
	transactions := repository.NewTransactionRepository(db)
	idempotency := repository.NewIdempotencyRepository(db)

	revocations := auth.NewMemoryRegistry()
	resolver := auth.NewResolver(codec, revocations)

	authenticator, err := service.NewAuthenticator(
		persons,
		service.NewBcryptHasher(cfg.BcryptCost),
		codec,
		revocations,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	if err != nil {
		return fmt.Errorf("authenticator: %w", err)
	}
	ledger := service.NewLedger(persons, transactions, db, cfg.Limits())

	limiter := middleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
	janitor := service.NewJanitor(revocations, idempotency, logger, cfg.RevocationSweepInterval).
		WithLimiters(limiter)

	authHandler := handler.NewAuthHandler(authenticator)
	personHandler := handler.NewPersonHandler(persons, service.NewProfiles(persons))
	txHandler := handler.NewTransactionHandler(ledger)
	healthHandler := handler.NewHealthHandler(db, version)

	requireAuth := middleware.Auth(resolver)
	idem := middleware.Idempotency(idempotency)
	admin := middleware.RequirePermission(domain.PermissionListPersons)
	ownLedger := middleware.RequirePermission(domain.PermissionManageOwnLedger)

	authed := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }
	adminOnly := func(h http.HandlerFunc) http.Handler { return requireAuth(admin(h)) }
	ledgerRead := func(h http.HandlerFunc) http.Handler { return requireAuth(ownLedger(h)) }
	ledgerWrite := func(h http.HandlerFunc) http.Handler { return requireAuth(ownLedger(idem(h))) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.HandleFunc("GET /docs", handler.ServeDocs())
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(api.OpenAPI))

	mux.Handle("POST /api/v1/auth/register", limiter.Middleware(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/v1/auth/login", limiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/v1/auth/refresh", limiter.Middleware(http.HandlerFunc(authHandler.Refresh)))
	// Logout takes the bearer token, the refresh token, or both, and never
	// requires a live access token.
	mux.Handle("POST /api/v1/auth/logout", limiter.Middleware(http.HandlerFunc(authHandler.Logout)))

	mux.Handle("GET /api/v1/me", authed(personHandler.Me))
	mux.Handle("PUT /api/v1/me", authed(personHandler.UpdateMe))
	mux.Handle("GET /api/v1/persons", adminOnly(personHandler.List))
	mux.Handle("GET /api/v1/persons/{id}", adminOnly(personHandler.Get))
	mux.Handle("GET /api/v1/persons/username/{username}", adminOnly(personHandler.GetByUsername))

	mux.Handle("POST /api/v1/transactions", ledgerWrite(txHandler.Create))
	mux.Handle("GET /api/v1/transactions", ledgerRead(txHandler.List))
	mux.Handle("GET /api/v1/transactions/summary", ledgerRead(txHandler.Summary))
	mux.Handle("GET /api/v1/transactions/categories", ledgerRead(txHandler.Categories))
	mux.Handle("GET /api/v1/transactions/{id}", ledgerRead(txHandler.Get))
	mux.Handle("POST /api/v1/transactions/{id}/reverse", ledgerWrite(txHandler.Reverse))
	mux.Handle("GET /api/v1/reports/categories", ledgerRead(txHandler.CategoryReport))
	mux.Handle("GET /api/v1/reports/monthly", ledgerRead(txHandler.MonthlyReport))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.Tracing(middleware.Logging(middleware.Recovery(mux))),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		janitor.Start(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
