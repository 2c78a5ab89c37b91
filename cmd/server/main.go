package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ruralpay/atmledger/internal/audit"
	"github.com/ruralpay/atmledger/internal/config"
	"github.com/ruralpay/atmledger/internal/database"
	"github.com/ruralpay/atmledger/internal/handlers"
	"github.com/ruralpay/atmledger/internal/logger"
	mW "github.com/ruralpay/atmledger/internal/middleware"
	"github.com/ruralpay/atmledger/internal/repository"
	"github.com/ruralpay/atmledger/internal/repository/memory"
	"github.com/ruralpay/atmledger/internal/repository/postgres"
	"github.com/ruralpay/atmledger/internal/services"
)

func main() {
	configFile := flag.String("config", ".env", "optional dotenv config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	store, health, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var events services.EventPublisher = services.NopPublisher{}
	if rdb := database.OpenRedis(ctx, cfg.Redis, log); rdb != nil {
		defer rdb.Close()
		events = services.NewRedisEventPublisher(rdb, cfg.Ledger.EventsQueue)
	}

	ledger := services.NewLedgerService(store, events, audit.NewAuditLogger(log), log, services.LedgerConfig{
		WithdrawalMax: cfg.Ledger.WithdrawalMax,
	})
	ledgerHandler := handlers.NewLedgerHandler(ledger, log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.SecurityHeaders)
	r.Use(mW.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", handlers.IdempotencyKeyHeader},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	r.Get("/health", handlers.Health(health))
	r.Route("/api/v1", ledgerHandler.Routes)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("storage", cfg.Ledger.Storage),
			zap.String("withdrawal_max", cfg.Ledger.WithdrawalMax.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info("server shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// openStore returns the configured repository, its health check and a
// release function.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, func(context.Context) error, func(), error) {
	if cfg.Ledger.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, balances are lost on restart")
		return memory.New(memory.WithLockTimeout(cfg.Ledger.LockTimeout)), nil, func() {}, nil
	}

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		log.Info("database schema up to date")
	}
	return postgres.NewStore(db, cfg.Ledger.LockTimeout), db.PingContext, closer(db, log), nil
}

func closer(db *sql.DB, log *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}
