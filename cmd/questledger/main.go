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

	"github.com/terra-clan/quest-ledger/internal/api"
	"github.com/terra-clan/quest-ledger/internal/auth"
	"github.com/terra-clan/quest-ledger/internal/catalog"
	"github.com/terra-clan/quest-ledger/internal/config"
	"github.com/terra-clan/quest-ledger/internal/events"
	"github.com/terra-clan/quest-ledger/internal/health"
	"github.com/terra-clan/quest-ledger/internal/ledger"
	"github.com/terra-clan/quest-ledger/internal/models"
	"github.com/terra-clan/quest-ledger/internal/reward"
	"github.com/terra-clan/quest-ledger/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting quest-ledger",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	checks := health.NewRegistry()
	var closers []func() error

	// Ledger storage
	var (
		store   storage.Store
		history api.EventHistory
		sinks   events.Multi
	)

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		pg, err := storage.NewPostgresStore(initCtx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		})
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		slog.Info("database connected successfully")
		store = pg

		journal := events.NewJournal(pg.Pool())
		sinks = append(sinks, journal)
		history = journal

		checker, err := health.NewPostgresChecker(cfg.Database.DSN)
		if err != nil {
			slog.Error("failed to create postgres checker", "error", err)
			os.Exit(1)
		}
		checks.Register("postgres", checker)
		closers = append(closers, checker.Close)

	default:
		slog.Warn("using in-memory store, state is lost on restart")
		store = storage.NewMemoryStore()

		recorder := events.NewRecorder()
		sinks = append(sinks, recorder)
		history = recorder
	}

	if cfg.Redis.Address != "" {
		cached, err := storage.NewCachedStore(initCtx, store, storage.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.CacheTTL,
		})
		if err != nil {
			slog.Error("failed to create redis cache", "error", err)
			os.Exit(1)
		}
		store = cached
		slog.Info("redis cache enabled", "address", cfg.Redis.Address)

		publisher, err := events.NewRedisPublisher(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.EventsChannel)
		if err != nil {
			slog.Error("failed to create redis publisher", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, publisher)
		closers = append(closers, publisher.Close)

		checker := health.NewRedisChecker(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		checks.Register("redis", checker)
		closers = append(closers, checker.Close)
	}
	closers = append(closers, store.Close)

	hub := events.NewHub()
	sinks = append(sinks, hub)

	host := ledger.NewHost(store, ledger.WithSink(sinks))
	l := ledger.New(host)

	platform, err := bootstrapPlatform(initCtx, cfg, l)
	if err != nil {
		slog.Error("failed to bootstrap platform", "error", err)
		os.Exit(1)
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		slog.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start payout settler. It acts as the orchestrator once the platform
	// is initialized, whether from config or through the API.
	token := reward.NewToken(host, cfg.Reward.TokenName, cfg.Reward.TokenSymbol)
	settler := reward.NewSettler(l.Payouts, token, l.Platform, cfg.Reward.SettleInterval, cfg.Reward.SettleBatch)
	if err := settler.Start(ctx); err != nil {
		slog.Error("failed to start payout settler", "error", err)
		os.Exit(1)
	}
	if platform == nil {
		slog.Warn("platform not initialized, settlement waits for initialization")
	}

	// Setup HTTP server
	server := api.NewServer(cfg.Server, l, issuer, checks, http.HandlerFunc(hub.ServeWS), history)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()
	if err := settler.Stop(); err != nil {
		slog.Error("settler stop error", "error", err)
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			slog.Error("close error", "error", err)
		}
	}

	slog.Info("quest-ledger stopped")
}

// bootstrapPlatform initializes the platform from config on first start and
// seeds the quest catalog. It returns nil when the platform is still
// unconfigured.
func bootstrapPlatform(ctx context.Context, cfg *config.Config, l *ledger.Ledger) (*models.PlatformConfig, error) {
	if cfg.PlatformConfigured() {
		_, err := l.Platform.Initialize(ctx,
			models.Principal(cfg.Platform.Admin),
			models.Principal(cfg.Platform.RewardToken),
			models.Principal(cfg.Platform.Orchestrator),
		)
		switch {
		case err == nil:
			slog.Info("platform initialized", "admin", cfg.Platform.Admin)
		case errors.Is(err, ledger.ErrAlreadyInitialized):
			slog.Info("platform already initialized")
		default:
			return nil, err
		}
	}

	platform, err := l.Platform.Config(ctx)
	if errors.Is(err, ledger.ErrUninitialized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if cfg.Catalog.Dir == "" {
		return platform, nil
	}

	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(cfg.Catalog.Dir); err != nil {
		slog.Warn("failed to load quest catalog", "dir", cfg.Catalog.Dir, "error", err)
		return platform, nil
	}

	adminCtx := ledger.WithCaller(ctx, platform.Admin)
	if _, err := loader.Seed(adminCtx, l.Quests, platform.Admin, time.Now().UTC()); err != nil {
		return nil, err
	}

	return platform, nil
}
