// cmd/service/main.go
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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"congress-data-sync/internal/api"
	"congress-data-sync/internal/changes"
	"congress-data-sync/internal/config"
	"congress-data-sync/internal/congress"
	custom_errors "congress-data-sync/internal/errors"
	"congress-data-sync/internal/metrics"
	"congress-data-sync/internal/ratemon"
	"congress-data-sync/internal/store"
	"congress-data-sync/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	metrics.Register()

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Compose application components
	db := store.NewPostgres(dbpool)
	monitor := ratemon.NewMonitor(cfg.HourlyRequestCap)
	client := congress.NewClient(cfg.CongressAPIBaseURL, cfg.CongressAPIKey, monitor, logger)
	detector := changes.NewDetector(db, logger)

	syncCfg := syncer.Config{
		TargetCongress:   cfg.TargetCongress,
		LookbackWindow:   time.Duration(cfg.LookbackWindowDays) * 24 * time.Hour,
		PageSize:         cfg.PageSize,
		HourlyRequestCap: cfg.HourlyRequestCap,
		SafetyStopMargin: cfg.SafetyStopMargin,
		Concurrency:      cfg.SyncConcurrency,
		RequestDelay:     cfg.RequestDelay,
		RetryEnabled:     cfg.RetryEnabled,
		MaxRetries:       cfg.MaxRetries,
		StaleThreshold:   cfg.StaleThreshold,
	}

	orchestrator := syncer.NewOrchestrator(db, []syncer.ResourceSyncer{
		syncer.NewBillSyncer(db, client, monitor, detector, syncCfg, logger),
		syncer.NewMemberSyncer(db, client, monitor, syncCfg, logger),
		syncer.NewHearingSyncer(db, client, monitor, syncCfg, logger),
	}, logger)

	// 6. Start periodic incremental syncs in the background
	go runSyncLoop(ctx, orchestrator, cfg.SyncInterval, logger)

	// 7. Serve the trigger/admin API until shutdown
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(orchestrator, db, logger),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Application started", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("Shutdown signal received. Exiting.")
	return nil
}

// runSyncLoop triggers an incremental sync immediately and then on every
// tick until the context is cancelled.
func runSyncLoop(ctx context.Context, orchestrator *syncer.Orchestrator, interval time.Duration, logger *slog.Logger) {
	logger.Info("Starting sync loop", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() {
		result, err := orchestrator.Sync(ctx, syncer.Request{Strategy: "incremental"})
		if err != nil {
			var inProgress *custom_errors.ErrSyncInProgress
			if errors.As(err, &inProgress) {
				logger.Warn("Scheduled sync skipped: previous run still active")
				return
			}
			logger.Error("Scheduled sync failed", "error", err)
			return
		}
		if !result.Success {
			logger.Warn("Scheduled sync finished with errors", "errors", len(result.Errors))
		}
	}

	runOnce()
	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-ctx.Done():
			logger.Info("Sync loop shutting down", "reason", ctx.Err())
			return
		}
	}
}

func runMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
