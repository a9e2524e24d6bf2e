package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"economix/internal/cache"
	"economix/internal/config"
	"economix/internal/database"
	"economix/internal/events"
	"economix/internal/handlers/ops"
	"economix/internal/repositories"
	"economix/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting gamification engine",
		zap.String("environment", cfg.Ops.Environment),
		zap.String("ops_port", cfg.Ops.Port),
	)

	// Database (with migrations and connection retry)
	dbManager, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbManager.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	healthStatus := dbManager.Health(ctx)
	cancel()
	if healthStatus.Status == database.StatusUnhealthy {
		logger.Fatal("Database is not healthy",
			zap.String("status", healthStatus.Status),
			zap.Strings("errors", healthStatus.Errors),
		)
	}
	logger.Info("Database ready", zap.String("status", healthStatus.Status))

	// Catalog cache
	cacheStore, err := cache.New(&cfg.Cache, logger.Named("cache"))
	if err != nil {
		logger.Fatal("Failed to create cache", zap.Error(err))
	}
	defer cacheStore.Close()

	// Event bus
	busConfig := events.DefaultEventBusConfig()
	busConfig.WorkerCount = cfg.Engine.WorkerCount
	busConfig.BufferSize = cfg.Engine.QueueSize
	eventBus := events.NewEventBus(busConfig, logger.Named("events"))
	if err := eventBus.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Repositories and services
	repos, err := repositories.NewCollection(dbManager, logger.Named("repositories"))
	if err != nil {
		logger.Fatal("Failed to initialize repositories", zap.Error(err))
	}
	serviceCollection := services.NewCollection(repos, cacheStore, eventBus, cfg, logger.Named("services"))
	if err := serviceCollection.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start services", zap.Error(err))
	}

	// Ops listener
	opsHandler := ops.NewHandler(dbManager, cacheStore, eventBus, serviceCollection, &cfg.Ops, logger.Named("ops"))
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Ops.Host, cfg.Ops.Port),
		Handler:           opsHandler.Router(),
		ReadTimeout:       cfg.Ops.ReadTimeout,
		WriteTimeout:      cfg.Ops.WriteTimeout,
		IdleTimeout:       cfg.Ops.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Daily janitor for read notifications.
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()
	go runNotificationJanitor(janitorCtx, repos, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting ops listener", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Ops listener failed", zap.Error(err))
		}
	}()

	logger.Info("Engine started",
		zap.Int("workers", cfg.Engine.WorkerCount),
		zap.Duration("debounce_window", cfg.Engine.DebounceWindow),
		zap.Duration("evaluation_timeout", cfg.Engine.EvaluationTimeout),
	)

	<-quit
	logger.Info("Shutting down engine...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ops listener forced to shut down", zap.Error(err))
	}
	if err := serviceCollection.Stop(shutdownCtx); err != nil {
		logger.Error("Service shutdown incomplete", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		logger.Error("Event bus shutdown incomplete", zap.Error(err))
	}

	finalMetrics := dbManager.Metrics()
	logger.Info("Final engine metrics",
		zap.Int64("total_queries", finalMetrics.QueryCount),
		zap.Int64("total_errors", finalMetrics.ErrorCount),
		zap.Int64("slow_queries", finalMetrics.SlowQueryCount),
		zap.Duration("avg_query_duration", finalMetrics.AvgQueryDuration),
	)

	logger.Info("Engine shutdown completed")
}

// notificationRetention is how long read notifications are kept before the
// janitor removes them.
const notificationRetention = 30 * 24 * time.Hour

// runNotificationJanitor periodically deletes old read notifications.
func runNotificationJanitor(ctx context.Context, repos *repositories.Collection, logger *zap.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(ctx, time.Minute)
			if _, err := repos.CleanupOldNotifications(cleanupCtx, notificationRetention); err != nil {
				logger.Warn("Notification cleanup failed", zap.Error(err))
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

// initLogger builds the structured logger from the logging configuration.
func initLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapConfig.Level = level

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
