package database

import (
	"fmt"
	"os"
	"time"

	"economix/internal/config"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Connect creates the database manager, retrying with exponential backoff
// until the database accepts connections, then runs migrations.
func Connect(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	var manager *Manager

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 1 * time.Second
	expBackoff.MaxInterval = 10 * time.Second
	expBackoff.MaxElapsedTime = time.Duration(cfg.Database.MaxConnectAttempts) * 30 * time.Second

	operation := func() error {
		var err error
		manager, err = NewManager(&cfg.Database, logger)
		return err
	}

	notify := func(err error, next time.Duration) {
		logger.Warn("Database connection failed, retrying",
			zap.Error(err),
			zap.Duration("retry_in", next),
		)
	}

	if err := backoff.RetryNotify(operation, expBackoff, notify); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrationsPath := resolveMigrationsPath(cfg.Database.MigrationsPath)
	logger.Info("Running database migrations", zap.String("path", migrationsPath))

	if err := manager.Migrate(migrationsPath); err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	manager.StartMonitoring()

	return manager, nil
}

// resolveMigrationsPath falls back through common locations when the
// configured path does not exist.
func resolveMigrationsPath(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	paths := []string{
		"./migrations",
		"./internal/database/migrations",
		"../migrations",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "./migrations"
}
