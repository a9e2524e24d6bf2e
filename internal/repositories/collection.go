package repositories

import (
	"context"
	"economix/internal/database"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection.
type Collection struct {
	Finance      FinanceRepository
	Achievement  AchievementRepository
	Challenge    ChallengeRepository
	Notification NotificationRepository

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates a repository collection with all dependencies.
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}

	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	collection := &Collection{
		db:     db,
		logger: logger,
	}

	collection.Finance = NewFinanceRepository(db, logger)
	collection.Achievement = NewAchievementRepository(db, logger)
	collection.Challenge = NewChallengeRepository(db, logger)
	collection.Notification = NewNotificationRepository(db, logger)

	logger.Info("Repository collection initialized")

	return collection, nil
}

// CleanupOldNotifications deletes read notifications older than the cutoff.
func (c *Collection) CleanupOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := c.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup notifications: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		c.logger.Info("Cleaned up old notifications", zap.Int64("deleted", deleted))
	}

	return deleted, nil
}
