package services

import (
	"context"

	"go.uber.org/zap"

	"economix/internal/cache"
	"economix/internal/config"
	"economix/internal/events"
	"economix/internal/repositories"
)

// ===============================
// SERVICE COLLECTION
// ===============================

// Collection wires the engine services together.
type Collection struct {
	Snapshot     SnapshotService
	Gamification GamificationService
	Notification NotificationService
	Trigger      TriggerService

	logger *zap.Logger
}

// NewCollection builds the service graph from its dependencies.
func NewCollection(
	repos *repositories.Collection,
	cacheStore cache.Cache,
	eventBus events.EventBus,
	cfg *config.Config,
	logger *zap.Logger,
) *Collection {
	snapshot := NewSnapshotService(repos.Finance, &cfg.Engine, logger.Named("snapshot"))
	notification := NewNotificationService(repos.Notification, logger.Named("notification"))
	gamification := NewGamificationService(
		repos.Achievement,
		repos.Challenge,
		snapshot,
		notification,
		cacheStore,
		eventBus,
		&cfg.Cache,
		logger.Named("gamification"),
	)
	trigger := NewTriggerService(gamification, eventBus, &cfg.Engine, logger.Named("trigger"))

	return &Collection{
		Snapshot:     snapshot,
		Gamification: gamification,
		Notification: notification,
		Trigger:      trigger,
		logger:       logger,
	}
}

// Start brings up the background parts of the collection.
func (c *Collection) Start(ctx context.Context) error {
	return c.Trigger.Start(ctx)
}

// Stop shuts down the background parts of the collection.
func (c *Collection) Stop(ctx context.Context) error {
	return c.Trigger.Stop(ctx)
}
