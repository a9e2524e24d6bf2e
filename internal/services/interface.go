package services

import (
	"context"

	"economix/internal/models"
)

// ===============================
// SERVICE INTERFACES
// ===============================

// SnapshotService builds the derived financial view evaluators read.
type SnapshotService interface {
	// BuildSnapshot assembles a user's financial snapshot. It never fails:
	// when a financial read errors the degraded empty snapshot is returned
	// and the failure is logged.
	BuildSnapshot(ctx context.Context, userID int64) *models.FinancialSnapshot
}

// GamificationService runs the achievement and challenge evaluation loops.
// Both loops report success as a boolean and never propagate errors to the
// caller; per-item failures are logged and isolated.
type GamificationService interface {
	EvaluateUserAchievements(ctx context.Context, userID int64) bool
	EvaluateUserChallenges(ctx context.Context, userID int64) bool
}

// NotificationService persists completion notifications and exposes the
// read-side operations plus an in-process subscription feed.
type NotificationService interface {
	NotifyAchievement(ctx context.Context, userID int64, achievement *models.Achievement)
	NotifyChallenge(ctx context.Context, userID int64, challenge *models.Challenge)

	GetNotifications(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error

	// Subscribe returns a live feed of the user's new notifications and a
	// cancel function. Slow consumers drop messages rather than block writes.
	Subscribe(userID int64) (<-chan *models.Notification, func())
}

// TriggerService listens for financial events and schedules debounced
// evaluation runs for the affected users.
type TriggerService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Stats() *TriggerStats
}
