package repositories

import (
	"context"
	"time"

	"economix/internal/models"
)

// FinanceRepository reads the financial stores owned by other services. All
// access is read-only; the engine never mutates financial data.
type FinanceRepository interface {
	GetAccountsByUserID(ctx context.Context, userID int64) ([]*models.Account, error)
	// GetRecentTransactions returns the user's transactions with date >= since,
	// ordered by date descending.
	GetRecentTransactions(ctx context.Context, userID int64, since time.Time) ([]*models.Transaction, error)
	GetDebtsByUserID(ctx context.Context, userID int64) ([]*models.Debt, error)
	GetGoalsByUserID(ctx context.Context, userID int64) ([]*models.Goal, error)
}

// AchievementRepository covers the achievement catalog and per-user progress
// rows.
type AchievementRepository interface {
	GetAllAchievements(ctx context.Context) ([]*models.Achievement, error)
	GetProgressByUserID(ctx context.Context, userID int64) ([]*models.UserAchievementProgress, error)
	// CreateProgress inserts the lazily created (user, achievement) row.
	CreateProgress(ctx context.Context, row *models.UserAchievementProgress) error
	// UpdateProgress rewrites progress and achieved_at for an existing row.
	UpdateProgress(ctx context.Context, row *models.UserAchievementProgress) error
}

// ChallengeRepository covers challenge enrollments. Catalog rows arrive
// joined onto the enrollment.
type ChallengeRepository interface {
	// GetActiveEnrollments returns the user's non-terminal enrollments joined
	// to their active challenge definitions.
	GetActiveEnrollments(ctx context.Context, userID int64) ([]*models.UserChallenge, error)
	// UpdateEnrollment persists progress, status and completed_at.
	UpdateEnrollment(ctx context.Context, row *models.UserChallenge) error
}

// NotificationRepository owns the notifications table.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
}
