package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"economix/internal/database"
	"economix/internal/models"

	"go.uber.org/zap"
)

// notificationRepository implements NotificationRepository.
type notificationRepository struct {
	*BaseRepository
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *database.Manager, logger *zap.Logger) NotificationRepository {
	return &notificationRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a notification row.
func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	notification.CreatedAt = time.Now()

	err := r.QueryRowContext(ctx, query,
		notification.UserID,
		notification.Type,
		notification.Content,
		notification.IsRead,
		notification.CreatedAt,
	).Scan(&notification.ID)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// GetByUserID returns the user's most recent notifications.
func (r *notificationRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT id, user_id, type, content, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		notification := &models.Notification{}
		if err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.Type,
			&notification.Content,
			&notification.IsRead,
			&notification.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, notification)
	}

	return notifications, rows.Err()
}

// CountUnread returns the number of unread notifications for a user.
func (r *notificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`

	var count int64
	if err := r.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// MarkAsRead marks a single notification as read.
func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, notificationID int64) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2`

	result, err := r.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("notification %d not found for user %d: %w", notificationID, userID, sql.ErrNoRows)
	}

	return nil
}

// MarkAllAsRead marks all of a user's notifications as read.
func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID int64) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`

	if _, err := r.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}

	return nil
}
