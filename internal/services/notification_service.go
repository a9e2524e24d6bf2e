package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"economix/internal/models"
	"economix/internal/repositories"
)

// subscriberBuffer bounds each live feed channel. A subscriber that falls
// this far behind starts losing messages instead of blocking evaluation.
const subscriberBuffer = 16

// ===============================
// NOTIFICATION SERVICE
// ===============================

// notificationService persists completion notifications and fans them out to
// in-process subscribers. Emission is best effort: a failed write is logged
// and never propagated back into the evaluation loops.
type notificationService struct {
	repo   repositories.NotificationRepository
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[int64]map[int64]chan *models.Notification
	nextSubID   int64
}

// NewNotificationService creates the notification emitter.
func NewNotificationService(repo repositories.NotificationRepository, logger *zap.Logger) NotificationService {
	return &notificationService{
		repo:        repo,
		logger:      logger,
		subscribers: make(map[int64]map[int64]chan *models.Notification),
	}
}

// NotifyAchievement emits the unlock notification for an achievement.
func (s *notificationService) NotifyAchievement(ctx context.Context, userID int64, achievement *models.Achievement) {
	s.emit(ctx, userID, models.NotificationTypeAchievement, models.NotificationContent{
		ID:      achievement.ID,
		Name:    achievement.Name,
		Message: fmt.Sprintf("¡Felicidades! Has desbloqueado el logro %q", achievement.Name),
	})
}

// NotifyChallenge emits the completion notification for a challenge.
func (s *notificationService) NotifyChallenge(ctx context.Context, userID int64, challenge *models.Challenge) {
	s.emit(ctx, userID, models.NotificationTypeChallenge, models.NotificationContent{
		ID:      challenge.ID,
		Name:    challenge.Name,
		Message: fmt.Sprintf("¡Felicidades! Has completado el reto %q", challenge.Name),
	})
}

// emit writes the durable row first and only broadcasts rows that persisted.
func (s *notificationService) emit(ctx context.Context, userID int64, notificationType string, content models.NotificationContent) {
	notification := &models.Notification{
		UserID:  userID,
		Type:    notificationType,
		Content: content,
		IsRead:  false,
	}
	if err := models.ValidateNotification(notification); err != nil {
		s.logger.Error("refusing to emit invalid notification",
			zap.Int64("user_id", userID),
			zap.String("type", notificationType),
			zap.Error(err))
		return
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		s.logger.Error("failed to persist notification",
			zap.Int64("user_id", userID),
			zap.String("type", notificationType),
			zap.Error(err))
		return
	}
	s.broadcast(notification)
}

// broadcast pushes a persisted notification to the user's live feeds without
// blocking.
func (s *notificationService) broadcast(notification *models.Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers[notification.UserID] {
		select {
		case ch <- notification:
		default:
			s.logger.Debug("dropping notification for slow subscriber",
				zap.Int64("user_id", notification.UserID),
				zap.Int64("notification_id", notification.ID))
		}
	}
}

// ===============================
// READ SIDE
// ===============================

// GetNotifications returns the user's most recent notifications.
func (s *notificationService) GetNotifications(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	notifications, err := s.repo.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, NewInternalError("failed to fetch notifications", err)
	}
	return notifications, nil
}

// CountUnread returns the user's unread notification count.
func (s *notificationService) CountUnread(ctx context.Context, userID int64) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, NewInternalError("failed to count unread notifications", err)
	}
	return count, nil
}

// MarkAsRead marks one of the user's notifications as read.
func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID int64) error {
	if err := s.repo.MarkAsRead(ctx, userID, notificationID); err != nil {
		if repositories.IsNotFound(err) {
			return EntityNotFoundError("notification", notificationID)
		}
		return NewInternalError("failed to mark notification as read", err)
	}
	return nil
}

// MarkAllAsRead marks all of the user's notifications as read.
func (s *notificationService) MarkAllAsRead(ctx context.Context, userID int64) error {
	if err := s.repo.MarkAllAsRead(ctx, userID); err != nil {
		return NewInternalError("failed to mark notifications as read", err)
	}
	return nil
}

// ===============================
// LIVE FEED
// ===============================

// Subscribe opens a live feed of the user's new notifications. The returned
// cancel function is idempotent and closes the channel.
func (s *notificationService) Subscribe(userID int64) (<-chan *models.Notification, func()) {
	ch := make(chan *models.Notification, subscriberBuffer)

	s.mu.Lock()
	s.nextSubID++
	subID := s.nextSubID
	if s.subscribers[userID] == nil {
		s.subscribers[userID] = make(map[int64]chan *models.Notification)
	}
	s.subscribers[userID][subID] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if subs, ok := s.subscribers[userID]; ok {
				delete(subs, subID)
				if len(subs) == 0 {
					delete(s.subscribers, userID)
				}
			}
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
