package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"economix/internal/models"
)

type fakeNotificationRepo struct {
	created   []*models.Notification
	createErr error

	markedRead    []int64
	markedAllRead []int64
	markReadErr   error
}

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	notification.ID = int64(len(f.created) + 1)
	f.created = append(f.created, notification)
	return nil
}

func (f *fakeNotificationRepo) GetByUserID(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	return f.created, nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	for _, n := range f.created {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkAsRead(ctx context.Context, userID, notificationID int64) error {
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.markedRead = append(f.markedRead, notificationID)
	return nil
}

func (f *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, userID int64) error {
	f.markedAllRead = append(f.markedAllRead, userID)
	return nil
}

func TestNotifyAchievement_PersistsDurableRow(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, zap.NewNop())

	svc.NotifyAchievement(context.Background(), 1, &models.Achievement{ID: 9, Name: "Ahorrador"})

	require.Len(t, repo.created, 1)
	row := repo.created[0]
	assert.Equal(t, int64(1), row.UserID)
	assert.Equal(t, models.NotificationTypeAchievement, row.Type)
	assert.Equal(t, int64(9), row.Content.ID)
	assert.Equal(t, "Ahorrador", row.Content.Name)
	assert.NotEmpty(t, row.Content.Message)
	assert.False(t, row.IsRead)
}

func TestNotifyChallenge_PersistsDurableRow(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, zap.NewNop())

	svc.NotifyChallenge(context.Background(), 1, &models.Challenge{ID: 4, Name: "Mes sin caprichos"})

	require.Len(t, repo.created, 1)
	assert.Equal(t, models.NotificationTypeChallenge, repo.created[0].Type)
}

func TestNotify_WriteFailureDoesNotPanic(t *testing.T) {
	repo := &fakeNotificationRepo{createErr: errors.New("insert failed")}
	svc := NewNotificationService(repo, zap.NewNop())

	assert.NotPanics(t, func() {
		svc.NotifyAchievement(context.Background(), 1, &models.Achievement{ID: 9, Name: "Ahorrador"})
	})
	assert.Empty(t, repo.created)
}

func TestSubscribe_ReceivesPersistedNotifications(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, zap.NewNop())

	feed, cancel := svc.Subscribe(1)
	defer cancel()

	svc.NotifyAchievement(context.Background(), 1, &models.Achievement{ID: 9, Name: "Ahorrador"})

	select {
	case notification := <-feed:
		assert.Equal(t, int64(9), notification.Content.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a notification on the feed")
	}
}

func TestSubscribe_OtherUsersDoNotReceive(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, zap.NewNop())

	feed, cancel := svc.Subscribe(2)
	defer cancel()

	svc.NotifyAchievement(context.Background(), 1, &models.Achievement{ID: 9, Name: "Ahorrador"})

	select {
	case <-feed:
		t.Fatal("notification leaked to another user's feed")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_CancelIsIdempotent(t *testing.T) {
	svc := NewNotificationService(&fakeNotificationRepo{}, zap.NewNop())

	feed, cancel := svc.Subscribe(1)
	cancel()
	assert.NotPanics(t, cancel)

	_, open := <-feed
	assert.False(t, open, "cancel must close the feed channel")
}

func TestMarkAsRead_DelegatesToRepository(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, zap.NewNop())

	require.NoError(t, svc.MarkAsRead(context.Background(), 1, 33))
	assert.Equal(t, []int64{33}, repo.markedRead)

	require.NoError(t, svc.MarkAllAsRead(context.Background(), 1))
	assert.Equal(t, []int64{1}, repo.markedAllRead)
}

func TestMarkAsRead_MissingRowMapsToNotFound(t *testing.T) {
	repo := &fakeNotificationRepo{
		markReadErr: fmt.Errorf("notification 33 not found for user 1: %w", sql.ErrNoRows),
	}
	svc := NewNotificationService(repo, zap.NewNop())

	err := svc.MarkAsRead(context.Background(), 1, 33)

	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsValidationError(err))
	serviceErr := GetServiceError(err)
	require.NotNil(t, serviceErr)
	assert.Equal(t, http.StatusNotFound, serviceErr.StatusCode)
	assert.Equal(t, "notification", serviceErr.Details["entity_type"])
}
