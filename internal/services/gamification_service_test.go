package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"economix/internal/cache"
	"economix/internal/config"
	"economix/internal/models"
)

// ===============================
// FAKES
// ===============================

type fakeAchievementRepo struct {
	achievements []*models.Achievement
	progress     []*models.UserAchievementProgress

	created []*models.UserAchievementProgress
	updated []*models.UserAchievementProgress

	catalogErr  error
	progressErr error
	createErr   error
	updateErr   error
}

func (f *fakeAchievementRepo) GetAllAchievements(ctx context.Context) ([]*models.Achievement, error) {
	return f.achievements, f.catalogErr
}

func (f *fakeAchievementRepo) GetProgressByUserID(ctx context.Context, userID int64) ([]*models.UserAchievementProgress, error) {
	return f.progress, f.progressErr
}

func (f *fakeAchievementRepo) CreateProgress(ctx context.Context, row *models.UserAchievementProgress) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, row)
	return nil
}

func (f *fakeAchievementRepo) UpdateProgress(ctx context.Context, row *models.UserAchievementProgress) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, row)
	return nil
}

type fakeChallengeRepo struct {
	enrollments []*models.UserChallenge
	updated     []*models.UserChallenge

	listErr   error
	updateErr error
}

func (f *fakeChallengeRepo) GetActiveEnrollments(ctx context.Context, userID int64) ([]*models.UserChallenge, error) {
	return f.enrollments, f.listErr
}

func (f *fakeChallengeRepo) UpdateEnrollment(ctx context.Context, row *models.UserChallenge) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, row)
	return nil
}

type fakeSnapshotService struct {
	snapshot *models.FinancialSnapshot
	builds   int
}

func (f *fakeSnapshotService) BuildSnapshot(ctx context.Context, userID int64) *models.FinancialSnapshot {
	f.builds++
	if f.snapshot != nil {
		return f.snapshot
	}
	return models.EmptySnapshot(userID)
}

type fakeNotifier struct {
	achievements []int64
	challenges   []int64
}

func (f *fakeNotifier) NotifyAchievement(ctx context.Context, userID int64, achievement *models.Achievement) {
	f.achievements = append(f.achievements, achievement.ID)
}

func (f *fakeNotifier) NotifyChallenge(ctx context.Context, userID int64, challenge *models.Challenge) {
	f.challenges = append(f.challenges, challenge.ID)
}

func (f *fakeNotifier) GetNotifications(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	return nil, nil
}

func (f *fakeNotifier) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

func (f *fakeNotifier) MarkAsRead(ctx context.Context, userID, notificationID int64) error {
	return nil
}

func (f *fakeNotifier) MarkAllAsRead(ctx context.Context, userID int64) error {
	return nil
}

func (f *fakeNotifier) Subscribe(userID int64) (<-chan *models.Notification, func()) {
	ch := make(chan *models.Notification)
	return ch, func() { close(ch) }
}

// ===============================
// HELPERS
// ===============================

func newTestGamification(t *testing.T, achievements *fakeAchievementRepo, challenges *fakeChallengeRepo, snapshots *fakeSnapshotService, notifier *fakeNotifier) GamificationService {
	t.Helper()
	cfg := &config.CacheConfig{Provider: "memory", CatalogTTL: time.Minute}
	cacheStore, err := cache.New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { cacheStore.Close() })

	return NewGamificationService(achievements, challenges, snapshots, notifier, cacheStore, nil, cfg, zap.NewNop())
}

func countAchievement(id int64, target float64) *models.Achievement {
	return &models.Achievement{
		ID:       id,
		Name:     "Primer paso",
		Criteria: models.Criteria{Type: models.CriterionTransactionCount, Target: target},
	}
}

func snapshotWithTransactions(n int) *models.FinancialSnapshot {
	snapshot := models.EmptySnapshot(1)
	for i := 0; i < n; i++ {
		snapshot.Transactions = append(snapshot.Transactions, incomeTx(1, 10))
	}
	return snapshot
}

// ===============================
// ACHIEVEMENT LOOP
// ===============================

func TestEvaluateUserAchievements_CreatesAndUnlocks(t *testing.T) {
	achievements := &fakeAchievementRepo{achievements: []*models.Achievement{countAchievement(1, 1)}}
	notifier := &fakeNotifier{}
	svc := newTestGamification(t, achievements, &fakeChallengeRepo{}, &fakeSnapshotService{snapshot: snapshotWithTransactions(1)}, notifier)

	ok := svc.EvaluateUserAchievements(context.Background(), 1)

	assert.True(t, ok)
	require.Len(t, achievements.created, 1)
	row := achievements.created[0]
	assert.True(t, row.Progress.Complete)
	require.NotNil(t, row.AchievedAt)
	assert.Equal(t, []int64{1}, notifier.achievements)
}

func TestEvaluateUserAchievements_UpdatesExistingRow(t *testing.T) {
	achievements := &fakeAchievementRepo{
		achievements: []*models.Achievement{countAchievement(1, 10)},
		progress: []*models.UserAchievementProgress{
			{UserID: 1, AchievementID: 1, Progress: models.Progress{}},
		},
	}
	notifier := &fakeNotifier{}
	svc := newTestGamification(t, achievements, &fakeChallengeRepo{}, &fakeSnapshotService{snapshot: snapshotWithTransactions(3)}, notifier)

	ok := svc.EvaluateUserAchievements(context.Background(), 1)

	assert.True(t, ok)
	assert.Empty(t, achievements.created)
	require.Len(t, achievements.updated, 1)
	row := achievements.updated[0]
	assert.Equal(t, 3.0, *row.Progress.Current)
	assert.False(t, row.Progress.Complete)
	assert.Nil(t, row.AchievedAt)
	assert.Empty(t, notifier.achievements)
}

func TestEvaluateUserAchievements_CompleteRowsAreFinal(t *testing.T) {
	achieved := time.Now().Add(-time.Hour)
	achievements := &fakeAchievementRepo{
		achievements: []*models.Achievement{countAchievement(1, 1)},
		progress: []*models.UserAchievementProgress{
			{UserID: 1, AchievementID: 1, Progress: models.Progress{Complete: true}, AchievedAt: &achieved},
		},
	}
	notifier := &fakeNotifier{}
	svc := newTestGamification(t, achievements, &fakeChallengeRepo{}, &fakeSnapshotService{snapshot: snapshotWithTransactions(5)}, notifier)

	ok := svc.EvaluateUserAchievements(context.Background(), 1)

	assert.True(t, ok)
	assert.Empty(t, achievements.created)
	assert.Empty(t, achievements.updated, "complete rows must never be rewritten")
	assert.Empty(t, notifier.achievements, "no second notification after completion")
}

func TestEvaluateUserAchievements_SkipsInvalidCriteria(t *testing.T) {
	achievements := &fakeAchievementRepo{
		achievements: []*models.Achievement{
			{ID: 1, Name: "Roto", Criteria: models.Criteria{Type: models.CriterionTransactionCount, Target: 0}},
			countAchievement(2, 1),
		},
	}
	svc := newTestGamification(t, achievements, &fakeChallengeRepo{}, &fakeSnapshotService{snapshot: snapshotWithTransactions(1)}, &fakeNotifier{})

	ok := svc.EvaluateUserAchievements(context.Background(), 1)

	assert.True(t, ok)
	require.Len(t, achievements.created, 1)
	assert.Equal(t, int64(2), achievements.created[0].AchievementID)
}

func TestEvaluateUserAchievements_SkipsUnnamedCatalogRow(t *testing.T) {
	achievements := &fakeAchievementRepo{
		achievements: []*models.Achievement{
			{ID: 1, Criteria: models.Criteria{Type: models.CriterionTransactionCount, Target: 1}},
			countAchievement(2, 1),
		},
	}
	svc := newTestGamification(t, achievements, &fakeChallengeRepo{}, &fakeSnapshotService{snapshot: snapshotWithTransactions(1)}, &fakeNotifier{})

	ok := svc.EvaluateUserAchievements(context.Background(), 1)

	assert.True(t, ok)
	require.Len(t, achievements.created, 1, "a nameless catalog row must be skipped, not evaluated")
	assert.Equal(t, int64(2), achievements.created[0].AchievementID)
}

func TestEvaluateUserAchievements_PersistFailureIsIsolated(t *testing.T) {
	achievements := &fakeAchievementRepo{
		achievements: []*models.Achievement{countAchievement(1, 1), countAchievement(2, 1)},
		createErr:    errors.New("insert failed"),
	}
	notifier := &fakeNotifier{}
	svc := newTestGamification(t, achievements, &fakeChallengeRepo{}, &fakeSnapshotService{snapshot: snapshotWithTransactions(1)}, notifier)

	ok := svc.EvaluateUserAchievements(context.Background(), 1)

	assert.False(t, ok, "a persist failure must surface in the result")
	assert.Empty(t, notifier.achievements, "no notification without a persisted row")
}

func TestEvaluateUserAchievements_CatalogReadFailure(t *testing.T) {
	achievements := &fakeAchievementRepo{catalogErr: errors.New("db down")}
	svc := newTestGamification(t, achievements, &fakeChallengeRepo{}, &fakeSnapshotService{}, &fakeNotifier{})

	assert.False(t, svc.EvaluateUserAchievements(context.Background(), 1))
}

func TestEvaluateUserAchievements_CatalogIsCached(t *testing.T) {
	achievements := &fakeAchievementRepo{achievements: []*models.Achievement{countAchievement(1, 100)}}
	svc := newTestGamification(t, achievements, &fakeChallengeRepo{}, &fakeSnapshotService{}, &fakeNotifier{})

	require.True(t, svc.EvaluateUserAchievements(context.Background(), 1))

	// Break the repository; the second run must come from the cache.
	achievements.catalogErr = errors.New("db down")
	assert.True(t, svc.EvaluateUserAchievements(context.Background(), 1))
}

// ===============================
// CHALLENGE LOOP
// ===============================

func activeChallenge(id int64, criteria models.Criteria) *models.Challenge {
	return &models.Challenge{
		ID:        id,
		Name:      "Reto de ahorro",
		Criteria:  criteria,
		StartDate: time.Now().Add(-48 * time.Hour),
		EndDate:   time.Now().Add(48 * time.Hour),
		Status:    models.ChallengeStatusActive,
		Active:    true,
	}
}

func TestEvaluateUserChallenges_CompletesAndNotifies(t *testing.T) {
	categoryID := int64(5)
	challenge := activeChallenge(7, models.Criteria{Type: models.CriterionSaveAmount, Target: 100, CategoryID: &categoryID})
	challenges := &fakeChallengeRepo{
		enrollments: []*models.UserChallenge{
			{UserID: 1, ChallengeID: 7, Status: models.ChallengeStatusActive, Challenge: challenge},
		},
	}
	snapshot := models.EmptySnapshot(1)
	snapshot.Transactions = []*models.Transaction{
		{Type: models.TransactionTypeIncome, Amount: decimal.NewFromInt(150), CategoryID: &categoryID, Date: time.Now()},
	}
	notifier := &fakeNotifier{}
	svc := newTestGamification(t, &fakeAchievementRepo{}, challenges, &fakeSnapshotService{snapshot: snapshot}, notifier)

	ok := svc.EvaluateUserChallenges(context.Background(), 1)

	assert.True(t, ok)
	require.Len(t, challenges.updated, 1)
	row := challenges.updated[0]
	assert.True(t, row.Progress.Complete)
	assert.Equal(t, models.ChallengeStatusCompleted, row.Status)
	require.NotNil(t, row.CompletedAt)
	assert.Equal(t, []int64{7}, notifier.challenges)
}

func TestEvaluateUserChallenges_ExpiryIsStickyAndSilent(t *testing.T) {
	categoryID := int64(5)
	challenge := activeChallenge(7, models.Criteria{Type: models.CriterionSaveAmount, Target: 100, CategoryID: &categoryID})
	challenge.EndDate = time.Now().Add(-time.Hour)
	enrollment := &models.UserChallenge{UserID: 1, ChallengeID: 7, Status: models.ChallengeStatusActive, Challenge: challenge}
	challenges := &fakeChallengeRepo{enrollments: []*models.UserChallenge{enrollment}}
	notifier := &fakeNotifier{}
	svc := newTestGamification(t, &fakeAchievementRepo{}, challenges, &fakeSnapshotService{}, notifier)

	ok := svc.EvaluateUserChallenges(context.Background(), 1)

	assert.True(t, ok)
	require.Len(t, challenges.updated, 1)
	row := challenges.updated[0]
	assert.True(t, row.Progress.Expired)
	assert.False(t, row.Progress.Complete)
	assert.Equal(t, models.ChallengeStatusFailed, row.Status)
	assert.Empty(t, notifier.challenges, "expiry never notifies")

	// A second run must not touch the expired enrollment again.
	ok = svc.EvaluateUserChallenges(context.Background(), 1)
	assert.True(t, ok)
	assert.Len(t, challenges.updated, 1)
}

func TestEvaluateUserChallenges_PendingBecomesActive(t *testing.T) {
	categoryID := int64(5)
	challenge := activeChallenge(7, models.Criteria{Type: models.CriterionSaveAmount, Target: 1000, CategoryID: &categoryID})
	challenges := &fakeChallengeRepo{
		enrollments: []*models.UserChallenge{
			{UserID: 1, ChallengeID: 7, Status: models.ChallengeStatusPending, Challenge: challenge},
		},
	}
	svc := newTestGamification(t, &fakeAchievementRepo{}, challenges, &fakeSnapshotService{}, &fakeNotifier{})

	require.True(t, svc.EvaluateUserChallenges(context.Background(), 1))
	require.Len(t, challenges.updated, 1)
	assert.Equal(t, models.ChallengeStatusActive, challenges.updated[0].Status)
	assert.False(t, challenges.updated[0].Progress.Complete)
}

func TestEvaluateUserChallenges_SkipsUnnamedCatalogRow(t *testing.T) {
	categoryID := int64(5)
	challenge := activeChallenge(7, models.Criteria{Type: models.CriterionSaveAmount, Target: 100, CategoryID: &categoryID})
	challenge.Name = ""
	challenges := &fakeChallengeRepo{
		enrollments: []*models.UserChallenge{
			{UserID: 1, ChallengeID: 7, Status: models.ChallengeStatusActive, Challenge: challenge},
		},
	}
	svc := newTestGamification(t, &fakeAchievementRepo{}, challenges, &fakeSnapshotService{}, &fakeNotifier{})

	ok := svc.EvaluateUserChallenges(context.Background(), 1)

	assert.True(t, ok)
	assert.Empty(t, challenges.updated, "a nameless catalog row must be skipped, not evaluated")
}

func TestEvaluateUserChallenges_EnrollmentReadFailure(t *testing.T) {
	challenges := &fakeChallengeRepo{listErr: errors.New("db down")}
	svc := newTestGamification(t, &fakeAchievementRepo{}, challenges, &fakeSnapshotService{}, &fakeNotifier{})

	assert.False(t, svc.EvaluateUserChallenges(context.Background(), 1))
}

func TestEvaluateUserChallenges_NoEnrollmentsSkipsSnapshot(t *testing.T) {
	snapshots := &fakeSnapshotService{}
	svc := newTestGamification(t, &fakeAchievementRepo{}, &fakeChallengeRepo{}, snapshots, &fakeNotifier{})

	assert.True(t, svc.EvaluateUserChallenges(context.Background(), 1))
	assert.Zero(t, snapshots.builds)
}
