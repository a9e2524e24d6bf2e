package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"economix/internal/cache"
	"economix/internal/config"
	"economix/internal/events"
	"economix/internal/models"
	"economix/internal/repositories"
)

// achievementCatalogKey caches the full achievement catalog. Challenges are
// not cached: the active-enrollment query is already per-user and joined.
const achievementCatalogKey = "catalog:achievements"

// ===============================
// GAMIFICATION SERVICE
// ===============================

// gamificationService runs the two evaluation loops. Both loops are designed
// to never fail the caller: every error is logged, isolated to the item that
// produced it, and folded into the boolean result.
type gamificationService struct {
	achievements  repositories.AchievementRepository
	challenges    repositories.ChallengeRepository
	snapshots     SnapshotService
	notifications NotificationService
	cache         cache.Cache
	eventBus      events.EventBus
	cfg           *config.CacheConfig
	logger        *zap.Logger
}

// NewGamificationService creates the evaluation engine service.
func NewGamificationService(
	achievements repositories.AchievementRepository,
	challenges repositories.ChallengeRepository,
	snapshots SnapshotService,
	notifications NotificationService,
	cacheStore cache.Cache,
	eventBus events.EventBus,
	cfg *config.CacheConfig,
	logger *zap.Logger,
) GamificationService {
	return &gamificationService{
		achievements:  achievements,
		challenges:    challenges,
		snapshots:     snapshots,
		notifications: notifications,
		cache:         cacheStore,
		eventBus:      eventBus,
		cfg:           cfg,
		logger:        logger,
	}
}

// ===============================
// ACHIEVEMENT LOOP
// ===============================

// EvaluateUserAchievements evaluates every catalog achievement against a
// fresh snapshot. Returns false when the catalog or progress rows could not
// be read, or when any item failed to persist.
func (s *gamificationService) EvaluateUserAchievements(ctx context.Context, userID int64) bool {
	catalog, err := s.getAchievementCatalog(ctx)
	if err != nil {
		s.logger.Error("failed to load achievement catalog",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return false
	}

	progressRows, err := s.achievements.GetProgressByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load achievement progress",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return false
	}
	progressByID := make(map[int64]*models.UserAchievementProgress, len(progressRows))
	for _, row := range progressRows {
		progressByID[row.AchievementID] = row
	}

	snapshot := s.snapshots.BuildSnapshot(ctx, userID)

	ok := true
	for _, achievement := range catalog {
		if !s.evaluateAchievement(ctx, userID, achievement, progressByID[achievement.ID], snapshot) {
			ok = false
		}
	}
	return ok
}

// evaluateAchievement processes one catalog item. Complete rows are final
// and short-circuit before any criterion work.
func (s *gamificationService) evaluateAchievement(ctx context.Context, userID int64, achievement *models.Achievement, row *models.UserAchievementProgress, snapshot *models.FinancialSnapshot) bool {
	if row != nil && row.Progress.Complete {
		return true
	}

	if err := models.ValidateAchievement(achievement); err != nil {
		s.logger.Warn("skipping invalid achievement catalog row",
			zap.Int64("achievement_id", achievement.ID),
			zap.Error(err))
		return true
	}

	var prior models.Progress
	if row != nil {
		prior = row.Progress
	}
	next, handled := EvaluateCriteria(achievement.Criteria, snapshot, prior)
	if !handled {
		s.logger.Warn("skipping achievement with unknown criterion type",
			zap.Int64("achievement_id", achievement.ID),
			zap.String("criterion_type", string(achievement.Criteria.Type)))
		return true
	}

	unlocked := next.Complete && !prior.Complete
	now := time.Now()

	if row == nil {
		row = &models.UserAchievementProgress{
			UserID:        userID,
			AchievementID: achievement.ID,
			Progress:      next,
		}
		if unlocked {
			row.AchievedAt = &now
		}
		if err := s.achievements.CreateProgress(ctx, row); err != nil {
			s.logger.Error("failed to create achievement progress",
				zap.Int64("user_id", userID),
				zap.Int64("achievement_id", achievement.ID),
				zap.Error(err))
			return false
		}
	} else {
		row.Progress = next
		if unlocked && row.AchievedAt == nil {
			row.AchievedAt = &now
		}
		if err := s.achievements.UpdateProgress(ctx, row); err != nil {
			s.logger.Error("failed to update achievement progress",
				zap.Int64("user_id", userID),
				zap.Int64("achievement_id", achievement.ID),
				zap.Error(err))
			return false
		}
	}

	if unlocked {
		s.logger.Info("achievement unlocked",
			zap.Int64("user_id", userID),
			zap.Int64("achievement_id", achievement.ID),
			zap.String("name", achievement.Name))
		s.notifications.NotifyAchievement(ctx, userID, achievement)
		s.publish(ctx, events.NewAchievementUnlockedEvent(userID, achievement.ID, achievement.Name))
	}
	return true
}

// ===============================
// CHALLENGE LOOP
// ===============================

// EvaluateUserChallenges evaluates the user's pending and active
// enrollments. Returns false when the enrollments could not be read or any
// item failed to persist.
func (s *gamificationService) EvaluateUserChallenges(ctx context.Context, userID int64) bool {
	enrollments, err := s.challenges.GetActiveEnrollments(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load challenge enrollments",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return false
	}
	if len(enrollments) == 0 {
		return true
	}

	snapshot := s.snapshots.BuildSnapshot(ctx, userID)

	ok := true
	for _, enrollment := range enrollments {
		if !s.evaluateChallenge(ctx, userID, enrollment, snapshot) {
			ok = false
		}
	}
	return ok
}

// evaluateChallenge processes one enrollment. Expiry is sticky: once a
// challenge is marked expired it is never re-evaluated, and expiry itself
// produces no notification.
func (s *gamificationService) evaluateChallenge(ctx context.Context, userID int64, enrollment *models.UserChallenge, snapshot *models.FinancialSnapshot) bool {
	if enrollment.Progress.Complete || enrollment.Progress.Expired {
		return true
	}
	challenge := enrollment.Challenge
	if challenge == nil {
		s.logger.Warn("skipping enrollment without joined challenge",
			zap.Int64("user_id", userID),
			zap.Int64("challenge_id", enrollment.ChallengeID))
		return true
	}

	now := time.Now()
	if now.After(challenge.EndDate) {
		enrollment.Progress.Expired = true
		enrollment.Status = models.ChallengeStatusFailed
		if err := s.challenges.UpdateEnrollment(ctx, enrollment); err != nil {
			s.logger.Error("failed to expire challenge enrollment",
				zap.Int64("user_id", userID),
				zap.Int64("challenge_id", enrollment.ChallengeID),
				zap.Error(err))
			return false
		}
		s.logger.Info("challenge expired",
			zap.Int64("user_id", userID),
			zap.Int64("challenge_id", enrollment.ChallengeID),
			zap.Time("end_date", challenge.EndDate))
		return true
	}

	if err := models.ValidateChallenge(challenge); err != nil {
		s.logger.Warn("skipping invalid challenge catalog row",
			zap.Int64("challenge_id", challenge.ID),
			zap.Error(err))
		return true
	}

	next, handled := EvaluateCriteria(challenge.Criteria, snapshot, enrollment.Progress)
	if !handled {
		s.logger.Warn("skipping challenge with unknown criterion type",
			zap.Int64("challenge_id", challenge.ID),
			zap.String("criterion_type", string(challenge.Criteria.Type)))
		return true
	}

	completed := next.Complete && !enrollment.Progress.Complete
	enrollment.Progress = next
	if completed {
		enrollment.Status = models.ChallengeStatusCompleted
		if enrollment.CompletedAt == nil {
			enrollment.CompletedAt = &now
		}
	} else if enrollment.Status == models.ChallengeStatusPending {
		enrollment.Status = models.ChallengeStatusActive
	}

	if err := s.challenges.UpdateEnrollment(ctx, enrollment); err != nil {
		s.logger.Error("failed to update challenge enrollment",
			zap.Int64("user_id", userID),
			zap.Int64("challenge_id", enrollment.ChallengeID),
			zap.Error(err))
		return false
	}

	if completed {
		s.logger.Info("challenge completed",
			zap.Int64("user_id", userID),
			zap.Int64("challenge_id", challenge.ID),
			zap.String("name", challenge.Name))
		s.notifications.NotifyChallenge(ctx, userID, challenge)
		s.publish(ctx, events.NewChallengeCompletedEvent(userID, challenge.ID, challenge.Name))
	}
	return true
}

// ===============================
// CATALOG CACHE
// ===============================

// getAchievementCatalog returns the cached catalog, falling back to the
// repository and repopulating the cache on a miss. Cache failures degrade to
// the repository silently.
func (s *gamificationService) getAchievementCatalog(ctx context.Context) ([]*models.Achievement, error) {
	if data, found := s.cache.Get(ctx, achievementCatalogKey); found {
		var catalog []*models.Achievement
		if err := json.Unmarshal(data, &catalog); err == nil {
			return catalog, nil
		}
		s.logger.Warn("discarding corrupt cached achievement catalog")
		if err := s.cache.Delete(ctx, achievementCatalogKey); err != nil {
			s.logger.Debug("failed to delete corrupt catalog entry", zap.Error(err))
		}
	}

	catalog, err := s.achievements.GetAllAchievements(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, achievementCatalogKey, catalog, s.cfg.CatalogTTL); err != nil {
		s.logger.Warn("failed to cache achievement catalog", zap.Error(err))
	}
	return catalog, nil
}

// publish sends an engine event without letting bus problems affect the
// evaluation result.
func (s *gamificationService) publish(ctx context.Context, event events.Event) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishAsync(ctx, event); err != nil {
		s.logger.Debug("failed to publish engine event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err))
	}
}
