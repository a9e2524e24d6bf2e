package repositories

import (
	"context"
	"fmt"
	"time"

	"economix/internal/database"
	"economix/internal/models"

	"go.uber.org/zap"
)

// achievementRepository implements AchievementRepository.
type achievementRepository struct {
	*BaseRepository
}

// NewAchievementRepository creates a new achievement repository.
func NewAchievementRepository(db *database.Manager, logger *zap.Logger) AchievementRepository {
	return &achievementRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// GetAllAchievements returns the full achievement catalog.
func (r *achievementRepository) GetAllAchievements(ctx context.Context) ([]*models.Achievement, error) {
	query := `
		SELECT id, name, description, criteria, badge_image, created_at, updated_at
		FROM achievements
		ORDER BY id ASC`

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*models.Achievement
	for rows.Next() {
		achievement := &models.Achievement{}
		if err := rows.Scan(
			&achievement.ID,
			&achievement.Name,
			&achievement.Description,
			&achievement.Criteria,
			&achievement.BadgeImage,
			&achievement.CreatedAt,
			&achievement.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, achievement)
	}

	return achievements, rows.Err()
}

// GetProgressByUserID returns all progress rows for a user.
func (r *achievementRepository) GetProgressByUserID(ctx context.Context, userID int64) ([]*models.UserAchievementProgress, error) {
	query := `
		SELECT user_id, achievement_id, progress, achieved_at, created_at, updated_at
		FROM user_achievement_progress
		WHERE user_id = $1`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievement progress: %w", err)
	}
	defer rows.Close()

	var progress []*models.UserAchievementProgress
	for rows.Next() {
		row := &models.UserAchievementProgress{}
		if err := rows.Scan(
			&row.UserID,
			&row.AchievementID,
			&row.Progress,
			&row.AchievedAt,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan achievement progress: %w", err)
		}
		progress = append(progress, row)
	}

	return progress, rows.Err()
}

// CreateProgress inserts a lazily created progress row. The (user_id,
// achievement_id) pair is the primary key; a concurrent insert loses to the
// existing row.
func (r *achievementRepository) CreateProgress(ctx context.Context, row *models.UserAchievementProgress) error {
	query := `
		INSERT INTO user_achievement_progress (user_id, achievement_id, progress, achieved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`

	now := time.Now()
	row.CreatedAt = now
	row.UpdatedAt = now

	if _, err := r.ExecContext(ctx, query, row.UserID, row.AchievementID, row.Progress, row.AchievedAt, now); err != nil {
		return fmt.Errorf("failed to create achievement progress: %w", err)
	}

	return nil
}

// UpdateProgress rewrites progress and achieved_at for an existing row.
func (r *achievementRepository) UpdateProgress(ctx context.Context, row *models.UserAchievementProgress) error {
	query := `
		UPDATE user_achievement_progress
		SET progress = $3, achieved_at = $4, updated_at = $5
		WHERE user_id = $1 AND achievement_id = $2`

	now := time.Now()
	row.UpdatedAt = now

	result, err := r.ExecContext(ctx, query, row.UserID, row.AchievementID, row.Progress, row.AchievedAt, now)
	if err != nil {
		return fmt.Errorf("failed to update achievement progress: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("achievement progress row not found for user %d achievement %d", row.UserID, row.AchievementID)
	}

	return nil
}
