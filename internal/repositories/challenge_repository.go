package repositories

import (
	"context"
	"fmt"

	"economix/internal/database"
	"economix/internal/models"

	"go.uber.org/zap"
)

// challengeRepository implements ChallengeRepository.
type challengeRepository struct {
	*BaseRepository
}

// NewChallengeRepository creates a new challenge repository.
func NewChallengeRepository(db *database.Manager, logger *zap.Logger) ChallengeRepository {
	return &challengeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// GetActiveEnrollments returns the user's pending or active enrollments
// joined to their active challenge definitions.
func (r *challengeRepository) GetActiveEnrollments(ctx context.Context, userID int64) ([]*models.UserChallenge, error) {
	query := `
		SELECT
			uc.user_id, uc.challenge_id, uc.start_date, uc.status, uc.progress, uc.completed_at,
			c.id, c.name, c.description, c.criteria, c.target_value, c.current_value,
			c.start_date, c.end_date, c.status, c.active, c.created_at
		FROM user_challenges uc
		JOIN challenges c ON c.id = uc.challenge_id
		WHERE uc.user_id = $1
		  AND uc.status IN ('pending', 'active')
		  AND c.active = TRUE
		ORDER BY uc.start_date ASC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*models.UserChallenge
	for rows.Next() {
		enrollment := &models.UserChallenge{Challenge: &models.Challenge{}}
		if err := rows.Scan(
			&enrollment.UserID,
			&enrollment.ChallengeID,
			&enrollment.StartDate,
			&enrollment.Status,
			&enrollment.Progress,
			&enrollment.CompletedAt,
			&enrollment.Challenge.ID,
			&enrollment.Challenge.Name,
			&enrollment.Challenge.Description,
			&enrollment.Challenge.Criteria,
			&enrollment.Challenge.TargetValue,
			&enrollment.Challenge.CurrentValue,
			&enrollment.Challenge.StartDate,
			&enrollment.Challenge.EndDate,
			&enrollment.Challenge.Status,
			&enrollment.Challenge.Active,
			&enrollment.Challenge.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan challenge enrollment: %w", err)
		}
		enrollments = append(enrollments, enrollment)
	}

	return enrollments, rows.Err()
}

// UpdateEnrollment persists progress, status and completed_at for an
// enrollment.
func (r *challengeRepository) UpdateEnrollment(ctx context.Context, row *models.UserChallenge) error {
	query := `
		UPDATE user_challenges
		SET progress = $3, status = $4, completed_at = $5
		WHERE user_id = $1 AND challenge_id = $2`

	result, err := r.ExecContext(ctx, query, row.UserID, row.ChallengeID, row.Progress, row.Status, row.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update challenge enrollment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("challenge enrollment not found for user %d challenge %d", row.UserID, row.ChallengeID)
	}

	return nil
}
