package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/atms-platform/atms-api/internal/models"
)

// ScoreRepository manages per-course trainee scores.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository constructs the repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

const scoreColumns = `id, trainee_id, trainee_name, course_id, course_title, grade, trainer_id, created_at, updated_at`

// Upsert inserts or overwrites the score for a (trainee, course) pair.
func (r *ScoreRepository) Upsert(ctx context.Context, score *models.CourseScore) error {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}
	score.UpdatedAt = now

	const query = `INSERT INTO course_scores (id, trainee_id, trainee_name, course_id, course_title, grade, trainer_id, created_at, updated_at)
        VALUES (:id, :trainee_id, :trainee_name, :course_id, :course_title, :grade, :trainer_id, :created_at, :updated_at)
        ON CONFLICT (trainee_id, course_id)
        DO UPDATE SET grade = EXCLUDED.grade, trainee_name = EXCLUDED.trainee_name, course_title = EXCLUDED.course_title, trainer_id = EXCLUDED.trainer_id, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, score); err != nil {
		return fmt.Errorf("upsert course score: %w", err)
	}
	return nil
}

// List returns scores matching the filter.
func (r *ScoreRepository) List(ctx context.Context, filter models.CourseScoreFilter) ([]models.CourseScore, error) {
	baseQuery := fmt.Sprintf(`SELECT %s FROM course_scores WHERE 1=1`, scoreColumns)
	var conditions []string
	var args []interface{}

	if filter.TraineeID != "" {
		conditions = append(conditions, fmt.Sprintf("trainee_id = $%d", len(args)+1))
		args = append(args, filter.TraineeID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TrainerID != "" {
		conditions = append(conditions, fmt.Sprintf("trainer_id = $%d", len(args)+1))
		args = append(args, filter.TrainerID)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY trainee_name, course_title"

	var scores []models.CourseScore
	if err := r.db.SelectContext(ctx, &scores, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list course scores: %w", err)
	}
	return scores, nil
}
