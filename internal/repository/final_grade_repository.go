package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/atms-platform/atms-api/internal/models"
)

// FinalGradeRepository manages final grade rollups.
type FinalGradeRepository struct {
	db *sqlx.DB
}

// NewFinalGradeRepository constructs the repository.
func NewFinalGradeRepository(db *sqlx.DB) *FinalGradeRepository {
	return &FinalGradeRepository{db: db}
}

const finalGradeColumns = `id, trainee_id, trainee_name, courses, total, average, cgpa, created_at, updated_at`

// Upsert wholesale-replaces the rollup for a trainee. The record is a
// snapshot, so every column is overwritten rather than merged.
func (r *FinalGradeRepository) Upsert(ctx context.Context, record *models.FinalGradeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO final_grades (id, trainee_id, trainee_name, courses, total, average, cgpa, created_at, updated_at)
        VALUES (:id, :trainee_id, :trainee_name, :courses, :total, :average, :cgpa, :created_at, :updated_at)
        ON CONFLICT (trainee_id)
        DO UPDATE SET trainee_name = EXCLUDED.trainee_name, courses = EXCLUDED.courses, total = EXCLUDED.total, average = EXCLUDED.average, cgpa = EXCLUDED.cgpa, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert final grade: %w", err)
	}
	return nil
}

// FindByTrainee returns the stored rollup for a trainee.
func (r *FinalGradeRepository) FindByTrainee(ctx context.Context, traineeID string) (*models.FinalGradeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM final_grades WHERE trainee_id = $1 LIMIT 1`, finalGradeColumns)
	var record models.FinalGradeRecord
	if err := r.db.GetContext(ctx, &record, query, traineeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find final grade: %w", err)
	}
	return &record, nil
}

// List returns every stored rollup ordered by trainee name.
func (r *FinalGradeRepository) List(ctx context.Context) ([]models.FinalGradeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM final_grades ORDER BY trainee_name`, finalGradeColumns)
	var records []models.FinalGradeRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list final grades: %w", err)
	}
	return records, nil
}
