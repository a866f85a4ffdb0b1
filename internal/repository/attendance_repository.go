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

// AttendanceRepository manages class meetings and attendance rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// CreateMeeting schedules a class meeting.
func (r *AttendanceRepository) CreateMeeting(ctx context.Context, meeting *models.ClassMeeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.NewString()
	}
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO class_meetings (id, course_id, course_title, date, hours, trainer_id, created_at)
        VALUES (:id, :course_id, :course_title, :date, :hours, :trainer_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, meeting); err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}
	return nil
}

// FindMeeting returns a meeting by identifier.
func (r *AttendanceRepository) FindMeeting(ctx context.Context, id string) (*models.ClassMeeting, error) {
	const query = `SELECT id, course_id, course_title, date, hours, trainer_id, created_at FROM class_meetings WHERE id = $1 LIMIT 1`
	var meeting models.ClassMeeting
	if err := r.db.GetContext(ctx, &meeting, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find meeting: %w", err)
	}
	return &meeting, nil
}

// ListMeetings returns meetings scoped by course and/or trainer.
func (r *AttendanceRepository) ListMeetings(ctx context.Context, courseID, trainerID string) ([]models.ClassMeeting, error) {
	query := `SELECT id, course_id, course_title, date, hours, trainer_id, created_at FROM class_meetings WHERE 1=1`
	var args []interface{}
	if courseID != "" {
		args = append(args, courseID)
		query += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	if trainerID != "" {
		args = append(args, trainerID)
		query += fmt.Sprintf(" AND trainer_id = $%d", len(args))
	}
	query += " ORDER BY date DESC"

	var meetings []models.ClassMeeting
	if err := r.db.SelectContext(ctx, &meetings, query, args...); err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	return meetings, nil
}

// UpsertRecord inserts or overwrites an attendance mark for one trainee at
// one meeting.
func (r *AttendanceRepository) UpsertRecord(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.RecordedAt = time.Now().UTC()
	const query = `INSERT INTO attendance_records (id, meeting_id, student_id, student_name, status, recorded_at)
        VALUES (:id, :meeting_id, :student_id, :student_name, :status, :recorded_at)
        ON CONFLICT (meeting_id, student_id)
        DO UPDATE SET status = EXCLUDED.status, student_name = EXCLUDED.student_name, recorded_at = EXCLUDED.recorded_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert attendance record: %w", err)
	}
	return nil
}

// ListRecords returns attendance rows for a meeting.
func (r *AttendanceRepository) ListRecords(ctx context.Context, meetingID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, meeting_id, student_id, student_name, status, recorded_at FROM attendance_records WHERE meeting_id = $1 ORDER BY student_name`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, meetingID); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}
