package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CourseScore is one trainer-submitted numeric grade for one trainee in one
// course. Re-submission overwrites the previous value.
type CourseScore struct {
	ID          string    `db:"id" json:"id"`
	TraineeID   string    `db:"trainee_id" json:"trainee_id"`
	TraineeName string    `db:"trainee_name" json:"trainee_name"`
	CourseID    string    `db:"course_id" json:"course_id"`
	CourseTitle string    `db:"course_title" json:"course_title"`
	Grade       float64   `db:"grade" json:"grade"`
	TrainerID   string    `db:"trainer_id" json:"trainer_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseScoreFilter scopes score queries.
type CourseScoreFilter struct {
	TraineeID string
	CourseID  string
	TrainerID string
}

// GradeLine is one graded course inside a trainee's rollup.
type GradeLine struct {
	CourseID    string  `json:"course_id"`
	CourseTitle string  `json:"course_title"`
	Grade       float64 `json:"grade"`
	LetterGrade string  `json:"letter_grade"`
}

// GradeLines supports jsonb storage of the courses column.
type GradeLines []GradeLine

// Value marshals the lines for the driver.
func (l GradeLines) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan unmarshals the jsonb column.
func (l *GradeLines) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("unsupported grade lines type %T", src)
	}
}

// FinalGradeRecord is the denormalized per-trainee rollup. It is wholesale
// replaced on every save; the CourseScore rows stay authoritative.
type FinalGradeRecord struct {
	ID          string     `db:"id" json:"id"`
	TraineeID   string     `db:"trainee_id" json:"trainee_id"`
	TraineeName string     `db:"trainee_name" json:"trainee_name"`
	Courses     GradeLines `db:"courses" json:"courses"`
	Total       float64    `db:"total" json:"total"`
	Average     float64    `db:"average" json:"average"`
	CGPA        string     `db:"cgpa" json:"cgpa"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
