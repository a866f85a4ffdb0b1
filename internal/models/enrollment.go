package models

import (
	"time"

	"github.com/lib/pq"
)

// Enrollment records a trainee joining a course. Course metadata is copied at
// enroll time and is not kept in sync with later course edits.
type Enrollment struct {
	ID             string         `db:"id" json:"id"`
	UserID         string         `db:"user_id" json:"user_id"`
	CourseID       string         `db:"course_id" json:"course_id"`
	Title          string         `db:"title" json:"title"`
	InstructorID   string         `db:"instructor_id" json:"instructor_id"`
	InstructorName string         `db:"instructor_name" json:"instructor_name"`
	Category       string         `db:"category" json:"category"`
	Level          CourseLevel    `db:"level" json:"level"`
	Hours          int            `db:"hours" json:"hours"`
	StartDate      time.Time      `db:"start_date" json:"start_date"`
	EndDate        time.Time      `db:"end_date" json:"end_date"`
	Materials      pq.StringArray `db:"materials" json:"materials"`
	Status         CourseStatus   `db:"status" json:"status"`
	EnrolledAt     time.Time      `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID   string
	CourseID string
	Page     int
	PageSize int
}
