package models

import (
	"time"

	"github.com/lib/pq"
)

// CourseStatus labels the lifecycle of a course.
type CourseStatus string

const (
	// CourseStatusDraft means no trainer has been resolved yet.
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusActive    CourseStatus = "active"
	CourseStatusCompleted CourseStatus = "completed"
	CourseStatusCancelled CourseStatus = "cancelled"
)

// CourseLevel classifies course difficulty.
type CourseLevel string

const (
	CourseLevelBeginner     CourseLevel = "beginner"
	CourseLevelIntermediate CourseLevel = "intermediate"
	CourseLevelAdvanced     CourseLevel = "advanced"
)

// Valid returns true when the level is a supported value.
func (l CourseLevel) Valid() bool {
	switch l {
	case CourseLevelBeginner, CourseLevelIntermediate, CourseLevelAdvanced:
		return true
	default:
		return false
	}
}

// Course is a training offering. InstructorName is free text typed by the
// admin; InstructorID is the resolved user reference and is empty while the
// named trainer has no account. Status is always derived, never set directly.
type Course struct {
	ID             string         `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	InstructorName string         `db:"instructor_name" json:"instructor_name"`
	InstructorID   string         `db:"instructor_id" json:"instructor_id"`
	Category       string         `db:"category" json:"category"`
	Level          CourseLevel    `db:"level" json:"level"`
	StartDate      time.Time      `db:"start_date" json:"start_date"`
	EndDate        time.Time      `db:"end_date" json:"end_date"`
	Hours          int            `db:"hours" json:"hours"`
	Materials      pq.StringArray `db:"materials" json:"materials"`
	Status         CourseStatus   `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Status       CourseStatus
	Level        CourseLevel
	Category     string
	InstructorID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
