package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// ClassMeeting is a scheduled meeting of a course run by a trainer.
type ClassMeeting struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	CourseTitle string    `db:"course_title" json:"course_title"`
	Date        time.Time `db:"date" json:"date"`
	Hours       int       `db:"hours" json:"hours"`
	TrainerID   string    `db:"trainer_id" json:"trainer_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AttendanceRecord marks one trainee present or absent at one meeting.
// Re-marking overwrites the previous status.
type AttendanceRecord struct {
	ID          string           `db:"id" json:"id"`
	MeetingID   string           `db:"meeting_id" json:"meeting_id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	Status      AttendanceStatus `db:"status" json:"status"`
	RecordedAt  time.Time        `db:"recorded_at" json:"recorded_at"`
}
