package models

import "time"

// DashboardStats is the admin overview snapshot.
type DashboardStats struct {
	TotalUsers       int                  `json:"total_users"`
	PendingUsers     int                  `json:"pending_users"`
	TotalCourses     int                  `json:"total_courses"`
	CoursesByStatus  map[CourseStatus]int `json:"courses_by_status"`
	TotalEnrollments int                  `json:"total_enrollments"`
	GeneratedAt      time.Time            `json:"generated_at"`
}
