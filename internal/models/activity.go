package models

import "time"

// ActivityLog is an append-only "who did what" record shown in the admin's
// recent-activity feed.
type ActivityLog struct {
	ID        string    `db:"id" json:"id"`
	UserName  string    `db:"user_name" json:"user_name"`
	Action    string    `db:"action" json:"action"`
	Target    string    `db:"target" json:"target"`
	Details   string    `db:"details" json:"details"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
