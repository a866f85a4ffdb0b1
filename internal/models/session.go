package models

import "time"

// Session is an academic-term envelope. Registration runs regStart..regEnd,
// training runs trainStart..trainEnd; course dates must fit the latter.
type Session struct {
	ID         string    `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	RegStart   time.Time `db:"reg_start" json:"reg_start"`
	RegEnd     time.Time `db:"reg_end" json:"reg_end"`
	TrainStart time.Time `db:"train_start" json:"train_start"`
	TrainEnd   time.Time `db:"train_end" json:"train_end"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
