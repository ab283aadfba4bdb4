package models

import "time"

// Course is a read-only lookup row used to derive moderator rights.
// Course lifecycle itself is owned by the enrollment system, not this API.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	TeacherEmail string    `db:"teacher_email" json:"teacher_email"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
