package models

import "time"

// Student is the read-side reference entity marks and results point at.
// Roster management lives in the admin platform; this service only needs
// existence checks and display fields.
type Student struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	ClassID   *string   `db:"class_id" json:"class_id,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
