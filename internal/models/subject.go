package models

import "time"

// Subject defines a gradable subject and the maximum marks a single mark
// entry can conventionally reach. MaxMarks feeds result aggregation.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	MaxMarks  int       `db:"max_marks" json:"max_marks"`
	ClassID   *string   `db:"class_id" json:"class_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures filtering criteria for listing subjects.
type SubjectFilter struct {
	ClassID string
	Search  string
}
