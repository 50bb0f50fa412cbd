package models

import "time"

// ResultStatus tracks the approval workflow of a computed result.
type ResultStatus string

const (
	ResultStatusPending  ResultStatus = "pending"
	ResultStatusApproved ResultStatus = "approved"
	ResultStatusFrozen   ResultStatus = "frozen"
)

// Valid reports whether the status is one of the three workflow states.
func (s ResultStatus) Valid() bool {
	switch s {
	case ResultStatusPending, ResultStatusApproved, ResultStatusFrozen:
		return true
	}
	return false
}

// Result is the computed semester-level aggregate for one student. Computed
// columns are owned by the aggregator; Status and ApprovedBy are owned by the
// approval workflow and survive recomputation. One row per (student, semester).
type Result struct {
	ID            string       `db:"id" json:"id"`
	StudentID     string       `db:"student_id" json:"student_id"`
	Semester      string       `db:"semester" json:"semester"`
	TotalMarks    float64      `db:"total_marks" json:"total_marks"`
	TotalMaxMarks int          `db:"total_max_marks" json:"total_max_marks"`
	Percentage    float64      `db:"percentage" json:"percentage"`
	Grade         string       `db:"grade" json:"grade"`
	SGPA          float64      `db:"sgpa" json:"sgpa"`
	Status        ResultStatus `db:"status" json:"status"`
	ApprovedBy    *string      `db:"approved_by" json:"approved_by,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`

	// Passed is derived at read time from the grading schema: a result fails
	// iff its grade equals the schema's failing grade. Not persisted.
	Passed *bool `db:"-" json:"passed,omitempty"`
}

// SemesterSummary aggregates result outcomes for one semester. PassCount uses
// the canonical grade-based rule; ThresholdPassCount is the secondary
// percentage-vs-pass-threshold signal surfaced for analytics only.
type SemesterSummary struct {
	Semester           string  `db:"semester" json:"semester"`
	StudentCount       int     `db:"student_count" json:"student_count"`
	PassCount          int     `db:"pass_count" json:"pass_count"`
	FailCount          int     `db:"fail_count" json:"fail_count"`
	ThresholdPassCount int     `db:"threshold_pass_count" json:"threshold_pass_count"`
	AveragePercentage  float64 `db:"average_percentage" json:"average_percentage"`
}
