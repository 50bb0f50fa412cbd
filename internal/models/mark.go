package models

import "time"

// ExamType classifies a mark entry.
type ExamType string

const (
	ExamTypeFinal      ExamType = "final"
	ExamTypeMidterm    ExamType = "midterm"
	ExamTypeAssignment ExamType = "assignment"
	ExamTypeQuiz       ExamType = "quiz"
)

// Mark is one recorded score for one student, one subject, one exam type and
// one semester. The tuple (student, subject, exam type, semester) is unique;
// corrections go through the update path, never re-insertion.
type Mark struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	SubjectID     string    `db:"subject_id" json:"subject_id"`
	ExamType      ExamType  `db:"exam_type" json:"exam_type"`
	Semester      string    `db:"semester" json:"semester"`
	MarksObtained float64   `db:"marks_obtained" json:"marks_obtained"`
	IsFinal       bool      `db:"is_final" json:"is_final"`
	RecordedBy    *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// MarkWithSubject joins a mark with the owning subject's display fields.
// SubjectMaxMarks is the denominator contribution during aggregation.
type MarkWithSubject struct {
	Mark
	SubjectName     string `db:"subject_name" json:"subject_name"`
	SubjectMaxMarks int    `db:"subject_max_marks" json:"subject_max_marks"`
}

// MarkFilter scopes ledger queries.
type MarkFilter struct {
	StudentID string
	Semester  string
	SubjectID string
}
