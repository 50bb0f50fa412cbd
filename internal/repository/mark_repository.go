package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academix-api/internal/models"
)

// ErrDuplicateMark is returned when the (student, subject, exam type,
// semester) unique index rejects an insert. The constraint, not the
// application pre-check, is the authority: two concurrent submissions cannot
// both pass a read-check, but only one survives the index.
var ErrDuplicateMark = errors.New("duplicate mark")

const uniqueViolation = pq.ErrorCode("23505")

// MarkRepository handles mark ledger persistence.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository creates a new mark repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// Create inserts a mark. A unique index violation maps to ErrDuplicateMark.
func (r *MarkRepository) Create(ctx context.Context, mark *models.Mark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	mark.CreatedAt = now
	mark.UpdatedAt = now
	const query = `INSERT INTO marks (id, student_id, subject_id, exam_type, semester, marks_obtained, is_final, recorded_by, created_at, updated_at)
        VALUES (:id, :student_id, :subject_id, :exam_type, :semester, :marks_obtained, :is_final, :recorded_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateMark
		}
		return fmt.Errorf("insert mark: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a mark. Moving a mark to another
// semester can also collide with the unique index.
func (r *MarkRepository) Update(ctx context.Context, mark *models.Mark) error {
	mark.UpdatedAt = time.Now().UTC()
	const query = `UPDATE marks SET marks_obtained = :marks_obtained, semester = :semester, is_final = :is_final, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateMark
		}
		return fmt.Errorf("update mark: %w", err)
	}
	return nil
}

// FindByID returns a mark joined with its subject.
func (r *MarkRepository) FindByID(ctx context.Context, id string) (*models.MarkWithSubject, error) {
	const query = `SELECT m.id, m.student_id, m.subject_id, m.exam_type, m.semester, m.marks_obtained, m.is_final, m.recorded_by, m.created_at, m.updated_at,
               s.name AS subject_name, s.max_marks AS subject_max_marks
        FROM marks m
        JOIN subjects s ON s.id = m.subject_id
        WHERE m.id = $1`
	var mark models.MarkWithSubject
	if err := r.db.GetContext(ctx, &mark, query, id); err != nil {
		return nil, err
	}
	return &mark, nil
}

// List returns marks matching the filter joined with subject fields, every
// exam type included. Aggregation depends on subject_max_marks riding along.
func (r *MarkRepository) List(ctx context.Context, filter models.MarkFilter) ([]models.MarkWithSubject, error) {
	query := `SELECT m.id, m.student_id, m.subject_id, m.exam_type, m.semester, m.marks_obtained, m.is_final, m.recorded_by, m.created_at, m.updated_at,
               s.name AS subject_name, s.max_marks AS subject_max_marks
        FROM marks m
        JOIN subjects s ON s.id = m.subject_id
        WHERE 1=1`
	var args []interface{}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND m.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.Semester != "" {
		query += fmt.Sprintf(" AND m.semester = $%d", len(args)+1)
		args = append(args, filter.Semester)
	}
	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND m.subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	query += " ORDER BY s.name ASC, m.exam_type ASC"
	var marks []models.MarkWithSubject
	if err := r.db.SelectContext(ctx, &marks, query, args...); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}
