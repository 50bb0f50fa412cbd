package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academix-api/internal/models"
)

// ResultRepository handles computed result persistence.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Upsert writes the computed columns for (student, semester). The conflict
// branch leaves status and approved_by untouched: those columns belong to the
// approval workflow and must survive recomputation. New rows start pending.
func (r *ResultRepository) Upsert(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now
	if result.Status == "" {
		result.Status = models.ResultStatusPending
	}
	const query = `INSERT INTO results (id, student_id, semester, total_marks, total_max_marks, percentage, grade, sgpa, status, approved_by, created_at, updated_at)
        VALUES (:id, :student_id, :semester, :total_marks, :total_max_marks, :percentage, :grade, :sgpa, :status, :approved_by, :created_at, :updated_at)
        ON CONFLICT (student_id, semester)
        DO UPDATE SET total_marks = EXCLUDED.total_marks, total_max_marks = EXCLUDED.total_max_marks,
                      percentage = EXCLUDED.percentage, grade = EXCLUDED.grade, sgpa = EXCLUDED.sgpa,
                      updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

// FindByID returns a result by primary key.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.Result, error) {
	const query = `SELECT id, student_id, semester, total_marks, total_max_marks, percentage, grade, sgpa, status, approved_by, created_at, updated_at
        FROM results WHERE id = $1`
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// FindByStudentSemester returns the single result for the pair.
func (r *ResultRepository) FindByStudentSemester(ctx context.Context, studentID, semester string) (*models.Result, error) {
	const query = `SELECT id, student_id, semester, total_marks, total_max_marks, percentage, grade, sgpa, status, approved_by, created_at, updated_at
        FROM results WHERE student_id = $1 AND semester = $2`
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, studentID, semester); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByStudent returns all results of a student, newest semester first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Result, error) {
	const query = `SELECT id, student_id, semester, total_marks, total_max_marks, percentage, grade, sgpa, status, approved_by, created_at, updated_at
        FROM results WHERE student_id = $1 ORDER BY semester DESC`
	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, studentID); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// UpdateStatus sets the workflow status. ApprovedBy is nil on reset.
func (r *ResultRepository) UpdateStatus(ctx context.Context, id string, status models.ResultStatus, approvedBy *string) error {
	const query = `UPDATE results SET status = $2, approved_by = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, approvedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update result status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update result status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SemesterSummary aggregates pass/fail counts for a semester. failGrade is
// the active schema's failing grade; passThreshold is the pass percentage
// surfaced as a secondary signal only.
func (r *ResultRepository) SemesterSummary(ctx context.Context, semester, failGrade string, passThreshold float64) (*models.SemesterSummary, error) {
	const query = `SELECT $1 AS semester,
               COUNT(*) AS student_count,
               COUNT(*) FILTER (WHERE grade <> $2) AS pass_count,
               COUNT(*) FILTER (WHERE grade = $2) AS fail_count,
               COUNT(*) FILTER (WHERE percentage >= $3) AS threshold_pass_count,
               COALESCE(AVG(percentage), 0) AS average_percentage
        FROM results WHERE semester = $1`
	var summary models.SemesterSummary
	if err := r.db.GetContext(ctx, &summary, query, semester, failGrade, passThreshold); err != nil {
		return nil, fmt.Errorf("semester summary: %w", err)
	}
	return &summary, nil
}
