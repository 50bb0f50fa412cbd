package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academix-api/internal/models"
)

func TestResultUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectExec("INSERT INTO results").WillReturnResult(sqlmock.NewResult(1, 1))

	result := &models.Result{StudentID: "s1", Semester: "2025-1", TotalMarks: 150, TotalMaxMarks: 200, Percentage: 75, Grade: "B", SGPA: 7}
	err := repo.Upsert(context.Background(), result)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, models.ResultStatusPending, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultFindByStudentSemester(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "semester", "total_marks", "total_max_marks", "percentage", "grade", "sgpa", "status", "approved_by", "created_at", "updated_at"}).
		AddRow("r1", "s1", "2025-1", 150.0, 200, 75.0, "B", 7.0, "approved", "admin-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM results WHERE student_id = $1 AND semester = $2")).
		WithArgs("s1", "2025-1").
		WillReturnRows(rows)

	result, err := repo.FindByStudentSemester(context.Background(), "s1", "2025-1")
	require.NoError(t, err)
	assert.Equal(t, "B", result.Grade)
	assert.Equal(t, models.ResultStatusApproved, result.Status)
	require.NotNil(t, result.ApprovedBy)
	assert.Equal(t, "admin-1", *result.ApprovedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	approver := "admin-1"
	mock.ExpectExec("UPDATE results SET status").
		WithArgs("r1", "approved", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "r1", models.ResultStatusApproved, &approver)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultUpdateStatusUnknownID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectExec("UPDATE results SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.ResultStatusFrozen, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultSemesterSummary(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	rows := sqlmock.NewRows([]string{"semester", "student_count", "pass_count", "fail_count", "threshold_pass_count", "average_percentage"}).
		AddRow("2025-1", 3, 2, 1, 2, 61.5)
	mock.ExpectQuery("FROM results WHERE semester").
		WithArgs("2025-1", "F", 40.0).
		WillReturnRows(rows)

	summary, err := repo.SemesterSummary(context.Background(), "2025-1", "F", 40)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.StudentCount)
	assert.Equal(t, 2, summary.PassCount)
	assert.Equal(t, 1, summary.FailCount)
	assert.InDelta(t, 61.5, summary.AveragePercentage, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
