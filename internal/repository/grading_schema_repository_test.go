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

func TestGradingSchemaActivateDeactivatesOthersInTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradingSchemaRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grading_schemas SET is_active = TRUE, updated_at = $2 WHERE id = $1")).
		WithArgs("schema-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grading_schemas SET is_active = FALSE, updated_at = $2 WHERE id <> $1 AND is_active")).
		WithArgs("schema-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.Activate(context.Background(), "schema-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingSchemaActivateUnknownID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradingSchemaRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE grading_schemas SET is_active = TRUE").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Activate(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingSchemaFindActiveNone(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradingSchemaRepository(db)

	mock.ExpectQuery("FROM grading_schemas WHERE is_active LIMIT 1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActive(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingSchemaFindByIDLoadsRangesInPositionOrder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradingSchemaRepository(db)

	now := time.Now()
	schemaRows := sqlmock.NewRows([]string{"id", "name", "pass_percentage", "is_active", "created_at", "updated_at"}).
		AddRow("schema-1", "Standard", 40.0, true, now, now)
	mock.ExpectQuery("FROM grading_schemas WHERE id").WithArgs("schema-1").WillReturnRows(schemaRows)

	rangeRows := sqlmock.NewRows([]string{"id", "schema_id", "grade", "min_percentage", "max_percentage", "grade_point", "position"}).
		AddRow("r1", "schema-1", "A", 90.0, 100.0, 10.0, 0).
		AddRow("r2", "schema-1", "B", 70.0, 89.99, 7.0, 1)
	mock.ExpectQuery("FROM grade_ranges WHERE schema_id").WithArgs("schema-1").WillReturnRows(rangeRows)

	schema, err := repo.FindByID(context.Background(), "schema-1")
	require.NoError(t, err)
	require.Len(t, schema.Ranges, 2)
	assert.Equal(t, "A", schema.Ranges[0].Grade)
	assert.Equal(t, 1, schema.Ranges[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingSchemaCreateWritesRanges(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradingSchemaRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO grading_schemas").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM grade_ranges").WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO grade_ranges").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO grade_ranges").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	schema := &models.GradingSchema{
		Name:           "Standard",
		PassPercentage: 40,
		Ranges: []models.GradeRange{
			{Grade: "A", MinPercentage: 50, MaxPercentage: 100, GradePoint: 10},
			{Grade: "F", MinPercentage: 0, MaxPercentage: 49.99, GradePoint: 0},
		},
	}
	err := repo.Create(context.Background(), schema)
	require.NoError(t, err)
	assert.NotEmpty(t, schema.ID)
	assert.Equal(t, schema.ID, schema.Ranges[1].SchemaID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingSchemaDeleteUnknownID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradingSchemaRepository(db)

	mock.ExpectExec("DELETE FROM grading_schemas").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
