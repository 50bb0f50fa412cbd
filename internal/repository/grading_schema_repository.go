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

// GradingSchemaRepository manages grading schema persistence.
type GradingSchemaRepository struct {
	db *sqlx.DB
}

// NewGradingSchemaRepository creates a new repository instance.
func NewGradingSchemaRepository(db *sqlx.DB) *GradingSchemaRepository {
	return &GradingSchemaRepository{db: db}
}

// List returns all schemas with their ranges in stored order.
func (r *GradingSchemaRepository) List(ctx context.Context) ([]models.GradingSchema, error) {
	const query = `SELECT id, name, pass_percentage, is_active, created_at, updated_at
        FROM grading_schemas ORDER BY created_at DESC`
	var schemas []models.GradingSchema
	if err := r.db.SelectContext(ctx, &schemas, query); err != nil {
		return nil, fmt.Errorf("list grading schemas: %w", err)
	}
	for i := range schemas {
		ranges, err := r.loadRanges(ctx, schemas[i].ID)
		if err != nil {
			return nil, err
		}
		schemas[i].Ranges = ranges
	}
	return schemas, nil
}

// FindByID returns a schema with its ranges.
func (r *GradingSchemaRepository) FindByID(ctx context.Context, id string) (*models.GradingSchema, error) {
	const query = `SELECT id, name, pass_percentage, is_active, created_at, updated_at
        FROM grading_schemas WHERE id = $1`
	var schema models.GradingSchema
	if err := r.db.GetContext(ctx, &schema, query, id); err != nil {
		return nil, err
	}
	ranges, err := r.loadRanges(ctx, id)
	if err != nil {
		return nil, err
	}
	schema.Ranges = ranges
	return &schema, nil
}

// FindActive returns the single active schema, sql.ErrNoRows when none is.
func (r *GradingSchemaRepository) FindActive(ctx context.Context) (*models.GradingSchema, error) {
	const query = `SELECT id, name, pass_percentage, is_active, created_at, updated_at
        FROM grading_schemas WHERE is_active LIMIT 1`
	var schema models.GradingSchema
	if err := r.db.GetContext(ctx, &schema, query); err != nil {
		return nil, err
	}
	ranges, err := r.loadRanges(ctx, schema.ID)
	if err != nil {
		return nil, err
	}
	schema.Ranges = ranges
	return &schema, nil
}

// Create inserts a schema with its ranges.
func (r *GradingSchemaRepository) Create(ctx context.Context, schema *models.GradingSchema) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if schema.ID == "" {
		schema.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schema.CreatedAt = now
	schema.UpdatedAt = now
	const insertSchema = `INSERT INTO grading_schemas (id, name, pass_percentage, is_active, created_at, updated_at)
        VALUES (:id, :name, :pass_percentage, :is_active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertSchema, schema); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert grading schema: %w", err)
	}
	if err := r.replaceRangesTx(ctx, tx, schema.ID, schema.Ranges); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grading schema: %w", err)
	}
	return nil
}

// Update rewrites schema metadata and ranges.
func (r *GradingSchemaRepository) Update(ctx context.Context, schema *models.GradingSchema) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	schema.UpdatedAt = time.Now().UTC()
	const updateQuery = `UPDATE grading_schemas SET name = :name, pass_percentage = :pass_percentage, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, updateQuery, schema); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update grading schema: %w", err)
	}
	if err := r.replaceRangesTx(ctx, tx, schema.ID, schema.Ranges); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grading schema: %w", err)
	}
	return nil
}

// Activate marks one schema active and deactivates every other one in the
// same transaction, keeping the at-most-one-active invariant write-enforced.
func (r *GradingSchemaRepository) Activate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `UPDATE grading_schemas SET is_active = TRUE, updated_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("activate grading schema: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("activate grading schema: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if _, err := tx.ExecContext(ctx, `UPDATE grading_schemas SET is_active = FALSE, updated_at = $2 WHERE id <> $1 AND is_active`, id, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("deactivate grading schemas: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema activation: %w", err)
	}
	return nil
}

// Delete removes a schema and its ranges.
func (r *GradingSchemaRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM grading_schemas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete grading schema: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete grading schema: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the number of stored schemas.
func (r *GradingSchemaRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM grading_schemas`); err != nil {
		return 0, fmt.Errorf("count grading schemas: %w", err)
	}
	return count, nil
}

// replaceRangesTx rewrites schema ranges preserving submission order via the
// position column. Lookup order must match insertion order, never bound order.
func (r *GradingSchemaRepository) replaceRangesTx(ctx context.Context, tx *sqlx.Tx, schemaID string, ranges []models.GradeRange) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM grade_ranges WHERE schema_id = $1`, schemaID); err != nil {
		return fmt.Errorf("clear grade ranges: %w", err)
	}
	const insertRange = `INSERT INTO grade_ranges (id, schema_id, grade, min_percentage, max_percentage, grade_point, position)
        VALUES (:id, :schema_id, :grade, :min_percentage, :max_percentage, :grade_point, :position)`
	for i := range ranges {
		if ranges[i].ID == "" {
			ranges[i].ID = uuid.NewString()
		}
		ranges[i].SchemaID = schemaID
		ranges[i].Position = i
		if _, err := tx.NamedExecContext(ctx, insertRange, ranges[i]); err != nil {
			return fmt.Errorf("insert grade range: %w", err)
		}
	}
	return nil
}

func (r *GradingSchemaRepository) loadRanges(ctx context.Context, schemaID string) ([]models.GradeRange, error) {
	const query = `SELECT id, schema_id, grade, min_percentage, max_percentage, grade_point, position
        FROM grade_ranges WHERE schema_id = $1 ORDER BY position ASC`
	var ranges []models.GradeRange
	if err := r.db.SelectContext(ctx, &ranges, query, schemaID); err != nil {
		return nil, fmt.Errorf("load grade ranges: %w", err)
	}
	return ranges, nil
}
