package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academix-api/internal/models"
	appErrors "github.com/noah-isme/academix-api/pkg/errors"
)

type mockSchemaRepo struct {
	schemas map[string]*models.GradingSchema
}

func (r *mockSchemaRepo) List(ctx context.Context) ([]models.GradingSchema, error) {
	var out []models.GradingSchema
	for _, s := range r.schemas {
		out = append(out, *s)
	}
	return out, nil
}

func (r *mockSchemaRepo) FindByID(ctx context.Context, id string) (*models.GradingSchema, error) {
	if s, ok := r.schemas[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r *mockSchemaRepo) FindActive(ctx context.Context) (*models.GradingSchema, error) {
	for _, s := range r.schemas {
		if s.IsActive {
			copied := *s
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *mockSchemaRepo) Create(ctx context.Context, schema *models.GradingSchema) error {
	if r.schemas == nil {
		r.schemas = make(map[string]*models.GradingSchema)
	}
	if schema.ID == "" {
		schema.ID = fmt.Sprintf("schema-%d", len(r.schemas)+1)
	}
	stored := *schema
	r.schemas[schema.ID] = &stored
	return nil
}

func (r *mockSchemaRepo) Update(ctx context.Context, schema *models.GradingSchema) error {
	if _, ok := r.schemas[schema.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *schema
	r.schemas[schema.ID] = &stored
	return nil
}

func (r *mockSchemaRepo) Activate(ctx context.Context, id string) error {
	target, ok := r.schemas[id]
	if !ok {
		return sql.ErrNoRows
	}
	for _, s := range r.schemas {
		s.IsActive = false
	}
	target.IsActive = true
	return nil
}

func (r *mockSchemaRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.schemas[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.schemas, id)
	return nil
}

func (r *mockSchemaRepo) Count(ctx context.Context) (int, error) {
	return len(r.schemas), nil
}

func schemaRequest(name string) CreateGradingSchemaRequest {
	return CreateGradingSchemaRequest{
		Name:           name,
		PassPercentage: 40,
		Ranges: []GradeRangeRequest{
			{Grade: "A", MinPercentage: 90, MaxPercentage: 100, GradePoint: 10},
			{Grade: "B", MinPercentage: 70, MaxPercentage: 89.99, GradePoint: 7},
			{Grade: "F", MinPercentage: 0, MaxPercentage: 69.99, GradePoint: 0},
		},
	}
}

func TestGradingSchemaServiceCreateStartsInactive(t *testing.T) {
	repo := &mockSchemaRepo{}
	svc := NewGradingSchemaService(repo, nil, nil)

	schema, err := svc.Create(context.Background(), schemaRequest("Standard"))
	require.NoError(t, err)
	assert.False(t, schema.IsActive)
	require.Len(t, schema.Ranges, 3)
	// Submission order is preserved as range position.
	assert.Equal(t, 0, schema.Ranges[0].Position)
	assert.Equal(t, 2, schema.Ranges[2].Position)
}

func TestGradingSchemaServiceCreateRejectsInvertedRange(t *testing.T) {
	svc := NewGradingSchemaService(&mockSchemaRepo{}, nil, nil)

	req := schemaRequest("Broken")
	req.Ranges[1].MinPercentage = 95
	_, err := svc.Create(context.Background(), req)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGradingSchemaServiceCreateToleratesGapsAndOverlaps(t *testing.T) {
	svc := NewGradingSchemaService(&mockSchemaRepo{}, nil, nil)

	req := CreateGradingSchemaRequest{
		Name:           "Loose",
		PassPercentage: 40,
		Ranges: []GradeRangeRequest{
			{Grade: "A", MinPercentage: 70, MaxPercentage: 100, GradePoint: 10},
			{Grade: "B", MinPercentage: 60, MaxPercentage: 90, GradePoint: 7},
			{Grade: "F", MinPercentage: 0, MaxPercentage: 40, GradePoint: 0},
		},
	}
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
}

func TestGradingSchemaServiceActivateIsExclusive(t *testing.T) {
	repo := &mockSchemaRepo{}
	svc := NewGradingSchemaService(repo, nil, nil)

	first, err := svc.Create(context.Background(), schemaRequest("First"))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), schemaRequest("Second"))
	require.NoError(t, err)

	activated, err := svc.Activate(context.Background(), first.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	activated, err = svc.Activate(context.Background(), second.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	activeCount := 0
	for _, s := range repo.schemas {
		if s.IsActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)

	active, err := svc.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestGradingSchemaServiceActivateUnknownSchema(t *testing.T) {
	svc := NewGradingSchemaService(&mockSchemaRepo{}, nil, nil)

	_, err := svc.Activate(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestGradingSchemaServiceActiveWhenNoneConfigured(t *testing.T) {
	svc := NewGradingSchemaService(&mockSchemaRepo{}, nil, nil)

	_, err := svc.Active(context.Background())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNoActiveSchema.Code, appErr.Code)
}

func TestGradingSchemaServiceDeleteRejectsActiveSchema(t *testing.T) {
	repo := &mockSchemaRepo{}
	svc := NewGradingSchemaService(repo, nil, nil)

	first, err := svc.Create(context.Background(), schemaRequest("First"))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), schemaRequest("Second"))
	require.NoError(t, err)
	_, err = svc.Activate(context.Background(), first.ID)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), first.ID)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Len(t, repo.schemas, 2)
}

func TestGradingSchemaServiceDeleteRejectsLastSchema(t *testing.T) {
	repo := &mockSchemaRepo{}
	svc := NewGradingSchemaService(repo, nil, nil)

	only, err := svc.Create(context.Background(), schemaRequest("Only"))
	require.NoError(t, err)

	err = svc.Delete(context.Background(), only.ID)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestGradingSchemaServiceDeleteInactiveSchema(t *testing.T) {
	repo := &mockSchemaRepo{}
	svc := NewGradingSchemaService(repo, nil, nil)

	first, err := svc.Create(context.Background(), schemaRequest("First"))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), schemaRequest("Second"))
	require.NoError(t, err)
	_, err = svc.Activate(context.Background(), first.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), second.ID))
	assert.Len(t, repo.schemas, 1)
}

func TestGradingSchemaServiceUpdateKeepsActivationState(t *testing.T) {
	repo := &mockSchemaRepo{}
	svc := NewGradingSchemaService(repo, nil, nil)

	schema, err := svc.Create(context.Background(), schemaRequest("Standard"))
	require.NoError(t, err)
	_, err = svc.Activate(context.Background(), schema.ID)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), schema.ID, UpdateGradingSchemaRequest{
		Name:           "Standard v2",
		PassPercentage: 50,
		Ranges:         schemaRequest("Standard").Ranges,
	})
	require.NoError(t, err)
	assert.Equal(t, "Standard v2", updated.Name)
	assert.Equal(t, 50.0, updated.PassPercentage)
	assert.True(t, updated.IsActive)
}
