package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academix-api/internal/models"
	appErrors "github.com/noah-isme/academix-api/pkg/errors"
)

type gradingSchemaRepository interface {
	List(ctx context.Context) ([]models.GradingSchema, error)
	FindByID(ctx context.Context, id string) (*models.GradingSchema, error)
	FindActive(ctx context.Context) (*models.GradingSchema, error)
	Create(ctx context.Context, schema *models.GradingSchema) error
	Update(ctx context.Context, schema *models.GradingSchema) error
	Activate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// GradeRangeRequest captures one percentage band. Order of submission is the
// order the aggregator scans in.
type GradeRangeRequest struct {
	Grade         string  `json:"grade" validate:"required"`
	MinPercentage float64 `json:"min_percentage" validate:"min=0,max=100"`
	MaxPercentage float64 `json:"max_percentage" validate:"min=0,max=100"`
	GradePoint    float64 `json:"grade_point" validate:"min=0"`
}

// CreateGradingSchemaRequest handles creation payload.
type CreateGradingSchemaRequest struct {
	Name           string              `json:"name" validate:"required"`
	PassPercentage float64             `json:"pass_percentage" validate:"min=0,max=100"`
	Ranges         []GradeRangeRequest `json:"grade_ranges" validate:"required,min=1,dive"`
}

// UpdateGradingSchemaRequest handles update payload.
type UpdateGradingSchemaRequest struct {
	Name           string              `json:"name" validate:"required"`
	PassPercentage float64             `json:"pass_percentage" validate:"min=0,max=100"`
	Ranges         []GradeRangeRequest `json:"grade_ranges" validate:"required,min=1,dive"`
}

// GradingSchemaService manages the grading schema store.
type GradingSchemaService struct {
	repo      gradingSchemaRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradingSchemaService constructs service.
func NewGradingSchemaService(repo gradingSchemaRepository, validate *validator.Validate, logger *zap.Logger) *GradingSchemaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingSchemaService{repo: repo, validator: validate, logger: logger}
}

// List returns all grading schemas.
func (s *GradingSchemaService) List(ctx context.Context) ([]models.GradingSchema, error) {
	schemas, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grading schemas")
	}
	return schemas, nil
}

// Get returns a schema by ID.
func (s *GradingSchemaService) Get(ctx context.Context, id string) (*models.GradingSchema, error) {
	schema, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grading schema not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading schema")
	}
	return schema, nil
}

// Active returns the single active schema, or ErrNoActiveSchema.
func (s *GradingSchemaService) Active(ctx context.Context) (*models.GradingSchema, error) {
	schema, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoActiveSchema, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active schema")
	}
	return schema, nil
}

// Create inserts a new schema. New schemas start inactive; activation is a
// separate explicit call.
func (s *GradingSchemaService) Create(ctx context.Context, req CreateGradingSchemaRequest) (*models.GradingSchema, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading schema payload")
	}
	if err := validateRanges(req.Ranges); err != nil {
		return nil, err
	}
	schema := &models.GradingSchema{
		Name:           req.Name,
		PassPercentage: req.PassPercentage,
		IsActive:       false,
		Ranges:         toRanges(req.Ranges),
	}
	if err := s.repo.Create(ctx, schema); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grading schema")
	}
	return schema, nil
}

// Update rewrites a schema's name, threshold and ranges. Activation state is
// untouched.
func (s *GradingSchemaService) Update(ctx context.Context, id string, req UpdateGradingSchemaRequest) (*models.GradingSchema, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading schema payload")
	}
	if err := validateRanges(req.Ranges); err != nil {
		return nil, err
	}
	schema, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	schema.Name = req.Name
	schema.PassPercentage = req.PassPercentage
	schema.Ranges = toRanges(req.Ranges)
	if err := s.repo.Update(ctx, schema); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grading schema")
	}
	return s.Get(ctx, id)
}

// Activate marks the schema active, deactivating every other schema in the
// same storage transaction.
func (s *GradingSchemaService) Activate(ctx context.Context, id string) (*models.GradingSchema, error) {
	if err := s.repo.Activate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grading schema not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate grading schema")
	}
	return s.Get(ctx, id)
}

// Delete removes a schema. The active schema cannot be deleted, and neither
// can the last remaining one: computation would have nothing to fall back to.
func (s *GradingSchemaService) Delete(ctx context.Context, id string) error {
	schema, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if schema.IsActive {
		return appErrors.Clone(appErrors.ErrConflict, "cannot delete the active grading schema")
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count grading schemas")
	}
	if count <= 1 {
		return appErrors.Clone(appErrors.ErrConflict, "cannot delete the last grading schema")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grading schema not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grading schema")
	}
	return nil
}

// validateRanges checks each band individually. Gaps and overlaps between
// bands are tolerated on purpose; lookup is first-match in stored order.
func validateRanges(ranges []GradeRangeRequest) error {
	for i, r := range ranges {
		if r.MinPercentage > r.MaxPercentage {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade range %d: min_percentage exceeds max_percentage", i))
		}
	}
	return nil
}

func toRanges(payload []GradeRangeRequest) []models.GradeRange {
	ranges := make([]models.GradeRange, len(payload))
	for i, p := range payload {
		ranges[i] = models.GradeRange{
			Grade:         p.Grade,
			MinPercentage: p.MinPercentage,
			MaxPercentage: p.MaxPercentage,
			GradePoint:    p.GradePoint,
			Position:      i,
		}
	}
	return ranges
}
