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

type resultMarkReader interface {
	List(ctx context.Context, filter models.MarkFilter) ([]models.MarkWithSubject, error)
}

type activeSchemaReader interface {
	FindActive(ctx context.Context) (*models.GradingSchema, error)
}

type resultRepository interface {
	Upsert(ctx context.Context, result *models.Result) error
	FindByID(ctx context.Context, id string) (*models.Result, error)
	FindByStudentSemester(ctx context.Context, studentID, semester string) (*models.Result, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Result, error)
	UpdateStatus(ctx context.Context, id string, status models.ResultStatus, approvedBy *string) error
	SemesterSummary(ctx context.Context, semester, failGrade string, passThreshold float64) (*models.SemesterSummary, error)
}

// UpdateResultStatusRequest carries a workflow transition. Any of the three
// states may be set directly; there is no transition graph, administrative
// override is intended.
type UpdateResultStatusRequest struct {
	Status models.ResultStatus `json:"status" validate:"required"`
}

// ResultService implements the result aggregator and the approval workflow.
type ResultService struct {
	results   resultRepository
	marks     resultMarkReader
	schemas   activeSchemaReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs ResultService.
func NewResultService(results resultRepository, marks resultMarkReader, schemas activeSchemaReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{results: results, marks: marks, schemas: schemas, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Compute aggregates every mark of (student, semester) into an upserted
// Result. Fatal errors leave any prior Result untouched: the upsert only runs
// after totals, schema and grade band all resolved.
func (s *ResultService) Compute(ctx context.Context, studentID, semester string) (*models.Result, error) {
	if studentID == "" || semester == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student and semester required")
	}

	marks, err := s.marks.List(ctx, models.MarkFilter{StudentID: studentID, Semester: semester})
	if err != nil {
		s.metrics.RecordComputation("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}

	totalMarks := 0.0
	totalMaxMarks := 0
	for _, mark := range marks {
		// Several marks for the same subject (different exam types) each
		// contribute both to the numerator and the denominator.
		totalMarks += mark.MarksObtained
		totalMaxMarks += mark.SubjectMaxMarks
	}
	if len(marks) == 0 || totalMaxMarks == 0 {
		s.metrics.RecordComputation("no_marks")
		return nil, appErrors.Clone(appErrors.ErrNoMarks, fmt.Sprintf("no marks recorded for semester %s", semester))
	}

	schema, err := s.schemas.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordComputation("no_active_schema")
			return nil, appErrors.Clone(appErrors.ErrNoActiveSchema, "")
		}
		s.metrics.RecordComputation("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active schema")
	}

	percentage := totalMarks / float64(totalMaxMarks) * 100
	band, ok := schema.Match(percentage)
	if !ok {
		s.metrics.RecordComputation("no_matching_band")
		return nil, appErrors.Clone(appErrors.ErrNoMatchingBand, fmt.Sprintf("no grade range covers %.2f%%", percentage))
	}

	result := &models.Result{
		StudentID:     studentID,
		Semester:      semester,
		TotalMarks:    totalMarks,
		TotalMaxMarks: totalMaxMarks,
		Percentage:    percentage,
		Grade:         band.Grade,
		SGPA:          band.GradePoint,
		Status:        models.ResultStatusPending,
	}
	if err := s.results.Upsert(ctx, result); err != nil {
		s.metrics.RecordComputation("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert result")
	}
	s.metrics.RecordComputation("ok")

	if err := s.cache.Invalidate(ctx, resultCachePattern(studentID)); err != nil {
		s.logger.Warn("result cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}

	// Reload: the upsert preserves status/approved_by of a pre-existing row.
	stored, err := s.results.FindByStudentSemester(ctx, studentID, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	applyPassFlag(stored, schema)
	return stored, nil
}

// Get returns the result for (student, semester), served from cache when warm.
func (s *ResultService) Get(ctx context.Context, studentID, semester string) (*models.Result, error) {
	key := resultCacheKey(studentID, semester)
	var cached models.Result
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	result, err := s.results.FindByStudentSemester(ctx, studentID, semester)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	s.decoratePassFlag(ctx, result)

	if err := s.cache.Set(ctx, key, result, 0); err != nil {
		s.logger.Warn("result cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// ListByStudent returns all results of a student.
func (s *ResultService) ListByStudent(ctx context.Context, studentID string) ([]models.Result, error) {
	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	if schema, err := s.schemas.FindActive(ctx); err == nil {
		for i := range results {
			applyPassFlag(&results[i], schema)
		}
	}
	return results, nil
}

// SetStatus applies a workflow transition. Resetting to pending clears the
// approver; approving or freezing records the acting user.
func (s *ResultService) SetStatus(ctx context.Context, resultID string, req UpdateResultStatusRequest, actor *models.JWTClaims) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown result status %q", req.Status))
	}

	result, err := s.results.FindByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}

	var approvedBy *string
	if req.Status != models.ResultStatusPending && actor != nil {
		approvedBy = &actor.UserID
	}
	if err := s.results.UpdateStatus(ctx, resultID, req.Status, approvedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update result status")
	}

	if err := s.cache.Invalidate(ctx, resultCachePattern(result.StudentID)); err != nil {
		s.logger.Warn("result cache invalidation failed", zap.String("student_id", result.StudentID), zap.Error(err))
	}

	result.Status = req.Status
	result.ApprovedBy = approvedBy
	s.decoratePassFlag(ctx, result)
	return result, nil
}

// Summary aggregates pass/fail outcomes for a semester using the active
// schema's failing grade as the canonical rule and its pass threshold as the
// secondary percentage signal.
func (s *ResultService) Summary(ctx context.Context, semester string) (*models.SemesterSummary, error) {
	if semester == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester required")
	}
	schema, err := s.schemas.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoActiveSchema, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active schema")
	}
	summary, err := s.results.SemesterSummary(ctx, semester, schema.FailingGrade(), schema.PassPercentage)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate semester summary")
	}
	return summary, nil
}

func (s *ResultService) decoratePassFlag(ctx context.Context, result *models.Result) {
	schema, err := s.schemas.FindActive(ctx)
	if err != nil {
		return
	}
	applyPassFlag(result, schema)
}

// applyPassFlag derives pass/fail: a result fails iff its grade equals the
// schema's failing grade. The percentage threshold is analytics-only.
func applyPassFlag(result *models.Result, schema *models.GradingSchema) {
	passed := result.Grade != schema.FailingGrade()
	result.Passed = &passed
}

func resultCacheKey(studentID, semester string) string {
	return fmt.Sprintf("results:%s:%s", studentID, semester)
}

func resultCachePattern(studentID string) string {
	return fmt.Sprintf("results:%s:*", studentID)
}
