package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academix-api/internal/models"
	"github.com/noah-isme/academix-api/internal/repository"
	appErrors "github.com/noah-isme/academix-api/pkg/errors"
)

type markRepository interface {
	Create(ctx context.Context, mark *models.Mark) error
	Update(ctx context.Context, mark *models.Mark) error
	FindByID(ctx context.Context, id string) (*models.MarkWithSubject, error)
	List(ctx context.Context, filter models.MarkFilter) ([]models.MarkWithSubject, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type resultComputer interface {
	Compute(ctx context.Context, studentID, semester string) (*models.Result, error)
}

// AddMarkRequest represents a mark entry payload.
type AddMarkRequest struct {
	SubjectID     string          `json:"subject_id" validate:"required"`
	ExamType      models.ExamType `json:"exam_type" validate:"required,oneof=final midterm assignment quiz"`
	Semester      string          `json:"semester" validate:"required"`
	MarksObtained float64         `json:"marks_obtained" validate:"min=0"`
	IsFinal       bool            `json:"is_final"`
}

// UpdateMarkRequest represents the explicit correction path.
type UpdateMarkRequest struct {
	MarksObtained float64 `json:"marks_obtained" validate:"min=0"`
	Semester      *string `json:"semester"`
	IsFinal       *bool   `json:"is_final"`
}

// MarkService implements the mark ledger.
type MarkService struct {
	marks     markRepository
	subjects  subjectReader
	students  studentReader
	results   resultComputer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs MarkService.
func NewMarkService(marks markRepository, subjects subjectReader, students studentReader, results resultComputer, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkService{marks: marks, subjects: subjects, students: students, results: results, validator: validate, logger: logger}
}

// Add records a mark for a student. The returned warning is non-nil when the
// mark persisted but the dependent result recomputation failed: the write is
// never rolled back for a recomputation failure.
func (s *MarkService) Add(ctx context.Context, studentID string, req AddMarkRequest, actor *models.JWTClaims) (*models.Mark, *appErrors.Error, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	// Not rejected: subjects can change max_marks after marks exist, so the
	// ceiling is a data-quality signal rather than a hard constraint.
	if req.MarksObtained > float64(subject.MaxMarks) {
		s.logger.Warn("marks exceed subject maximum",
			zap.String("subject_id", subject.ID),
			zap.Float64("marks_obtained", req.MarksObtained),
			zap.Int("max_marks", subject.MaxMarks))
	}

	mark := &models.Mark{
		StudentID:     studentID,
		SubjectID:     req.SubjectID,
		ExamType:      req.ExamType,
		Semester:      req.Semester,
		MarksObtained: req.MarksObtained,
		IsFinal:       req.IsFinal,
	}
	if actor != nil {
		mark.RecordedBy = &actor.UserID
	}
	if err := s.marks.Create(ctx, mark); err != nil {
		if errors.Is(err, repository.ErrDuplicateMark) {
			return nil, nil, appErrors.Clone(appErrors.ErrDuplicateMark, "")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mark")
	}

	var warning *appErrors.Error
	if req.IsFinal {
		warning = s.recomputeBestEffort(ctx, studentID, req.Semester)
	}
	return mark, warning, nil
}

// Update corrects an existing mark. When the mark is (or becomes) final the
// affected semester is recomputed; moving a mark across semesters recomputes
// both of them, all best-effort.
func (s *MarkService) Update(ctx context.Context, markID string, req UpdateMarkRequest) (*models.Mark, *appErrors.Error, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	existing, err := s.marks.FindByID(ctx, markID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark")
	}

	previousSemester := existing.Semester
	mark := existing.Mark
	mark.MarksObtained = req.MarksObtained
	if req.Semester != nil && *req.Semester != "" {
		mark.Semester = *req.Semester
	}
	if req.IsFinal != nil {
		mark.IsFinal = *req.IsFinal
	}
	if err := s.marks.Update(ctx, &mark); err != nil {
		if errors.Is(err, repository.ErrDuplicateMark) {
			return nil, nil, appErrors.Clone(appErrors.ErrDuplicateMark, "a mark already exists for the target subject, exam type and semester")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mark")
	}

	var warning *appErrors.Error
	if mark.IsFinal {
		warning = s.recomputeBestEffort(ctx, mark.StudentID, mark.Semester)
		if previousSemester != mark.Semester {
			// Both semesters changed; the old one is attempted even when the
			// new one failed so it does not keep the moved mark's contribution.
			if w := s.recomputeBestEffort(ctx, mark.StudentID, previousSemester); warning == nil {
				warning = w
			}
		}
	}
	return &mark, warning, nil
}

// ListByStudent returns a student's marks, optionally scoped to a semester.
func (s *MarkService) ListByStudent(ctx context.Context, studentID, semester string) ([]models.MarkWithSubject, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	marks, err := s.marks.List(ctx, models.MarkFilter{StudentID: studentID, Semester: semester})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	return marks, nil
}

// recomputeBestEffort invokes the aggregator and downgrades any failure to a
// warning: the caller's primary intent, recording the mark, already landed.
func (s *MarkService) recomputeBestEffort(ctx context.Context, studentID, semester string) *appErrors.Error {
	if s.results == nil {
		return nil
	}
	if _, err := s.results.Compute(ctx, studentID, semester); err != nil {
		s.logger.Warn("result recomputation failed after mark write",
			zap.String("student_id", studentID),
			zap.String("semester", semester),
			zap.Error(err))
		cause := appErrors.FromError(err)
		return &appErrors.Error{
			Code:    appErrors.RecalculationFailedCode,
			Status:  cause.Status,
			Message: fmt.Sprintf("mark saved but result recalculation failed: %s", cause.Message),
		}
	}
	return nil
}
