package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academix-api/internal/models"
	appErrors "github.com/noah-isme/academix-api/pkg/errors"
)

type mockMarkReader struct {
	marks   []models.MarkWithSubject
	listErr error
}

func (m *mockMarkReader) List(ctx context.Context, filter models.MarkFilter) ([]models.MarkWithSubject, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.MarkWithSubject
	for _, mk := range m.marks {
		if filter.StudentID != "" && mk.StudentID != filter.StudentID {
			continue
		}
		if filter.Semester != "" && mk.Semester != filter.Semester {
			continue
		}
		out = append(out, mk)
	}
	return out, nil
}

type mockSchemaReader struct {
	schema *models.GradingSchema
}

func (m *mockSchemaReader) FindActive(ctx context.Context) (*models.GradingSchema, error) {
	if m.schema == nil {
		return nil, sql.ErrNoRows
	}
	return m.schema, nil
}

type mockResultRepo struct {
	byKey      map[string]*models.Result
	upsertErr  error
	summaryArg struct {
		failGrade     string
		passThreshold float64
	}
	summary *models.SemesterSummary
}

func resultKey(studentID, semester string) string { return studentID + "|" + semester }

func (m *mockResultRepo) Upsert(ctx context.Context, result *models.Result) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.byKey == nil {
		m.byKey = make(map[string]*models.Result)
	}
	key := resultKey(result.StudentID, result.Semester)
	if existing, ok := m.byKey[key]; ok {
		// Computed columns only; workflow state survives.
		existing.TotalMarks = result.TotalMarks
		existing.TotalMaxMarks = result.TotalMaxMarks
		existing.Percentage = result.Percentage
		existing.Grade = result.Grade
		existing.SGPA = result.SGPA
		return nil
	}
	stored := *result
	if stored.ID == "" {
		stored.ID = "result-" + key
	}
	m.byKey[key] = &stored
	return nil
}

func (m *mockResultRepo) FindByID(ctx context.Context, id string) (*models.Result, error) {
	for _, r := range m.byKey {
		if r.ID == id {
			copied := *r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockResultRepo) FindByStudentSemester(ctx context.Context, studentID, semester string) (*models.Result, error) {
	if r, ok := m.byKey[resultKey(studentID, semester)]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockResultRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Result, error) {
	var out []models.Result
	for _, r := range m.byKey {
		if r.StudentID == studentID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockResultRepo) UpdateStatus(ctx context.Context, id string, status models.ResultStatus, approvedBy *string) error {
	for _, r := range m.byKey {
		if r.ID == id {
			r.Status = status
			r.ApprovedBy = approvedBy
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockResultRepo) SemesterSummary(ctx context.Context, semester, failGrade string, passThreshold float64) (*models.SemesterSummary, error) {
	m.summaryArg.failGrade = failGrade
	m.summaryArg.passThreshold = passThreshold
	if m.summary != nil {
		return m.summary, nil
	}
	return &models.SemesterSummary{Semester: semester}, nil
}

func defaultSchema() *models.GradingSchema {
	return &models.GradingSchema{
		ID:             "schema-1",
		Name:           "Standard",
		PassPercentage: 40,
		IsActive:       true,
		Ranges: []models.GradeRange{
			{Grade: "A", MinPercentage: 90, MaxPercentage: 100, GradePoint: 10, Position: 0},
			{Grade: "B", MinPercentage: 70, MaxPercentage: 89.99, GradePoint: 7, Position: 1},
			{Grade: "C", MinPercentage: 40, MaxPercentage: 69.99, GradePoint: 5, Position: 2},
			{Grade: "F", MinPercentage: 0, MaxPercentage: 39.99, GradePoint: 0, Position: 3},
		},
	}
}

func twoSubjectMarks(studentID, semester string) []models.MarkWithSubject {
	return []models.MarkWithSubject{
		{
			Mark:            models.Mark{ID: "m1", StudentID: studentID, SubjectID: "math", ExamType: models.ExamTypeFinal, Semester: semester, MarksObtained: 80, IsFinal: true},
			SubjectName:     "Mathematics",
			SubjectMaxMarks: 100,
		},
		{
			Mark:            models.Mark{ID: "m2", StudentID: studentID, SubjectID: "sci", ExamType: models.ExamTypeFinal, Semester: semester, MarksObtained: 70, IsFinal: true},
			SubjectName:     "Science",
			SubjectMaxMarks: 100,
		},
	}
}

func newResultService(repo resultRepository, marks resultMarkReader, schemas activeSchemaReader) *ResultService {
	return NewResultService(repo, marks, schemas, nil, nil, nil, nil)
}

func TestResultServiceComputeAggregatesAndGrades(t *testing.T) {
	repo := &mockResultRepo{}
	svc := newResultService(repo, &mockMarkReader{marks: twoSubjectMarks("s1", "2025-1")}, &mockSchemaReader{schema: defaultSchema()})

	result, err := svc.Compute(context.Background(), "s1", "2025-1")
	require.NoError(t, err)

	assert.Equal(t, 150.0, result.TotalMarks)
	assert.Equal(t, 200, result.TotalMaxMarks)
	assert.InDelta(t, 75.0, result.Percentage, 0.001)
	assert.Equal(t, "B", result.Grade)
	assert.Equal(t, 7.0, result.SGPA)
	assert.Equal(t, models.ResultStatusPending, result.Status)
	require.NotNil(t, result.Passed)
	assert.True(t, *result.Passed)
}

func TestResultServiceComputeIsIdempotent(t *testing.T) {
	repo := &mockResultRepo{}
	svc := newResultService(repo, &mockMarkReader{marks: twoSubjectMarks("s1", "2025-1")}, &mockSchemaReader{schema: defaultSchema()})

	first, err := svc.Compute(context.Background(), "s1", "2025-1")
	require.NoError(t, err)
	second, err := svc.Compute(context.Background(), "s1", "2025-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.byKey, 1)
	assert.Equal(t, first.Percentage, second.Percentage)
}

func TestResultServiceComputePreservesApprovalAcrossRecompute(t *testing.T) {
	repo := &mockResultRepo{}
	marks := &mockMarkReader{marks: twoSubjectMarks("s1", "2025-1")}
	svc := newResultService(repo, marks, &mockSchemaReader{schema: defaultSchema()})

	computed, err := svc.Compute(context.Background(), "s1", "2025-1")
	require.NoError(t, err)

	actor := &models.JWTClaims{UserID: "principal-1"}
	_, err = svc.SetStatus(context.Background(), computed.ID, UpdateResultStatusRequest{Status: models.ResultStatusApproved}, actor)
	require.NoError(t, err)

	marks.marks[0].MarksObtained = 95
	recomputed, err := svc.Compute(context.Background(), "s1", "2025-1")
	require.NoError(t, err)

	assert.InDelta(t, 82.5, recomputed.Percentage, 0.001)
	assert.Equal(t, models.ResultStatusApproved, recomputed.Status)
	require.NotNil(t, recomputed.ApprovedBy)
	assert.Equal(t, "principal-1", *recomputed.ApprovedBy)
}

func TestResultServiceComputeNoMarks(t *testing.T) {
	repo := &mockResultRepo{}
	svc := newResultService(repo, &mockMarkReader{}, &mockSchemaReader{schema: defaultSchema()})

	_, err := svc.Compute(context.Background(), "s1", "2025-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNoMarks.Code, appErr.Code)
	assert.Empty(t, repo.byKey)
}

func TestResultServiceComputeNoActiveSchemaLeavesResultUntouched(t *testing.T) {
	repo := &mockResultRepo{}
	schemas := &mockSchemaReader{schema: defaultSchema()}
	marks := &mockMarkReader{marks: twoSubjectMarks("s1", "2025-1")}
	svc := newResultService(repo, marks, schemas)

	before, err := svc.Compute(context.Background(), "s1", "2025-1")
	require.NoError(t, err)

	schemas.schema = nil
	marks.marks[0].MarksObtained = 10

	_, err = svc.Compute(context.Background(), "s1", "2025-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNoActiveSchema.Code, appErr.Code)

	stored := repo.byKey[resultKey("s1", "2025-1")]
	require.NotNil(t, stored)
	assert.Equal(t, before.Percentage, stored.Percentage)
	assert.Equal(t, before.Grade, stored.Grade)
}

func TestResultServiceComputeNoMatchingBand(t *testing.T) {
	schema := defaultSchema()
	// Band list with a coverage hole between 60 and 70 percent.
	schema.Ranges = []models.GradeRange{
		{Grade: "A", MinPercentage: 70, MaxPercentage: 100, GradePoint: 10, Position: 0},
		{Grade: "F", MinPercentage: 0, MaxPercentage: 60, GradePoint: 0, Position: 1},
	}
	marks := []models.MarkWithSubject{{
		Mark:            models.Mark{ID: "m1", StudentID: "s1", SubjectID: "math", ExamType: models.ExamTypeFinal, Semester: "2025-1", MarksObtained: 65},
		SubjectName:     "Mathematics",
		SubjectMaxMarks: 100,
	}}
	repo := &mockResultRepo{}
	svc := newResultService(repo, &mockMarkReader{marks: marks}, &mockSchemaReader{schema: schema})

	_, err := svc.Compute(context.Background(), "s1", "2025-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNoMatchingBand.Code, appErr.Code)
	assert.Empty(t, repo.byKey)
}

func TestResultServiceComputeFirstMatchingBandWins(t *testing.T) {
	schema := defaultSchema()
	// Overlapping bands: 75 percent sits in both. Stored order decides.
	schema.Ranges = []models.GradeRange{
		{Grade: "B+", MinPercentage: 70, MaxPercentage: 80, GradePoint: 8, Position: 0},
		{Grade: "B", MinPercentage: 60, MaxPercentage: 89, GradePoint: 7, Position: 1},
		{Grade: "F", MinPercentage: 0, MaxPercentage: 59, GradePoint: 0, Position: 2},
	}
	repo := &mockResultRepo{}
	svc := newResultService(repo, &mockMarkReader{marks: twoSubjectMarks("s1", "2025-1")}, &mockSchemaReader{schema: schema})

	result, err := svc.Compute(context.Background(), "s1", "2025-1")
	require.NoError(t, err)
	assert.Equal(t, "B+", result.Grade)
	assert.Equal(t, 8.0, result.SGPA)
}

func TestResultServiceSetStatusWorkflow(t *testing.T) {
	repo := &mockResultRepo{}
	svc := newResultService(repo, &mockMarkReader{marks: twoSubjectMarks("s1", "2025-1")}, &mockSchemaReader{schema: defaultSchema()})

	computed, err := svc.Compute(context.Background(), "s1", "2025-1")
	require.NoError(t, err)
	actor := &models.JWTClaims{UserID: "admin-1"}

	approved, err := svc.SetStatus(context.Background(), computed.ID, UpdateResultStatusRequest{Status: models.ResultStatusApproved}, actor)
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "admin-1", *approved.ApprovedBy)

	frozen, err := svc.SetStatus(context.Background(), computed.ID, UpdateResultStatusRequest{Status: models.ResultStatusFrozen}, actor)
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusFrozen, frozen.Status)

	// Every state is reachable from every other; resetting clears the approver.
	reset, err := svc.SetStatus(context.Background(), computed.ID, UpdateResultStatusRequest{Status: models.ResultStatusPending}, actor)
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusPending, reset.Status)
	assert.Nil(t, reset.ApprovedBy)
}

func TestResultServiceSetStatusRejectsUnknownStatus(t *testing.T) {
	svc := newResultService(&mockResultRepo{}, &mockMarkReader{}, &mockSchemaReader{schema: defaultSchema()})

	_, err := svc.SetStatus(context.Background(), "r1", UpdateResultStatusRequest{Status: "published"}, nil)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestResultServiceSetStatusUnknownResult(t *testing.T) {
	svc := newResultService(&mockResultRepo{}, &mockMarkReader{}, &mockSchemaReader{schema: defaultSchema()})

	_, err := svc.SetStatus(context.Background(), "missing", UpdateResultStatusRequest{Status: models.ResultStatusApproved}, nil)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestResultServiceGetNotFound(t *testing.T) {
	svc := newResultService(&mockResultRepo{}, &mockMarkReader{}, &mockSchemaReader{schema: defaultSchema()})

	_, err := svc.Get(context.Background(), "s1", "2025-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestResultServiceSummaryUsesFailingGrade(t *testing.T) {
	repo := &mockResultRepo{summary: &models.SemesterSummary{Semester: "2025-1", StudentCount: 3, PassCount: 2, FailCount: 1}}
	svc := newResultService(repo, &mockMarkReader{}, &mockSchemaReader{schema: defaultSchema()})

	summary, err := svc.Summary(context.Background(), "2025-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.StudentCount)
	assert.Equal(t, "F", repo.summaryArg.failGrade)
	assert.Equal(t, 40.0, repo.summaryArg.passThreshold)
}

func TestResultServiceSummaryNoActiveSchema(t *testing.T) {
	svc := newResultService(&mockResultRepo{}, &mockMarkReader{}, &mockSchemaReader{})

	_, err := svc.Summary(context.Background(), "2025-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNoActiveSchema.Code, appErr.Code)
}

func TestResultServiceComputeMarkListError(t *testing.T) {
	svc := newResultService(&mockResultRepo{}, &mockMarkReader{listErr: errors.New("boom")}, &mockSchemaReader{schema: defaultSchema()})

	_, err := svc.Compute(context.Background(), "s1", "2025-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}
