package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academix-api/internal/models"
	appErrors "github.com/noah-isme/academix-api/pkg/errors"
	"github.com/noah-isme/academix-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type exportResultReader interface {
	Get(ctx context.Context, studentID, semester string) (*models.Result, error)
}

// ExportFile is a rendered result sheet ready to stream to the client.
type ExportFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// ExportService renders a student's semester result sheet.
type ExportService struct {
	enabled    bool
	schoolName string
	results    exportResultReader
	marks      markRepository
	students   studentReader
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(enabled bool, schoolName string, results exportResultReader, marks markRepository, students studentReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		enabled:    enabled,
		schoolName: schoolName,
		results:    results,
		marks:      marks,
		students:   students,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// ResultSheet renders the per-subject marks plus the computed summary for one
// student and semester.
func (s *ExportService) ResultSheet(ctx context.Context, studentID, semester string, format ExportFormat) (*ExportFile, error) {
	if !s.enabled {
		return nil, appErrors.New("EXPORTS_DISABLED", http.StatusServiceUnavailable, "exports are disabled")
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	result, err := s.results.Get(ctx, studentID, semester)
	if err != nil {
		return nil, err
	}
	marks, err := s.marks.List(ctx, models.MarkFilter{StudentID: studentID, Semester: semester})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}

	data := export.Dataset{
		Headers: []string{"Subject", "Exam Type", "Marks Obtained", "Max Marks", "Final"},
	}
	for _, m := range marks {
		data.Rows = append(data.Rows, map[string]string{
			"Subject":        m.SubjectName,
			"Exam Type":      string(m.ExamType),
			"Marks Obtained": strconv.FormatFloat(m.MarksObtained, 'f', -1, 64),
			"Max Marks":      strconv.Itoa(m.SubjectMaxMarks),
			"Final":          strconv.FormatBool(m.IsFinal),
		})
	}
	data.Rows = append(data.Rows,
		map[string]string{"Subject": "Total", "Marks Obtained": strconv.FormatFloat(result.TotalMarks, 'f', -1, 64), "Max Marks": strconv.Itoa(result.TotalMaxMarks)},
		map[string]string{"Subject": "Percentage", "Marks Obtained": fmt.Sprintf("%.2f", result.Percentage)},
		map[string]string{"Subject": "Grade", "Marks Obtained": result.Grade},
		map[string]string{"Subject": "SGPA", "Marks Obtained": fmt.Sprintf("%.2f", result.SGPA)},
		map[string]string{"Subject": "Status", "Marks Obtained": string(result.Status)},
	)

	title := fmt.Sprintf("%s Result Sheet", s.schoolName)
	subtitle := fmt.Sprintf("%s | Semester %s | Generated %s", student.FullName, semester, time.Now().Format("2006-01-02"))
	base := fmt.Sprintf("result-%s-%s", sanitizeFileToken(student.FullName), sanitizeFileToken(semester))

	switch format {
	case ExportFormatPDF:
		content, err := s.pdf.Render(data, title, subtitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Name: base + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Name: base + ".csv", ContentType: "text/csv", Content: content}, nil
	}
}

func sanitizeFileToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '/':
			b.WriteRune('-')
		}
	}
	return b.String()
}
