package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/atms-platform/atms-api/pkg/errors"
	"github.com/atms-platform/atms-api/pkg/export"
)

// ReportFormat selects the rendered output type.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ReportResult is a rendered export ready for download.
type ReportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ReportService renders grade rollups into downloadable files.
type ReportService struct {
	finals finalGradeRepo
	csv    tableRenderer
	pdf    tableRenderer
	logger *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(finals finalGradeRepo, csv tableRenderer, pdf tableRenderer, logger *zap.Logger) *ReportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{finals: finals, csv: csv, pdf: pdf, logger: logger}
}

// GradeSummary renders one row per trainee across all their courses.
func (s *ReportService) GradeSummary(ctx context.Context, format ReportFormat) (*ReportResult, error) {
	records, err := s.finals.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final grades")
	}
	table := export.Table{
		Title:   "Trainee Grade Summary",
		Headers: []string{"Trainee", "Courses", "Total", "Average", "CGPA"},
	}
	for _, record := range records {
		titles := make([]string, 0, len(record.Courses))
		for _, line := range record.Courses {
			titles = append(titles, fmt.Sprintf("%s (%s)", line.CourseTitle, line.LetterGrade))
		}
		table.Rows = append(table.Rows, []string{
			record.TraineeName,
			strings.Join(titles, "; "),
			strconv.FormatFloat(record.Total, 'f', 1, 64),
			strconv.FormatFloat(record.Average, 'f', 2, 64),
			record.CGPA,
		})
	}
	return s.render(table, "grade-summary", format)
}

// TraineeReport renders one trainee's rollup, one row per course.
func (s *ReportService) TraineeReport(ctx context.Context, traineeID string, format ReportFormat) (*ReportResult, error) {
	record, err := s.finals.FindByTrainee(ctx, traineeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no grades recorded for trainee")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final grades")
	}
	table := export.Table{
		Title:   fmt.Sprintf("Grade Report - %s", record.TraineeName),
		Headers: []string{"Course", "Grade", "Letter"},
	}
	for _, line := range record.Courses {
		table.Rows = append(table.Rows, []string{
			line.CourseTitle,
			strconv.FormatFloat(line.Grade, 'f', 1, 64),
			line.LetterGrade,
		})
	}
	table.Rows = append(table.Rows,
		[]string{"Total", strconv.FormatFloat(record.Total, 'f', 1, 64), ""},
		[]string{"Average", strconv.FormatFloat(record.Average, 'f', 2, 64), ""},
		[]string{"CGPA", record.CGPA, ""},
	)
	return s.render(table, fmt.Sprintf("grade-report-%s", traineeID), format)
}

func (s *ReportService) render(table export.Table, basename string, format ReportFormat) (*ReportResult, error) {
	switch format {
	case ReportFormatCSV:
		payload, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ReportResult{Filename: basename + ".csv", ContentType: "text/csv", Payload: payload}, nil
	case ReportFormatPDF:
		payload, err := s.pdf.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ReportResult{Filename: basename + ".pdf", ContentType: "application/pdf", Payload: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
}

// ParseReportFormat normalises a query value into a ReportFormat.
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return ReportFormatCSV, nil
	case "pdf":
		return ReportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
}
