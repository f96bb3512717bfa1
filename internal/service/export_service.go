package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
	"github.com/hamrah-edu/school-portal-api/pkg/export"
)

// ExportFormat names a supported score sheet output format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type scoreSheetStore interface {
	ScoreSheet(ctx context.Context, classID string) ([]models.ScoreSheetRow, error)
}

type exportClassStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered score sheet ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders class score sheets as CSV or PDF. Files stream back
// to the caller directly instead of being parked on disk.
type ExportService struct {
	scores  scoreSheetStore
	classes exportClassStore
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(scores scoreSheetStore, classes exportClassStore, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{scores: scores, classes: classes, csv: csv, pdf: pdf, logger: logger}
}

// ScoreSheet renders the graded roster of a class in the requested format.
func (s *ExportService) ScoreSheet(ctx context.Context, classID string, format ExportFormat) (*ExportFile, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	rows, err := s.scores.ScoreSheet(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load score sheet")
	}

	dataset := buildScoreSheetDataset(rows)
	title := fmt.Sprintf("Score Sheet - %s", class.Name)
	filename := fmt.Sprintf("score_sheet_%s_%s.%s",
		sanitizeFilename(class.Slug),
		time.Now().UTC().Format("20060102_150405"),
		format,
	)

	var payload []byte
	var contentType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render score sheet")
	}

	return &ExportFile{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func buildScoreSheetDataset(rows []models.ScoreSheetRow) export.Dataset {
	headers := []string{"Student", "Quiz 1", "Quiz 2", "Oral/Listening", "Class Activity", "Final", "Total", "Passed"}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		score := models.Score{
			Quiz1:         row.Quiz1,
			Quiz2:         row.Quiz2,
			OralListening: row.OralListening,
			ClassActivity: row.ClassActivity,
			Final:         row.Final,
		}
		dataRows = append(dataRows, map[string]string{
			"Student":        row.StudentName,
			"Quiz 1":         formatComponent(row.Quiz1),
			"Quiz 2":         formatComponent(row.Quiz2),
			"Oral/Listening": formatComponent(row.OralListening),
			"Class Activity": formatComponent(row.ClassActivity),
			"Final":          formatComponent(row.Final),
			"Total":          fmt.Sprintf("%.2f", score.Total()),
			"Passed":         formatPassed(row.Passed),
		})
	}
	return export.Dataset{Headers: headers, Rows: dataRows}
}

func formatComponent(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatPassed(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "yes"
	}
	return "no"
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "class"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
