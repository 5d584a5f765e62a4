package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/marks-api/internal/models"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
	"github.com/noah-isme/marks-api/pkg/export"
	"github.com/noah-isme/marks-api/pkg/grading"
	"github.com/noah-isme/marks-api/pkg/storage"
)

// Export file formats.
const (
	ExportFormatXLSX = "xlsx"
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type summaryProvider interface {
	Summary(ctx context.Context, studentID string) (*models.StudentGradeSummary, error)
}

type sheetRenderer interface {
	Render(t export.MarksTable) ([]byte, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, notes ...string) ([]byte, error)
}

// ExportRequest selects the records to export: a format's sheet, or a category's single marks.
type ExportRequest struct {
	FormatID string `json:"format_id" validate:"required_without=Category"`
	Category string `json:"category" validate:"omitempty,oneof=quiz midterm final assignment presentation attendance"`
	Format   string `json:"format" validate:"omitempty,oneof=xlsx csv pdf"`
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	ID           string    `json:"id"`
	RelativePath string    `json:"-"`
	Token        string    `json:"token"`
	URL          string    `json:"url"`
	Format       string    `json:"format"`
	Rows         int       `json:"rows"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExportService renders mark sheets and grade summaries and stores them behind signed links.
type ExportService struct {
	marks     markLister
	formats   entryFormatReader
	summaries summaryProvider
	storage   fileStorage
	sheet     sheetRenderer
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(marks markLister, formats entryFormatReader, summaries summaryProvider, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		marks:     marks,
		formats:   formats,
		summaries: summaries,
		storage:   store,
		sheet:     export.NewSpreadsheetExporter(),
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders the requested marks table and stores it, returning a signed download link.
func (s *ExportService) Generate(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if req.Format == "" {
		req.Format = ExportFormatXLSX
	}
	table, title, err := s.MarksTable(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch req.Format {
	case ExportFormatXLSX:
		payload, err = s.sheet.Render(table)
	case ExportFormatCSV:
		payload, err = s.csv.Render(table.Dataset())
	case ExportFormatPDF:
		payload, err = s.pdf.Render(table.Dataset(), title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	relPath, err := s.storage.Save(s.buildFilename(id, title, req.Format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export generated", zap.String("export_id", id), zap.String("format", req.Format), zap.Int("rows", len(table.Rows)))
	return &ExportResult{
		ID:           id,
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       req.Format,
		Rows:         len(table.Rows),
		ExpiresAt:    expiresAt,
	}, nil
}

// MarksTable builds the student-by-question grid for a format, or the single-mark column of a category.
func (s *ExportService) MarksTable(ctx context.Context, req ExportRequest) (export.MarksTable, string, error) {
	var (
		table  export.MarksTable
		title  string
		filter models.MarkFilter
	)
	if req.FormatID != "" {
		format, err := s.formats.Get(ctx, req.FormatID)
		if err != nil {
			return table, "", err
		}
		table.Labels = format.Labels()
		title = format.Name
		filter = models.MarkFilter{FormatID: format.ID}
	} else {
		category := models.Category(req.Category)
		table.Labels = []string{category.Label()}
		title = category.Label() + " marks"
		filter = models.MarkFilter{Category: category, WithoutFormat: true}
	}

	records, err := s.marks.List(ctx, filter)
	if err != nil {
		return table, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}
	table.Rows = make([]export.MarksRow, 0, len(records))
	for _, r := range records {
		table.Rows = append(table.Rows, export.MarksRow{StudentID: r.StudentID, Marks: append([]float64{}, r.Marks...), Total: r.Total})
	}
	return table, title, nil
}

// SummaryPDF renders a student's grade summary.
func (s *ExportService) SummaryPDF(ctx context.Context, studentID string) ([]byte, error) {
	summary, err := s.summaries.Summary(ctx, studentID)
	if err != nil {
		return nil, err
	}
	headers := []string{"Category", "Records", "Average", "Max", "Weight", "Weighted"}
	rows := make([]map[string]string, 0, len(summary.Categories))
	for _, c := range summary.Categories {
		rows = append(rows, map[string]string{
			"Category": c.Category.Label(),
			"Records":  fmt.Sprintf("%d", c.Count),
			"Average":  fmt.Sprintf("%.2f", c.Average),
			"Max":      formatNumber(c.MaxPossible),
			"Weight":   formatNumber(c.Weight),
			"Weighted": fmt.Sprintf("%.2f", c.WeightedScore),
		})
	}
	notes := []string{
		fmt.Sprintf("Final grade: %.2f", grading.Round(summary.Overall.FinalGrade)),
		fmt.Sprintf("Letter grade: %s (%.2f)", summary.Overall.LetterGrade, summary.Overall.GradePoint),
		"Generated " + summary.GeneratedAt.UTC().Format(time.RFC3339),
	}
	payload, err := s.pdf.Render(export.Dataset{Headers: headers, Rows: rows}, "Grade summary "+summary.StudentID, notes...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render summary")
	}
	return payload, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string) (exportID, relPath string, err error) {
	claims, err := s.signer.Parse(token, false)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export link invalid or expired")
	}
	return claims.ExportID, claims.Path, nil
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	return file, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// RunCleanup calls Cleanup every interval until ctx ends.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Cleanup(0)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}

// ContentType maps an export file extension to its MIME type.
func ContentType(path string) string {
	switch {
	case strings.HasSuffix(path, "."+ExportFormatXLSX):
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case strings.HasSuffix(path, "."+ExportFormatCSV):
		return "text/csv"
	case strings.HasSuffix(path, "."+ExportFormatPDF):
		return "application/pdf"
	}
	return "application/octet-stream"
}

func (s *ExportService) buildFilename(id, title, format string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s.%s", sanitizeFilename(title), timestamp, id[:8], format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "marks"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func formatNumber(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
