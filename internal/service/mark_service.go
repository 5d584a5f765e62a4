package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/marks-api/internal/models"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
	"github.com/noah-isme/marks-api/pkg/events"
	"github.com/noah-isme/marks-api/pkg/export"
	"github.com/noah-isme/marks-api/pkg/grading"
)

type markRepository interface {
	List(ctx context.Context, filter models.MarkFilter) ([]models.StudentMark, error)
	Count(ctx context.Context, filter models.MarkFilter) (int, error)
	FindByID(ctx context.Context, id string) (*models.StudentMark, error)
	Create(ctx context.Context, mark *models.StudentMark) (bool, error)
	Update(ctx context.Context, mark *models.StudentMark) error
	Delete(ctx context.Context, id string) error
}

type formatReader interface {
	FindByID(ctx context.Context, id string) (*models.QuestionFormat, error)
}

type summaryInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID string) error
}

// SaveMarkRequest creates one student record. ID may be supplied by the client to make retries safe.
type SaveMarkRequest struct {
	ID        string    `json:"id" validate:"omitempty,uuid"`
	StudentID string    `json:"student_id" validate:"required,max=64"`
	Category  string    `json:"category" validate:"required,oneof=quiz midterm final assignment presentation attendance"`
	FormatID  string    `json:"format_id" validate:"omitempty,uuid"`
	MaxMark   *float64  `json:"max_mark" validate:"omitempty,gt=0"`
	Marks     []float64 `json:"marks" validate:"required,min=1"`
}

// UpdateMarksRequest replaces every mark of a record.
type UpdateMarksRequest struct {
	Marks []float64 `json:"marks" validate:"required,min=1"`
}

// UpdateCellRequest corrects one mark of a record.
type UpdateCellRequest struct {
	Value *float64 `json:"value" validate:"required"`
}

// ImportMarksRequest scopes a spreadsheet import.
type ImportMarksRequest struct {
	Category string   `form:"category" validate:"required,oneof=quiz midterm final assignment presentation attendance"`
	FormatID string   `form:"format_id" validate:"omitempty,uuid"`
	MaxMark  *float64 `form:"max_mark" validate:"omitempty,gt=0"`
}

// ImportResult summarises a spreadsheet import.
type ImportResult struct {
	SuccessCount int             `json:"success_count"`
	Failures     []ImportFailure `json:"failures,omitempty"`
}

// ImportFailure describes a rejected spreadsheet row.
type ImportFailure struct {
	Row       int    `json:"row"`
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// MarkService owns student mark records.
type MarkService struct {
	marks     markRepository
	formats   formatReader
	scheme    grading.Scheme
	summaries summaryInvalidator
	publisher events.Publisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs MarkService.
func NewMarkService(marks markRepository, formats formatReader, scheme grading.Scheme, summaries summaryInvalidator, publisher events.Publisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if scheme == nil {
		scheme = grading.DefaultScheme()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkService{
		marks:     marks,
		formats:   formats,
		scheme:    scheme,
		summaries: summaries,
		publisher: publisher,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns records matching filter.
func (s *MarkService) List(ctx context.Context, filter models.MarkFilter) ([]models.StudentMark, error) {
	start := time.Now()
	marks, err := s.marks.List(ctx, filter)
	s.metrics.ObserveDBQuery("marks_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	if marks == nil {
		marks = []models.StudentMark{}
	}
	return marks, nil
}

// Page returns one page of records matching filter.
func (s *MarkService) Page(ctx context.Context, filter models.MarkFilter) ([]models.StudentMark, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 200 {
		filter.PageSize = 200
	}
	marks, err := s.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	total, err := s.marks.Count(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count marks")
	}
	return marks, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one record.
func (s *MarkService) Get(ctx context.Context, id string) (*models.StudentMark, error) {
	mark, err := s.marks.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mark record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark record")
	}
	return mark, nil
}

// Save validates and stores a new record. Saving an ID that already exists returns the stored record.
func (s *MarkService) Save(ctx context.Context, req SaveMarkRequest) (*models.StudentMark, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}

	mark := &models.StudentMark{
		ID:        req.ID,
		StudentID: req.StudentID,
		Marks:     append([]float64{}, req.Marks...),
		Category:  models.Category(req.Category),
		MaxMark:   req.MaxMark,
	}
	if req.FormatID != "" {
		formatID := req.FormatID
		mark.FormatID = &formatID
	}
	if err := s.validateMarks(ctx, mark); err != nil {
		return nil, err
	}
	mark.Total = models.SumMarks(mark.Marks)

	created, err := s.marks.Create(ctx, mark)
	if err != nil {
		s.metrics.RecordMarkSaveFailure()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save mark record")
	}
	if !created {
		return s.Get(ctx, mark.ID)
	}

	s.metrics.RecordMarkSaved(mark.Category)
	s.afterWrite(ctx, events.MarkCreated, mark)
	return mark, nil
}

// Update replaces every mark of a record.
func (s *MarkService) Update(ctx context.Context, id string, req UpdateMarksRequest) (*models.StudentMark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	mark, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	mark.Marks = append([]float64{}, req.Marks...)
	return s.write(ctx, mark)
}

// UpdateCell corrects the mark at index.
func (s *MarkService) UpdateCell(ctx context.Context, id string, index int, req UpdateCellRequest) (*models.StudentMark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	mark, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(mark.Marks) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cell index must be between 0 and %d", len(mark.Marks)-1))
	}
	marks := append([]float64{}, mark.Marks...)
	marks[index] = *req.Value
	mark.Marks = marks
	return s.write(ctx, mark)
}

// Delete removes a record.
func (s *MarkService) Delete(ctx context.Context, id string) error {
	mark, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.marks.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "mark record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete mark record")
	}
	s.afterWrite(ctx, events.MarkDeleted, mark)
	return nil
}

// Import saves every row of a marks spreadsheet, collecting per-row failures.
func (s *MarkService) Import(ctx context.Context, r io.Reader, req ImportMarksRequest) (*ImportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import parameters")
	}
	table, err := export.ReadMarksSheet(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable spreadsheet")
	}

	filter := models.MarkFilter{Category: models.Category(req.Category), WithoutFormat: req.FormatID == ""}
	if req.FormatID != "" {
		format, err := s.loadFormat(ctx, req.FormatID)
		if err != nil {
			return nil, err
		}
		if len(table.Labels) != len(format.Questions) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("spreadsheet has %d question columns, format has %d", len(table.Labels), len(format.Questions)))
		}
		filter = models.MarkFilter{FormatID: req.FormatID}
	}

	existing, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(existing)+len(table.Rows))
	for _, m := range existing {
		seen[strings.TrimSpace(m.StudentID)] = struct{}{}
	}

	result := &ImportResult{}
	for i, row := range table.Rows {
		rowNum := i + 2
		if _, dup := seen[row.StudentID]; dup {
			result.Failures = append(result.Failures, ImportFailure{Row: rowNum, StudentID: row.StudentID, Reason: "duplicate student id"})
			continue
		}
		_, err := s.Save(ctx, SaveMarkRequest{
			StudentID: row.StudentID,
			Category:  req.Category,
			FormatID:  req.FormatID,
			MaxMark:   req.MaxMark,
			Marks:     row.Marks,
		})
		if err != nil {
			result.Failures = append(result.Failures, ImportFailure{Row: rowNum, StudentID: row.StudentID, Reason: appErrors.FromError(err).Message})
			continue
		}
		seen[row.StudentID] = struct{}{}
		result.SuccessCount++
	}
	s.logger.Info("marks imported", zap.Int("saved", result.SuccessCount), zap.Int("failed", len(result.Failures)))
	return result, nil
}

func (s *MarkService) write(ctx context.Context, mark *models.StudentMark) (*models.StudentMark, error) {
	if err := s.validateMarks(ctx, mark); err != nil {
		return nil, err
	}
	mark.Total = models.SumMarks(mark.Marks)
	if err := s.marks.Update(ctx, mark); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mark record not found")
		}
		s.metrics.RecordMarkSaveFailure()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mark record")
	}
	s.afterWrite(ctx, events.MarkUpdated, mark)
	return mark, nil
}

// validateMarks checks marks against the referenced format, or against the single-mark maximum.
func (s *MarkService) validateMarks(ctx context.Context, mark *models.StudentMark) error {
	for _, m := range mark.Marks {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return appErrors.Clone(appErrors.ErrValidation, "marks must be finite numbers")
		}
	}

	if mark.FormatID != nil && *mark.FormatID != "" {
		format, err := s.loadFormat(ctx, *mark.FormatID)
		if err != nil {
			return err
		}
		if format.Category != nil && *format.Category != mark.Category {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("format belongs to category %s", *format.Category))
		}
		if len(mark.Marks) != len(format.Questions) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("expected %d marks, got %d", len(format.Questions), len(mark.Marks)))
		}
		for i, q := range format.Questions {
			if mark.Marks[i] < 0 || mark.Marks[i] > q.MaxMark {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %s: %s", q.Label, rangeMessage(q.MaxMark)))
			}
		}
		return nil
	}

	if len(mark.Marks) != 1 {
		return appErrors.Clone(appErrors.ErrValidation, "records without a format hold exactly one mark")
	}
	limit := s.scheme.MaxMark(mark.Category)
	if mark.MaxMark != nil {
		limit = *mark.MaxMark
	}
	if mark.Marks[0] < 0 || mark.Marks[0] > limit {
		return appErrors.Clone(appErrors.ErrValidation, rangeMessage(limit))
	}
	return nil
}

func (s *MarkService) loadFormat(ctx context.Context, id string) (*models.QuestionFormat, error) {
	format, err := s.formats.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "format not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load format")
	}
	return format, nil
}

func (s *MarkService) afterWrite(ctx context.Context, kind events.MarkEventType, mark *models.StudentMark) {
	if s.summaries != nil {
		if err := s.summaries.InvalidateStudent(ctx, mark.StudentID); err != nil {
			s.logger.Warn("summary invalidation failed", zap.String("student_id", mark.StudentID), zap.Error(err))
		}
	}
	event := events.NewMarkEvent(kind, mark.ID, mark.StudentID, string(mark.Category), mark.Total)
	if err := s.publisher.PublishMarkEvent(ctx, event); err != nil {
		s.logger.Warn("mark event not published", zap.String("record_id", mark.ID), zap.Error(err))
	}
}

func rangeMessage(limit float64) string {
	return "Mark should be between 0 and " + strconv.FormatFloat(limit, 'f', -1, 64)
}
