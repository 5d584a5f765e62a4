package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/marks-api/internal/models"
	"github.com/noah-isme/marks-api/internal/repository"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
	"github.com/noah-isme/marks-api/pkg/export"
)

type formatRepository interface {
	List(ctx context.Context) ([]models.QuestionFormat, error)
	FindByID(ctx context.Context, id string) (*models.QuestionFormat, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, format *models.QuestionFormat) error
}

// QuestionRequest is one question of a new format.
type QuestionRequest struct {
	Label   string  `json:"label" validate:"required,max=32"`
	MaxMark float64 `json:"max_mark" validate:"gt=0"`
}

// CreateFormatRequest defines a new question format.
type CreateFormatRequest struct {
	Name      string            `json:"name" validate:"required,max=120"`
	Category  string            `json:"category" validate:"omitempty,oneof=quiz midterm final assignment presentation attendance"`
	Questions []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

// FormatService manages question formats.
type FormatService struct {
	repo      formatRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFormatService constructs FormatService.
func NewFormatService(repo formatRepository, validate *validator.Validate, logger *zap.Logger) *FormatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormatService{repo: repo, validator: validate, logger: logger}
}

// List returns all formats.
func (s *FormatService) List(ctx context.Context) ([]models.QuestionFormat, error) {
	formats, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list formats")
	}
	return formats, nil
}

// Get returns one format with its questions.
func (s *FormatService) Get(ctx context.Context, id string) (*models.QuestionFormat, error) {
	format, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "format not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load format")
	}
	return format, nil
}

// Create validates and stores a new format. Labels must be unique within the format.
func (s *FormatService) Create(ctx context.Context, req CreateFormatRequest) (*models.QuestionFormat, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid format payload")
	}

	format := &models.QuestionFormat{Name: req.Name, Questions: make([]models.Question, 0, len(req.Questions))}
	if req.Category != "" {
		category := models.Category(req.Category)
		format.Category = &category
	}
	seen := make(map[string]struct{}, len(req.Questions))
	for _, q := range req.Questions {
		label := strings.TrimSpace(q.Label)
		if label == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "question label required")
		}
		switch {
		case label == finalizeSentinel:
			return nil, appErrors.Clone(appErrors.ErrValidation, "question label "+finalizeSentinel+" is reserved for finishing entry")
		case export.ReservedLabel(label):
			return nil, appErrors.Clone(appErrors.ErrValidation, "question label "+label+" is reserved for an export column")
		}
		key := strings.ToLower(label)
		if _, dup := seen[key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate question label "+label)
		}
		seen[key] = struct{}{}
		format.Questions = append(format.Questions, models.Question{Label: label, MaxMark: q.MaxMark})
	}

	exists, err := s.repo.ExistsByName(ctx, format.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check format name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "format name already used")
	}

	if err := s.repo.Create(ctx, format); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "format name already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create format")
	}
	s.logger.Info("format created", zap.String("format_id", format.ID), zap.Int("questions", len(format.Questions)))
	return format, nil
}
