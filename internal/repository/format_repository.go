package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/marks-api/internal/models"
)

const uniqueViolation = "23505"

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// FormatRepository persists question formats and their questions.
type FormatRepository struct {
	db *sqlx.DB
}

// NewFormatRepository creates a new format repository.
func NewFormatRepository(db *sqlx.DB) *FormatRepository {
	return &FormatRepository{db: db}
}

// List returns every format with its questions in position order.
func (r *FormatRepository) List(ctx context.Context) ([]models.QuestionFormat, error) {
	var formats []models.QuestionFormat
	if err := r.db.SelectContext(ctx, &formats, `SELECT id, name, category, created_at, updated_at FROM question_formats ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list formats: %w", err)
	}
	if len(formats) == 0 {
		return formats, nil
	}

	ids := make([]string, len(formats))
	for i := range formats {
		ids[i] = formats[i].ID
	}
	questions, err := r.questionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range formats {
		formats[i].Questions = questions[formats[i].ID]
		if formats[i].Questions == nil {
			formats[i].Questions = []models.Question{}
		}
	}
	return formats, nil
}

// FindByID loads one format. Returns sql.ErrNoRows when it does not exist.
func (r *FormatRepository) FindByID(ctx context.Context, id string) (*models.QuestionFormat, error) {
	var format models.QuestionFormat
	if err := r.db.GetContext(ctx, &format, `SELECT id, name, category, created_at, updated_at FROM question_formats WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get format: %w", err)
	}
	questions, err := r.questionsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	format.Questions = questions[id]
	if format.Questions == nil {
		format.Questions = []models.Question{}
	}
	return &format, nil
}

// ExistsByName reports whether a format with the name exists, case-insensitively.
func (r *FormatRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM question_formats WHERE LOWER(name) = LOWER($1) LIMIT 1`, name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check format name: %w", err)
	}
	return true, nil
}

// Create inserts the format and its questions in one transaction.
func (r *FormatRepository) Create(ctx context.Context, format *models.QuestionFormat) error {
	if format.ID == "" {
		format.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	format.CreatedAt = now
	format.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin format tx: %w", err)
	}
	const insertFormat = `INSERT INTO question_formats (id, name, category, created_at, updated_at)
        VALUES (:id, :name, :category, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertFormat, format); err != nil {
		tx.Rollback() //nolint:errcheck
		if isUniqueViolation(err) {
			return fmt.Errorf("create format %q: %w", format.Name, ErrDuplicate)
		}
		return fmt.Errorf("create format: %w", err)
	}

	const insertQuestion = `INSERT INTO format_questions (id, format_id, position, label, max_mark)
        VALUES (:id, :format_id, :position, :label, :max_mark)`
	for i := range format.Questions {
		q := &format.Questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.FormatID = format.ID
		q.Position = i + 1
		if _, err := tx.NamedExecContext(ctx, insertQuestion, q); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("create format question %s: %w", q.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit format: %w", err)
	}
	return nil
}

func (r *FormatRepository) questionsFor(ctx context.Context, formatIDs []string) (map[string][]models.Question, error) {
	placeholders := make([]string, len(formatIDs))
	args := make([]interface{}, len(formatIDs))
	for i, id := range formatIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, format_id, position, label, max_mark FROM format_questions
        WHERE format_id IN (%s) ORDER BY format_id, position`, strings.Join(placeholders, ","))
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, args...); err != nil {
		return nil, fmt.Errorf("list format questions: %w", err)
	}
	result := make(map[string][]models.Question, len(formatIDs))
	for _, q := range questions {
		result[q.FormatID] = append(result[q.FormatID], q)
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
