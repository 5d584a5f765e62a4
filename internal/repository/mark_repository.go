package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/marks-api/internal/models"
)

const markColumns = "id, student_id, marks, total, category, format_id, max_mark, created_at, updated_at"

// MarkRepository persists student mark records.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository creates a new mark repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// List returns records matching the filter, oldest first. PageSize > 0 limits the result.
func (r *MarkRepository) List(ctx context.Context, filter models.MarkFilter) ([]models.StudentMark, error) {
	where, args := markWhere(filter)
	query := "SELECT " + markColumns + " FROM student_marks" + where + " ORDER BY created_at, id"
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}
	var marks []models.StudentMark
	if err := r.db.SelectContext(ctx, &marks, query, args...); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}

// Count returns how many records match the filter, ignoring paging.
func (r *MarkRepository) Count(ctx context.Context, filter models.MarkFilter) (int, error) {
	where, args := markWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM student_marks"+where, args...); err != nil {
		return 0, fmt.Errorf("count marks: %w", err)
	}
	return total, nil
}

// FindByID loads one record. Returns sql.ErrNoRows when it does not exist.
func (r *MarkRepository) FindByID(ctx context.Context, id string) (*models.StudentMark, error) {
	var mark models.StudentMark
	if err := r.db.GetContext(ctx, &mark, "SELECT "+markColumns+" FROM student_marks WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get mark: %w", err)
	}
	return &mark, nil
}

// Create inserts the record. An existing row with the same ID is left untouched and
// reported through the created flag so callers can return the stored copy.
func (r *MarkRepository) Create(ctx context.Context, mark *models.StudentMark) (bool, error) {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	mark.CreatedAt = now
	mark.UpdatedAt = now
	const query = `INSERT INTO student_marks (id, student_id, marks, total, category, format_id, max_mark, created_at, updated_at)
        VALUES (:id, :student_id, :marks, :total, :category, :format_id, :max_mark, :created_at, :updated_at)
        ON CONFLICT (id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, mark)
	if err != nil {
		return false, fmt.Errorf("create mark: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create mark rows affected: %w", err)
	}
	return affected > 0, nil
}

// Update replaces the marks and total of an existing record.
func (r *MarkRepository) Update(ctx context.Context, mark *models.StudentMark) error {
	mark.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_marks SET marks = :marks, total = :total, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, mark)
	if err != nil {
		return fmt.Errorf("update mark: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update mark rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a record.
func (r *MarkRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM student_marks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete mark: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete mark rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func markWhere(filter models.MarkFilter) (string, []interface{}) {
	where := " WHERE 1=1"
	var args []interface{}
	if filter.StudentID != "" {
		where += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.Category != "" {
		where += fmt.Sprintf(" AND category = $%d", len(args)+1)
		args = append(args, filter.Category)
	}
	if filter.FormatID != "" {
		where += fmt.Sprintf(" AND format_id = $%d", len(args)+1)
		args = append(args, filter.FormatID)
	}
	if filter.WithoutFormat {
		where += " AND format_id IS NULL"
	}
	return where, args
}
