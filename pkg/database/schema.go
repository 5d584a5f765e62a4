package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema lists the statements that create the marks tables. Each one is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS question_formats (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS question_formats_name_key ON question_formats (LOWER(name))`,
	`CREATE TABLE IF NOT EXISTS format_questions (
	id UUID PRIMARY KEY,
	format_id UUID NOT NULL REFERENCES question_formats (id) ON DELETE CASCADE,
	position INT NOT NULL,
	label TEXT NOT NULL,
	max_mark DOUBLE PRECISION NOT NULL CHECK (max_mark > 0),
	UNIQUE (format_id, position)
)`,
	`CREATE TABLE IF NOT EXISTS student_marks (
	id UUID PRIMARY KEY,
	student_id TEXT NOT NULL,
	marks DOUBLE PRECISION[] NOT NULL,
	total DOUBLE PRECISION NOT NULL,
	category TEXT NOT NULL,
	format_id UUID REFERENCES question_formats (id),
	max_mark DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS student_marks_student_idx ON student_marks (student_id)`,
	`CREATE INDEX IF NOT EXISTS student_marks_format_idx ON student_marks (format_id)`,
}

// EnsureSchema applies Schema inside one transaction.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	for i, stmt := range Schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
