package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Category is one of the fixed assessment types a mark belongs to.
type Category string

const (
	CategoryQuiz         Category = "quiz"
	CategoryMidterm      Category = "midterm"
	CategoryFinal        Category = "final"
	CategoryAssignment   Category = "assignment"
	CategoryPresentation Category = "presentation"
	CategoryAttendance   Category = "attendance"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategoryQuiz,
		CategoryMidterm,
		CategoryFinal,
		CategoryAssignment,
		CategoryPresentation,
		CategoryAttendance,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryQuiz, CategoryMidterm, CategoryFinal, CategoryAssignment, CategoryPresentation, CategoryAttendance:
		return true
	}
	return false
}

// Label is the human readable name used in exports.
func (c Category) Label() string {
	switch c {
	case CategoryQuiz:
		return "Quiz"
	case CategoryMidterm:
		return "Midterm"
	case CategoryFinal:
		return "Final"
	case CategoryAssignment:
		return "Assignment"
	case CategoryPresentation:
		return "Presentation"
	case CategoryAttendance:
		return "Attendance"
	}
	return string(c)
}

// ParseCategory normalises raw input into a Category.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// StudentMark is one persisted score entry for one student in one assessment.
type StudentMark struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	Marks     pq.Float64Array `db:"marks" json:"marks"`
	Total     float64         `db:"total" json:"total"`
	Category  Category        `db:"category" json:"category"`
	FormatID  *string         `db:"format_id" json:"format_id,omitempty"`
	MaxMark   *float64        `db:"max_mark" json:"max_mark,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// SumMarks returns the sum of the provided marks.
func SumMarks(marks []float64) float64 {
	total := 0.0
	for _, m := range marks {
		total += m
	}
	return total
}

// MarkFilter scopes mark listing queries.
type MarkFilter struct {
	StudentID     string
	Category      Category
	FormatID      string
	WithoutFormat bool
	Page          int
	PageSize      int
}
