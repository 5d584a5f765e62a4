package models

import "time"

// QuestionFormat is a named rubric of ordered questions used for multi-question assessments.
type QuestionFormat struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Category  *Category  `db:"category" json:"category,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	Questions []Question `json:"questions"`
}

// Question is one scoring unit within a format.
type Question struct {
	ID       string  `db:"id" json:"id"`
	FormatID string  `db:"format_id" json:"format_id"`
	Position int     `db:"position" json:"position"`
	Label    string  `db:"label" json:"label"`
	MaxMark  float64 `db:"max_mark" json:"max_mark"`
}

// Labels returns question labels in format order.
func (f *QuestionFormat) Labels() []string {
	labels := make([]string, len(f.Questions))
	for i, q := range f.Questions {
		labels[i] = q.Label
	}
	return labels
}

// MaxTotal is the sum of every question's maximum mark.
func (f *QuestionFormat) MaxTotal() float64 {
	total := 0.0
	for _, q := range f.Questions {
		total += q.MaxMark
	}
	return total
}
