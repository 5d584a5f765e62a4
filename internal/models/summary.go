package models

import "time"

// CategorySummary aggregates one category of a student's marks.
type CategorySummary struct {
	Category      Category  `json:"category"`
	Count         int       `json:"count"`
	Marks         []float64 `json:"marks"`
	Average       float64   `json:"average"`
	Weight        float64   `json:"weight"`
	MaxPossible   float64   `json:"max_possible"`
	WeightedScore float64   `json:"weighted_score"`
}

// OverallSummary rolls every category into a single grade.
type OverallSummary struct {
	RecordCount int     `json:"record_count"`
	TotalMarks  float64 `json:"total_marks"`
	Average     float64 `json:"average"`
	FinalGrade  float64 `json:"final_grade"`
	LetterGrade string  `json:"letter_grade"`
	GradePoint  float64 `json:"grade_point"`
}

// StudentGradeSummary is the derived grade view for one student. It is never persisted.
type StudentGradeSummary struct {
	StudentID   string            `json:"student_id"`
	Categories  []CategorySummary `json:"categories"`
	Overall     OverallSummary    `json:"overall"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Category returns the summary for c, or a zero value when absent.
func (s *StudentGradeSummary) Category(c Category) CategorySummary {
	for _, cs := range s.Categories {
		if cs.Category == c {
			return cs
		}
	}
	return CategorySummary{Category: c, Marks: []float64{}}
}
