package grading

import (
	"time"

	"github.com/noah-isme/marks-api/internal/models"
)

// Summarize rolls a student's records into a weighted grade summary. Categories without
// records are zero-filled. Values are left unrounded; callers round for display.
func Summarize(studentID string, records []models.StudentMark, scheme Scheme) *models.StudentGradeSummary {
	buckets := make(map[models.Category][]float64, len(models.Categories()))
	for _, rec := range records {
		if !rec.Category.Valid() {
			continue
		}
		buckets[rec.Category] = append(buckets[rec.Category], rec.Total)
	}

	summary := &models.StudentGradeSummary{
		StudentID:   studentID,
		Categories:  make([]models.CategorySummary, 0, len(models.Categories())),
		GeneratedAt: time.Now().UTC(),
	}
	for _, c := range models.Categories() {
		totals := buckets[c]
		if totals == nil {
			totals = []float64{}
		}
		rule := scheme.Rule(c)
		cs := models.CategorySummary{
			Category:    c,
			Count:       len(totals),
			Marks:       totals,
			Average:     average(totals),
			Weight:      rule.Weight,
			MaxPossible: rule.MaxPossible,
		}
		if cs.Count > 0 && rule.MaxPossible > 0 {
			cs.WeightedScore = cs.Average / rule.MaxPossible * rule.Weight
		}
		summary.Categories = append(summary.Categories, cs)

		summary.Overall.RecordCount += cs.Count
		summary.Overall.TotalMarks += models.SumMarks(totals)
		summary.Overall.FinalGrade += cs.WeightedScore
	}
	if summary.Overall.RecordCount > 0 {
		summary.Overall.Average = summary.Overall.TotalMarks / float64(summary.Overall.RecordCount)
	}
	letter := LetterFor(summary.Overall.FinalGrade)
	summary.Overall.LetterGrade = letter.Letter
	summary.Overall.GradePoint = letter.Point
	return summary
}

// Rounded returns a copy of s with every score rounded to two decimals.
// FinalGrade and the letter are recomputed from the rounded weighted scores.
func Rounded(s *models.StudentGradeSummary) *models.StudentGradeSummary {
	if s == nil {
		return nil
	}
	out := *s
	out.Categories = make([]models.CategorySummary, len(s.Categories))
	var final float64
	for i, cs := range s.Categories {
		cs.Average = Round(cs.Average)
		cs.WeightedScore = Round(cs.WeightedScore)
		final += cs.WeightedScore
		out.Categories[i] = cs
	}
	out.Overall.TotalMarks = Round(s.Overall.TotalMarks)
	out.Overall.Average = Round(s.Overall.Average)
	// The final grade stays the sum of the weighted scores as presented.
	out.Overall.FinalGrade = Round(final)
	letter := LetterFor(out.Overall.FinalGrade)
	out.Overall.LetterGrade = letter.Letter
	out.Overall.GradePoint = letter.Point
	return &out
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return models.SumMarks(values) / float64(len(values))
}
