package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marks-api/internal/models"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
)

func record(c models.Category, marks ...float64) models.StudentMark {
	return models.StudentMark{StudentID: "S1", Category: c, Marks: marks, Total: models.SumMarks(marks)}
}

func TestSummarizePartialData(t *testing.T) {
	records := []models.StudentMark{
		record(models.CategoryQuiz, 12),
		record(models.CategoryQuiz, 9),
	}
	summary := Summarize("S1", records, DefaultScheme())

	quiz := summary.Category(models.CategoryQuiz)
	assert.Equal(t, 2, quiz.Count)
	assert.Equal(t, []float64{12, 9}, quiz.Marks)
	assert.InDelta(t, 10.5, quiz.Average, 1e-9)
	assert.InDelta(t, 10.5, quiz.WeightedScore, 1e-9)

	mid := summary.Category(models.CategoryMidterm)
	assert.Equal(t, 0, mid.Count)
	assert.Equal(t, 0.0, mid.Average)
	assert.Equal(t, 0.0, mid.WeightedScore)
	assert.NotNil(t, mid.Marks)

	assert.InDelta(t, quiz.WeightedScore, summary.Overall.FinalGrade, 1e-9)
	assert.Equal(t, 2, summary.Overall.RecordCount)
	assert.InDelta(t, 21, summary.Overall.TotalMarks, 1e-9)
	assert.InDelta(t, 10.5, summary.Overall.Average, 1e-9)
	assert.Len(t, summary.Categories, len(models.Categories()))
}

func TestSummarizeFinalGradeIsSumOfWeightedScores(t *testing.T) {
	records := []models.StudentMark{
		record(models.CategoryQuiz, 15),
		record(models.CategoryMidterm, 5, 5, 10),
		record(models.CategoryFinal, 10, 10, 10),
		record(models.CategoryFinal, 5, 5),
		record(models.CategoryAssignment, 4),
		record(models.CategoryPresentation, 8),
		record(models.CategoryAttendance, 7),
	}
	summary := Summarize("S1", records, DefaultScheme())

	sum := 0.0
	for _, cs := range summary.Categories {
		sum += cs.WeightedScore
	}
	assert.InDelta(t, sum, summary.Overall.FinalGrade, 1e-9)

	final := summary.Category(models.CategoryFinal)
	assert.InDelta(t, 20, final.Average, 1e-9)
	assert.InDelta(t, 20, final.WeightedScore, 1e-9)
	// 15 + 20 + 20 + 4 + 8 + 7
	assert.InDelta(t, 74, summary.Overall.FinalGrade, 1e-9)
	assert.Equal(t, "A-", summary.Overall.LetterGrade)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize("S1", nil, DefaultScheme())
	assert.Equal(t, 0, summary.Overall.RecordCount)
	assert.Equal(t, 0.0, summary.Overall.Average)
	assert.Equal(t, 0.0, summary.Overall.FinalGrade)
	assert.Equal(t, "F", summary.Overall.LetterGrade)
}

func TestSummarizeZeroMaxPossible(t *testing.T) {
	scheme := DefaultScheme()
	scheme[models.CategoryAttendance] = Rule{Weight: 7, MaxPossible: 0}
	summary := Summarize("S1", []models.StudentMark{record(models.CategoryAttendance, 5)}, scheme)
	assert.Equal(t, 0.0, summary.Category(models.CategoryAttendance).WeightedScore)
}

func TestSummarizeIsIdempotent(t *testing.T) {
	records := []models.StudentMark{record(models.CategoryQuiz, 7), record(models.CategoryFinal, 30)}
	first := Summarize("S1", records, DefaultScheme())
	second := Summarize("S1", records, DefaultScheme())
	first.GeneratedAt = second.GeneratedAt
	assert.Equal(t, first, second)
}

func TestSchemeValidate(t *testing.T) {
	require.NoError(t, DefaultScheme().Validate())

	scheme := DefaultScheme()
	scheme[models.CategoryQuiz] = Rule{Weight: 20, MaxPossible: 15}
	err := scheme.Validate()
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErrors.FromError(err).Code)

	delete(scheme, models.CategoryQuiz)
	require.Error(t, scheme.Validate())
}

func TestRounded(t *testing.T) {
	summary := Summarize("S1", []models.StudentMark{record(models.CategoryQuiz, 10), record(models.CategoryQuiz, 11), record(models.CategoryQuiz, 11)}, DefaultScheme())
	rounded := Rounded(summary)
	assert.Equal(t, 10.67, rounded.Category(models.CategoryQuiz).Average)
	assert.NotEqual(t, 10.67, summary.Category(models.CategoryQuiz).Average)
}

func TestRoundedFinalGradeIsSumOfRoundedWeightedScores(t *testing.T) {
	scheme := Scheme{
		models.CategoryQuiz:         {Weight: 20, MaxPossible: 30},
		models.CategoryMidterm:      {Weight: 20, MaxPossible: 30},
		models.CategoryFinal:        {Weight: 20, MaxPossible: 30},
		models.CategoryAssignment:   {Weight: 40, MaxPossible: 10},
		models.CategoryPresentation: {Weight: 0, MaxPossible: 1},
		models.CategoryAttendance:   {Weight: 0, MaxPossible: 1},
	}
	require.NoError(t, scheme.Validate())
	records := []models.StudentMark{
		record(models.CategoryQuiz, 1),
		record(models.CategoryMidterm, 1),
		record(models.CategoryFinal, 1),
	}

	rounded := Rounded(Summarize("S1", records, scheme))
	var sum float64
	for _, cs := range rounded.Categories {
		sum += cs.WeightedScore
	}
	assert.Equal(t, 0.67, rounded.Category(models.CategoryQuiz).WeightedScore)
	assert.InDelta(t, 2.01, rounded.Overall.FinalGrade, 1e-9)
	assert.InDelta(t, sum, rounded.Overall.FinalGrade, 1e-9)
}

func TestLetterFor(t *testing.T) {
	assert.Equal(t, "A+", LetterFor(80).Letter)
	assert.Equal(t, "D", LetterFor(40).Letter)
	assert.Equal(t, "F", LetterFor(39.99).Letter)
}
