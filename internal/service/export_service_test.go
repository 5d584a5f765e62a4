package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/marks-api/internal/models"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
	"github.com/noah-isme/marks-api/pkg/export"
	"github.com/noah-isme/marks-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *memMarkRepo) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)

	repo := newMemMarkRepo()
	formats := midtermFormatRepo()
	formatID := testFormatID
	_, _ = repo.Create(context.Background(), &models.StudentMark{StudentID: "221-15-343", Category: models.CategoryMidterm, FormatID: &formatID, Marks: []float64{3, 4, 5}, Total: 12})
	_, _ = repo.Create(context.Background(), &models.StudentMark{StudentID: "007", Category: models.CategoryMidterm, FormatID: &formatID, Marks: []float64{1, 0, 2.5}, Total: 3.5})
	_, _ = repo.Create(context.Background(), &models.StudentMark{StudentID: "007", Category: models.CategoryQuiz, Marks: []float64{14}, Total: 14})

	summaries := NewSummaryService(repo, nil, nil, time.Minute, nil)
	svc := NewExportService(repo, NewFormatService(formats, nil, nil), summaries, store, signer, ExportConfig{APIPrefix: "/api/v1/"}, validator.New(), zap.NewNop())
	return svc, repo
}

func TestExportServiceSpreadsheetRoundTrip(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), ExportRequest{FormatID: testFormatID})
	require.NoError(t, err)
	assert.Equal(t, ExportFormatXLSX, result.Format)
	assert.Equal(t, 2, result.Rows)
	assert.Contains(t, result.URL, "/api/v1/export/")

	_, relPath, err := svc.ParseToken(result.Token)
	require.NoError(t, err)
	file, err := svc.Open(relPath)
	require.NoError(t, err)
	defer file.Close()

	table, err := export.ReadMarksSheet(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, table.Labels)
	got := map[string][]float64{}
	for _, row := range table.Rows {
		got[row.StudentID] = row.Marks
	}
	assert.Equal(t, map[string][]float64{"221-15-343": {3, 4, 5}, "007": {1, 0, 2.5}}, got)
}

func TestExportServiceCategoryCSV(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	result, err := svc.Generate(context.Background(), ExportRequest{Category: "quiz", Format: ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)

	_, relPath, err := svc.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", ContentType(relPath))
	file, err := svc.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "Student ID,Quiz,Total\n007,14,14\n", string(body))
}

func TestExportServiceValidation(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	_, err := svc.Generate(context.Background(), ExportRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = svc.Generate(context.Background(), ExportRequest{Category: "quiz", Format: "docx"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceRejectsTamperedToken(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	_, _, err := svc.ParseToken("a.b.c.d")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestExportServiceSummaryPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	payload, err := svc.SummaryPDF(context.Background(), "007")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(payload[:4]))

	_, err = svc.SummaryPDF(context.Background(), "nobody")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
