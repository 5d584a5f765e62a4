package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marks-api/internal/models"
	"github.com/noah-isme/marks-api/internal/service"
)

type markServiceMock struct {
	filter     models.MarkFilter
	mark       *models.StudentMark
	err        error
	cellIndex  int
	cellValue  float64
	deletedID  string
	importReq  service.ImportMarksRequest
	importBody []byte
}

func (m *markServiceMock) Page(ctx context.Context, filter models.MarkFilter) ([]models.StudentMark, *models.Pagination, error) {
	m.filter = filter
	return []models.StudentMark{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 0}, m.err
}

func (m *markServiceMock) Get(ctx context.Context, id string) (*models.StudentMark, error) {
	return m.mark, m.err
}

func (m *markServiceMock) Save(ctx context.Context, req service.SaveMarkRequest) (*models.StudentMark, error) {
	return m.mark, m.err
}

func (m *markServiceMock) Update(ctx context.Context, id string, req service.UpdateMarksRequest) (*models.StudentMark, error) {
	return m.mark, m.err
}

func (m *markServiceMock) UpdateCell(ctx context.Context, id string, index int, req service.UpdateCellRequest) (*models.StudentMark, error) {
	m.cellIndex = index
	if req.Value != nil {
		m.cellValue = *req.Value
	}
	return m.mark, m.err
}

func (m *markServiceMock) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func (m *markServiceMock) Import(ctx context.Context, r io.Reader, req service.ImportMarksRequest) (*service.ImportResult, error) {
	m.importReq = req
	m.importBody, _ = io.ReadAll(r)
	return &service.ImportResult{SuccessCount: 1}, m.err
}

func TestMarkHandlerListPassesFilterAndPagination(t *testing.T) {
	mockSvc := &markServiceMock{}
	h := NewMarkHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/marks?category=quiz&studentId=S1&page=3&pageSize=5", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.MarkFilter{StudentID: "S1", Category: models.CategoryQuiz, Page: 3, PageSize: 5}, mockSvc.filter)
	assert.Contains(t, w.Body.String(), `"pagination":{"page":3,"page_size":5,"total_count":0}`)
}

func TestMarkHandlerListRejectsUnknownCategory(t *testing.T) {
	h := NewMarkHandler(&markServiceMock{})
	c, w := newGinContext(http.MethodGet, "/marks?category=homework", nil)
	h.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkHandlerCreate(t *testing.T) {
	h := NewMarkHandler(&markServiceMock{mark: &models.StudentMark{ID: "m-1", StudentID: "S1", Total: 12}})
	c, w := newGinContext(http.MethodPost, "/marks", []byte(`{"student_id":"S1","category":"quiz","marks":[12]}`))
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"m-1"`)
}

func TestMarkHandlerUpdateCell(t *testing.T) {
	mockSvc := &markServiceMock{mark: &models.StudentMark{ID: "m-1"}}
	h := NewMarkHandler(mockSvc)

	c, w := newGinContext(http.MethodPatch, "/marks/m-1/cells/2", []byte(`{"value":4.5}`))
	c.Params = gin.Params{{Key: "id", Value: "m-1"}, {Key: "index", Value: "2"}}
	h.UpdateCell(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, mockSvc.cellIndex)
	assert.Equal(t, 4.5, mockSvc.cellValue)
}

func TestMarkHandlerUpdateCellRejectsBadIndex(t *testing.T) {
	h := NewMarkHandler(&markServiceMock{})
	c, w := newGinContext(http.MethodPatch, "/marks/m-1/cells/x", []byte(`{"value":1}`))
	c.Params = gin.Params{{Key: "id", Value: "m-1"}, {Key: "index", Value: "x"}}
	h.UpdateCell(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkHandlerDelete(t *testing.T) {
	mockSvc := &markServiceMock{}
	h := NewMarkHandler(mockSvc)
	c, w := newGinContext(http.MethodDelete, "/marks/m-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "m-1"}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "m-1", mockSvc.deletedID)
}

func TestMarkHandlerImport(t *testing.T) {
	mockSvc := &markServiceMock{}
	h := NewMarkHandler(mockSvc)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("category", "quiz"))
	part, err := writer.CreateFormFile("file", "marks.xlsx")
	require.NoError(t, err)
	_, _ = part.Write([]byte("workbook"))
	require.NoError(t, writer.Close())

	c, w := newGinContext(http.MethodPost, "/marks/import", nil)
	c.Request, _ = http.NewRequest(http.MethodPost, "/marks/import", &body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	h.Import(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "quiz", mockSvc.importReq.Category)
	assert.Equal(t, "workbook", string(mockSvc.importBody))
	assert.Contains(t, w.Body.String(), `"success_count":1`)
}

func TestMarkHandlerImportRequiresFile(t *testing.T) {
	h := NewMarkHandler(&markServiceMock{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("category", "quiz"))
	require.NoError(t, writer.Close())

	c, w := newGinContext(http.MethodPost, "/marks/import", nil)
	c.Request, _ = http.NewRequest(http.MethodPost, "/marks/import", &body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	h.Import(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
