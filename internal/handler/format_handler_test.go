package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marks-api/internal/models"
	"github.com/noah-isme/marks-api/internal/service"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
)

type formatServiceMock struct {
	format  *models.QuestionFormat
	err     error
	created *service.CreateFormatRequest
}

func (m *formatServiceMock) List(ctx context.Context) ([]models.QuestionFormat, error) {
	if m.format == nil {
		return []models.QuestionFormat{}, m.err
	}
	return []models.QuestionFormat{*m.format}, m.err
}

func (m *formatServiceMock) Get(ctx context.Context, id string) (*models.QuestionFormat, error) {
	return m.format, m.err
}

func (m *formatServiceMock) Create(ctx context.Context, req service.CreateFormatRequest) (*models.QuestionFormat, error) {
	m.created = &req
	return m.format, m.err
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestFormatHandlerCreate(t *testing.T) {
	mockSvc := &formatServiceMock{format: &models.QuestionFormat{ID: "f-1", Name: "Midterm A"}}
	h := NewFormatHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/formats", []byte(`{"name":"Midterm A","questions":[{"label":"1","max_mark":5}]}`))
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mockSvc.created)
	assert.Equal(t, "Midterm A", mockSvc.created.Name)
	assert.Len(t, mockSvc.created.Questions, 1)
	assert.Contains(t, w.Body.String(), `"id":"f-1"`)
}

func TestFormatHandlerCreateRejectsMalformedJSON(t *testing.T) {
	h := NewFormatHandler(&formatServiceMock{})
	c, w := newGinContext(http.MethodPost, "/formats", []byte(`{"name":`))
	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFormatHandlerGetNotFound(t *testing.T) {
	h := NewFormatHandler(&formatServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "format not found")})
	c, w := newGinContext(http.MethodGet, "/formats/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "format not found")
}
