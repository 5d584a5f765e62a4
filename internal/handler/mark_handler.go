package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/marks-api/internal/models"
	"github.com/noah-isme/marks-api/internal/service"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
	"github.com/noah-isme/marks-api/pkg/response"
)

type markService interface {
	Page(ctx context.Context, filter models.MarkFilter) ([]models.StudentMark, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.StudentMark, error)
	Save(ctx context.Context, req service.SaveMarkRequest) (*models.StudentMark, error)
	Update(ctx context.Context, id string, req service.UpdateMarksRequest) (*models.StudentMark, error)
	UpdateCell(ctx context.Context, id string, index int, req service.UpdateCellRequest) (*models.StudentMark, error)
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, r io.Reader, req service.ImportMarksRequest) (*service.ImportResult, error)
}

// MarkHandler exposes student mark endpoints.
type MarkHandler struct {
	marks markService
}

// NewMarkHandler constructs handler.
func NewMarkHandler(marks markService) *MarkHandler {
	return &MarkHandler{marks: marks}
}

// List godoc
// @Summary List mark records
// @Tags Marks
// @Produce json
// @Param category query string false "Filter by category"
// @Param formatId query string false "Filter by question format"
// @Param studentId query string false "Filter by student"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /marks [get]
func (h *MarkHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	filter := models.MarkFilter{
		StudentID: c.Query("studentId"),
		Category:  models.Category(c.Query("category")),
		FormatID:  c.Query("formatId"),
		Page:      page,
		PageSize:  size,
	}
	if filter.Category != "" && !filter.Category.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown category"))
		return
	}
	marks, pagination, err := h.marks.Page(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, pagination)
}

// Get godoc
// @Summary Get mark record
// @Tags Marks
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /marks/{id} [get]
func (h *MarkHandler) Get(c *gin.Context) {
	mark, err := h.marks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Create godoc
// @Summary Save mark record
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body service.SaveMarkRequest true "Mark payload"
// @Success 201 {object} response.Envelope
// @Router /marks [post]
func (h *MarkHandler) Create(c *gin.Context) {
	var req service.SaveMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	mark, err := h.marks.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mark)
}

// Update godoc
// @Summary Replace the marks of a record
// @Tags Marks
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body service.UpdateMarksRequest true "Marks payload"
// @Success 200 {object} response.Envelope
// @Router /marks/{id} [put]
func (h *MarkHandler) Update(c *gin.Context) {
	var req service.UpdateMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	mark, err := h.marks.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// UpdateCell godoc
// @Summary Correct one mark of a record
// @Tags Marks
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param index path int true "Zero-based mark index"
// @Param payload body service.UpdateCellRequest true "Cell payload"
// @Success 200 {object} response.Envelope
// @Router /marks/{id}/cells/{index} [patch]
func (h *MarkHandler) UpdateCell(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "cell index must be a number"))
		return
	}
	var req service.UpdateCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	mark, err := h.marks.UpdateCell(c.Request.Context(), c.Param("id"), index, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Delete godoc
// @Summary Delete mark record
// @Tags Marks
// @Param id path string true "Record ID"
// @Success 204
// @Router /marks/{id} [delete]
func (h *MarkHandler) Delete(c *gin.Context) {
	if err := h.marks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import godoc
// @Summary Import marks from a spreadsheet
// @Tags Marks
// @Accept multipart/form-data
// @Produce json
// @Param category formData string true "Category"
// @Param format_id formData string false "Question format"
// @Param max_mark formData number false "Maximum for single marks"
// @Param file formData file true "xlsx workbook"
// @Success 200 {object} response.Envelope
// @Router /marks/import [post]
func (h *MarkHandler) Import(c *gin.Context) {
	var req service.ImportMarksRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import parameters"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	result, err := h.marks.Import(c.Request.Context(), src, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
