package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/marks-api/internal/models"
	"github.com/noah-isme/marks-api/internal/service"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
	"github.com/noah-isme/marks-api/pkg/response"
)

type formatService interface {
	List(ctx context.Context) ([]models.QuestionFormat, error)
	Get(ctx context.Context, id string) (*models.QuestionFormat, error)
	Create(ctx context.Context, req service.CreateFormatRequest) (*models.QuestionFormat, error)
}

// FormatHandler exposes question format endpoints.
type FormatHandler struct {
	formats formatService
}

// NewFormatHandler constructs handler.
func NewFormatHandler(formats formatService) *FormatHandler {
	return &FormatHandler{formats: formats}
}

// List godoc
// @Summary List question formats
// @Tags Formats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /formats [get]
func (h *FormatHandler) List(c *gin.Context) {
	formats, err := h.formats.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, formats, nil)
}

// Get godoc
// @Summary Get question format
// @Tags Formats
// @Produce json
// @Param id path string true "Format ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /formats/{id} [get]
func (h *FormatHandler) Get(c *gin.Context) {
	format, err := h.formats.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, format, nil)
}

// Create godoc
// @Summary Create question format
// @Tags Formats
// @Accept json
// @Produce json
// @Param payload body service.CreateFormatRequest true "Format payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /formats [post]
func (h *FormatHandler) Create(c *gin.Context) {
	var req service.CreateFormatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	format, err := h.formats.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, format)
}
