package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/marks-api/internal/models"
	"github.com/noah-isme/marks-api/pkg/response"
)

type summaryService interface {
	Summary(ctx context.Context, studentID string) (*models.StudentGradeSummary, error)
}

type summaryRenderer interface {
	SummaryPDF(ctx context.Context, studentID string) ([]byte, error)
}

// SummaryHandler exposes per-student grade summaries.
type SummaryHandler struct {
	summaries summaryService
	renderer  summaryRenderer
}

// NewSummaryHandler constructs handler.
func NewSummaryHandler(summaries summaryService, renderer summaryRenderer) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, renderer: renderer}
}

// Get godoc
// @Summary Student grade summary
// @Description Weighted category averages, final grade and letter grade.
// @Tags Summaries
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/summary [get]
func (h *SummaryHandler) Get(c *gin.Context) {
	summary, err := h.summaries.Summary(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// PDF godoc
// @Summary Student grade summary as PDF
// @Tags Summaries
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Success 200 {file} binary
// @Router /students/{studentId}/summary.pdf [get]
func (h *SummaryHandler) PDF(c *gin.Context) {
	studentID := c.Param("studentId")
	payload, err := h.renderer.SummaryPDF(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "summary_"+studentID+".pdf", "application/pdf", int64(len(payload)), bytes.NewReader(payload))
}
