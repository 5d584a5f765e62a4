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

type entryService interface {
	Start(ctx context.Context, req service.StartEntryRequest) (*models.EntrySnapshot, error)
	Snapshot(id string) (*models.EntrySnapshot, error)
	Input(ctx context.Context, id string, req service.EntryInputRequest) (*models.EntryOutcome, error)
	Cancel(id string) (*models.EntrySnapshot, error)
	Reconcile(ctx context.Context, id string) (*models.ReconcileReport, error)
	Close(id string, force bool) error
}

// EntryHandler drives guided entry sessions over HTTP. Each input call is one confirm action.
type EntryHandler struct {
	entries entryService
}

// NewEntryHandler constructs handler.
func NewEntryHandler(entries entryService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

// Start godoc
// @Summary Open a guided entry session
// @Tags Entry
// @Accept json
// @Produce json
// @Param payload body service.StartEntryRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /entry/sessions [post]
func (h *EntryHandler) Start(c *gin.Context) {
	var req service.StartEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	snapshot, err := h.entries.Start(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, snapshot)
}

// Get godoc
// @Summary Current session state
// @Tags Entry
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /entry/sessions/{id} [get]
func (h *EntryHandler) Get(c *gin.Context) {
	snapshot, err := h.entries.Snapshot(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Input godoc
// @Summary Confirm one input
// @Description Rejected input keeps the session on the same step; the outcome carries the notice.
// @Tags Entry
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.EntryInputRequest true "Input payload"
// @Success 200 {object} response.Envelope
// @Router /entry/sessions/{id}/input [post]
func (h *EntryHandler) Input(c *gin.Context) {
	var req service.EntryInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.entries.Input(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// Cancel godoc
// @Summary Discard the in-progress student
// @Tags Entry
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /entry/sessions/{id}/cancel [post]
func (h *EntryHandler) Cancel(c *gin.Context) {
	snapshot, err := h.entries.Cancel(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Reconcile godoc
// @Summary Retry unsaved results
// @Tags Entry
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /entry/sessions/{id}/reconcile [post]
func (h *EntryHandler) Reconcile(c *gin.Context) {
	report, err := h.entries.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Close godoc
// @Summary Close a session
// @Description Fails with 412 while results are unsaved unless force=true.
// @Tags Entry
// @Param id path string true "Session ID"
// @Param force query bool false "Discard unsaved results"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /entry/sessions/{id} [delete]
func (h *EntryHandler) Close(c *gin.Context) {
	if err := h.entries.Close(c.Param("id"), c.Query("force") == "true"); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
