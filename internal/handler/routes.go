package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler mounted by Register.
type Handlers struct {
	Formats *FormatHandler
	Marks   *MarkHandler
	Summary *SummaryHandler
	Entry   *EntryHandler
	Exports *ExportHandler
	Metrics *MetricsHandler
}

// Register mounts the probes at the root and the API under prefix.
func Register(r gin.IRouter, prefix string, h Handlers) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	prefix = "/" + strings.Trim(prefix, "/")
	api := r.Group(prefix)

	if h.Formats != nil {
		api.GET("/formats", h.Formats.List)
		api.POST("/formats", h.Formats.Create)
		api.GET("/formats/:id", h.Formats.Get)
	}

	if h.Marks != nil {
		marks := api.Group("/marks")
		marks.GET("", h.Marks.List)
		marks.POST("", h.Marks.Create)
		marks.POST("/import", h.Marks.Import)
		marks.GET("/:id", h.Marks.Get)
		marks.PUT("/:id", h.Marks.Update)
		marks.PATCH("/:id/cells/:index", h.Marks.UpdateCell)
		marks.DELETE("/:id", h.Marks.Delete)
	}

	if h.Summary != nil {
		api.GET("/students/:studentId/summary", h.Summary.Get)
		api.GET("/students/:studentId/summary.pdf", h.Summary.PDF)
	}

	if h.Entry != nil {
		sessions := api.Group("/entry/sessions")
		sessions.POST("", h.Entry.Start)
		sessions.GET("/:id", h.Entry.Get)
		sessions.POST("/:id/input", h.Entry.Input)
		sessions.POST("/:id/cancel", h.Entry.Cancel)
		sessions.POST("/:id/reconcile", h.Entry.Reconcile)
		sessions.DELETE("/:id", h.Entry.Close)
	}

	if h.Exports != nil {
		api.POST("/exports", h.Exports.Create)
		api.GET("/export/:token", h.Exports.Download)
	}
}
