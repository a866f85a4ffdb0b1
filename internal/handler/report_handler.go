package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/atms-platform/atms-api/internal/service"
	"github.com/atms-platform/atms-api/pkg/response"
)

// ReportHandler exposes downloadable grade reports.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// GradeSummary godoc
// @Summary Download the grade summary report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /reports/grades [get]
func (h *ReportHandler) GradeSummary(c *gin.Context) {
	format, err := service.ParseReportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.GradeSummary(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveReport(c, result)
}

// TraineeReport godoc
// @Summary Download one trainee's grade report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Trainee ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/grades/{id} [get]
func (h *ReportHandler) TraineeReport(c *gin.Context) {
	format, err := service.ParseReportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.TraineeReport(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveReport(c, result)
}

func serveReport(c *gin.Context, result *service.ReportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(200, result.ContentType, result.Payload)
}
