package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atms-platform/atms-api/internal/service"
	"github.com/atms-platform/atms-api/pkg/response"
)

// DashboardHandler exposes the admin overview and activity feed.
type DashboardHandler struct {
	dashboard *service.DashboardService
	activity  *service.ActivityService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(dashboard *service.DashboardService, activity *service.ActivityService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, activity: activity}
}

// Stats godoc
// @Summary Admin overview statistics
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Activity godoc
// @Summary Recent activity feed
// @Tags Dashboard
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/activity [get]
func (h *DashboardHandler) Activity(c *gin.Context) {
	entries, err := h.activity.Recent(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
