package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atms-platform/atms-api/internal/service"
	appErrors "github.com/atms-platform/atms-api/pkg/errors"
	"github.com/atms-platform/atms-api/pkg/response"
)

// AttendanceHandler exposes meeting and attendance endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// CreateMeeting godoc
// @Summary Schedule a class meeting
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CreateMeetingRequest true "Meeting payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings [post]
func (h *AttendanceHandler) CreateMeeting(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid meeting payload"))
		return
	}

	meeting, err := h.service.CreateMeeting(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, meeting)
}

// ListMeetings godoc
// @Summary List class meetings
// @Tags Attendance
// @Produce json
// @Param course_id query string false "Filter by course"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings [get]
func (h *AttendanceHandler) ListMeetings(c *gin.Context) {
	meetings, err := h.service.ListMeetings(c.Request.Context(), c.Query("course_id"), c.Query("trainer_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meetings, nil)
}

// Mark godoc
// @Summary Mark attendance for a meeting
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Meeting ID"
// @Param payload body []service.MarkAttendanceRequest true "Attendance entries"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/{id}/attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var entries []service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&entries); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	if err := h.service.Mark(c.Request.Context(), claims.UserID, c.Param("id"), entries); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Records godoc
// @Summary Get a meeting's attendance sheet
// @Tags Attendance
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/{id}/attendance [get]
func (h *AttendanceHandler) Records(c *gin.Context) {
	records, err := h.service.Records(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
