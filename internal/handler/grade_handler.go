package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atms-platform/atms-api/internal/models"
	"github.com/atms-platform/atms-api/internal/service"
	appErrors "github.com/atms-platform/atms-api/pkg/errors"
	"github.com/atms-platform/atms-api/pkg/response"
)

// GradeHandler exposes score entry and rollup endpoints.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler creates a new handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// Save godoc
// @Summary Save a batch of scores
// @Description Persist trainer-entered scores and rebuild affected rollups
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.SaveGradesRequest true "Scores payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /grades [post]
func (h *GradeHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SaveGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grades payload"))
		return
	}

	result, err := h.service.SaveAll(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListScores godoc
// @Summary List raw score entries
// @Tags Grades
// @Produce json
// @Param trainee_id query string false "Filter by trainee"
// @Param course_id query string false "Filter by course"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grades/scores [get]
func (h *GradeHandler) ListScores(c *gin.Context) {
	filter := models.CourseScoreFilter{
		TraineeID: c.Query("trainee_id"),
		CourseID:  c.Query("course_id"),
		TrainerID: c.Query("trainer_id"),
	}
	scores, err := h.service.ListScores(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, nil)
}

// ListFinals godoc
// @Summary List all trainee rollups
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grades/final [get]
func (h *GradeHandler) ListFinals(c *gin.Context) {
	records, err := h.service.ListFinalGrades(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// TraineeReport godoc
// @Summary Get one trainee's rollup
// @Description With refresh=true the rollup is recomputed from stored scores before it is returned
// @Tags Grades
// @Produce json
// @Param id path string true "Trainee ID"
// @Param refresh query bool false "Rebuild the rollup from scores first"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /grades/trainees/{id} [get]
func (h *GradeHandler) TraineeReport(c *gin.Context) {
	record, err := h.service.TraineeReport(c.Request.Context(), c.Param("id"), c.Query("refresh") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
