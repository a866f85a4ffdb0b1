package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atms-platform/atms-api/internal/service"
	"github.com/atms-platform/atms-api/pkg/response"
)

// ReconcilerHandler exposes the manual reconciliation endpoint.
type ReconcilerHandler struct {
	service *service.ReconcilerService
}

// NewReconcilerHandler creates a new handler.
func NewReconcilerHandler(svc *service.ReconcilerService) *ReconcilerHandler {
	return &ReconcilerHandler{service: svc}
}

// Run godoc
// @Summary Run a reconciliation pass
// @Description Walk draft courses and bind any whose named trainer now exists
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reconcile [post]
func (h *ReconcilerHandler) Run(c *gin.Context) {
	bound, err := h.service.Reconcile(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"courses_bound": bound}, nil)
}
