package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorlane/tutorlane-api/internal/service"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
	"github.com/tutorlane/tutorlane-api/pkg/response"
)

// DashboardHandler serves the student dashboard aggregation.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Stats godoc
// @Summary Student dashboard statistics
// @Description Aggregated enrollments, progress and recent payments
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, cacheHit, err := h.service.Stats(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"cache_hit": cacheHit})
}
