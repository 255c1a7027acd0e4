package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorlane/tutorlane-api/internal/models"
	"github.com/tutorlane/tutorlane-api/internal/service"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
	"github.com/tutorlane/tutorlane-api/pkg/response"
)

// EnrollmentHandler wires HTTP endpoints to the enrollment service.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// List godoc
// @Summary List the student's enrolled courses
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	courses, err := h.service.ListEnrolledCourses(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// UpdateProgress godoc
// @Summary Record course progress
// @Description Update the completion percentage for an enrolled course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param payload body models.UpdateProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{courseId}/progress [put]
func (h *EnrollmentHandler) UpdateProgress(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid progress payload"))
		return
	}

	enrollment, err := h.service.UpdateProgress(c.Request.Context(), claims.UserID, c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}
