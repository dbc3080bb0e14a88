package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ntraining/backend/internal/dto"
	"ntraining/backend/internal/service"
	"ntraining/backend/pkg/response"
)

// EnrollmentHandler enrollment and mandate endpoints
type EnrollmentHandler struct {
	enrollmentSvc service.EnrollmentService
}

// NewEnrollmentHandler creates an EnrollmentHandler
func NewEnrollmentHandler(enrollmentSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentSvc: enrollmentSvc}
}

// Assign enrolls a learner
// POST /api/v1/enrollments
func (h *EnrollmentHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request parameters")
		return
	}
	if !requireOrgScope(c, req.OrganizationID) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	enrollment, err := h.enrollmentSvc.Assign(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, enrollment)
}

// Revoke withdraws a learner's access
// DELETE /api/v1/enrollments
func (h *EnrollmentHandler) Revoke(c *gin.Context) {
	var req dto.RevokeEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request parameters")
		return
	}
	if !requireOrgScope(c, req.OrganizationID) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.enrollmentSvc.Revoke(c.Request.Context(), &req, callerID); err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// AutoEnroll applies the organization's auto-enroll grants to a member
// POST /api/v1/organizations/:org/members/:user/auto-enroll
func (h *EnrollmentHandler) AutoEnroll(c *gin.Context) {
	orgID := c.Param("org")
	if !requireOrgScope(c, orgID) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.enrollmentSvc.AutoEnrollMember(c.Request.Context(), c.Param("user"), orgID, callerID)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, result)
}

// ListMine the caller's enrollments with overdue flags
// GET /api/v1/enrollments/me
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.enrollmentSvc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// MyDeadlines mandatory deadlines as an iCalendar feed
// GET /api/v1/enrollments/me/deadlines.ics
func (h *EnrollmentHandler) MyDeadlines(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, err := h.enrollmentSvc.DeadlineCalendar(c.Request.Context(), userID)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=deadlines.ics")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

// CompleteCourse records completion of a course without a quiz
// POST /api/v1/courses/:id/complete
func (h *EnrollmentHandler) CompleteCourse(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cert, err := h.enrollmentSvc.CompleteCourse(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, gin.H{"certificate": cert})
}

func (h *EnrollmentHandler) handleEnrollmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, 21101, "enrollment, learner, course or license not found")
	case errors.Is(err, service.ErrCapacityExceeded):
		response.Conflict(c, 21102, "no seats left on this license")
	case errors.Is(err, service.ErrAccessExpired):
		response.Conflict(c, 21103, "license is revoked or outside its validity window")
	case errors.Is(err, service.ErrNotEnrolled):
		response.Forbidden(c, 21104, "not enrolled in this course")
	case errors.Is(err, service.ErrCompletionRequiresQuiz):
		response.Conflict(c, 21105, "this course is completed by passing its quiz")
	default:
		response.InternalError(c)
	}
}
