package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ntraining/backend/internal/dto"
	"ntraining/backend/internal/service"
	"ntraining/backend/pkg/response"
)

// LicenseHandler license ledger endpoints
type LicenseHandler struct {
	licenseSvc service.LicenseService
}

// NewLicenseHandler creates a LicenseHandler
func NewLicenseHandler(licenseSvc service.LicenseService) *LicenseHandler {
	return &LicenseHandler{licenseSvc: licenseSvc}
}

// GrantAccess grants a course to an organization
// POST /api/v1/licenses
func (h *LicenseHandler) GrantAccess(c *gin.Context) {
	var req dto.GrantAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request parameters")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	grant, err := h.licenseSvc.GrantAccess(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}

	response.Created(c, grant)
}

// UpdateAccess changes the terms of a grant
// PUT /api/v1/licenses/:org/:course
func (h *LicenseHandler) UpdateAccess(c *gin.Context) {
	var req dto.UpdateAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request parameters")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	grant, err := h.licenseSvc.UpdateAccess(c.Request.Context(), c.Param("org"), c.Param("course"), &req, callerID)
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}

	response.OK(c, grant)
}

// AddSeats tops up a licensed grant
// POST /api/v1/licenses/:org/:course/seats
func (h *LicenseHandler) AddSeats(c *gin.Context) {
	var req dto.AddSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request parameters")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	grant, err := h.licenseSvc.AddSeats(c.Request.Context(), c.Param("org"), c.Param("course"), req.Delta, callerID)
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}

	response.OK(c, grant)
}

// RevokeAccess ends a grant
// DELETE /api/v1/licenses/:org/:course
func (h *LicenseHandler) RevokeAccess(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.licenseSvc.RevokeAccess(c.Request.Context(), c.Param("org"), c.Param("course"), callerID); err != nil {
		h.handleLicenseError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListUtilization seat usage of one organization
// GET /api/v1/organizations/:org/licenses
func (h *LicenseHandler) ListUtilization(c *gin.Context) {
	orgID := c.Param("org")
	if !requireOrgScope(c, orgID) {
		return
	}

	grants, err := h.licenseSvc.ListUtilization(c.Request.Context(), orgID)
	if err != nil {
		h.handleLicenseError(c, err)
		return
	}

	response.OK(c, gin.H{"list": grants})
}

func (h *LicenseHandler) handleLicenseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, 20101, "license grant, organization or course not found")
	case errors.Is(err, service.ErrAlreadyGranted):
		response.Conflict(c, 20102, "course is already granted to this organization")
	case errors.Is(err, service.ErrCapacityExceeded):
		response.Conflict(c, 20103, "no seats left on this license")
	case errors.Is(err, service.ErrAccessExpired):
		response.Conflict(c, 20104, "license is revoked or outside its validity window")
	case errors.Is(err, service.ErrInvalidSeatCount):
		response.BadRequest(c, 20105, "invalid seat count for this access type")
	case errors.Is(err, service.ErrInvalidValidity):
		response.BadRequest(c, 20106, "valid_until must not be before valid_from")
	default:
		response.InternalError(c)
	}
}
