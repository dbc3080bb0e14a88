package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ntraining/backend/internal/service"
	"ntraining/backend/pkg/response"
)

// VerificationHandler public certificate verification
type VerificationHandler struct {
	verifySvc service.VerificationService
}

// NewVerificationHandler creates a VerificationHandler
func NewVerificationHandler(verifySvc service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verifySvc: verifySvc}
}

// Verify resolves a verification code; no authentication
// GET /api/v1/verify/:code
func (h *VerificationHandler) Verify(c *gin.Context) {
	view, err := h.verifySvc.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			response.NotFound(c, 24101, "no certificate with this verification code")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, view)
}
