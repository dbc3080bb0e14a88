package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ntraining/backend/internal/service"
	"ntraining/backend/pkg/response"
)

// CertificateHandler learner certificate endpoints
type CertificateHandler struct {
	certSvc service.CertificateService
}

// NewCertificateHandler creates a CertificateHandler
func NewCertificateHandler(certSvc service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certSvc: certSvc}
}

// ListMine certificates earned by the caller
// GET /api/v1/certificates/me
func (h *CertificateHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.certSvc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.handleCertificateError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// RenderModel everything a certificate renderer needs
// GET /api/v1/certificates/:id/render-model
func (h *CertificateHandler) RenderModel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	rm, err := h.certSvc.ReadModel(c.Request.Context(), c.Param("id"), userID, isPlatformAdmin(c))
	if err != nil {
		h.handleCertificateError(c, err)
		return
	}

	response.OK(c, rm)
}

func (h *CertificateHandler) handleCertificateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, 23101, "certificate not found")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 23102, "certificate belongs to another learner")
	default:
		response.InternalError(c)
	}
}
