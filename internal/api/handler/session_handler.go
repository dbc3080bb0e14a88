package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ntraining/backend/internal/api/middleware"
	"ntraining/backend/pkg/response"
)

// TokenRevoker blocks a token id until it would have expired anyway.
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// SessionHandler token lifecycle endpoints. Tokens are issued by the
// identity provider; this service can only revoke them.
type SessionHandler struct {
	revoker TokenRevoker
}

// NewSessionHandler creates a SessionHandler; revoker may be nil when Redis
// is not configured.
func NewSessionHandler(revoker TokenRevoker) *SessionHandler {
	return &SessionHandler{revoker: revoker}
}

// Logout revokes the caller's current access token
// POST /api/v1/auth/logout
func (h *SessionHandler) Logout(c *gin.Context) {
	if h.revoker == nil {
		response.Error(c, http.StatusServiceUnavailable, 10006, "token revocation is not available")
		return
	}

	jti := c.GetString(middleware.CtxTokenJTI)
	if jti == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return
	}

	ttl := time.Hour
	if v, ok := c.Get(middleware.CtxTokenExp); ok {
		if exp, ok := v.(time.Time); ok {
			ttl = time.Until(exp)
		}
	}

	if err := h.revoker.BlacklistToken(c.Request.Context(), jti, ttl); err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}
