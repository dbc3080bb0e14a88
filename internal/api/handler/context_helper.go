package handler

import (
	"github.com/gin-gonic/gin"

	"ntraining/backend/internal/api/middleware"
	"ntraining/backend/internal/model"
	"ntraining/backend/pkg/response"
)

// MustGetUserID extracts user_id set by JWTAuth. On failure it writes a 401
// and returns false; the caller should return immediately.
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.CtxUserID)
	if !exists {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	return s, true
}

// MustGetRole extracts role set by JWTAuth.
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.CtxRole)
	if !exists {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	return s, true
}

// MustGetOrganizationID extracts organization_id set by JWTAuth. Platform
// admins may carry an empty one.
func MustGetOrganizationID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.CtxOrganizationID)
	if !exists {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	return s, true
}

// requireOrgScope lets platform admins act on any organization and org
// admins only on their own. It writes the error response itself.
func requireOrgScope(c *gin.Context, orgID string) bool {
	role, ok := MustGetRole(c)
	if !ok {
		return false
	}
	if role == model.RolePlatformAdmin {
		return true
	}
	callerOrg, ok := MustGetOrganizationID(c)
	if !ok {
		return false
	}
	if role == model.RoleOrgAdmin && callerOrg != "" && callerOrg == orgID {
		return true
	}
	response.Forbidden(c, 10003, "access denied for this organization")
	return false
}

func isPlatformAdmin(c *gin.Context) bool {
	return c.GetString(middleware.CtxRole) == model.RolePlatformAdmin
}
