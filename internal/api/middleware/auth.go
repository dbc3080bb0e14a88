package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ntraining/backend/pkg/jwt"
	"ntraining/backend/pkg/redis"
	"ntraining/backend/pkg/response"
)

// Context keys set by JWTAuth.
const (
	CtxUserID         = "user_id"
	CtxRole           = "role"
	CtxOrganizationID = "organization_id"
	CtxTokenJTI       = "token_jti"
	CtxTokenExp       = "token_exp"
)

// JWTAuth verifies the Authorization: Bearer <token> header and injects the
// caller identity into the context. A revoked jti is rejected when Redis is
// available; without Redis the blacklist check is skipped.
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "token is invalid or expired")
			c.Abort()
			return
		}

		if rdb != nil && claims.ID != "" {
			revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Warn("token blacklist check failed", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, 10002, "token has been revoked")
				c.Abort()
				return
			}
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxOrganizationID, claims.OrganizationID)
		c.Set(CtxTokenJTI, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(CtxTokenExp, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// RoleAuth allows the request only for one of the given roles.
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			response.Unauthorized(c, 10002, "not authenticated")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "access denied")
		c.Abort()
	}
}
