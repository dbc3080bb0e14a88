package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ntraining/backend/pkg/response"
)

// BodyLimit caps request bodies at maxBytes (e.g. 1<<20 for 1MB).
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
