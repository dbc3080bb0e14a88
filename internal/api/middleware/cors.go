package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the configured browser origins.
func CORS(allowOrigins []string) gin.HandlerFunc {
	origins := make([]string, 0, len(allowOrigins))
	for _, o := range allowOrigins {
		if o = strings.TrimRight(o, "/"); o != "" {
			origins = append(origins, o)
		}
	}

	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		// no browser clients configured; nothing matches
		cfg.AllowOriginFunc = func(string) bool { return false }
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	cfg.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID", "Retry-After"}
	cfg.AllowCredentials = true
	cfg.MaxAge = 24 * time.Hour
	return cors.New(cfg)
}
