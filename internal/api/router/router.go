package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ntraining/backend/config"
	"ntraining/backend/internal/api/handler"
	"ntraining/backend/internal/api/middleware"
	"ntraining/backend/internal/model"
	"ntraining/backend/pkg/jwt"
	"ntraining/backend/pkg/redis"
)

const maxBodyBytes = 1 << 20

// Setup builds the gin engine with every route.
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	platformAdmin := middleware.RoleAuth(model.RolePlatformAdmin)
	anyAdmin := middleware.RoleAuth(model.RolePlatformAdmin, model.RoleOrgAdmin)

	v1 := r.Group("/api/v1")
	{
		// public verification, no authentication
		v1.GET("/verify/:code",
			middleware.RateLimit(rdb, cfg.RateLimit.VerifyLimit, cfg.RateLimit.VerifyWindow, logger),
			h.Verification.Verify,
		)

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			authorized.POST("/auth/logout", h.Session.Logout)

			// license ledger
			licenses := authorized.Group("/licenses", platformAdmin)
			{
				licenses.POST("", h.License.GrantAccess)
				licenses.PUT("/:org/:course", h.License.UpdateAccess)
				licenses.POST("/:org/:course/seats", h.License.AddSeats)
				licenses.DELETE("/:org/:course", h.License.RevokeAccess)
			}

			// organization administration; org admins are scoped to their own org
			orgs := authorized.Group("/organizations/:org", anyAdmin)
			{
				orgs.GET("/licenses", h.License.ListUtilization)
				orgs.GET("/licenses/export", h.Export.ExportUtilization)
				orgs.POST("/members/:user/auto-enroll", h.Enrollment.AutoEnroll)
			}

			// enrollments
			enrollments := authorized.Group("/enrollments")
			{
				enrollments.POST("", anyAdmin, h.Enrollment.Assign)
				enrollments.DELETE("", anyAdmin, h.Enrollment.Revoke)
				enrollments.GET("/me", h.Enrollment.ListMine)
				enrollments.GET("/me/deadlines.ics", h.Enrollment.MyDeadlines)
			}
			authorized.POST("/courses/:id/complete", h.Enrollment.CompleteCourse)

			// quizzes and attempts
			quizzes := authorized.Group("/quizzes")
			{
				quizzes.POST("", platformAdmin, h.Quiz.CreateQuiz)
				quizzes.GET("/:id", h.Quiz.GetQuiz)
				quizzes.GET("/:id/eligibility", h.Quiz.Eligibility)
				quizzes.POST("/:id/attempts", h.Attempt.StartAttempt)
				quizzes.GET("/:id/attempts", h.Attempt.ListAttempts)
			}
			attempts := authorized.Group("/attempts")
			{
				attempts.GET("/:id", h.Attempt.GetAttempt)
				attempts.PUT("/:id/answers", h.Attempt.RecordAnswer)
				attempts.POST("/:id/submit", h.Attempt.SubmitAttempt)
			}

			// certificates
			certificates := authorized.Group("/certificates")
			{
				certificates.GET("/me", h.Certificate.ListMine)
				certificates.GET("/:id/render-model", h.Certificate.RenderModel)
			}
		}
	}

	return r
}
