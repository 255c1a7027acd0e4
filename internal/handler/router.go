package handler

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tutorlane/tutorlane-api/internal/middleware"
	"github.com/tutorlane/tutorlane-api/internal/models"
	"github.com/tutorlane/tutorlane-api/internal/service"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
	"github.com/tutorlane/tutorlane-api/pkg/response"
	"github.com/tutorlane/tutorlane-api/pkg/storage"
)

// RouterDeps bundles everything route registration needs.
type RouterDeps struct {
	Auth        *AuthHandler
	Dashboard   *DashboardHandler
	Courses     *CourseHandler
	Enrollments *EnrollmentHandler
	Payments    *PaymentHandler

	Tokens  *service.TokenService
	Users   middleware.UserFinder
	Metrics *service.MetricsService

	DB    *sqlx.DB
	Redis *redis.Client

	Files  *storage.LocalStorage
	Signer *storage.SignedURLSigner

	APIPrefix  string
	UploadsDir string
	EnableDocs bool
}

// RegisterRoutes mounts the API surface on the engine.
func RegisterRoutes(r *gin.Engine, deps RouterDeps) {
	r.GET("/health", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, gin.H{"status": "ok"}, nil)
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := contextWithTimeout(c, 2*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok", "cache": "disabled"}
		healthy := true

		if deps.DB != nil {
			if err := deps.DB.PingContext(ctx); err != nil {
				checks["database"] = err.Error()
				healthy = false
			}
		} else {
			checks["database"] = "not configured"
			healthy = false
		}
		if deps.Redis != nil {
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				checks["cache"] = err.Error()
			} else {
				checks["cache"] = "ok"
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, response.Envelope{Success: healthy, Data: checks})
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if deps.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if deps.UploadsDir != "" {
		r.Static("/uploads", deps.UploadsDir)
	}
	if deps.Signer != nil && deps.Files != nil {
		r.GET("/downloads/:token", downloadHandler(deps.Signer, deps.Files))
	}

	api := r.Group(deps.APIPrefix)

	authRequired := middleware.JWT(deps.Tokens, deps.Users)
	authOptional := middleware.OptionalJWT(deps.Tokens, deps.Users)
	studentOnly := middleware.RequireRoles(models.RoleStudent)
	tutorOnly := middleware.RequireRoles(models.RoleTutor)

	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.Auth.Register)
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/forgot-password", deps.Auth.ForgotPassword)
		auth.POST("/reset-password/:token", deps.Auth.ResetPassword)

		auth.POST("/logout", authRequired, deps.Auth.Logout)
		auth.GET("/me", authRequired, deps.Auth.Me)
		auth.DELETE("/me", authRequired, deps.Auth.DeactivateAccount)
		auth.PATCH("/update-profile", authRequired, deps.Auth.UpdateProfile)
		auth.POST("/upload-avatar", authRequired, deps.Auth.UploadAvatar)
		auth.POST("/change-password", authRequired, deps.Auth.ChangePassword)
	}

	dashboard := api.Group("/dashboard", authRequired, studentOnly)
	{
		dashboard.GET("/stats", deps.Dashboard.Stats)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", deps.Courses.List)
		courses.GET("/:id", authOptional, deps.Courses.Get)

		courses.GET("/mine", authRequired, tutorOnly, deps.Courses.ListMine)
		courses.POST("", authRequired, tutorOnly, deps.Courses.Create)
		courses.PUT("/:id", authRequired, tutorOnly, deps.Courses.Update)
		courses.PUT("/:id/publish", authRequired, tutorOnly, deps.Courses.Publish)
		courses.DELETE("/:id", authRequired, tutorOnly, deps.Courses.Delete)
		courses.POST("/:id/lectures", authRequired, tutorOnly, deps.Courses.AddLecture)
		courses.PUT("/lectures/:lectureId", authRequired, tutorOnly, deps.Courses.UpdateLecture)
		courses.DELETE("/lectures/:lectureId", authRequired, tutorOnly, deps.Courses.DeleteLecture)
		courses.GET("/:id/roster", authRequired, tutorOnly, deps.Courses.Roster)
		courses.GET("/:id/roster/export", authRequired, tutorOnly, deps.Courses.ExportRoster)
		courses.GET("/:id/roster/export-link", authRequired, tutorOnly, deps.Courses.ExportRosterLink)
	}

	enrollments := api.Group("/enrollments", authRequired, studentOnly)
	{
		enrollments.GET("", deps.Enrollments.List)
		enrollments.PUT("/:courseId/progress", deps.Enrollments.UpdateProgress)
	}

	payments := api.Group("/payments", authRequired, studentOnly)
	{
		payments.POST("", deps.Payments.Create)
		payments.GET("", deps.Payments.List)
		payments.GET("/:id", deps.Payments.Get)
		payments.POST("/:id/confirm", deps.Payments.Confirm)
		payments.GET("/:id/receipt", deps.Payments.Receipt)
	}
}

// downloadHandler streams a persisted export addressed by a signed token. The
// token itself is the credential, no session is required.
func downloadHandler(signer *storage.SignedURLSigner, files *storage.LocalStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, key, _, err := signer.Parse(c.Param("token"))
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
			return
		}

		f, err := files.Open(key)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
			return
		}
		f.Close()

		c.FileAttachment(files.Path(key), filepath.Base(key))
	}
}
