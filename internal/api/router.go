package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/folio/internal/api/handler"
	"github.com/timmy/folio/internal/api/middleware"
	"github.com/timmy/folio/internal/config"
)

// Handlers groups the endpoint handlers mounted by SetupRouter.
type Handlers struct {
	Health       *handler.HealthHandler
	Uploads      *handler.UploadHandler
	Chat         *handler.ChatHandler
	Certificates *handler.CertificateHandler
	Projects     *handler.ProjectHandler
}

// SetupRouter configures the Gin router with all routes.
// limiter throttles chat sends and upload starts; nil disables throttling.
func SetupRouter(cfg *config.ServerConfig, h Handlers, limiter *middleware.RateLimiter) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS))

	throttle := func(c *gin.Context) { c.Next() }
	if limiter != nil {
		throttle = limiter.Middleware()
	}

	r.GET("/health", h.Health.Health)

	v1 := r.Group("/api/v1")
	{
		uploads := v1.Group("/uploads")
		uploads.POST("", throttle, h.Uploads.Start)
		uploads.POST("/pause", h.Uploads.Pause)
		uploads.POST("/resume", h.Uploads.Resume)
		uploads.POST("/stop", h.Uploads.Stop)
		uploads.POST("/reset", h.Uploads.Reset)
		uploads.GET("/status", h.Uploads.Status)
		uploads.GET("/logs", h.Uploads.Logs)
		uploads.GET("/runs", h.Uploads.Runs)

		sessions := v1.Group("/chat/sessions")
		sessions.POST("", h.Chat.Create)
		sessions.GET("/:id", h.Chat.Get)
		sessions.DELETE("/:id", h.Chat.Delete)
		sessions.POST("/:id/open", h.Chat.Open)
		sessions.POST("/:id/close", h.Chat.Close)
		sessions.POST("/:id/minimize", h.Chat.Minimize)
		sessions.POST("/:id/messages", throttle, h.Chat.SendMessage)
		sessions.DELETE("/:id/messages", h.Chat.ClearMessages)
		sessions.PUT("/:id/project-context", h.Chat.UpdateProjectContext)
		sessions.GET("/:id/suggestions", h.Chat.Suggestions)
		sessions.POST("/:id/suggestions", throttle, h.Chat.SendSuggestion)

		v1.GET("/certificates", h.Certificates.List)
		v1.POST("/certificates", h.Certificates.Create)
		v1.PUT("/certificates/:id", h.Certificates.Update)
		v1.DELETE("/certificates/:id", h.Certificates.Delete)

		v1.GET("/projects", h.Projects.List)
		v1.POST("/projects", h.Projects.Create)
	}

	return r
}
