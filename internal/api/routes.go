package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/bible-game/common/internal/api/handlers"
	"github.com/bible-game/common/internal/api/middlewares"
)

// SetupRoutes configures all API routes with proper middleware. ctx bounds
// the background work of the middlewares.
func SetupRoutes(ctx context.Context, router *gin.Engine, services *Services) {
	cfg := services.GetConfig()

	// Global middleware
	router.Use(services.GetLogger().HTTPLogger())
	router.Use(middlewares.Recovery(services.GetLogger()))
	router.Use(middlewares.CORS(cfg.API.CORS, cfg.Security.JWT.AuthTokenHeader))
	router.Use(middlewares.Security())
	router.Use(middlewares.RateLimit(middlewares.NewRateLimiter(ctx, cfg.API.RateLimit, cfg.API.BurstLimit)))
	router.Use(middlewares.Timeout(cfg.API.Timeout))

	// Every route below is authenticated unless its path is excluded
	router.Use(middlewares.TokenFilter(services.Authenticator))

	router.GET("/health", handlers.HealthCheck(services))
	router.GET("/ping", handlers.Ping())

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		setupPublicRoutes(v1, services)
		setupAuthenticatedRoutes(v1, services)
	}
}

// setupPublicRoutes configures routes under the excluded /public prefix
func setupPublicRoutes(rg *gin.RouterGroup, services *Services) {
	if gin.Mode() == gin.ReleaseMode {
		return
	}

	public := rg.Group("/public")
	{
		public.POST("/session", handlers.IssueSession(services))
	}
}

// setupAuthenticatedRoutes configures routes that require a token
func setupAuthenticatedRoutes(rg *gin.RouterGroup, services *Services) {
	rg.GET("/me", handlers.GetCurrentUser(services))
	rg.PUT("/me", handlers.UpdateCurrentUser(services))

	passages := rg.Group("/passages")
	{
		passages.PUT("/:key/audio", handlers.UploadPassageAudio(services))
		passages.GET("/:key/audio", handlers.GetPassageAudio(services))
	}
}
