package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aushadhi/client/config"
)

// SetupRouter creates and configures the Gin router. proxy may be nil, in
// which case /api/infer is not mounted.
func SetupRouter(cfg *config.Config, handler *Handler, proxy http.Handler, logger *zap.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = MaxUploadSize

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/capture", handler.Capture)
		v1.GET("/state", handler.State)
		v1.GET("/previews/:ref", handler.Preview)
	}

	// Dev proxy to the inference backend
	if proxy != nil {
		router.Any("/api/infer", gin.WrapH(proxy))
	}

	return router
}
