package http

import (
	"github.com/gin-gonic/gin"
	"github.com/pantrylens/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	router.Use(TimeoutMiddleware(cfg.Server.RequestTimeout))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		prices := v1.Group("/prices")
		{
			prices.POST("", handler.RecordPrice)
			prices.GET("/cheapest", handler.CheapestStore)
		}

		lists := v1.Group("/shopping-lists")
		{
			lists.POST("/optimal-stores", handler.OptimalStores)
			lists.GET("/:id/optimal-stores", handler.OptimalStoresForList)
		}
	}

	return router
}
