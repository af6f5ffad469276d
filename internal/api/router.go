package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetwatch/safety-backend-go/internal/handler"
	"github.com/fleetwatch/safety-backend-go/internal/middleware"
)

// SetupRouter wires the HTTP routes
func SetupRouter(analyticsHandler *handler.AnalyticsHandler, signalHandler *handler.SignalHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Safety Analytics API is running",
		})
	})

	api := r.Group("/api/v1")
	{
		signals := api.Group("/signals")
		{
			signals.POST("", signalHandler.Ingest)
			signals.GET("", signalHandler.List)
		}

		analytics := api.Group("/analytics")
		{
			analytics.POST("/analyze", analyticsHandler.Analyze)
			analytics.POST("/analyze-stored", analyticsHandler.AnalyzeStored)
		}
	}

	return r
}
