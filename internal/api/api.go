package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/restock-go/internal/api/handlers"
	"github.com/andresuchdata/restock-go/internal/api/middleware"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
)

type Services struct {
	RestockService handlers.RestockService
	// BaseParams are the engine parameters used when a request sets none.
	BaseParams restock.Params
}

// NewRouter builds the HTTP API. An empty allowedOrigins keeps the local
// frontend origins; "*" allows any origin.
func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())
	router.Use(cors.New(corsConfig(allowedOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.RestockService != nil {
		restockHandler := handlers.NewRestockHandler(services.RestockService, services.BaseParams)
		restockGroup := apiGroup.Group("/restock")
		{
			restockGroup.GET("/forecast", restockHandler.GetForecast)
			restockGroup.POST("/forecast/refresh", restockHandler.RefreshForecast)
			restockGroup.GET("/incoming", restockHandler.GetIncomingWeeks)
			restockGroup.GET("/events", restockHandler.GetEvents)
			restockGroup.GET("/events/nearest", restockHandler.GetNearestEvent)
			restockGroup.GET("/runs", restockHandler.GetRuns)
			restockGroup.GET("/runs/stats", restockHandler.GetRunStats)
			restockGroup.GET("/runs/:id", restockHandler.GetRun)
		}
	}

	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	origins, allowAll := normalizeAllowedOrigins(allowedOrigins)
	switch {
	case allowAll:
		cfg.AllowOrigins = nil
		cfg.AllowOriginFunc = func(string) bool { return true }
	case len(origins) > 0:
		cfg.AllowOrigins = origins
	}
	return cfg
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
