package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func SetupRoutes(router *gin.Engine, handler *Handler, cities *CityHandler, ingestLimiter *rate.Limiter) {
	api := router.Group("/api")
	{
		api.POST("/analysis", handler.Analyze)
		api.GET("/parcels", handler.GetParcels)
		api.POST("/parcels", RateLimit(ingestLimiter), handler.IngestParcels)
		api.GET("/parcels/:id/analysis", handler.GetParcelAnalysis)
		api.GET("/parcels/:id/feature", handler.GetParcelFeature)
		api.GET("/markets", handler.GetMarkets)
		api.GET("/markets/:city", handler.GetMarket)
		api.GET("/status", handler.GetStatus)

		api.GET("/cities", cities.ListCities)
		api.GET("/cities/:name", cities.GetCity)
		api.GET("/commute", cities.GetCommute)
	}
}
