package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"parcelscope/server/config"
	"parcelscope/server/internal/database"
	"parcelscope/server/internal/geometry"
	"parcelscope/server/internal/models"
)

type CityHandler struct {
	db     *database.Database
	cfg    config.AnalyticsConfig
	logger *logrus.Logger
}

type CitySummary struct {
	Name   string             `json:"name"`
	Center []float64          `json:"center"`
	Stats  database.CityStats `json:"stats"`
}

func NewCityHandler(db *database.Database, cfg config.AnalyticsConfig, logger *logrus.Logger) *CityHandler {
	return &CityHandler{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// ListCities returns the configured major cities with their stored totals
func (h *CityHandler) ListCities(c *gin.Context) {
	summaries := make([]CitySummary, 0, len(h.cfg.Cities))
	for _, city := range h.cfg.Cities {
		stats, err := h.db.GetCityStats(city.Name)
		if err != nil {
			h.logger.WithError(err).WithField("city", city.Name).Error("Failed to get city stats")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get city stats"})
			return
		}
		summaries = append(summaries, CitySummary{Name: city.Name, Center: city.Center, Stats: stats})
	}
	c.JSON(http.StatusOK, summaries)
}

// GetCity returns a single configured city
func (h *CityHandler) GetCity(c *gin.Context) {
	city := config.GetCityByName(h.cfg.Cities, c.Param("name"))
	if city == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "City not found"})
		return
	}

	stats, err := h.db.GetCityStats(city.Name)
	if err != nil {
		h.logger.WithError(err).WithField("city", city.Name).Error("Failed to get city stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get city stats"})
		return
	}
	c.JSON(http.StatusOK, CitySummary{Name: city.Name, Center: city.Center, Stats: stats})
}

// GetCommute estimates driving times from a point to every major city
func (h *CityHandler) GetCommute(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || !(models.LatLng{Lat: lat, Lng: lng}).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be valid coordinates"})
		return
	}

	c.JSON(http.StatusOK, geometry.EstimateCommuteTimes(lat, lng, h.cfg))
}
