package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"parcelscope/server/internal/analytics"
	"parcelscope/server/internal/cache"
	"parcelscope/server/internal/database"
	"parcelscope/server/internal/geometry"
	"parcelscope/server/internal/models"
	"parcelscope/server/internal/queue"
)

// SnapshotSource supplies periodically refreshed market snapshots
type SnapshotSource interface {
	Snapshots() []analytics.MarketSnapshot
}

type Handler struct {
	db        *database.Database
	engine    *analytics.Engine
	cache     *cache.AnalysisCache
	queue     *queue.ParcelQueue
	snapshots SnapshotSource
	logger    *logrus.Logger
	now       func() time.Time
}

type MarketResponse struct {
	Stats  database.CityStats       `json:"stats"`
	Market analytics.MarketSnapshot `json:"market"`
}

type StatusResponse struct {
	Queue queue.Stats `json:"queue"`
	Cache cache.Stats `json:"cache"`
}

func NewHandler(db *database.Database, engine *analytics.Engine, analyses *cache.AnalysisCache, ingest *queue.ParcelQueue, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:     db,
		engine: engine,
		cache:  analyses,
		queue:  ingest,
		logger: logger,
		now:    time.Now,
	}
}

// UseSnapshots serves GET /api/markets from src
func (h *Handler) UseSnapshots(src SnapshotSource) {
	h.snapshots = src
}

// asOfDay truncates the clock to the UTC day so repeated requests share
// cached analyses
func (h *Handler) asOfDay() time.Time {
	return h.now().UTC().Truncate(24 * time.Hour)
}

// Analyze computes the metrics of a parcel posted together with its
// comparison set. Both naming conventions are accepted.
func (h *Handler) Analyze(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || !gjson.ValidBytes(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	doc := gjson.ParseBytes(body)

	p, err := models.DecodeParcel([]byte(doc.Get("parcel").Raw))
	if err != nil {
		h.logger.WithError(err).Warn("Rejected analysis request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var set analytics.ComparisonSet
	raw := doc.Get("comparisonSet")
	if !raw.Exists() {
		raw = doc.Get("comparison_set")
	}
	if raw.Exists() {
		parcels, err := models.DecodeParcels([]byte(raw.Raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "comparison set: " + err.Error()})
			return
		}
		set = parcels
	}

	asOf := h.asOfDay()
	if v := doc.Get("as_of"); v.Exists() {
		if asOf, err = time.Parse(time.RFC3339, v.String()); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "as_of must be an RFC3339 timestamp"})
			return
		}
	}

	c.JSON(http.StatusOK, h.cache.Analyze(p, set, asOf))
}

// GetParcelAnalysis analyzes a stored parcel against the stored parcels of
// its city
func (h *Handler) GetParcelAnalysis(c *gin.Context) {
	p, ok := h.loadParcel(c)
	if !ok {
		return
	}

	set, err := h.db.ListParcels(p.City)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get comparison set")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get comparison set"})
		return
	}

	c.JSON(http.StatusOK, h.cache.Analyze(*p, set, h.asOfDay()))
}

// GetParcelFeature returns the parcel boundary as a GeoJSON feature
func (h *Handler) GetParcelFeature(c *gin.Context) {
	p, ok := h.loadParcel(c)
	if !ok {
		return
	}

	feature := geometry.ParcelFeature(*p)
	if feature == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Parcel has no usable boundary"})
		return
	}
	c.JSON(http.StatusOK, feature)
}

func (h *Handler) GetParcels(c *gin.Context) {
	parcels, err := h.db.ListParcels(c.Query("city"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get parcels")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get parcels"})
		return
	}

	c.JSON(http.StatusOK, parcels)
}

// GetMarket reports stored totals and market signals for a city
func (h *Handler) GetMarket(c *gin.Context) {
	city := c.Param("city")

	stats, err := h.db.GetCityStats(city)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get city stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get city stats"})
		return
	}

	parcels, err := h.db.ListParcels(city)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get parcels")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get parcels"})
		return
	}

	c.JSON(http.StatusOK, MarketResponse{
		Stats:  stats,
		Market: h.engine.Market(city, parcels, h.now()),
	})
}

// GetMarkets lists the latest scheduled snapshot of every configured city
func (h *Handler) GetMarkets(c *gin.Context) {
	snapshots := []analytics.MarketSnapshot{}
	if h.snapshots != nil {
		snapshots = append(snapshots, h.snapshots.Snapshots()...)
	}
	c.JSON(http.StatusOK, snapshots)
}

// IngestParcels queues a batch of parcels for storage
func (h *Handler) IngestParcels(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if wrapped := gjson.GetBytes(body, "parcels"); wrapped.IsArray() {
		body = []byte(wrapped.Raw)
	}

	parcels, err := models.DecodeParcels(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch := make([]*models.Parcel, len(parcels))
	for i := range parcels {
		batch[i] = &parcels[i]
	}

	switch err := h.queue.Push(batch); {
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
		h.logger.WithError(err).Warn("Ingest queue unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case errors.Is(err, queue.ErrEmptyBatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to queue parcels")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue parcels"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Parcels queued for ingest",
		"queued":  len(batch),
	})
}

func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Queue: h.queue.Stats(),
		Cache: h.cache.Stats(),
	})
}

func (h *Handler) loadParcel(c *gin.Context) (*models.Parcel, bool) {
	p, err := h.db.GetParcel(c.Param("id"))
	if errors.Is(err, database.ErrParcelNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Parcel not found"})
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get parcel")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get parcel"})
		return nil, false
	}
	return p, true
}
