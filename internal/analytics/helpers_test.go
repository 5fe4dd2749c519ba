package analytics

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"parcelscope/server/config"
	"parcelscope/server/internal/models"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEngineWith(t, config.DefaultAnalytics())
}

func newTestEngineWith(t *testing.T, cfg config.AnalyticsConfig) *Engine {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewEngine(cfg, logger)
}

func ptr(v float64) *float64 {
	return &v
}

// parcel builds a priced parcel; projected and size may be zero
func parcel(id, city string, price, projected, size float64) models.Parcel {
	return models.Parcel{
		ID:             id,
		City:           city,
		TotalPrice:     price,
		ProjectedValue: projected,
		SizeSqm:        size,
		Status:         models.StatusAvailable,
		CreatedAt:      testNow.AddDate(0, 0, -60),
	}
}

// completeParcel has every optional field populated
func completeParcel(id string) models.Parcel {
	p := parcel(id, "Tel Aviv", 1_000_000, 1_500_000, 2000)
	p.ZoningStage = models.StageBuildingPermit
	p.ReadinessEstimate = "1-3"
	p.DensityUnitsPerDunam = ptr(10)
	p.TaxAuthorityValue = ptr(950_000)
	p.Coordinates = []models.LatLng{
		{Lat: 32.0800, Lng: 34.7800},
		{Lat: 32.0810, Lng: 34.7800},
		{Lat: 32.0810, Lng: 34.7815},
		{Lat: 32.0800, Lng: 34.7815},
	}
	return p
}
