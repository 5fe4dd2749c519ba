package geometry

import (
	"math"

	"github.com/paulmach/orb"

	"parcelscope/server/config"
	"parcelscope/server/internal/models"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances
const EarthRadiusKm = 6371.0

// CommuteEstimate is the straight-line distance and estimated driving time
// from a parcel to a major city
type CommuteEstimate struct {
	City         string  `json:"city"`
	DistanceKm   float64 `json:"distance_km"`
	RoadKm       float64 `json:"road_km"`
	DriveMinutes int     `json:"drive_minutes"`
}

// ToRing converts boundary vertices into an open orb ring (lng, lat points)
func ToRing(vertices []models.LatLng) orb.Ring {
	ring := make(orb.Ring, 0, len(vertices))
	for _, v := range vertices {
		ring = append(ring, orb.Point{v.Lng, v.Lat})
	}
	if n := len(ring); n > 1 && ring[0].Equal(ring[n-1]) {
		ring = ring[:n-1]
	}
	return ring
}

// usableRing returns the open ring, or nil when it has fewer than 3 points or
// any vertex is off the globe
func usableRing(vertices []models.LatLng) orb.Ring {
	if !models.ValidRing(vertices) {
		return nil
	}
	ring := ToRing(vertices)
	if len(ring) < 3 {
		return nil
	}
	return ring
}

// Centroid returns the arithmetic mean of the ring vertices, or nil when the
// ring is unusable
func Centroid(vertices []models.LatLng) *models.LatLng {
	ring := usableRing(vertices)
	if ring == nil {
		return nil
	}

	var sumLat, sumLng float64
	for _, p := range ring {
		sumLat += p.Lat()
		sumLng += p.Lon()
	}
	n := float64(len(ring))
	return &models.LatLng{Lat: sumLat / n, Lng: sumLng / n}
}

// Perimeter returns the closed-ring boundary length in meters, or nil when
// the ring is unusable
func Perimeter(vertices []models.LatLng) *float64 {
	ring := usableRing(vertices)
	if ring == nil {
		return nil
	}

	var km float64
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		km += HaversineDistanceKm(a.Lat(), a.Lon(), b.Lat(), b.Lon())
	}
	meters := km * 1000
	return &meters
}

// HaversineDistanceKm returns the great-circle distance between two points
func HaversineDistanceKm(latA, lngA, latB, lngB float64) float64 {
	dLat := toRadians(latB - latA)
	dLng := toRadians(lngB - lngA)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(latA))*math.Cos(toRadians(latB))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// EstimateCommuteTimes estimates driving time to every configured city.
// Straight-line distance is stretched by the road correction factor before
// dividing by the average speed. Results follow the configured city order.
func EstimateCommuteTimes(lat, lng float64, cfg config.AnalyticsConfig) []CommuteEstimate {
	if cfg.AverageSpeedKmh <= 0 || !(models.LatLng{Lat: lat, Lng: lng}).Valid() {
		return nil
	}

	factor := cfg.RoadCorrectionFactor
	if factor < 1 {
		factor = 1
	}

	estimates := make([]CommuteEstimate, 0, len(cfg.Cities))
	for _, city := range cfg.Cities {
		if len(city.Center) < 2 {
			continue
		}
		distance := HaversineDistanceKm(lat, lng, city.Center[0], city.Center[1])
		road := distance * factor
		estimates = append(estimates, CommuteEstimate{
			City:         city.Name,
			DistanceKm:   math.Round(distance*10) / 10,
			RoadKm:       math.Round(road*10) / 10,
			DriveMinutes: int(math.Round(road / cfg.AverageSpeedKmh * 60)),
		})
	}
	return estimates
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
