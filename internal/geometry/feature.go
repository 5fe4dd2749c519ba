package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"parcelscope/server/internal/models"
)

// ParcelFeature builds a GeoJSON polygon feature for the parcel boundary with
// its derived geometry as properties. Returns nil when the boundary has fewer
// than 3 vertices or a vertex off the globe.
func ParcelFeature(p models.Parcel) *geojson.Feature {
	ring := usableRing(p.Coordinates)
	if ring == nil {
		return nil
	}

	// GeoJSON rings are closed
	closed := append(orb.Ring{}, ring...)
	closed = append(closed, ring[0])

	feature := geojson.NewFeature(orb.Polygon{closed})
	feature.ID = p.ID
	feature.Properties = geojson.Properties{
		"parcel_id":    p.ID,
		"city":         p.City,
		"zoning_stage": string(p.ZoningStage),
		"vertex_count": len(ring),
	}

	if c := Centroid(p.Coordinates); c != nil {
		feature.Properties["centroid"] = []float64{c.Lat, c.Lng}
	}
	if perimeter := Perimeter(p.Coordinates); perimeter != nil {
		feature.Properties["perimeter_m"] = *perimeter
	}
	return feature
}
