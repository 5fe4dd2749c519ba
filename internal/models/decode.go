package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"
)

var ErrInvalidPayload = errors.New("invalid parcel payload")

// DecodeParcel normalizes a parcel payload into the canonical record.
// Both naming conventions (totalPrice / total_price) are accepted; the
// camelCase field wins when both are present. Negative amounts are treated
// as missing.
func DecodeParcel(data []byte) (Parcel, error) {
	if !gjson.ValidBytes(data) {
		return Parcel{}, ErrInvalidPayload
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Parcel{}, ErrInvalidPayload
	}
	return decodeParcel(doc)
}

// DecodeParcels normalizes a JSON array of parcel payloads
func DecodeParcels(data []byte) ([]Parcel, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidPayload
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, ErrInvalidPayload
	}

	items := doc.Array()
	parcels := make([]Parcel, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, fmt.Errorf("parcel %d: %w", i, ErrInvalidPayload)
		}
		p, err := decodeParcel(item)
		if err != nil {
			return nil, fmt.Errorf("parcel %d: %w", i, err)
		}
		parcels = append(parcels, p)
	}
	return parcels, nil
}

func decodeParcel(doc gjson.Result) (Parcel, error) {
	id := field(doc, "id", "id")
	if !id.Exists() || strings.TrimSpace(id.String()) == "" {
		return Parcel{}, fmt.Errorf("missing id: %w", ErrInvalidPayload)
	}

	p := Parcel{
		ID:                strings.TrimSpace(id.String()),
		City:              strings.TrimSpace(field(doc, "city", "city").String()),
		TotalPrice:        amount(field(doc, "totalPrice", "total_price")),
		ProjectedValue:    amount(field(doc, "projectedValue", "projected_value")),
		SizeSqm:           amount(field(doc, "sizeSqm", "size_sqm")),
		ZoningStage:       ZoningStage(strings.TrimSpace(field(doc, "zoningStage", "zoning_stage").String())),
		ReadinessEstimate: strings.TrimSpace(field(doc, "readinessEstimate", "readiness_estimate").String()),
		Status:            strings.ToLower(strings.TrimSpace(field(doc, "status", "status").String())),
		Views:             count(field(doc, "views", "views")),
	}

	p.DensityUnitsPerDunam = optionalAmount(field(doc, "densityUnitsPerDunam", "density_units_per_dunam"))
	p.TaxAuthorityValue = optionalAmount(field(doc, "taxAuthorityValue", "tax_authority_value"))

	var err error
	if p.CreatedAt, err = timestamp(field(doc, "createdAt", "created_at")); err != nil {
		return Parcel{}, err
	}
	if p.UpdatedAt, err = timestamp(field(doc, "updatedAt", "updated_at")); err != nil {
		return Parcel{}, err
	}

	if geometry := doc.Get("geometry"); geometry.IsObject() {
		if p.Coordinates, err = ringFromGeoJSON(geometry.Raw); err != nil {
			return Parcel{}, err
		}
	} else {
		p.Coordinates = ringFromCoordinates(doc.Get("coordinates"))
	}

	return p, nil
}

// field returns the camelCase value, falling back to the snake_case one
func field(doc gjson.Result, camel, snake string) gjson.Result {
	r := doc.Get(camel)
	if r.Exists() && r.Type != gjson.Null {
		return r
	}
	return doc.Get(snake)
}

func amount(r gjson.Result) float64 {
	if !r.Exists() || r.Type == gjson.Null {
		return 0
	}
	v := r.Float()
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// count reads a non-negative integer, saturating at math.MaxInt32
func count(r gjson.Result) int {
	v := amount(r)
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

func optionalAmount(r gjson.Result) *float64 {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	v := r.Float()
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func timestamp(r gjson.Result) (time.Time, error) {
	if !r.Exists() || r.Type == gjson.Null || r.String() == "" {
		return time.Time{}, nil
	}
	if r.Type == gjson.Number {
		// epoch milliseconds
		return time.UnixMilli(r.Int()).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, r.String()); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", r.String(), ErrInvalidPayload)
}

// ringFromCoordinates accepts [[lat,lng],...] or [{"lat":..,"lng":..},...]
func ringFromCoordinates(r gjson.Result) []LatLng {
	if !r.IsArray() {
		return nil
	}
	var ring []LatLng
	r.ForEach(func(_, v gjson.Result) bool {
		switch {
		case v.IsArray():
			pair := v.Array()
			if len(pair) >= 2 {
				ring = append(ring, LatLng{Lat: pair[0].Float(), Lng: pair[1].Float()})
			}
		case v.IsObject():
			ring = append(ring, LatLng{Lat: v.Get("lat").Float(), Lng: field(v, "lng", "lon").Float()})
		}
		return true
	})
	return usable(ring)
}

// ringFromGeoJSON reads the outer ring of a GeoJSON Polygon, MultiPolygon or
// a Feature wrapping one. GeoJSON positions are lng,lat.
func ringFromGeoJSON(raw string) ([]LatLng, error) {
	var geometry orb.Geometry
	if gjson.Get(raw, "type").String() == "Feature" {
		f, err := geojson.UnmarshalFeature([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse boundary feature: %w", err)
		}
		geometry = f.Geometry
	} else {
		g, err := geojson.UnmarshalGeometry([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse boundary geometry: %w", err)
		}
		geometry = g.Geometry()
	}

	var outer orb.Ring
	switch g := geometry.(type) {
	case orb.Polygon:
		if len(g) > 0 {
			outer = g[0]
		}
	case orb.MultiPolygon:
		if len(g) > 0 && len(g[0]) > 0 {
			outer = g[0][0]
		}
	case orb.Ring:
		outer = g
	default:
		return nil, nil
	}

	ring := make([]LatLng, 0, len(outer))
	for _, pt := range outer {
		ring = append(ring, LatLng{Lat: pt.Lat(), Lng: pt.Lon()})
	}
	return usable(ring), nil
}

// usable drops a ring with any vertex off the globe, so geo-derived metrics
// become unavailable instead of wrong
func usable(ring []LatLng) []LatLng {
	if !ValidRing(ring) {
		return nil
	}
	return openRing(ring)
}

// openRing drops a closing vertex that repeats the first one
func openRing(ring []LatLng) []LatLng {
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		return ring[:n-1]
	}
	return ring
}
