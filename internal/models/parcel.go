package models

import "time"

// ZoningStage is a step in the planning pipeline, from agricultural land to
// a building permit.
type ZoningStage string

const (
	StageAgricultural         ZoningStage = "agricultural"
	StageMasterPlanDeposit    ZoningStage = "master_plan_deposit"
	StageMasterPlanApproved   ZoningStage = "master_plan_approved"
	StageDetailedPlanPrep     ZoningStage = "detailed_plan_prep"
	StageDetailedPlanDeposit  ZoningStage = "detailed_plan_deposit"
	StageDetailedPlanApproved ZoningStage = "detailed_plan_approved"
	StageDeveloperTender      ZoningStage = "developer_tender"
	StageBuildingPermit       ZoningStage = "building_permit"
)

// ZoningStages lists every stage in pipeline order
var ZoningStages = []ZoningStage{
	StageAgricultural,
	StageMasterPlanDeposit,
	StageMasterPlanApproved,
	StageDetailedPlanPrep,
	StageDetailedPlanDeposit,
	StageDetailedPlanApproved,
	StageDeveloperTender,
	StageBuildingPermit,
}

// Index returns the position of the stage in the pipeline
func (s ZoningStage) Index() (int, bool) {
	for i, stage := range ZoningStages {
		if stage == s {
			return i, true
		}
	}
	return 0, false
}

// Progress returns the stage position scaled to [0,1]
func (s ZoningStage) Progress() (float64, bool) {
	i, ok := s.Index()
	if !ok {
		return 0, false
	}
	return float64(i) / float64(len(ZoningStages)-1), true
}

const (
	StatusAvailable = "available"
	StatusReserved  = "reserved"
	StatusSold      = "sold"
)

// LatLng is a boundary vertex
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the vertex is a finite point on the globe
func (v LatLng) Valid() bool {
	return v.Lat >= -90 && v.Lat <= 90 && v.Lng >= -180 && v.Lng <= 180
}

// ValidRing reports whether every vertex of the ring is valid
func ValidRing(ring []LatLng) bool {
	for _, v := range ring {
		if !v.Valid() {
			return false
		}
	}
	return true
}

// Parcel is the canonical parcel record consumed by the analytics engine.
// Zero values mean "unknown": a zero SizeSqm suppresses every per-area
// metric, a zero ProjectedValue suppresses every profit metric.
type Parcel struct {
	ID                   string      `json:"id" gorm:"primaryKey"`
	City                 string      `json:"city" gorm:"index"`
	TotalPrice           float64     `json:"total_price"`
	ProjectedValue       float64     `json:"projected_value"`
	SizeSqm              float64     `json:"size_sqm"`
	ZoningStage          ZoningStage `json:"zoning_stage"`
	ReadinessEstimate    string      `json:"readiness_estimate"`
	DensityUnitsPerDunam *float64    `json:"density_units_per_dunam"`
	TaxAuthorityValue    *float64    `json:"tax_authority_value"`
	Coordinates          []LatLng    `json:"coordinates" gorm:"serializer:json"`
	Status               string      `json:"status"`
	Views                int         `json:"views"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// PricePerSqm returns the asking price per square meter
func (p *Parcel) PricePerSqm() (float64, bool) {
	if p.TotalPrice <= 0 || p.SizeSqm <= 0 {
		return 0, false
	}
	return p.TotalPrice / p.SizeSqm, true
}

// HasGeometry reports whether the boundary has enough valid vertices for
// geo-derived metrics
func (p *Parcel) HasGeometry() bool {
	return len(p.Coordinates) >= 3 && ValidRing(p.Coordinates)
}
