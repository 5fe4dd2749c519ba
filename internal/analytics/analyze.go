package analytics

import (
	"time"

	"github.com/sirupsen/logrus"

	"parcelscope/server/internal/geometry"
	"parcelscope/server/internal/models"
)

// PercentileRanks is the parcel's position in the comparison set per metric
type PercentileRanks struct {
	PricePerSqm          *int `json:"price_per_sqm"`
	Roi                  *int `json:"roi"`
	Size                 *int `json:"size"`
	PricePerBuildableSqm *int `json:"price_per_buildable_sqm"`

	// CheaperThan is the share of the other parcels priced higher per sqm
	CheaperThan *int `json:"cheaper_than"`
}

// DerivedMetrics is every metric for one parcel. Fields are independent and
// nil when unavailable.
type DerivedMetrics struct {
	ParcelID     string  `json:"parcel_id"`
	HoldingYears float64 `json:"holding_years"`

	PricePerSqm       *float64   `json:"price_per_sqm"`
	GrossRoi          *float64   `json:"gross_roi"`
	Cagr              *float64   `json:"cagr"`
	Valuation         *Waterfall `json:"valuation"`
	TaxAuthorityDelta *float64   `json:"tax_authority_delta"`
	Scenarios         []Scenario `json:"scenarios"`

	Score   *InvestmentScore `json:"score"`
	Risk    *RiskAssessment  `json:"risk"`
	Verdict *Verdict         `json:"verdict"`

	Percentiles PercentileRanks       `json:"percentiles"`
	Demand      *DemandVelocity       `json:"demand"`
	AreaTrend   *AreaPriceTrend       `json:"area_trend"`
	BelowMarket *BelowMarketIndicator `json:"below_market"`

	Buildable    *BuildableValue     `json:"buildable"`
	Alternatives *AlternativeReturns `json:"alternatives"`

	Centroid   *models.LatLng             `json:"centroid"`
	PerimeterM *float64                   `json:"perimeter_m"`
	Commute    []geometry.CommuteEstimate `json:"commute"`
}

// MarketSnapshot is the set-level view of one city
type MarketSnapshot struct {
	City        string             `json:"city"`
	Temperature *MarketTemperature `json:"temperature"`
	Trend       *AreaPriceTrend    `json:"trend"`
}

// Analyze computes every metric for the parcel against the comparison set as
// of the given time. Calling it twice with the same inputs yields identical
// output.
func (e *Engine) Analyze(p models.Parcel, set ComparisonSet, now time.Time) DerivedMetrics {
	years := e.HoldingYears(p.ReadinessEstimate)
	m := DerivedMetrics{
		ParcelID:     p.ID,
		HoldingYears: years,
	}

	if v, ok := p.PricePerSqm(); ok {
		m.PricePerSqm = fptr(v)
	}
	if p.TotalPrice > 0 {
		m.GrossRoi = GrossRoi(p.TotalPrice, p.ProjectedValue)
	}
	if m.GrossRoi != nil {
		m.Cagr = CAGR(*m.GrossRoi, years)
		m.GrossRoi = fptr(round1(*m.GrossRoi))
	}

	m.Valuation = e.Waterfall(p.TotalPrice, p.ProjectedValue, years)
	m.TaxAuthorityDelta = TaxAuthorityDelta(p)
	m.Scenarios = e.Scenarios(p.TotalPrice, p.ProjectedValue, years)

	m.Score = e.Score(p)
	m.Risk = e.Risk(p, set)
	m.Verdict = e.Verdict(p, set, now)

	m.Percentiles = PercentileRanks{
		PricePerSqm:          e.PercentileOf(p, set, MetricPricePerSqm),
		Roi:                  e.PercentileOf(p, set, MetricRoi),
		Size:                 e.PercentileOf(p, set, MetricSize),
		PricePerBuildableSqm: e.PercentileOf(p, set, MetricPricePerBuildableSqm),
	}
	m.Percentiles.CheaperThan = e.CheaperThan(p, set)

	m.Demand = e.Demand(p, now)
	m.AreaTrend = e.Trend(p.City, set)
	m.BelowMarket = e.BelowMarket(p, set)

	m.Buildable = e.Buildable(p)
	var landProfit *float64
	if m.Valuation != nil {
		landProfit = fptr(m.Valuation.NetProfit)
	}
	m.Alternatives = e.Alternatives(p.TotalPrice, years, landProfit)

	m.Centroid = geometry.Centroid(p.Coordinates)
	m.PerimeterM = geometry.Perimeter(p.Coordinates)
	if m.Centroid != nil {
		m.Commute = geometry.EstimateCommuteTimes(m.Centroid.Lat, m.Centroid.Lng, e.cfg)
	}

	if unavailable := m.Unavailable(); len(unavailable) > 0 {
		e.logger.WithFields(logrus.Fields{
			"parcel_id":   p.ID,
			"set_size":    len(set),
			"unavailable": unavailable,
		}).Debug("Some metrics are unavailable")
	}
	return m
}

// Market computes the set-level temperature and the city's price trend
func (e *Engine) Market(city string, set ComparisonSet, now time.Time) MarketSnapshot {
	peers := set.Peers(city, "")
	return MarketSnapshot{
		City:        city,
		Temperature: e.Temperature(peers, now),
		Trend:       e.Trend(city, peers),
	}
}

// Unavailable lists the metrics that could not be computed
func (m DerivedMetrics) Unavailable() []string {
	checks := []struct {
		name    string
		missing bool
	}{
		{"price_per_sqm", m.PricePerSqm == nil},
		{"gross_roi", m.GrossRoi == nil},
		{"cagr", m.Cagr == nil},
		{"valuation", m.Valuation == nil},
		{"true_roi", m.Valuation == nil || m.Valuation.TrueRoi == nil},
		{"score", m.Score == nil},
		{"risk", m.Risk == nil},
		{"verdict", m.Verdict == nil},
		{"percentile_price_per_sqm", m.Percentiles.PricePerSqm == nil},
		{"percentile_roi", m.Percentiles.Roi == nil},
		{"demand", m.Demand == nil},
		{"area_trend", m.AreaTrend == nil},
		{"buildable", m.Buildable == nil},
		{"geometry", m.Centroid == nil},
	}

	var names []string
	for _, c := range checks {
		if c.missing {
			names = append(names, c.name)
		}
	}
	return names
}
