package analytics

import (
	"math"
	"sort"
	"time"

	"parcelscope/server/config"
	"parcelscope/server/internal/models"
)

const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"

	TemperatureHot  = "hot"
	TemperatureWarm = "warm"
	TemperatureCold = "cold"

	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// DemandVelocity is the listing's views per day since it was created
type DemandVelocity struct {
	ViewsPerDay float64 `json:"views_per_day"`
	Tier        string  `json:"tier"`
	Label       string  `json:"label"`
}

// MarketTemperature summarizes how active a comparison set is
type MarketTemperature struct {
	HeatScore         float64 `json:"heat_score"`
	Level             string  `json:"level"`
	AvailabilityRatio float64 `json:"availability_ratio"`
	FreshListingRatio float64 `json:"fresh_listing_ratio"`
	AverageRoi        float64 `json:"average_roi"`
	SampleSize        int     `json:"sample_size"`
}

// AreaPriceTrend compares mean price per sqm between older and newer
// listings of one city
type AreaPriceTrend struct {
	City          string  `json:"city"`
	Direction     string  `json:"direction"`
	ChangePercent float64 `json:"change_percent"`
	OlderMean     float64 `json:"older_mean_price_per_sqm"`
	NewerMean     float64 `json:"newer_mean_price_per_sqm"`
	SampleSize    int     `json:"sample_size"`
}

// BelowMarketIndicator is the parcel's price per sqm against its city peers
type BelowMarketIndicator struct {
	DeltaPercent        float64 `json:"delta_percent"`
	IsBelowMarket       bool    `json:"is_below_market"`
	PeerMeanPricePerSqm float64 `json:"peer_mean_price_per_sqm"`
	PeerCount           int     `json:"peer_count"`
}

// Demand computes views per day, with at least one day elapsed
func (e *Engine) Demand(p models.Parcel, now time.Time) *DemandVelocity {
	if p.CreatedAt.IsZero() {
		return nil
	}

	days := math.Max(1, math.Floor(now.Sub(p.CreatedAt).Hours()/24))
	velocity := float64(max(p.Views, 0)) / days

	d := &DemandVelocity{ViewsPerDay: round1(velocity)}
	switch {
	case velocity >= e.cfg.DemandHighThreshold:
		d.Tier, d.Label = TierHigh, "High demand"
	case velocity >= e.cfg.DemandMediumThreshold:
		d.Tier, d.Label = TierMedium, "Moderate demand"
	default:
		d.Tier, d.Label = TierLow, "Low demand"
	}
	return d
}

// Temperature scores the set by availability, share of fresh listings and
// average ROI. Parcels without a status count as available.
func (e *Engine) Temperature(set ComparisonSet, now time.Time) *MarketTemperature {
	if len(set) == 0 || len(set) < e.cfg.MinPopulation {
		return nil
	}

	freshCutoff := now.AddDate(0, 0, -e.cfg.FreshListingDays)
	var available, fresh int
	var rois []float64
	for _, p := range set {
		if p.Status == "" || p.Status == models.StatusAvailable {
			available++
		}
		if !p.CreatedAt.IsZero() && !p.CreatedAt.Before(freshCutoff) {
			fresh++
		}
		if v, ok := e.MetricValue(p, MetricRoi); ok {
			rois = append(rois, v)
		}
	}

	n := float64(len(set))
	t := &MarketTemperature{
		AvailabilityRatio: float64(available) / n,
		FreshListingRatio: float64(fresh) / n,
		AverageRoi:        round1(mean(rois)),
		SampleSize:        len(set),
	}

	roiComponent := 0.0
	if e.cfg.RoiCap > 0 {
		roiComponent = math.Min(math.Max(mean(rois), 0), e.cfg.RoiCap) / e.cfg.RoiCap
	}
	heat := t.AvailabilityRatio*e.cfg.AvailabilityWeight +
		t.FreshListingRatio*e.cfg.FreshnessWeight +
		roiComponent*e.cfg.RoiWeight
	t.HeatScore = round1(heat)

	switch {
	case heat >= e.cfg.TemperatureHot:
		t.Level = TemperatureHot
	case heat >= e.cfg.TemperatureWarm:
		t.Level = TemperatureWarm
	default:
		t.Level = TemperatureCold
	}
	return t
}

// Trend splits the city's dated listings into older and newer halves by
// creation date and compares their mean price per sqm
func (e *Engine) Trend(city string, set ComparisonSet) *AreaPriceTrend {
	type dated struct {
		id        string
		createdAt time.Time
		value     float64
	}

	key := config.NormalizeCity(city)
	var records []dated
	for _, p := range set {
		if p.CreatedAt.IsZero() || config.NormalizeCity(p.City) != key {
			continue
		}
		if v, ok := p.PricePerSqm(); ok {
			records = append(records, dated{id: p.ID, createdAt: p.CreatedAt, value: v})
		}
	}
	if len(records) < e.cfg.MinTrendRecords || len(records) < 2 {
		return nil
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].createdAt.Equal(records[j].createdAt) {
			return records[i].id < records[j].id
		}
		return records[i].createdAt.Before(records[j].createdAt)
	})

	half := len(records) / 2
	var older, newer []float64
	for i, r := range records {
		if i < half {
			older = append(older, r.value)
		} else {
			newer = append(newer, r.value)
		}
	}

	olderMean, newerMean := mean(older), mean(newer)
	change, ok := ratio(newerMean-olderMean, olderMean)
	if !ok {
		return nil
	}
	change *= 100

	t := &AreaPriceTrend{
		City:          city,
		ChangePercent: round1(change),
		OlderMean:     math.Round(olderMean),
		NewerMean:     math.Round(newerMean),
		SampleSize:    len(records),
	}
	switch {
	case math.Abs(change) < e.cfg.TrendStableBand:
		t.Direction = TrendStable
	case change > 0:
		t.Direction = TrendUp
	default:
		t.Direction = TrendDown
	}
	return t
}

// BelowMarket compares the parcel's price per sqm with the mean of its city
// peers. Suppressed when the difference is inside the band.
func (e *Engine) BelowMarket(p models.Parcel, set ComparisonSet) *BelowMarketIndicator {
	value, ok := p.PricePerSqm()
	if !ok {
		return nil
	}

	var peerValues []float64
	for _, peer := range set.Peers(p.City, p.ID) {
		if v, ok := peer.PricePerSqm(); ok {
			peerValues = append(peerValues, v)
		}
	}
	if len(peerValues) < e.cfg.MinBelowMarketPeers || len(peerValues) == 0 {
		return nil
	}

	peerMean := mean(peerValues)
	delta, ok := ratio(value-peerMean, peerMean)
	if !ok {
		return nil
	}
	delta *= 100
	if math.Abs(delta) < e.cfg.BelowMarketBand {
		return nil
	}

	return &BelowMarketIndicator{
		DeltaPercent:        round1(delta),
		IsBelowMarket:       delta < 0,
		PeerMeanPricePerSqm: math.Round(peerMean),
		PeerCount:           len(peerValues),
	}
}
