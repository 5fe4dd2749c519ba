package analytics

import (
	"sort"

	"parcelscope/server/config"
	"parcelscope/server/internal/models"
)

// ComparisonSet is the population used for percentile and market-relative
// metrics. Ids are expected to be unique; on duplicates the first record wins.
type ComparisonSet []models.Parcel

// Contains reports whether a parcel with the given id is in the set
func (s ComparisonSet) Contains(id string) bool {
	for i := range s {
		if s[i].ID == id {
			return true
		}
	}
	return false
}

// Peers returns the parcels of the given city, excluding the given id
func (s ComparisonSet) Peers(city, excludeID string) ComparisonSet {
	key := config.NormalizeCity(city)
	var peers ComparisonSet
	for _, p := range s {
		if p.ID == excludeID || config.NormalizeCity(p.City) != key {
			continue
		}
		peers = append(peers, p)
	}
	return peers
}

// Metric names a per-parcel value that can be ranked
type Metric string

const (
	MetricPricePerSqm          Metric = "price_per_sqm"
	MetricRoi                  Metric = "roi"
	MetricSize                 Metric = "size"
	MetricPricePerBuildableSqm Metric = "price_per_buildable_sqm"
)

// Metrics lists every rankable metric
var Metrics = []Metric{MetricPricePerSqm, MetricRoi, MetricSize, MetricPricePerBuildableSqm}

// MetricValue extracts the metric for a parcel. ok is false when the parcel
// is not structurally valid for that metric.
func (e *Engine) MetricValue(p models.Parcel, metric Metric) (float64, bool) {
	switch metric {
	case MetricPricePerSqm:
		return p.PricePerSqm()
	case MetricRoi:
		if p.TotalPrice <= 0 {
			return 0, false
		}
		roi := GrossRoi(p.TotalPrice, p.ProjectedValue)
		if roi == nil {
			return 0, false
		}
		return *roi, true
	case MetricSize:
		if p.SizeSqm <= 0 || p.TotalPrice <= 0 {
			return 0, false
		}
		return p.SizeSqm, true
	case MetricPricePerBuildableSqm:
		b := e.Buildable(p)
		if b == nil || b.PricePerBuildableSqm == nil {
			return 0, false
		}
		return *b.PricePerBuildableSqm, true
	}
	return 0, false
}

type rankedValue struct {
	id    string
	value float64
}

// population extracts the valid {id, value} pairs of the set, first
// occurrence of an id only
func (e *Engine) population(set ComparisonSet, metric Metric) []rankedValue {
	seen := make(map[string]bool, len(set))
	pairs := make([]rankedValue, 0, len(set))
	for _, p := range set {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if v, ok := e.MetricValue(p, metric); ok {
			pairs = append(pairs, rankedValue{id: p.ID, value: v})
		}
	}
	return pairs
}

// Percentiles ranks every parcel of the set. The map holds an entry for every
// id in the set; the entry is nil when the parcel is invalid for the metric
// or the valid population is below the floor.
func (e *Engine) Percentiles(set ComparisonSet, metric Metric) map[string]*int {
	result := make(map[string]*int, len(set))
	for _, p := range set {
		result[p.ID] = nil
	}

	pairs := e.population(set, metric)
	if len(pairs) < e.cfg.MinPopulation || len(pairs) < 2 {
		return result
	}

	sorted := sortedValues(pairs)
	for _, pair := range pairs {
		result[pair.id] = iptr(percentileAt(sorted, pair.value))
	}
	return result
}

// PercentileOf ranks a single parcel against the set. A parcel that is not
// part of the set joins the population for the calculation.
func (e *Engine) PercentileOf(p models.Parcel, set ComparisonSet, metric Metric) *int {
	value, ok := e.MetricValue(p, metric)
	if !ok {
		return nil
	}

	pairs := e.population(set, metric)
	if !set.Contains(p.ID) {
		pairs = append(pairs, rankedValue{id: p.ID, value: value})
	}
	if len(pairs) < e.cfg.MinPopulation || len(pairs) < 2 {
		return nil
	}

	return iptr(percentileAt(sortedValues(pairs), value))
}

// CheaperThan is the share of the other valid parcels in the set with a
// strictly higher price per sqm. Parcels priced the same do not count.
func (e *Engine) CheaperThan(p models.Parcel, set ComparisonSet) *int {
	value, ok := e.MetricValue(p, MetricPricePerSqm)
	if !ok {
		return nil
	}

	var higher, others int
	for _, pair := range e.population(set, MetricPricePerSqm) {
		if pair.id == p.ID {
			continue
		}
		others++
		if pair.value > value {
			higher++
		}
	}
	if others+1 < e.cfg.MinPopulation || others == 0 {
		return nil
	}

	return iptr(int(roundHalfUp(float64(higher) / float64(others) * 100)))
}

func sortedValues(pairs []rankedValue) []float64 {
	values := make([]float64, len(pairs))
	for i, pair := range pairs {
		values[i] = pair.value
	}
	sort.Float64s(values)
	return values
}

// percentileAt places value at the index of its first occurrence in the
// sorted population, so equal values share a percentile
func percentileAt(sorted []float64, value float64) int {
	rank := sort.SearchFloat64s(sorted, value)
	p := roundHalfUp(float64(rank) / float64(len(sorted)-1) * 100)
	if p > 100 {
		p = 100
	}
	return int(p)
}
