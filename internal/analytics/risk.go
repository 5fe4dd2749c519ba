package analytics

import (
	"fmt"
	"math"

	"parcelscope/server/internal/models"
)

var riskLabels = []string{"low", "moderate", "elevated", "high", "very-high"}

// RiskFactor is one triggered risk condition
type RiskFactor struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Severity    int    `json:"severity"`
}

// RiskAssessment is the 1-5 risk level with the factors that raised it
type RiskAssessment struct {
	Level   int          `json:"level"`
	Label   string       `json:"label"`
	Factors []RiskFactor `json:"factors"`
}

// Risk evaluates every factor in a fixed order. The level is one plus the
// summed severity, capped at 5, so it can only grow with each factor.
// Requires a price.
func (e *Engine) Risk(p models.Parcel, set ComparisonSet) *RiskAssessment {
	if p.TotalPrice <= 0 {
		return nil
	}

	factors := make([]RiskFactor, 0)
	add := func(code, description string, severity int) {
		factors = append(factors, RiskFactor{Code: code, Description: description, Severity: severity})
	}

	// Zoning horizon
	switch stage, ok := p.ZoningStage.Index(); {
	case !ok:
		add("unknown_zoning", "unknown zoning stage", 1)
	case stage <= 1:
		add("early_zoning", "long horizon to zoning approval", 2)
	case stage <= 3:
		add("pending_zoning", "zoning approval still pending", 1)
	}

	years := e.HoldingYears(p.ReadinessEstimate)
	if years >= e.cfg.LongHorizonYears {
		add("long_holding", fmt.Sprintf("expected holding period of %g+ years", years), 1)
	}

	if DataCompleteness(p) < e.cfg.LowCompletenessRatio {
		add("low_completeness", "below-average data completeness", 1)
	}

	switch {
	case p.ProjectedValue <= 0:
		add("unknown_projection", "projected value unknown", 1)
	case p.ProjectedValue <= p.TotalPrice:
		add("no_appreciation", "no projected appreciation", 2)
	}

	if deviation := e.priceDeviation(p, set); deviation != nil && math.Abs(*deviation) > e.cfg.OutlierPriceBand {
		add("price_outlier", "outlier price vs. area", 1)
	}

	if delta := TaxAuthorityDelta(p); delta != nil && *delta > e.cfg.TaxAuthorityPremiumBand {
		add("above_tax_valuation", "asking price well above tax-authority valuation", 1)
	}

	severity := 0
	for _, f := range factors {
		severity += f.Severity
	}
	level := min(1+severity, len(riskLabels))

	return &RiskAssessment{
		Level:   level,
		Label:   riskLabels[level-1],
		Factors: factors,
	}
}

// priceDeviation is the percent difference between the parcel's price per
// sqm and the mean of the other valid parcels in the set
func (e *Engine) priceDeviation(p models.Parcel, set ComparisonSet) *float64 {
	value, ok := p.PricePerSqm()
	if !ok {
		return nil
	}

	var others []float64
	for _, other := range set {
		if other.ID == p.ID {
			continue
		}
		if v, ok := other.PricePerSqm(); ok {
			others = append(others, v)
		}
	}
	if len(others) < e.cfg.MinPopulation || len(others) == 0 {
		return nil
	}

	d, ok := ratio(value-mean(others), mean(others))
	if !ok {
		return nil
	}
	return fptr(d * 100)
}
