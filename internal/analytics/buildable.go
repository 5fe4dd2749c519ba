package analytics

import (
	"math"

	"parcelscope/server/internal/models"
)

const sqmPerDunam = 1000.0

// BuildableValue converts a land price into per-buildable-area terms
type BuildableValue struct {
	EstimatedUnits       float64  `json:"estimated_units"`
	TotalBuildableArea   float64  `json:"total_buildable_area"`
	PricePerBuildableSqm *float64 `json:"price_per_buildable_sqm"`
	PricePerUnit         *float64 `json:"price_per_unit"`
}

// Buildable derives units and buildable area from the housing density.
// Unavailable without a positive density and size.
func (e *Engine) Buildable(p models.Parcel) *BuildableValue {
	if p.DensityUnitsPerDunam == nil || *p.DensityUnitsPerDunam <= 0 || p.SizeSqm <= 0 {
		return nil
	}

	units := *p.DensityUnitsPerDunam * (p.SizeSqm / sqmPerDunam)
	if !finite(units) {
		return nil
	}
	b := &BuildableValue{
		EstimatedUnits:     units,
		TotalBuildableArea: units * e.cfg.UnitSizeSqm,
	}

	if p.TotalPrice > 0 {
		if v, ok := ratio(p.TotalPrice, b.TotalBuildableArea); ok {
			b.PricePerBuildableSqm = fptr(v)
		}
		if v, ok := ratio(p.TotalPrice, units); ok {
			b.PricePerUnit = fptr(v)
		}
	}
	return b
}

// AlternativeOutcome is the result of holding the principal in one vehicle
type AlternativeOutcome struct {
	Name          string  `json:"name"`
	FinalValue    float64 `json:"final_value"`
	Profit        float64 `json:"profit"`
	RealProfit    float64 `json:"real_profit"`
	ReturnPercent float64 `json:"return_percent"`
}

// AlternativeReturns compares the land deal with benchmark investments over
// the same period. The triple is unordered; ranking is up to the caller.
type AlternativeReturns struct {
	Principal    float64             `json:"principal"`
	Years        float64             `json:"years"`
	Land         *AlternativeOutcome `json:"land"`
	BankDeposit  *AlternativeOutcome `json:"bank_deposit"`
	EquityIndex  *AlternativeOutcome `json:"equity_index"`
	InflationPct float64             `json:"inflation_pct"`
}

// Alternatives projects the principal through a bank deposit and an equity
// index next to the land deal's net profit. Land is nil when its profit is
// unknown.
func (e *Engine) Alternatives(principal, years float64, landNetProfit *float64) *AlternativeReturns {
	if principal <= 0 || years <= 0 || !finite(principal) || !finite(years) {
		return nil
	}

	deflator := math.Pow(1+e.cfg.InflationRate, years)
	outcome := func(name string, finalValue float64) *AlternativeOutcome {
		return &AlternativeOutcome{
			Name:          name,
			FinalValue:    finalValue,
			Profit:        finalValue - principal,
			RealProfit:    finalValue/deflator - principal,
			ReturnPercent: round1((finalValue - principal) / principal * 100),
		}
	}

	alt := &AlternativeReturns{
		Principal:    principal,
		Years:        years,
		BankDeposit:  outcome("bank_deposit", principal*math.Pow(1+e.cfg.BankDepositRate, years)),
		EquityIndex:  outcome("equity_index", principal*math.Pow(1+e.cfg.EquityIndexRate, years)),
		InflationPct: e.cfg.InflationRate * 100,
	}
	if landNetProfit != nil && finite(*landNetProfit) {
		alt.Land = outcome("land", principal+*landNetProfit)
	}
	return alt
}
