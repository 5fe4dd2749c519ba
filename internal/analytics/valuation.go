package analytics

import (
	"math"
	"strings"

	"parcelscope/server/internal/models"
)

// Waterfall is the profit breakdown of a deal from gross gain to net profit
// after Israeli transaction costs and taxes.
//
// NetProfit always equals GrossProfit - TransactionCosts - BettermentLevy -
// CapitalGainsTax.
type Waterfall struct {
	TotalPrice     float64 `json:"total_price"`
	ProjectedValue float64 `json:"projected_value"`
	HoldingYears   float64 `json:"holding_years"`

	GrossProfit      float64 `json:"gross_profit"`
	PurchaseTax      float64 `json:"purchase_tax"`
	AttorneyFees     float64 `json:"attorney_fees"`
	TransactionCosts float64 `json:"transaction_costs"`
	BettermentLevy   float64 `json:"betterment_levy"`
	TaxableProfit    float64 `json:"taxable_profit"`
	CapitalGainsTax  float64 `json:"capital_gains_tax"`
	NetProfit        float64 `json:"net_profit"`
	TrueRoi          *int    `json:"true_roi"`

	AppraiserFee    float64 `json:"appraiser_fee"`
	HoldingCosts    float64 `json:"holding_costs"`
	TotalInvestment float64 `json:"total_investment"`
}

// HoldingYears infers the holding period from the readiness bucket
func (e *Engine) HoldingYears(readiness string) float64 {
	switch strings.ReplaceAll(strings.TrimSpace(readiness), " ", "") {
	case "1-3":
		return 2
	case "3-5":
		return 4
	case "5+":
		return 7
	}
	return e.cfg.DefaultHoldingYears
}

// Waterfall runs the fixed-rate tax model. It returns nil when the projected
// value is unknown; a zero price still yields the waterfall but no TrueRoi.
func (e *Engine) Waterfall(totalPrice, projectedValue, holdingYears float64) *Waterfall {
	totalPrice = nonNegative(totalPrice)
	projectedValue = nonNegative(projectedValue)
	holdingYears = nonNegative(holdingYears)
	if projectedValue <= 0 || !finite(totalPrice) || !finite(projectedValue) || !finite(holdingYears) {
		return nil
	}

	w := &Waterfall{
		TotalPrice:     totalPrice,
		ProjectedValue: projectedValue,
		HoldingYears:   holdingYears,
	}

	w.GrossProfit = projectedValue - totalPrice
	w.PurchaseTax = totalPrice * e.cfg.PurchaseTaxRate
	w.AttorneyFees = totalPrice * e.cfg.AttorneyFeeRate
	w.TransactionCosts = w.PurchaseTax + w.AttorneyFees
	w.BettermentLevy = math.Max(0, w.GrossProfit) * e.cfg.BettermentLevyRate
	w.TaxableProfit = math.Max(0, w.GrossProfit-w.BettermentLevy-w.TransactionCosts)
	w.CapitalGainsTax = w.TaxableProfit * e.cfg.CapitalGainsTaxRate
	w.NetProfit = w.GrossProfit - w.TransactionCosts - w.BettermentLevy - w.CapitalGainsTax

	if roi, ok := ratio(w.NetProfit, totalPrice); ok {
		w.TrueRoi = iptr(int(roundHalfUp(roi * 100)))
	}

	if totalPrice > 0 {
		w.AppraiserFee = e.cfg.AppraiserFee
	}
	w.HoldingCosts = totalPrice * e.cfg.AnnualHoldingCostRate * holdingYears
	w.TotalInvestment = totalPrice + w.TransactionCosts + w.AppraiserFee + w.HoldingCosts

	return w
}

// ParcelWaterfall runs the waterfall for a parcel over its inferred holding
// period
func (e *Engine) ParcelWaterfall(p models.Parcel) *Waterfall {
	return e.Waterfall(p.TotalPrice, p.ProjectedValue, e.HoldingYears(p.ReadinessEstimate))
}

// GrossRoi is (projected value - price) / price as a percentage
func GrossRoi(totalPrice, projectedValue float64) *float64 {
	if projectedValue <= 0 {
		return nil
	}
	r, ok := ratio(projectedValue-totalPrice, totalPrice)
	if !ok {
		return nil
	}
	return fptr(r * 100)
}

// CAGR returns the compound annual growth rate, in percent with one decimal,
// implied by a total return over the given years. Undefined for
// non-positive returns or periods.
func CAGR(roiPercent, years float64) *float64 {
	if years <= 0 || roiPercent <= 0 || !finite(roiPercent) || !finite(years) {
		return nil
	}
	growth := math.Pow(1+roiPercent/100, 1/years) - 1
	if !finite(growth) {
		return nil
	}
	return fptr(round1(growth * 100))
}

// TaxAuthorityDelta is the percent by which the asking price exceeds (or
// falls short of) the government valuation
func TaxAuthorityDelta(p models.Parcel) *float64 {
	if p.TaxAuthorityValue == nil || p.TotalPrice <= 0 {
		return nil
	}
	r, ok := ratio(p.TotalPrice-*p.TaxAuthorityValue, *p.TaxAuthorityValue)
	if !ok {
		return nil
	}
	return fptr(round1(r * 100))
}
