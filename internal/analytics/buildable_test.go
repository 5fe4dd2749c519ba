package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildable(t *testing.T) {
	e := newTestEngine(t)

	p := parcel("p", "Haifa", 1_000_000, 0, 2000)
	p.DensityUnitsPerDunam = ptr(10)

	b := e.Buildable(p)
	require.NotNil(t, b)
	assert.Equal(t, 20.0, b.EstimatedUnits)
	assert.Equal(t, 2000.0, b.TotalBuildableArea)
	require.NotNil(t, b.PricePerBuildableSqm)
	assert.Equal(t, 500.0, *b.PricePerBuildableSqm)
	require.NotNil(t, b.PricePerUnit)
	assert.Equal(t, 50_000.0, *b.PricePerUnit)

	p.TotalPrice = 0
	b = e.Buildable(p)
	require.NotNil(t, b)
	assert.Nil(t, b.PricePerBuildableSqm)
	assert.Nil(t, b.PricePerUnit)

	p.DensityUnitsPerDunam = ptr(0)
	assert.Nil(t, e.Buildable(p))
	p.DensityUnitsPerDunam = nil
	assert.Nil(t, e.Buildable(p))
}

func TestAlternatives(t *testing.T) {
	e := newTestEngine(t)

	alt := e.Alternatives(100_000, 1, ptr(10_000))
	require.NotNil(t, alt)

	require.NotNil(t, alt.BankDeposit)
	assert.InDelta(t, 104_500, alt.BankDeposit.FinalValue, 1e-6)
	assert.InDelta(t, 4_500, alt.BankDeposit.Profit, 1e-6)
	assert.Equal(t, 4.5, alt.BankDeposit.ReturnPercent)
	assert.InDelta(t, 104_500/1.03-100_000, alt.BankDeposit.RealProfit, 1e-6)

	require.NotNil(t, alt.EquityIndex)
	assert.InDelta(t, 108_000, alt.EquityIndex.FinalValue, 1e-6)

	require.NotNil(t, alt.Land)
	assert.Equal(t, 110_000.0, alt.Land.FinalValue)
	assert.Equal(t, 10.0, alt.Land.ReturnPercent)
	assert.Less(t, alt.Land.RealProfit, alt.Land.Profit)

	assert.InDelta(t, 3, alt.InflationPct, 1e-9)
}

func TestAlternatives_Unavailable(t *testing.T) {
	e := newTestEngine(t)

	alt := e.Alternatives(100_000, 5, nil)
	require.NotNil(t, alt)
	assert.Nil(t, alt.Land)
	assert.NotNil(t, alt.BankDeposit)

	assert.NotNil(t, e.Alternatives(100_000, 5, ptr(math.NaN())))
	assert.Nil(t, e.Alternatives(100_000, 5, ptr(math.NaN())).Land)
	assert.Nil(t, e.Alternatives(0, 5, ptr(1)))
	assert.Nil(t, e.Alternatives(100_000, 0, ptr(1)))
}
