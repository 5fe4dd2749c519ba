package analytics

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelscope/server/config"
	"parcelscope/server/internal/models"
)

func analysisSet() ComparisonSet {
	set := datedSet("Tel Aviv", 400, 450, 520, 560, 610)
	for i := range set {
		d := float64(8 + i)
		set[i].DensityUnitsPerDunam = &d
	}
	return set
}

func TestAnalyze_CompleteParcel(t *testing.T) {
	e := newTestEngine(t)
	set := analysisSet()

	p := completeParcel("subject")
	p.Views = 120
	p.CreatedAt = testNow.AddDate(0, 0, -4)
	set = append(set, p)

	m := e.Analyze(p, set, testNow)

	assert.Equal(t, "subject", m.ParcelID)
	assert.Equal(t, 2.0, m.HoldingYears)
	require.NotNil(t, m.PricePerSqm)
	assert.Equal(t, 500.0, *m.PricePerSqm)
	require.NotNil(t, m.GrossRoi)
	assert.Equal(t, 50.0, *m.GrossRoi)
	require.NotNil(t, m.Cagr)
	assert.Equal(t, 22.5, *m.Cagr)

	require.NotNil(t, m.Valuation)
	require.NotNil(t, m.Valuation.TrueRoi)
	assert.Len(t, m.Scenarios, 4)
	require.NotNil(t, m.TaxAuthorityDelta)

	assert.NotNil(t, m.Score)
	assert.NotNil(t, m.Risk)
	assert.NotNil(t, m.Verdict)

	require.NotNil(t, m.Percentiles.PricePerSqm)
	require.NotNil(t, m.Percentiles.CheaperThan)
	assert.Equal(t, 100, *m.Percentiles.PricePerSqm+*m.Percentiles.CheaperThan)
	assert.NotNil(t, m.Percentiles.Roi)
	assert.NotNil(t, m.Percentiles.Size)
	assert.NotNil(t, m.Percentiles.PricePerBuildableSqm)

	require.NotNil(t, m.Demand)
	assert.Equal(t, 30.0, m.Demand.ViewsPerDay)
	assert.NotNil(t, m.AreaTrend)

	require.NotNil(t, m.Buildable)
	require.NotNil(t, m.Alternatives)
	require.NotNil(t, m.Alternatives.Land)
	assert.InDelta(t, m.Valuation.NetProfit, m.Alternatives.Land.Profit, 1e-6)

	require.NotNil(t, m.Centroid)
	require.NotNil(t, m.PerimeterM)
	assert.Greater(t, *m.PerimeterM, 0.0)
	assert.Len(t, m.Commute, len(config.MajorCities))

	assert.Empty(t, m.Unavailable())
}

func TestAnalyze_CheaperThanWithTiedPrices(t *testing.T) {
	e := newTestEngine(t)
	set := ComparisonSet{
		parcel("a", "Haifa", 1_000_000, 1_500_000, 1000),
		parcel("b", "Haifa", 2_000_000, 3_000_000, 2000),
		parcel("c", "Haifa", 500_000, 750_000, 500),
	}

	m := e.Analyze(set[0], set, testNow)

	require.NotNil(t, m.Percentiles.PricePerSqm)
	assert.Equal(t, 0, *m.Percentiles.PricePerSqm)
	require.NotNil(t, m.Percentiles.CheaperThan)
	assert.Equal(t, 0, *m.Percentiles.CheaperThan, "no parcel is priced higher")
}

func TestAnalyze_PartialFailureIsolation(t *testing.T) {
	e := newTestEngine(t)

	// no projected value, no geometry, no density, undated
	p := models.Parcel{ID: "sparse", City: "Tel Aviv", TotalPrice: 600_000, SizeSqm: 1000}
	m := e.Analyze(p, analysisSet(), testNow)

	assert.Nil(t, m.GrossRoi)
	assert.Nil(t, m.Cagr)
	assert.Nil(t, m.Valuation)
	assert.Nil(t, m.Scenarios)
	assert.Nil(t, m.Score)
	assert.Nil(t, m.Verdict)
	assert.Nil(t, m.Percentiles.Roi)
	assert.Nil(t, m.Buildable)
	assert.Nil(t, m.Demand)
	assert.Nil(t, m.Centroid)
	assert.Nil(t, m.PerimeterM)
	assert.Nil(t, m.Commute)

	require.NotNil(t, m.PricePerSqm)
	assert.Equal(t, 600.0, *m.PricePerSqm)
	assert.NotNil(t, m.Risk)
	assert.NotNil(t, m.Percentiles.PricePerSqm)
	assert.NotNil(t, m.Percentiles.Size)
	assert.NotNil(t, m.AreaTrend)
	require.NotNil(t, m.Alternatives)
	assert.Nil(t, m.Alternatives.Land)

	assert.Contains(t, m.Unavailable(), "gross_roi")
	assert.Contains(t, m.Unavailable(), "geometry")
	assert.NotContains(t, m.Unavailable(), "price_per_sqm")
}

func TestAnalyze_ZeroVersusUnknownRoi(t *testing.T) {
	e := newTestEngine(t)

	flat := parcel("flat", "Haifa", 500_000, 500_000, 1000)
	m := e.Analyze(flat, nil, testNow)
	require.NotNil(t, m.GrossRoi)
	assert.Zero(t, *m.GrossRoi)

	unknown := parcel("unknown", "Haifa", 500_000, 0, 1000)
	m = e.Analyze(unknown, nil, testNow)
	assert.Nil(t, m.GrossRoi)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"gross_roi":null`)
}

func TestAnalyze_Deterministic(t *testing.T) {
	e := newTestEngine(t)
	set := analysisSet()
	p := completeParcel("subject")

	first := e.Analyze(p, set, testNow)
	second := e.Analyze(p, set, testNow)
	assert.Equal(t, first, second)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestAnalyze_LogsUnavailableMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.DebugLevel)

	e := NewEngine(config.DefaultAnalytics(), logger)
	e.Analyze(models.Parcel{ID: "empty"}, nil, testNow)

	assert.Contains(t, buf.String(), `"parcel_id":"empty"`)
	assert.Contains(t, buf.String(), "Some metrics are unavailable")
}

func TestMarket(t *testing.T) {
	e := newTestEngine(t)

	set := analysisSet()
	set = append(set, parcel("other", "Haifa", 100_000, 200_000, 1000))

	snapshot := e.Market("tel aviv", set, testNow)
	assert.Equal(t, "tel aviv", snapshot.City)
	require.NotNil(t, snapshot.Temperature)
	assert.Equal(t, 5, snapshot.Temperature.SampleSize)
	require.NotNil(t, snapshot.Trend)
	assert.Equal(t, TrendUp, snapshot.Trend.Direction)

	empty := e.Market("Eilat", set, testNow)
	assert.Nil(t, empty.Temperature)
	assert.Nil(t, empty.Trend)
}

func TestNewEngine_Defaults(t *testing.T) {
	cfg := config.DefaultAnalytics()
	cfg.Cities = nil

	e := NewEngine(cfg, nil)
	assert.NotNil(t, e.logger)
	assert.Equal(t, config.MajorCities, e.Config().Cities)
}
