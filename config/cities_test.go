package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCityNames(t *testing.T) {
	tests := []struct {
		name           string
		cities         []City
		expectedCities []string
	}{
		{
			name:           "Major cities",
			cities:         MajorCities,
			expectedCities: []string{"Tel Aviv", "Jerusalem", "Haifa", "Be'er Sheva", "Netanya"},
		},
		{
			name:           "Empty list",
			cities:         []City{},
			expectedCities: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedCities, GetCityNames(tt.cities))
		})
	}
}

func TestGetCityByName(t *testing.T) {
	tests := []struct {
		name     string
		cityName string
		expected *City
	}{
		{
			name:     "Exact name",
			cityName: "Haifa",
			expected: &City{Name: "Haifa", Center: []float64{32.7940, 34.9896}},
		},
		{
			name:     "Different case and spacing",
			cityName: "  tel   aviv ",
			expected: &City{Name: "Tel Aviv", Center: []float64{32.0853, 34.7818}},
		},
		{
			name:     "Apostrophe dropped",
			cityName: "Beer Sheva",
			expected: &City{Name: "Be'er Sheva", Center: []float64{31.2520, 34.7915}},
		},
		{
			name:     "Unknown city",
			cityName: "Eilat",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			city := GetCityByName(MajorCities, tt.cityName)
			if tt.expected == nil {
				assert.Nil(t, city)
				return
			}
			require.NotNil(t, city)
			assert.Equal(t, tt.expected.Name, city.Name)
			assert.InDelta(t, tt.expected.Center[0], city.Center[0], 0.0001)
			assert.InDelta(t, tt.expected.Center[1], city.Center[1], 0.0001)
		})
	}
}

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Simple city name", input: "Haifa", expected: "haifa"},
		{name: "City name with spaces", input: "Tel Aviv", expected: "tel-aviv"},
		{name: "City name with apostrophe", input: "Be'er Sheva", expected: "beer-sheva"},
		{name: "Multiple spaces", input: "Rishon  LeZion", expected: "rishon-lezion"},
		{name: "Already normalized", input: "netanya", expected: "netanya"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeCity(tt.input)
			assert.Equal(t, tt.expected, result,
				"NormalizeCity(%q) = %q, want %q", tt.input, result, tt.expected)
		})
	}
}

func TestDefaultAnalytics(t *testing.T) {
	cfg := DefaultAnalytics()

	assert.Equal(t, 0.06, cfg.PurchaseTaxRate)
	assert.Equal(t, 0.0175, cfg.AttorneyFeeRate)
	assert.Equal(t, 0.5, cfg.BettermentLevyRate)
	assert.Equal(t, 0.25, cfg.CapitalGainsTaxRate)
	assert.Equal(t, 3, cfg.MinPopulation)
	assert.Equal(t, 4, cfg.MinTrendRecords)
	assert.Equal(t, []float64{1.10, 1.00, 0.90, 0.80}, cfg.ScenarioFactors)
	assert.Len(t, cfg.Cities, len(MajorCities))

	weights := cfg.ScoreRoiWeight + cfg.ScoreZoningWeight + cfg.ScoreSizeWeight + cfg.ScoreCompletenessWeight
	assert.InDelta(t, 1.0, weights, 1e-9)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PURCHASE_TAX_RATE", "0.08")
	t.Setenv("SCENARIO_FACTORS", "1.2,1.0")
	t.Setenv("SERVER_PORT", "8080")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 0.08, cfg.Analytics.PurchaseTaxRate)
	assert.Equal(t, []float64{1.2, 1.0}, cfg.Analytics.ScenarioFactors)
	assert.Equal(t, 0.0175, cfg.Analytics.AttorneyFeeRate)
	assert.Equal(t, 2, cfg.BatchProcessing.ProcessorCount)
}
