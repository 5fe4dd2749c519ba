package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Server struct {
		Port    string `env:"SERVER_PORT" envDefault:"5250"`
		DBPath  string `env:"DB_PATH" envDefault:"database/parcels.db"`
		GinMode string `env:"GIN_MODE" envDefault:"release"`
	}

	// BatchProcessing configuration for parcel ingest
	BatchProcessing struct {
		// Maximum number of parcel batches buffered by the ingest queue
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	Cache struct {
		// Number of memoized analyses kept in memory
		Capacity int `env:"ANALYSIS_CACHE_CAPACITY" envDefault:"512"`
	}

	Analytics AnalyticsConfig
}

// AnalyticsConfig holds every rate, threshold and benchmark used by the
// analytics engine. Calculators read constants from here only.
type AnalyticsConfig struct {
	// Transaction and tax model
	PurchaseTaxRate       float64 `env:"PURCHASE_TAX_RATE" envDefault:"0.06"`
	AttorneyFeeRate       float64 `env:"ATTORNEY_FEE_RATE" envDefault:"0.0175"`
	AppraiserFee          float64 `env:"APPRAISER_FEE" envDefault:"2500"`
	BettermentLevyRate    float64 `env:"BETTERMENT_LEVY_RATE" envDefault:"0.5"`
	CapitalGainsTaxRate   float64 `env:"CAPITAL_GAINS_TAX_RATE" envDefault:"0.25"`
	AnnualHoldingCostRate float64 `env:"ANNUAL_HOLDING_COST_RATE" envDefault:"0.015"`
	DefaultHoldingYears   float64 `env:"DEFAULT_HOLDING_YEARS" envDefault:"5"`

	// Buildable value
	UnitSizeSqm float64 `env:"UNIT_SIZE_SQM" envDefault:"100"`

	// Population floors
	MinPopulation       int `env:"MIN_POPULATION" envDefault:"3"`
	MinTrendRecords     int `env:"MIN_TREND_RECORDS" envDefault:"4"`
	MinBelowMarketPeers int `env:"MIN_BELOW_MARKET_PEERS" envDefault:"2"`

	// Market signals (percent bands)
	TrendStableBand float64 `env:"TREND_STABLE_BAND" envDefault:"2"`
	BelowMarketBand float64 `env:"BELOW_MARKET_BAND" envDefault:"5"`

	// Demand velocity tiers, views per day
	DemandHighThreshold   float64 `env:"DEMAND_HIGH_THRESHOLD" envDefault:"20"`
	DemandMediumThreshold float64 `env:"DEMAND_MEDIUM_THRESHOLD" envDefault:"5"`

	// Market temperature
	FreshListingDays   int     `env:"FRESH_LISTING_DAYS" envDefault:"30"`
	TemperatureHot     float64 `env:"TEMPERATURE_HOT" envDefault:"55"`
	TemperatureWarm    float64 `env:"TEMPERATURE_WARM" envDefault:"30"`
	AvailabilityWeight float64 `env:"TEMPERATURE_AVAILABILITY_WEIGHT" envDefault:"40"`
	FreshnessWeight    float64 `env:"TEMPERATURE_FRESHNESS_WEIGHT" envDefault:"30"`
	RoiWeight          float64 `env:"TEMPERATURE_ROI_WEIGHT" envDefault:"30"`
	RoiCap             float64 `env:"TEMPERATURE_ROI_CAP" envDefault:"200"`

	// Investment score weights (sum = 1)
	ScoreRoiWeight          float64 `env:"SCORE_ROI_WEIGHT" envDefault:"0.4"`
	ScoreZoningWeight       float64 `env:"SCORE_ZONING_WEIGHT" envDefault:"0.3"`
	ScoreSizeWeight         float64 `env:"SCORE_SIZE_WEIGHT" envDefault:"0.1"`
	ScoreCompletenessWeight float64 `env:"SCORE_COMPLETENESS_WEIGHT" envDefault:"0.2"`
	ScoreRoiCap             float64 `env:"SCORE_ROI_CAP" envDefault:"200"`
	ScoreSizeReferenceSqm   float64 `env:"SCORE_SIZE_REFERENCE_SQM" envDefault:"2000"`

	// Risk and verdict
	OutlierPriceBand        float64 `env:"OUTLIER_PRICE_BAND" envDefault:"50"`
	TaxAuthorityPremiumBand float64 `env:"TAX_AUTHORITY_PREMIUM_BAND" envDefault:"30"`
	LowCompletenessRatio    float64 `env:"LOW_COMPLETENESS_RATIO" envDefault:"0.6"`
	LongHorizonYears        float64 `env:"LONG_HORIZON_YEARS" envDefault:"7"`
	HotVerdictFreshDays     int     `env:"HOT_VERDICT_FRESH_DAYS" envDefault:"14"`

	// Alternative investments, annual rates
	InflationRate   float64 `env:"INFLATION_RATE" envDefault:"0.03"`
	BankDepositRate float64 `env:"BANK_DEPOSIT_RATE" envDefault:"0.045"`
	EquityIndexRate float64 `env:"EQUITY_INDEX_RATE" envDefault:"0.08"`

	// Commute estimates
	RoadCorrectionFactor float64 `env:"ROAD_CORRECTION_FACTOR" envDefault:"1.3"`
	AverageSpeedKmh      float64 `env:"AVERAGE_SPEED_KMH" envDefault:"60"`

	// Sensitivity scenarios, applied to projected value in this order
	ScenarioFactors []float64 `env:"SCENARIO_FACTORS" envDefault:"1.10,1.00,0.90,0.80" envSeparator:","`

	Cities []City
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Analytics.Cities = MajorCities
	return cfg, nil
}

// DefaultAnalytics returns the analytics constants without reading the
// environment.
func DefaultAnalytics() AnalyticsConfig {
	cfg := AnalyticsConfig{}
	// envDefault values are the only source of the defaults
	if err := env.Parse(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("invalid analytics defaults: %v", err))
	}
	cfg.Cities = MajorCities
	return cfg
}
