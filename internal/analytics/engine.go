// Package analytics turns parcel records into derived investment metrics.
// Every calculator is a pure function of its inputs and the injected
// configuration; a metric that cannot be computed is nil, never a sentinel.
package analytics

import (
	"os"

	"github.com/sirupsen/logrus"

	"parcelscope/server/config"
)

// Engine holds the configuration shared by every calculator
type Engine struct {
	cfg    config.AnalyticsConfig
	logger *logrus.Logger
}

// NewEngine creates an engine with the given constants
func NewEngine(cfg config.AnalyticsConfig, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if len(cfg.Cities) == 0 {
		cfg.Cities = config.MajorCities
	}

	return &Engine{
		cfg:    cfg,
		logger: logger,
	}
}

// Config returns the constants the engine was built with
func (e *Engine) Config() config.AnalyticsConfig {
	return e.cfg
}
