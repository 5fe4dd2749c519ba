// Package cache memoizes parcel analyses by the content of their inputs.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/sirupsen/logrus"

	"parcelscope/server/internal/analytics"
	"parcelscope/server/internal/models"
)

// Analyzer computes the derived metrics of a parcel
type Analyzer interface {
	Analyze(p models.Parcel, set analytics.ComparisonSet, now time.Time) analytics.DerivedMetrics
}

// Stats reports cache effectiveness
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// AnalysisCache wraps an analyzer with a bounded memo keyed by a hash of
// the parcel, the comparison set and the as-of time. Cached results are
// shared between callers and must not be mutated.
type AnalysisCache struct {
	analyzer Analyzer
	store    *ristretto.Cache[uint64, analytics.DerivedMetrics]
	logger   *logrus.Logger
}

// NewAnalysisCache creates a cache holding up to capacity analyses
func NewAnalysisCache(analyzer Analyzer, capacity int, logger *logrus.Logger) (*AnalysisCache, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if capacity <= 0 {
		capacity = 1
	}

	store, err := ristretto.NewCache(&ristretto.Config[uint64, analytics.DerivedMetrics]{
		NumCounters:        int64(capacity) * 10,
		MaxCost:            int64(capacity),
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis cache: %w", err)
	}

	return &AnalysisCache{
		analyzer: analyzer,
		store:    store,
		logger:   logger,
	}, nil
}

// Analyze returns the memoized analysis for the inputs, computing it on a
// miss. Inputs that cannot be hashed bypass the cache.
func (c *AnalysisCache) Analyze(p models.Parcel, set analytics.ComparisonSet, now time.Time) analytics.DerivedMetrics {
	key, err := Key(p, set, now)
	if err != nil {
		c.logger.WithError(err).WithField("parcel_id", p.ID).Warn("Failed to hash analysis inputs")
		return c.analyzer.Analyze(p, set, now)
	}

	if m, ok := c.store.Get(key); ok {
		return m
	}

	m := c.analyzer.Analyze(p, set, now)
	c.store.Set(key, m, 1)
	c.store.Wait()
	return m
}

// Stats returns hit and miss counts since creation
func (c *AnalysisCache) Stats() Stats {
	return Stats{
		Hits:   c.store.Metrics.Hits(),
		Misses: c.store.Metrics.Misses(),
	}
}

// Purge drops every memoized analysis
func (c *AnalysisCache) Purge() {
	c.store.Clear()
}

// Close releases the cache's background goroutines
func (c *AnalysisCache) Close() {
	c.store.Close()
}

// Key hashes the JSON encoding of the inputs. Equal inputs always produce
// the same key.
func Key(p models.Parcel, set analytics.ComparisonSet, now time.Time) (uint64, error) {
	d := xxhash.New()
	enc := json.NewEncoder(d)

	if err := enc.Encode(p); err != nil {
		return 0, fmt.Errorf("failed to encode parcel: %w", err)
	}
	if err := enc.Encode(set); err != nil {
		return 0, fmt.Errorf("failed to encode comparison set: %w", err)
	}
	if _, err := d.WriteString(now.UTC().Format(time.RFC3339Nano)); err != nil {
		return 0, fmt.Errorf("failed to hash as-of time: %w", err)
	}
	return d.Sum64(), nil
}
