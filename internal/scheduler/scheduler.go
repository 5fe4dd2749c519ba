package scheduler

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"parcelscope/server/config"
	"parcelscope/server/internal/analytics"
	"parcelscope/server/internal/models"
)

// JobType represents the periodic jobs
type JobType int

const (
	JobTypeMarketSnapshot JobType = iota
	JobTypeCachePurge
)

// String returns the string representation of a JobType
func (j JobType) String() string {
	switch j {
	case JobTypeMarketSnapshot:
		return "market_snapshot"
	case JobTypeCachePurge:
		return "cache_purge"
	default:
		return "unknown"
	}
}

// ParcelLister supplies the stored parcels of a city
type ParcelLister interface {
	ListParcels(city string) ([]models.Parcel, error)
}

// Purger drops memoized analyses
type Purger interface {
	Purge()
}

// Scheduler refreshes market snapshots every hour and clears the analysis
// cache when the as-of day rolls over
type Scheduler struct {
	parcels   ParcelLister
	engine    *analytics.Engine
	cache     Purger
	logger    *logrus.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
	cities    []config.City
	jobMutex  sync.Mutex // Ensures sequential job execution
	mu        sync.RWMutex
	snapshots map[string]analytics.MarketSnapshot
}

// NewScheduler creates a new scheduler
func NewScheduler(parcels ParcelLister, engine *analytics.Engine, cache Purger, logger *logrus.Logger, cities []config.City) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		parcels:   parcels,
		engine:    engine,
		cache:     cache,
		logger:    logger,
		stopChan:  make(chan struct{}),
		cities:    cities,
		snapshots: make(map[string]analytics.MarketSnapshot),
	}
}

// Start runs the snapshot job once, then checks the schedule every minute
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	s.jobMutex.Lock()
	s.refreshSnapshots(time.Now())
	s.jobMutex.Unlock()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.executeScheduledJobs(t)
		}
	}
}

// executeScheduledJobs runs all jobs that are scheduled for the given time
func (s *Scheduler) executeScheduledJobs(t time.Time) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	t = t.UTC()
	s.logger.WithFields(logrus.Fields{
		"hour":   t.Hour(),
		"minute": t.Minute(),
	}).Debug("Checking scheduled jobs")

	if t.Minute() != 0 {
		return
	}

	// Cached analyses are keyed by the as-of day
	if t.Hour() == 0 && s.cache != nil {
		s.cache.Purge()
		s.logger.WithField("job_type", JobTypeCachePurge.String()).Info("Analysis cache purged")
	}

	s.refreshSnapshots(t)
}

// refreshSnapshots recomputes the market snapshot of every configured city
func (s *Scheduler) refreshSnapshots(t time.Time) {
	for _, city := range s.cities {
		fields := logrus.Fields{
			"city":            city.Name,
			"normalized_city": config.NormalizeCity(city.Name),
			"job_type":        JobTypeMarketSnapshot.String(),
		}

		parcels, err := s.parcels.ListParcels(city.Name)
		if err != nil {
			s.logger.WithError(err).WithFields(fields).Error("Snapshot job failed")
			continue
		}

		snapshot := s.engine.Market(city.Name, parcels, t)
		s.mu.Lock()
		s.snapshots[city.Name] = snapshot
		s.mu.Unlock()

		fields["parcels"] = len(parcels)
		if snapshot.Temperature != nil {
			fields["temperature"] = snapshot.Temperature.Level
		}
		s.logger.WithFields(fields).Info("Snapshot job completed successfully")
	}
}

// Snapshots returns the latest snapshot of every city, ordered by name
func (s *Scheduler) Snapshots() []analytics.MarketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]analytics.MarketSnapshot, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		out = append(out, snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].City < out[j].City })
	return out
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
