package processor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"parcelscope/server/config"
	"parcelscope/server/internal/database"
	"parcelscope/server/internal/models"
	"parcelscope/server/internal/queue"
)

// Transactor runs a function inside a database transaction. *gorm.DB
// satisfies it.
type Transactor interface {
	Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error
}

// BatchProcessor stores parcel batches taken from the ingest queue
type BatchProcessor struct {
	db       Transactor
	logger   *logrus.Logger
	config   *config.Config
	queue    *queue.ParcelQueue
	ctx      context.Context
	cancel   context.CancelFunc
	stored   atomic.Uint64
	mu       sync.RWMutex
	onStored []func([]*models.Parcel)
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db Transactor, queue *queue.ParcelQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnStored registers a callback run after a batch is committed
func (p *BatchProcessor) OnStored(fn func([]*models.Parcel)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStored = append(p.onStored, fn)
}

// Start subscribes the processor to the queue
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(p.handleBatch)
}

// Stop cancels pending retries. Batches already committed are kept.
func (p *BatchProcessor) Stop() {
	p.cancel()
}

// Stored returns the number of parcels committed since start
func (p *BatchProcessor) Stored() uint64 {
	return p.stored.Load()
}

// handleBatch splits the batch into chunks stored concurrently, at most
// ProcessorCount at a time
func (p *BatchProcessor) handleBatch(batch []*models.Parcel) error {
	workers := max(p.config.BatchProcessing.ProcessorCount, 1)
	chunks := split(batch, workers)

	g, _ := errgroup.WithContext(p.ctx)
	g.SetLimit(workers)
	for _, chunk := range chunks {
		g.Go(func() error {
			return p.processBatch(chunk)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p.mu.RLock()
	callbacks := p.onStored
	p.mu.RUnlock()
	for _, fn := range callbacks {
		fn(batch)
	}
	return nil
}

// processBatch stores one chunk in a transaction, retrying on failure
func (p *BatchProcessor) processBatch(batch []*models.Parcel) error {
	attempts := p.config.BatchProcessing.MaxRetries + 1
	delay := time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			select {
			case <-p.ctx.Done():
				return fmt.Errorf("batch processing cancelled: %w", p.ctx.Err())
			case <-time.After(delay):
			}
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertParcels(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert parcels batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.stored.Add(uint64(len(batch)))
			p.logger.Infof("Successfully processed batch of %d parcels", len(batch))
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
		if database.IsPermanent(err) {
			return fmt.Errorf("batch rejected by database: %w", err)
		}
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", attempts, err)
}

// split divides the batch into at most n chunks of near-equal size
func split(batch []*models.Parcel, n int) [][]*models.Parcel {
	if len(batch) == 0 {
		return nil
	}
	size := (len(batch) + n - 1) / n

	chunks := make([][]*models.Parcel, 0, n)
	for start := 0; start < len(batch); start += size {
		end := min(start+size, len(batch))
		chunks = append(chunks, batch[start:end])
	}
	return chunks
}
