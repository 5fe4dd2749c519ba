package queue

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"parcelscope/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
	ErrEmptyBatch  = errors.New("batch is empty")
)

// Handler consumes one batch of parcels
type Handler func([]*models.Parcel) error

// Stats counts batches seen by the queue
type Stats struct {
	Pending   int    `json:"pending"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
}

// ParcelQueue is an in-memory queue of parcel batches awaiting ingest
type ParcelQueue struct {
	items     chan []*models.Parcel
	done      chan struct{}
	maxSize   int
	closed    bool
	mu        sync.RWMutex
	logger    *logrus.Logger
	handlers  []Handler
	processed atomic.Uint64
	failed    atomic.Uint64
}

// NewParcelQueue creates a queue buffering up to bufferSize batches
func NewParcelQueue(bufferSize int, logger *logrus.Logger) *ParcelQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &ParcelQueue{
		items:    make(chan []*models.Parcel, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]Handler, 0),
	}
}

// Push adds a batch without blocking
func (q *ParcelQueue) Push(parcels []*models.Parcel) error {
	if len(parcels) == 0 {
		return ErrEmptyBatch
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- parcels:
		q.logger.WithField("batch_size", len(parcels)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler called for every batch
func (q *ParcelQueue) Subscribe(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins dispatching batches to the handlers
func (q *ParcelQueue) Start() {
	go q.process()
}

func (q *ParcelQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch, ok := <-q.items:
			if !ok {
				return
			}
			q.dispatch(batch)
		}
	}
}

// dispatch sends the batch to every handler
func (q *ParcelQueue) dispatch(batch []*models.Parcel) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	failed := false
	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			failed = true
			q.logger.WithError(err).WithField("batch_size", len(batch)).Error("Handler failed to process batch")
		}
	}

	if failed {
		q.failed.Add(1)
	} else {
		q.processed.Add(1)
	}
}

// Close stops dispatching and rejects further pushes
func (q *ParcelQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	close(q.items)
	return nil
}

// Len returns the number of batches waiting
func (q *ParcelQueue) Len() int {
	return len(q.items)
}

func (q *ParcelQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *ParcelQueue) Stats() Stats {
	return Stats{
		Pending:   q.Len(),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
	}
}
