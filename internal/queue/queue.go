package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"nestquest/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// ListingQueue is an in-memory queue of listing batches awaiting import.
type ListingQueue struct {
	items    chan []*models.Listing
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func([]*models.Listing) error
}

// NewListingQueue creates a queue with the specified buffer size.
func NewListingQueue(bufferSize int, logger *logrus.Logger) *ListingQueue {
	return &ListingQueue{
		items:    make(chan []*models.Listing, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]*models.Listing) error, 0),
	}
}

// Push adds a batch of listings to the queue without blocking; a full queue
// returns ErrQueueFull so the caller can shed load. The lock is held across
// the send so Close cannot close the channel mid-push; the send itself never
// blocks.
func (q *ListingQueue) Push(batch []*models.Listing) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler called for each dequeued batch.
func (q *ListingQueue) Subscribe(handler func([]*models.Listing) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing queued batches. Each call adds one drain worker;
// a batch is delivered to exactly one worker, which runs every handler.
func (q *ListingQueue) Start() {
	go q.process()
}

func (q *ListingQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.items:
			q.processBatch(batch)
		}
	}
}

func (q *ListingQueue) processBatch(batch []*models.Listing) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops the queue and prevents new batches from being added.
func (q *ListingQueue) Close() error {
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

// Len returns the current number of batches in the queue.
func (q *ListingQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed.
func (q *ListingQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
