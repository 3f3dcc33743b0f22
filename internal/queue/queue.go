package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"comparables/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// TransactionQueue buffers ingested sale batches between the API handlers and
// the batch processor workers. Producers push without blocking; each batch is
// delivered to exactly one consumer reading Batches. The send and the channel
// close share one lock, so Push never races a concurrent Close onto a closed
// channel.
type TransactionQueue struct {
	mu     sync.Mutex
	items  chan []*models.NearbyTransaction
	closed bool
	logger *logrus.Logger
}

// NewTransactionQueue creates a queue holding up to bufferSize pending batches.
func NewTransactionQueue(bufferSize int, logger *logrus.Logger) *TransactionQueue {
	return &TransactionQueue{
		items:  make(chan []*models.NearbyTransaction, bufferSize),
		logger: logger,
	}
}

// Push enqueues a batch without blocking. A full queue is an error so
// backpressure surfaces at the API instead of stalling a request handler.
func (q *TransactionQueue) Push(batch []*models.NearbyTransaction) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Queued transaction batch")
		return nil
	default:
		return ErrQueueFull
	}
}

// Batches is the consumer side of the queue. The channel closes once Close has
// been called and the remaining buffered batches drain, so workers can range
// over it.
func (q *TransactionQueue) Batches() <-chan []*models.NearbyTransaction {
	return q.items
}

// Close rejects further pushes and closes the batch channel. Batches already
// queued stay readable until drained. Safe to call more than once.
func (q *TransactionQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.items)
	return nil
}

// Len returns the number of batches waiting to be consumed.
func (q *TransactionQueue) Len() int {
	return len(q.items)
}

// IsClosed reports whether the queue has been closed.
func (q *TransactionQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
