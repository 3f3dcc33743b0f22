package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"comparables/server/config"
	"comparables/server/internal/database"
	"comparables/server/internal/models"
	"comparables/server/internal/queue"
)

// BatchProcessor drains the ingestion queue with a pool of workers, upserting
// each batch inside a transaction with retries. Every batch is taken by
// exactly one worker.
type BatchProcessor struct {
	db        *gorm.DB
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.TransactionQueue
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db *gorm.DB, queue *queue.TransactionQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
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

// Start launches the worker pool.
func (p *BatchProcessor) Start() {
	for i := 0; i < p.config.BatchProcessing.ProcessorCount; i++ {
		p.waitGroup.Add(1)
		go p.worker()
	}
}

// Stop cancels the workers and waits for them to finish their current batch.
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

// worker consumes batches until the queue closes or the processor stops.
func (p *BatchProcessor) worker() {
	defer p.waitGroup.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case batch, ok := <-p.queue.Batches():
			if !ok {
				return
			}
			if err := p.processBatch(batch); err != nil {
				p.logger.WithError(err).WithField("batch_size", len(batch)).Error("Dropping batch after exhausting retries")
			}
		}
	}
}

// processBatch upserts a single batch, retrying with a delay on failure.
func (p *BatchProcessor) processBatch(batch []*models.NearbyTransaction) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			select {
			case <-p.ctx.Done():
				return p.ctx.Err()
			case <-time.After(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second):
			}
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertNearbyTransactions(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert transactions batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.Infof("Successfully processed batch of %d transactions", len(batch))
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries, err)
}
