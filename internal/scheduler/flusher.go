package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"comparables/server/internal/comparables"
)

// Flusher periodically re-attempts saves for contexts left dirty by a failed
// write. The debounce path handles the normal case; this loop only exists so
// a context whose save failed is not stuck until the user's next edit.
type Flusher struct {
	manager  *comparables.Manager
	logger   *logrus.Logger
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewFlusher creates a flusher sweeping at the given interval.
func NewFlusher(manager *comparables.Manager, logger *logrus.Logger, interval time.Duration) *Flusher {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Flusher{
		manager:  manager,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the retry loop.
func (f *Flusher) Start() {
	f.wg.Add(1)
	go f.run()
}

func (f *Flusher) run() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopChan:
			return
		case <-ticker.C:
			f.logger.Debug("Sweeping dirty comparables contexts")
			f.manager.FlushDirty(context.Background())
		}
	}
}

// Stop gracefully stops the flusher.
func (f *Flusher) Stop() {
	close(f.stopChan)
	f.wg.Wait()
}
