package comparables

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"comparables/server/internal/geo"
	"comparables/server/internal/models"
	"comparables/server/internal/normalizer"
	"comparables/server/internal/persistence"
	"comparables/server/internal/pipeline"
	"comparables/server/internal/selection"
	"comparables/server/internal/valuation"
)

// Context owns the engine state for one (user, subject property) pair: the
// normalized transaction set, the user's selection, and the syncer that keeps
// it durable. It is created on open, seeded from the remote store, and torn
// down when the subject-property context closes.
type Context struct {
	UserID  string
	Subject models.SubjectContext

	mu        sync.RWMutex
	set       *models.TransactionSet
	selection *selection.Store
	syncer    *persistence.Syncer
	norm      *normalizer.Normalizer
	pipe      *pipeline.Pipeline
	logger    *logrus.Logger
}

// Open builds a context, normalizes the raw transactions, loads any persisted
// selection, and seeds it without triggering a save. A failed load proceeds
// with defaults; the first successful save then starts a fresh remote record.
func Open(ctx context.Context, store persistence.Store, logger *logrus.Logger, userID string, subject models.SubjectContext, raw []models.TransactionRecord, debounce time.Duration) *Context {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	c := &Context{
		UserID:  userID,
		Subject: subject,
		norm:    normalizer.New(logger),
		pipe:    pipeline.New(),
		logger:  logger,
	}

	c.set = c.norm.Normalize(geo.FillDistances(raw, subject))

	c.syncer = persistence.New(store, logger, userID, subject.PropertyID, debounce, c.payload)
	c.selection = selection.New(func(id string) bool { return c.currentSet().Has(id) }, c.syncer.MarkDirty)

	if record := c.syncer.Load(ctx); record != nil {
		c.selection.Seed(record.SelectedIDs, record.Strategy)
		c.selection.Prune(c.set)
	}
	return c
}

// payload snapshots the state to persist, including a freshly computed
// valuation for display. Called by the syncer at debounce-fire time.
func (c *Context) payload() persistence.Payload {
	ids := c.selection.SelectedIDs()
	strategy := c.selection.Strategy()
	result := valuation.Compute(ids, strategy, c.currentSet(), c.Subject.AreaSqm)
	return persistence.Payload{
		SelectedIDs:     ids,
		Strategy:        strategy,
		CachedValuation: result.Amount,
	}
}

// SetTransactions replaces the raw input after a refetch. The set is
// recomputed from scratch and stale selected ids are pruned silently;
// pruning is not a user edit and never triggers a save by itself.
func (c *Context) SetTransactions(raw []models.TransactionRecord) {
	set := c.norm.Normalize(geo.FillDistances(raw, c.Subject))
	c.mu.Lock()
	c.set = set
	c.mu.Unlock()
	c.selection.Prune(set)
}

func (c *Context) currentSet() *models.TransactionSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.set
}

// View applies the filter criteria and sort order over the normalized set.
func (c *Context) View(criteria models.FilterCriteria, key pipeline.SortKey) []models.TransactionRecord {
	return c.pipe.Apply(c.currentSet(), criteria, c.Subject, key)
}

// Select marks a property as a comparable.
func (c *Context) Select(id string) error {
	return c.selection.Select(id)
}

// Deselect removes a property from the comparables.
func (c *Context) Deselect(id string) {
	c.selection.Deselect(id)
}

// Clear empties the selection.
func (c *Context) Clear() {
	c.selection.Clear()
}

// SetStrategy switches the valuation strategy.
func (c *Context) SetStrategy(strategy models.ValuationStrategy) {
	c.selection.SetStrategy(strategy)
}

// SelectedIDs returns the current selection.
func (c *Context) SelectedIDs() []string {
	return c.selection.SelectedIDs()
}

// Valuation computes the estimate for the current selection.
func (c *Context) Valuation() models.ValuationResult {
	return valuation.Compute(c.selection.SelectedIDs(), c.selection.Strategy(), c.currentSet(), c.Subject.AreaSqm)
}

// SyncState exposes the persistence state.
func (c *Context) SyncState() persistence.State {
	return c.syncer.State()
}

// NeedsRetry reports whether a failed save left this context dirty with
// nothing scheduled to write it.
func (c *Context) NeedsRetry() bool {
	return c.syncer.NeedsRetry()
}

// Flush forces an immediate save when dirty.
func (c *Context) Flush(ctx context.Context) error {
	return c.syncer.Flush(ctx)
}

// Close cancels the pending debounce and flushes unsaved state.
func (c *Context) Close(ctx context.Context) {
	if err := c.syncer.Flush(ctx); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":    c.UserID,
			"subject_id": c.Subject.PropertyID,
		}).Error("Failed to flush comparables on close")
	}
	c.syncer.Stop()
}
