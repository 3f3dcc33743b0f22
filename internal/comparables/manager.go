package comparables

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"comparables/server/internal/models"
	"comparables/server/internal/persistence"
)

// Manager tracks the open engine contexts, one per (user, subject property).
type Manager struct {
	mu       sync.Mutex
	contexts map[contextKey]*Context
	store    persistence.Store
	logger   *logrus.Logger
	debounce time.Duration
}

type contextKey struct {
	userID    string
	subjectID string
}

func NewManager(store persistence.Store, logger *logrus.Logger, debounce time.Duration) *Manager {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Manager{
		contexts: make(map[contextKey]*Context),
		store:    store,
		logger:   logger,
		debounce: debounce,
	}
}

// Open creates (or replaces) the context for a user and subject property.
// Replacing an existing context closes it first so pending state is flushed.
func (m *Manager) Open(ctx context.Context, userID string, subject models.SubjectContext, raw []models.TransactionRecord) *Context {
	key := contextKey{userID: userID, subjectID: subject.PropertyID}

	m.mu.Lock()
	old := m.contexts[key]
	m.mu.Unlock()
	if old != nil {
		old.Close(ctx)
	}

	c := Open(ctx, m.store, m.logger, userID, subject, raw, m.debounce)

	m.mu.Lock()
	m.contexts[key] = c
	m.mu.Unlock()
	return c
}

// Get returns the open context for a user and subject property, if any.
func (m *Manager) Get(userID, subjectID string) (*Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contexts[contextKey{userID: userID, subjectID: subjectID}]
	return c, ok
}

// Close tears down a context, flushing any unsaved selection.
func (m *Manager) Close(ctx context.Context, userID, subjectID string) bool {
	key := contextKey{userID: userID, subjectID: subjectID}

	m.mu.Lock()
	c, ok := m.contexts[key]
	delete(m.contexts, key)
	m.mu.Unlock()

	if !ok {
		return false
	}
	c.Close(ctx)
	return true
}

// FlushDirty re-attempts the save for every context left dirty by a failed
// write. Called periodically by the retry flusher.
func (m *Manager) FlushDirty(ctx context.Context) {
	m.mu.Lock()
	open := make([]*Context, 0, len(m.contexts))
	for _, c := range m.contexts {
		open = append(open, c)
	}
	m.mu.Unlock()

	for _, c := range open {
		if !c.NeedsRetry() {
			continue
		}
		if err := c.Flush(ctx); err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":    c.UserID,
				"subject_id": c.Subject.PropertyID,
			}).Error("Retry save failed")
		}
	}
}

// CloseAll flushes and tears down every open context.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	open := m.contexts
	m.contexts = make(map[contextKey]*Context)
	m.mu.Unlock()

	for _, c := range open {
		c.Close(ctx)
	}
}
