package persistence

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"comparables/server/internal/models"
)

// State tracks where a subject-property context sits in the load/save cycle.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateDirty
	StateSaving
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// Payload is the snapshot written on each save. It is built at the moment the
// debounce fires, not when the first mutation occurred, so the latest client
// state always wins.
type Payload struct {
	SelectedIDs     []string                 `json:"selected_ids"`
	Strategy        models.ValuationStrategy `json:"strategy"`
	CachedValuation *float64                 `json:"cached_valuation"`
}

// Store is the remote comparables store boundary. Save must be an upsert
// keyed by (user, subject property): repeating an identical payload leaves
// the record unchanged apart from its updated-at stamp.
type Store interface {
	LoadComparables(ctx context.Context, userID, subjectPropertyID string) (*models.PersistedComparablesRecord, error)
	SaveComparables(ctx context.Context, userID, subjectPropertyID string, payload Payload) error
}

// Syncer keeps one subject-property context durably synchronized with the
// remote store. It debounces user mutations into a single save, never saves
// before the initial load has completed, and leaves state dirty on failure so
// a later mutation or a periodic retry picks it up. There is exactly one
// writer per context, so one in-flight save plus re-debounce is all the
// ordering discipline needed.
type Syncer struct {
	mu         sync.Mutex
	state      State
	timer      *time.Timer
	dirtyAgain bool

	store     Store
	logger    *logrus.Logger
	userID    string
	subjectID string
	debounce  time.Duration
	payload   func() Payload
}

// New creates a syncer for one (user, subject property) pair. payload is
// called at debounce-fire time to snapshot the state to write.
func New(store Store, logger *logrus.Logger, userID, subjectID string, debounce time.Duration, payload func() Payload) *Syncer {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Syncer{
		state:     StateUnloaded,
		store:     store,
		logger:    logger,
		userID:    userID,
		subjectID: subjectID,
		debounce:  debounce,
		payload:   payload,
	}
}

// Load issues the single initial read for this context. A missing record
// comes back nil with no error. A failed load is non-fatal: it is logged and
// the context proceeds as a fresh one with defaults.
func (s *Syncer) Load(ctx context.Context) *models.PersistedComparablesRecord {
	s.mu.Lock()
	if s.state != StateUnloaded {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoading
	s.mu.Unlock()

	record, err := s.store.LoadComparables(ctx, s.userID, s.subjectID)

	s.mu.Lock()
	s.state = StateLoaded
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":    s.userID,
			"subject_id": s.subjectID,
		}).Warn("Failed to load comparables record, starting with defaults")
		return nil
	}
	return record
}

// MarkDirty records a user mutation and restarts the debounce window.
// Mutations before the initial load completes are ignored: only user edits
// after StateLoaded may ever trigger a save.
func (s *Syncer) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUnloaded, StateLoading:
		return
	case StateSaving:
		// The in-flight save runs to completion; a fresh debounce cycle
		// starts now to capture the newer state.
		s.dirtyAgain = true
	default:
		s.state = StateDirty
	}
	s.resetTimerLocked()
}

// State returns the current sync state.
func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NeedsRetry reports whether a failed save left the context dirty with no
// debounce pending, i.e. nothing will write it unless retried.
func (s *Syncer) NeedsRetry() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateDirty && s.timer == nil
}

// Flush saves immediately if the context is dirty. Used on context close and
// by the periodic retry loop after a failed save.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDirty {
		s.mu.Unlock()
		return nil
	}
	s.stopTimerLocked()
	s.mu.Unlock()

	return s.save(ctx)
}

// Stop cancels any pending debounce. It does not wait for an in-flight save.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

func (s *Syncer) resetTimerLocked() {
	s.stopTimerLocked()
	s.timer = time.AfterFunc(s.debounce, s.onDebounce)
}

func (s *Syncer) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Syncer) onDebounce() {
	s.mu.Lock()
	s.timer = nil
	if s.state == StateSaving {
		// Let the in-flight save finish; try again after another window.
		s.dirtyAgain = true
		s.resetTimerLocked()
		s.mu.Unlock()
		return
	}
	if s.state != StateDirty {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.save(context.Background()); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":    s.userID,
			"subject_id": s.subjectID,
		}).Error("Failed to save comparables record")
	}
}

// save snapshots the payload, performs the write, and settles the state
// machine: clean on success, dirty again on failure or when a mutation
// arrived mid-save.
func (s *Syncer) save(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSaving {
		// A save is already in flight; it will re-debounce if needed.
		s.dirtyAgain = true
		s.mu.Unlock()
		return nil
	}
	s.state = StateSaving
	s.mu.Unlock()

	payload := s.payload()
	err := s.store.SaveComparables(ctx, s.userID, s.subjectID, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.dirtyAgain = false
		s.state = StateDirty
		return err
	}
	if s.dirtyAgain {
		s.dirtyAgain = false
		s.state = StateDirty
		s.resetTimerLocked()
	} else {
		s.state = StateLoaded
	}
	return nil
}
