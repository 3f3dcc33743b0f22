package selection

import (
	"errors"
	"sync"

	"comparables/server/internal/models"
)

// ErrUnknownProperty is returned when a caller tries to select an id that is
// not in the current transaction set. The UI only offers visible ids, so this
// is a programming-contract violation rather than a user-facing error.
var ErrUnknownProperty = errors.New("property id not in current transaction set")

// Store holds the set of comparable ids the user has chosen for one subject
// property, plus the active valuation strategy. Every user mutation fires the
// onDirty callback; load-time seeding never does.
type Store struct {
	mu       sync.Mutex
	ids      map[string]struct{}
	strategy models.ValuationStrategy
	known    func(id string) bool
	onDirty  func()
}

// New creates an empty store. known reports membership in the current
// normalized set; onDirty is invoked after each user mutation. Either may be
// nil.
func New(known func(id string) bool, onDirty func()) *Store {
	return &Store{
		ids:      make(map[string]struct{}),
		strategy: models.StrategyAverage,
		known:    known,
		onDirty:  onDirty,
	}
}

// Select adds an id to the selection. Selecting an already-present id is a
// no-op that still counts as a user mutation.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	if s.known != nil && !s.known(id) {
		s.mu.Unlock()
		return ErrUnknownProperty
	}
	s.ids[id] = struct{}{}
	s.mu.Unlock()

	s.markDirty()
	return nil
}

// Deselect removes an id; removing an absent id is a no-op.
func (s *Store) Deselect(id string) {
	s.mu.Lock()
	delete(s.ids, id)
	s.mu.Unlock()

	s.markDirty()
}

// Clear empties the selection.
func (s *Store) Clear() {
	s.mu.Lock()
	s.ids = make(map[string]struct{})
	s.mu.Unlock()

	s.markDirty()
}

// SetStrategy switches the valuation strategy.
func (s *Store) SetStrategy(strategy models.ValuationStrategy) {
	s.mu.Lock()
	s.strategy = strategy
	s.mu.Unlock()

	s.markDirty()
}

// Seed installs state loaded from the remote store. It bypasses the known
// check and never marks the store dirty, so an initial load can never be
// mistaken for a user edit.
func (s *Store) Seed(ids []string, strategy models.ValuationStrategy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	if strategy.Valid() {
		s.strategy = strategy
	}
}

// Prune silently drops ids that are no longer present in the given set.
// Stale ids are expected after a refetch and are not an error; pruning is not
// a user mutation.
func (s *Store) Prune(set *models.TransactionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.ids {
		if !set.Has(id) {
			delete(s.ids, id)
		}
	}
}

// SelectedIDs returns the current selection as a copy.
func (s *Store) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// Has reports whether an id is currently selected.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Strategy returns the active valuation strategy.
func (s *Store) Strategy() models.ValuationStrategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strategy
}

// Len returns the selection size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *Store) markDirty() {
	if s.onDirty != nil {
		s.onDirty()
	}
}
