package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"comparables/server/internal/models"
)

func knownSet(ids ...string) *models.TransactionSet {
	set := models.NewTransactionSet()
	for _, id := range ids {
		set.Put(models.TransactionRecord{
			PropertyID:      id,
			TransactionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Price:           100,
		})
	}
	return set
}

func TestStore_SelectDeselect(t *testing.T) {
	set := knownSet("A", "B")
	dirty := 0
	s := New(set.Has, func() { dirty++ })

	assert.NoError(t, s.Select("A"))
	assert.True(t, s.Has("A"))
	assert.Equal(t, 1, dirty)

	// Re-selecting is a no-op but still a user mutation
	assert.NoError(t, s.Select("A"))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, dirty)

	s.Deselect("A")
	assert.False(t, s.Has("A"))
	assert.Equal(t, 3, dirty)

	// Deselecting an absent id is fine
	s.Deselect("missing")
	assert.Equal(t, 4, dirty)
}

func TestStore_SelectUnknownRejected(t *testing.T) {
	set := knownSet("A")
	dirty := 0
	s := New(set.Has, func() { dirty++ })

	err := s.Select("Z")
	assert.ErrorIs(t, err, ErrUnknownProperty)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, dirty)
}

func TestStore_Clear(t *testing.T) {
	set := knownSet("A", "B")
	s := New(set.Has, nil)

	_ = s.Select("A")
	_ = s.Select("B")
	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestStore_SetStrategy(t *testing.T) {
	dirty := 0
	s := New(nil, func() { dirty++ })

	assert.Equal(t, models.StrategyAverage, s.Strategy())
	s.SetStrategy(models.StrategyPricePerSqm)
	assert.Equal(t, models.StrategyPricePerSqm, s.Strategy())
	assert.Equal(t, 1, dirty)
}

func TestStore_SeedDoesNotMarkDirty(t *testing.T) {
	dirty := 0
	s := New(nil, func() { dirty++ })

	s.Seed([]string{"A", "B"}, models.StrategyPricePerSqm)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, models.StrategyPricePerSqm, s.Strategy())
	assert.Equal(t, 0, dirty)

	// Invalid persisted strategy falls back to the current one
	s.Seed([]string{"A"}, models.ValuationStrategy("bogus"))
	assert.Equal(t, models.StrategyPricePerSqm, s.Strategy())
}

func TestStore_PruneDropsStaleIDs(t *testing.T) {
	dirty := 0
	s := New(nil, func() { dirty++ })
	s.Seed([]string{"A", "B", "C"}, models.StrategyAverage)

	s.Prune(knownSet("A", "C"))
	assert.ElementsMatch(t, []string{"A", "C"}, s.SelectedIDs())
	assert.Equal(t, 0, dirty)
}
