package models

import "time"

// ValuationStrategy selects how a comparable selection is turned into a
// single monetary estimate.
type ValuationStrategy string

const (
	StrategyAverage     ValuationStrategy = "average"
	StrategyPricePerSqm ValuationStrategy = "price_per_sqm"
)

// Valid reports whether s is one of the known strategies.
func (s ValuationStrategy) Valid() bool {
	return s == StrategyAverage || s == StrategyPricePerSqm
}

// SubjectContext carries the subject property details the engine needs but
// never fetches itself.
type SubjectContext struct {
	PropertyID string   `json:"property_id"`
	AreaSqm    float64  `json:"area_sqm"`
	StreetName string   `json:"street_name"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

// ValuationResult is the derived estimate for the current selection.
// Amount is nil when the selection is empty or, under price_per_sqm, when no
// selected record has a usable price per sqm or the subject area is unknown.
// BasisCount is the number of records actually used, which can be smaller
// than the selection size.
type ValuationResult struct {
	Amount     *float64          `json:"amount"`
	BasisCount int               `json:"basis_count"`
	Strategy   ValuationStrategy `json:"strategy"`
}

// PersistedComparablesRecord is the remote store's copy of a user's selection
// for one subject property. The cached valuation is display-only; the source
// of truth is always a fresh computation from the selection.
type PersistedComparablesRecord struct {
	UserID            string            `json:"user_id"`
	SubjectPropertyID string            `json:"subject_property_id"`
	SelectedIDs       []string          `json:"selected_ids"`
	Strategy          ValuationStrategy `json:"strategy"`
	CachedValuation   *float64          `json:"cached_valuation"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
