package models

// DistanceMode enumerates the distance filter variants.
type DistanceMode string

const (
	DistanceAny        DistanceMode = "any"
	DistanceSameStreet DistanceMode = "same_street"
	DistanceMaxMetres  DistanceMode = "max_metres"
)

// DistanceFilter restricts records by proximity to the subject property.
// MaxMetres is only meaningful when Mode is DistanceMaxMetres.
type DistanceFilter struct {
	Mode      DistanceMode `json:"mode"`
	MaxMetres float64      `json:"max_metres"`
}

// FilterCriteria is the declarative filter set applied over a normalized
// transaction set. Nil numeric fields mean "any". When BedroomsOpen or
// BathroomsOpen is set the corresponding value is an open lower bound
// ("4+" means >= 4) instead of an exact match.
//
// Criteria live with the UI session; only the selection and strategy are
// persisted.
type FilterCriteria struct {
	Bedrooms      *int           `json:"bedrooms"`
	BedroomsOpen  bool           `json:"bedrooms_open"`
	Bathrooms     *int           `json:"bathrooms"`
	BathroomsOpen bool           `json:"bathrooms_open"`
	WindowDays    *int           `json:"window_days"`
	PropertyType  string         `json:"property_type"`
	Distance      DistanceFilter `json:"distance"`
}
