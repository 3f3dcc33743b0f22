package models

import "time"

// TransactionRecord is one historical sale near a subject property.
// propertyId identifies the sold property, not the sale event: the same id
// can appear more than once in raw input when a property sold repeatedly.
type TransactionRecord struct {
	PropertyID      string    `json:"property_id"`
	TransactionDate time.Time `json:"transaction_date"`
	Price           int64     `json:"price"`
	PropertyType    string    `json:"property_type"`
	Bedrooms        int       `json:"bedrooms"`
	Bathrooms       int       `json:"bathrooms"`
	InternalAreaSqm *float64  `json:"internal_area_sqm"`
	PricePerSqm     *float64  `json:"price_per_sqm"`
	DistanceMetres  *float64  `json:"distance_metres"`
	StreetName      string    `json:"street_name"`
	AddressLines    []string  `json:"address_lines"`
	Postcode        string    `json:"postcode"`
	Latitude        *float64  `json:"latitude"`
	Longitude       *float64  `json:"longitude"`
}

// TransactionSet is the normalized view of raw input: exactly one record per
// distinct property id, iterable in first-seen input order.
type TransactionSet struct {
	records map[string]TransactionRecord
	order   []string
}

func NewTransactionSet() *TransactionSet {
	return &TransactionSet{records: make(map[string]TransactionRecord)}
}

// Put inserts or replaces the record for its property id. Insertion order is
// remembered for the first occurrence only.
func (s *TransactionSet) Put(rec TransactionRecord) {
	if _, ok := s.records[rec.PropertyID]; !ok {
		s.order = append(s.order, rec.PropertyID)
	}
	s.records[rec.PropertyID] = rec
}

func (s *TransactionSet) Get(id string) (TransactionRecord, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

func (s *TransactionSet) Has(id string) bool {
	_, ok := s.records[id]
	return ok
}

func (s *TransactionSet) Len() int {
	return len(s.records)
}

// Records returns the retained records in first-seen input order.
func (s *TransactionSet) Records() []TransactionRecord {
	out := make([]TransactionRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// IDs returns the retained property ids in first-seen input order.
func (s *TransactionSet) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
