package models

import "time"

// NearbyTransaction is the ingested form of a raw sale record, stored per
// subject property. Duplicate sales of the same property are kept as separate
// rows; normalization happens when the engine reads them back.
type NearbyTransaction struct {
	SubjectPropertyID string    `json:"subject_property_id" gorm:"primaryKey;column:subject_property_id"`
	PropertyID        string    `json:"property_id" gorm:"primaryKey;column:property_id"`
	TransactionDate   time.Time `json:"transaction_date" gorm:"primaryKey;column:transaction_date"`
	Price             int64     `json:"price" gorm:"column:price"`
	PropertyType      string    `json:"property_type" gorm:"column:property_type"`
	Bedrooms          int       `json:"bedrooms" gorm:"column:bedrooms"`
	Bathrooms         int       `json:"bathrooms" gorm:"column:bathrooms"`
	InternalAreaSqm   *float64  `json:"internal_area_sqm" gorm:"column:internal_area_sqm"`
	PricePerSqm       *float64  `json:"price_per_sqm" gorm:"column:price_per_sqm"`
	DistanceMetres    *float64  `json:"distance_metres" gorm:"column:distance_metres"`
	StreetName        string    `json:"street_name" gorm:"column:street_name"`
	Address           string    `json:"address" gorm:"column:address"`
	Postcode          string    `json:"postcode" gorm:"column:postcode"`
	Latitude          *float64  `json:"latitude" gorm:"column:latitude"`
	Longitude         *float64  `json:"longitude" gorm:"column:longitude"`
	IngestedAt        time.Time `json:"ingested_at" gorm:"column:ingested_at;autoCreateTime"`
}

// TableName fixes the table shared with the database/sql read path.
func (NearbyTransaction) TableName() string {
	return "nearby_transactions"
}

// Record converts the stored row back to the engine's input form.
func (n NearbyTransaction) Record() TransactionRecord {
	rec := TransactionRecord{
		PropertyID:      n.PropertyID,
		TransactionDate: n.TransactionDate,
		Price:           n.Price,
		PropertyType:    n.PropertyType,
		Bedrooms:        n.Bedrooms,
		Bathrooms:       n.Bathrooms,
		InternalAreaSqm: n.InternalAreaSqm,
		PricePerSqm:     n.PricePerSqm,
		DistanceMetres:  n.DistanceMetres,
		StreetName:      n.StreetName,
		Postcode:        n.Postcode,
		Latitude:        n.Latitude,
		Longitude:       n.Longitude,
	}
	if n.Address != "" {
		rec.AddressLines = []string{n.Address}
	}
	return rec
}
