package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"comparables/server/internal/models"
)

// UpsertNearbyTransactions writes a batch of ingested sale records inside the
// given gorm transaction. Re-ingesting the same (subject, property, date) row
// updates it in place, so repeated feeds are safe.
func UpsertNearbyTransactions(tx *gorm.DB, batch []*models.NearbyTransaction) error {
	if len(batch) == 0 {
		return nil
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "subject_property_id"},
			{Name: "property_id"},
			{Name: "transaction_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"price", "property_type", "bedrooms", "bathrooms", "internal_area_sqm",
			"price_per_sqm", "distance_metres", "street_name", "address", "postcode",
			"latitude", "longitude",
		}),
	}).Create(batch).Error
	if err != nil {
		return fmt.Errorf("failed to upsert nearby transactions: %w", err)
	}
	return nil
}
